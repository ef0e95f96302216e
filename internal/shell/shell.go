/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Outcome classifies how an external command ended.
type Outcome int

const (
	// Succeeded means the command ran and exited zero.
	Succeeded Outcome = iota
	// ExitedNonZero means the command ran and exited with a non-zero status.
	ExitedNonZero
	// FailedToStart means the command never ran, usually because the binary is missing.
	FailedToStart
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case ExitedNonZero:
		return "exited non-zero"
	case FailedToStart:
		return "failed to start"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Command struct {
	Name  string
	Args  []string
	Stdin io.Reader
	Env   []string
	Dir   string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

type Result struct {
	Command  Command
	Outcome  Outcome
	ExitCode int
	Stdout   string
	Stderr   string
	// Err is the underlying start error for FailedToStart.
	Err error
}

// Error returns nil on success and a descriptive error otherwise.
func (r Result) Error() error {
	switch r.Outcome {
	case Succeeded:
		return nil
	case ExitedNonZero:
		msg := strings.TrimSpace(r.Stderr)
		if msg == "" {
			return fmt.Errorf("%q exited with status %d", r.Command.String(), r.ExitCode)
		}
		return fmt.Errorf("%q exited with status %d: %s", r.Command.String(), r.ExitCode, msg)
	default:
		return fmt.Errorf("unable to run %q: %w", r.Command.String(), r.Err)
	}
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// ExecRunner runs commands on the local host. When Verbose is set every output
// line is logged as it arrives, otherwise output is only captured.
type ExecRunner struct {
	Verbose bool
}

func (r ExecRunner) Run(ctx context.Context, c Command) Result {
	result := Result{Command: c}

	log.Debug().Msgf("running %s", c.String())

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdin = c.Stdin
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}

	var outb, errb bytes.Buffer
	var wg sync.WaitGroup
	if r.Verbose {
		outPipe, outWriter := io.Pipe()
		errPipe, errWriter := io.Pipe()
		cmd.Stdout = io.MultiWriter(&outb, outWriter)
		cmd.Stderr = io.MultiWriter(&errb, errWriter)

		wg.Add(2)
		go logLines(&wg, outPipe, "OUT")
		go logLines(&wg, errPipe, "ERR")
		defer func() {
			outWriter.Close()
			errWriter.Close()
			wg.Wait()
		}()
	} else {
		cmd.Stdout = &outb
		cmd.Stderr = &errb
	}

	err := cmd.Run()
	result.Stdout = outb.String()
	result.Stderr = errb.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.Outcome = Succeeded
	case errors.As(err, &exitErr):
		result.Outcome = ExitedNonZero
		result.ExitCode = exitErr.ExitCode()
		log.Debug().Msgf("%s exited with status %d", c.Name, result.ExitCode)
	default:
		result.Outcome = FailedToStart
		result.ExitCode = -1
		result.Err = err
		log.Debug().Msgf("unable to start %s: %s", c.Name, err)
	}

	return result
}

// Output runs cmd and returns its trimmed stdout, or the result error.
func Output(ctx context.Context, r Runner, cmd Command) (string, error) {
	res := r.Run(ctx, cmd)
	if err := res.Error(); err != nil {
		return "", err
	}

	return strings.TrimSpace(res.Stdout), nil
}

func logLines(wg *sync.WaitGroup, rd io.Reader, stream string) {
	defer wg.Done()

	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		log.Debug().Msgf("%s: %s", stream, scanner.Text())
	}
	// drain so the writer side never blocks
	_, _ = io.Copy(io.Discard, rd)
}
