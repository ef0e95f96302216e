/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package logging

import (
	"io"
	stdLog "log"
	"os"
	"time"

	zeroLog "github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets up the global zerolog logger. Logs go to stderr so stdout only
// carries the progress report.
func Init(verbose bool) {
	Setup(os.Stderr, verbose)
}

// Setup points the global logger at w. Debug messages, including the output
// of external commands, are only kept when verbose is set.
func Setup(w io.Writer, verbose bool) {
	level := zeroLog.InfoLevel
	if verbose {
		level = zeroLog.DebugLevel
	}

	output := zeroLog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	log.Logger = zeroLog.New(output).Level(level).With().Timestamp().Logger()

	// libraries still writing through the Go standard log end up in the same stream
	stdLog.SetFlags(0)
	stdLog.SetOutput(log.Logger)
}
