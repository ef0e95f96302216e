/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package common

import (
	"errors"
	"fmt"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitFatal   = 2
)

// FatalError marks a failure the operator has to fix before re-running:
// invalid or missing input, ambiguous defaults, missing prerequisites and
// readiness timeouts. It maps to exit code 2.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatalf builds a FatalError from a format string. %w is honoured.
func Fatalf(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// Fatal wraps err as a FatalError, returning nil for a nil err.
func Fatal(err error) error {
	if err == nil {
		return nil
	}

	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}

	return &FatalError{Err: err}
}

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsFatal(err):
		return ExitFatal
	default:
		return ExitFailure
	}
}
