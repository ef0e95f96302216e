package common

import (
	"errors"
	"fmt"
	"io"
)

// Printer fans a message out to every registered writer.
type Printer struct {
	writers []io.Writer
}

func NewPrinter(writers ...io.Writer) *Printer {
	return &Printer{
		writers: writers,
	}
}

// Print writes s to all writers. A failing writer does not stop the others,
// every failure is returned joined.
func (p *Printer) Print(s string) error {
	var errs []error
	for _, w := range p.writers {
		if _, err := fmt.Fprint(w, s); err != nil {
			errs = append(errs, fmt.Errorf("failed to write to writer: %w", err))
		}
	}

	return errors.Join(errs...)
}
