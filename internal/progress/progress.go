/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package progress

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/konstructio/hybrid-setup/internal/common"
	"github.com/rs/zerolog/log"
)

// Tracker prints the step by step progress of a setup run.
type Tracker struct {
	printer   *common.Printer
	renderer  *glamour.TermRenderer
	completed []string
}

type Option func(*Tracker)

// WithoutStyles disables markdown rendering, every message is printed as plain text.
func WithoutStyles() Option {
	return func(t *Tracker) {
		t.renderer = nil
	}
}

func New(w io.Writer, opts ...Option) *Tracker {
	t := &Tracker{
		printer: common.NewPrinter(w),
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(StyleConfig),
		glamour.WithEmoji(),
	)
	if err != nil {
		log.Warn().Msgf("falling back to plain progress output: %s", err)
	} else {
		t.renderer = r
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Tracker) render(message string) string {
	if t.renderer == nil {
		return plain(message) + "\n"
	}

	out, err := t.renderer.Render(message)
	if err != nil {
		log.Debug().Msgf("unable to render progress message: %s", err)
		return plain(message) + "\n"
	}

	return out
}

func (t *Tracker) print(message string) {
	if err := t.printer.Print(t.render(message)); err != nil {
		log.Debug().Msgf("unable to print progress message: %s", err)
	}
}

// Header prints the banner shown before the first phase runs.
func (t *Tracker) Header(title string, hints ...string) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", title)
	for _, hint := range hints {
		fmt.Fprintf(&b, "\n### :bulb: %s\n", hint)
	}

	t.print(b.String())
}

func (t *Tracker) AddStep(message string) {
	log.Info().Msgf("starting step: %s", message)
	t.print(fmt.Sprintf("##### :dizzy: %s", message))
}

func (t *Tracker) CompleteStep(message string) {
	log.Info().Msgf("completed step: %s", message)
	t.completed = append(t.completed, message)
	t.print(fmt.Sprintf("##### :white_check_mark: %s", message))
}

func (t *Tracker) Error(message string) {
	t.print(fmt.Sprintf("##### :no_entry_sign: Error: %s", message))
}

// Completed returns the steps completed so far, in order.
func (t *Tracker) Completed() []string {
	return append([]string(nil), t.completed...)
}

// Success prints the closing summary box.
func (t *Tracker) Success(lines ...string) {
	body := strings.Join(lines, "\n")
	if t.renderer != nil {
		body = summaryStyle.Render(body)
	}

	if err := t.printer.Print(body + "\n"); err != nil {
		log.Debug().Msgf("unable to print summary: %s", err)
	}
}

// plain strips the markdown prefix and emoji shortcodes used by the styled output.
func plain(message string) string {
	message = strings.TrimLeft(message, "# ")
	for _, code := range []string{":dizzy: ", ":white_check_mark: ", ":no_entry_sign: ", ":bulb: "} {
		message = strings.ReplaceAll(message, code, "")
	}

	return message
}
