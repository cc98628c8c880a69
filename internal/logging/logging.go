/*
Copyright © 2025 Logicos Software

Package logging implements the debug-mode structured logging used by every
ssops command: a correlation ID per invocation, terse coloring for the
normal path, and full cause-chain rendering under -d/--debug.
*/
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"ssops/internal/errs"
)

// Logger carries the invocation's correlation ID and debug flag through a
// single command run.
type Logger struct {
	ID    string
	Debug bool
	out   io.Writer
	err   io.Writer
}

// New starts a logger for one command invocation, minting a fresh
// correlation ID so its debug lines can be grepped together.
func New(debug bool) *Logger {
	return &Logger{
		ID:    uuid.NewString(),
		Debug: debug,
		out:   os.Stdout,
		err:   os.Stderr,
	}
}

// Info writes a terse informational line, prefixed with the correlation ID
// only in debug mode.
func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.Debug {
		fmt.Fprintf(l.err, "[%s] %s\n", l.ID, msg)
		return
	}
	fmt.Fprintln(l.err, msg)
}

// OK prints a short green success line to stdout, the shape the `key check`
// and similar commands use for their terse "ok" output.
func (l *Logger) OK(msg string) {
	fmt.Fprintln(l.out, color.GreenString(msg))
}

// Fail renders err to stderr: a red one-line cause in terse mode, or the
// full taxonomy/cause chain (prefixed by the correlation ID) in debug mode.
func (l *Logger) Fail(err error) {
	if err == nil {
		return
	}
	if l.Debug {
		fmt.Fprintf(l.err, "[%s] %s\n", l.ID, debugString(err))
		return
	}
	fmt.Fprintln(l.err, color.RedString("error: %s", err.Error()))
}

func debugString(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Debug()
	}
	return err.Error()
}
