package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Command completed
	ExitFailure      = 1 // The shop said no: stock, unknown item, decline, empty cart
	ExitCommandError = 2 // The command could not run: config, store, catalog, arguments
)

// ExitError carries the process exit code for a failed command. Its message
// has already been shown to the user by the formatter.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // error code or short summary
	Err     error  // cause, if any
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure when err
// is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Envelope is the JSON document every command prints with --format json.
type Envelope struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *EnvelopeError `json:"error,omitempty"`
}

// EnvelopeError describes a failed command.
type EnvelopeError struct {
	Code    string `json:"code"` // E0xx command, E1xx cart, E2xx checkout
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// textRenderer is implemented by results that print themselves in text mode.
type textRenderer interface {
	renderText(w io.Writer)
}

// hinter is implemented by error details that have a one-line suggestion
// for the shopper.
type hinter interface {
	hint() string
}

// OutputFormatter prints command results as text or as a JSON Envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// Success prints a result. In text mode results render themselves when they
// can; anything else is printed with fmt.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Envelope{Status: "ok", Data: data})
	}

	if r, ok := data.(textRenderer); ok {
		r.renderText(f.Writer)
		fmt.Fprintln(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error prints a failure. Text mode adds the details' hint, and the raw
// details under --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Envelope{
			Status: "error",
			Error:  &EnvelopeError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if h, ok := details.(hinter); ok {
		fmt.Fprintf(f.Writer, "  %s\n", h.hint())
	}
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %+v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line under --verbose. It never writes to
// Writer when ErrWriter is set, so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// newTable returns the column writer shared by the listing commands. Flush
// it before writing footers.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// money formats an amount as dollars with cents.
func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// itemCount is the footer under listings.
func itemCount(n int) string {
	return fmt.Sprintf("%d item(s)", n)
}
