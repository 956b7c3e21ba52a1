package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // run-level failure
	ExitCommandError = 2 // bad flags, configuration or startup
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// NewExitError creates an ExitError.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors without one
// map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON output envelope.
type CLIResponse struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// printer writes command results as text or JSON.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(opts *RootOptions, w io.Writer) *printer {
	return &printer{format: opts.Format, w: w}
}

// result prints data followed by runErr, if any, and returns runErr with
// ExitFailure attached.
func (p *printer) result(title string, data any, runErr error) error {
	if p.format == "json" {
		resp := CLIResponse{Status: "ok", Data: data}
		if runErr != nil {
			resp.Status = "error"
			resp.Error = runErr.Error()
		}
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(p.w, title)
		p.fields(data)
		if runErr != nil {
			fmt.Fprintf(p.w, "  error: %v\n", runErr)
		}
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, strings.ToLower(title)+" failed", runErr)
	}
	return nil
}

// fields prints the JSON fields of data as sorted key: value lines.
func (p *printer) fields(data any) {
	if data == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(p.w, "  %v\n", data)
		return
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		fmt.Fprintf(p.w, "  %s\n", raw)
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.w, "  %s: %v\n", k, m[k])
	}
}
