// Package errors defines AppError, the coded error every IsomerScope layer
// returns. The code selects the HTTP status, the CLI message and the metric
// label.
package errors

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
)

const maxFrames = 32

// AppError carries a code, a user-facing message and an optional cause.
// Two AppErrors match under errors.Is when their codes are equal.
type AppError struct {
	Code    ErrorCode
	Message string
	// Detail is appended to Error(), e.g. the offending name or atom index.
	Detail string
	Cause  error

	pcs []uintptr
}

func newAppError(code ErrorCode, message string, cause error) *AppError {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(3, pcs)
	return &AppError{Code: code, Message: message, Cause: cause, pcs: pcs[:n]}
}

// New returns an AppError recording the caller's stack.
func New(code ErrorCode, message string) *AppError {
	return newAppError(code, message, nil)
}

func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return newAppError(code, fmt.Sprintf(format, args...), nil)
}

// Wrap returns nil for a nil err. With CodeUnknown the code of the first
// AppError in err's chain is kept.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		code = GetCode(err)
	}
	return newAppError(code, message, err)
}

func (e *AppError) Error() string {
	s := "[" + e.Code.String() + "] " + e.Message
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

func (e *AppError) Unwrap() error { return e.Cause }

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// WithDetail returns a copy with Detail set. Nil stays nil.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	c.Detail = detail
	return &c
}

// WithCause returns a copy with Cause set. Nil stays nil.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	c.Cause = err
	return &c
}

// StackTrace renders the frames captured at construction, one per line,
// skipping the Go runtime.
func (e *AppError) StackTrace() string {
	if len(e.pcs) == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(e.pcs)
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, "runtime.") {
			fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// Format prints the cause chain and the stack for %+v.
func (e *AppError) Format(s fmt.State, verb rune) {
	switch {
	case verb == 'v' && s.Flag('+'):
		io.WriteString(s, e.Error())
		if e.Cause != nil {
			fmt.Fprintf(s, "\ncaused by: %+v", e.Cause)
		}
		io.WriteString(s, "\n"+e.StackTrace())
	case verb == 'q':
		fmt.Fprintf(s, "%q", e.Error())
	default:
		io.WriteString(s, e.Error())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any AppError in err's tree has code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && errors.Is(err, &AppError{Code: code})
}

// IsNotFound covers both the generic and the compound not-found codes.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound) || IsCode(err, CodeMoleculeNotFound)
}

// GetCode returns the code of the outermost AppError, CodeOK for nil and
// CodeUnknown for foreign errors.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// Message returns the AppError message when there is one, err.Error()
// otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

//Personal.AI order the ending
