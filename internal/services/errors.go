package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSpawn indicates the external binary could not be started at all
	// (missing or not executable). Distinct from a started process failing.
	ErrSpawn = errors.New("spawn error")
	// ErrProcess indicates a started external process exited non-zero.
	ErrProcess = errors.New("process error")
	// ErrProbeParse indicates the prober received output it could not decode.
	ErrProbeParse    = errors.New("probe parse error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrCancelled     = errors.New("cancelled")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProcess
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// diagnosticTailBytes bounds how much trailing tool output a ProcessError
// carries for triage.
const diagnosticTailBytes = 500

// ProcessError reports a non-zero exit from an external tool together with
// the tail of its diagnostic output.
type ProcessError struct {
	Binary   string
	ExitCode int
	Output   string
}

// NewProcessError builds a ProcessError keeping only the trailing portion of
// the captured diagnostic output.
func NewProcessError(binary string, exitCode int, output string) *ProcessError {
	return &ProcessError{
		Binary:   strings.TrimSpace(binary),
		ExitCode: exitCode,
		Output:   TailString(output, diagnosticTailBytes),
	}
}

func (e *ProcessError) Error() string {
	if e == nil {
		return "process error"
	}
	msg := fmt.Sprintf("%s exited with code %d", e.Binary, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// Unwrap tags the error so errors.Is(err, ErrProcess) holds.
func (e *ProcessError) Unwrap() error { return ErrProcess }

// TailString returns the final max bytes of value, dropping a leading partial
// line when the cut lands mid-line.
func TailString(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 || len(value) <= max {
		return value
	}
	tail := value[len(value)-max:]
	if idx := strings.IndexByte(tail, '\n'); idx >= 0 && idx < len(tail)-1 {
		tail = tail[idx+1:]
	}
	return tail
}
