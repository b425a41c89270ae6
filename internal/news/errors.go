package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies adapter failures inside a RunReport.
type ErrorKind string

const (
	ErrTimeout ErrorKind = "timeout"
	ErrNetwork ErrorKind = "network"
	ErrParse   ErrorKind = "parse"
	ErrAuth    ErrorKind = "auth"
)

// AdapterError wraps a source adapter failure with its kind. Adapters
// return these so the orchestrator can classify them; a bare error is
// recorded as a network failure.
type AdapterError struct {
	Kind ErrorKind
	Err  error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError wraps err with a failure kind.
func NewAdapterError(kind ErrorKind, err error) *AdapterError {
	return &AdapterError{Kind: kind, Err: err}
}

// Classify maps an adapter error to its failure kind.
func Classify(err error) ErrorKind {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrNetwork
}

// DuplicateSourceError reports a second registration under an already
// taken name. Registration happens once at process start, so this is a
// startup-fatal configuration error.
type DuplicateSourceError struct {
	Name string
}

func (e *DuplicateSourceError) Error() string {
	return fmt.Sprintf("source %q already registered", e.Name)
}

// UnknownSourceError reports every requested source name that is not
// in the registry, so the caller sees the full misconfiguration at
// once instead of the first miss.
type UnknownSourceError struct {
	Names []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown sources: %s", strings.Join(e.Names, ", "))
}

// Stage names a pipeline stage for error reporting.
type Stage string

const (
	StageAnalyze Stage = "analyze"
	StageRender  Stage = "render"
	StageDeliver Stage = "deliver"
)

// StageError records a non-fatal pipeline stage failure. The driver
// downgrades these to data on the run summary; they never propagate to
// the caller.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
