package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Failures local to one tool call or one specialist are
// contained where possible; only turn-level and configuration-level failures
// propagate to the caller.
var (
	// ErrInvalidQuery rejects empty or malformed input before routing.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownSpecialist signals a profile id referenced outside the
	// registry. Configuration error, fatal at startup.
	ErrUnknownSpecialist = errors.New("unknown specialist")

	// ErrToolNotPermitted signals a policy violation: a specialist requested
	// a tool outside its permitted set. Aborts that specialist only; the call
	// is never executed.
	ErrToolNotPermitted = errors.New("tool not permitted")

	// ErrModelTimeout / ErrModelUnavailable classify reasoning call failures.
	// Retried with backoff up to a fixed bound, then the runner aborts.
	ErrModelTimeout     = errors.New("model timeout")
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrSpecialistFailed surfaces an aborted Single dispatch to the caller.
	ErrSpecialistFailed = errors.New("specialist failed")

	// ErrAllSpecialistsFailed surfaces a Multi dispatch where no runner
	// finished.
	ErrAllSpecialistsFailed = errors.New("all specialists failed")

	// ErrRequestTimeout signals the overall per-request deadline elapsed.
	ErrRequestTimeout = errors.New("request timeout")
)

// AbortError wraps the cause of an aborted specialist run, keeping the
// specialist attributable for partial-failure bookkeeping.
type AbortError struct {
	SpecialistID string
	Err          error
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	return fmt.Sprintf("specialist %s aborted: %v", e.SpecialistID, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *AbortError) Unwrap() error { return e.Err }
