package core

import (
	"fmt"
	"time"
)

// ToolCall is a tool invocation intent surfaced by a model response. Unified
// across providers so downstream logic does not need per-vendor branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // serialized JSON argument payload
}

// ToolRequest is a validated, attributable request handed to the executor.
// Invariant: Tool must be in the issuing specialist's permitted set; the
// runner rejects violations before the executor ever sees them.
type ToolRequest struct {
	Tool         string         `json:"tool"`
	Args         map[string]any `json:"args"`
	SpecialistID string         `json:"specialist_id"`
	CallID       string         `json:"call_id,omitempty"`
}

// FailureKind classifies tool call failures. The executor retries only
// transient kinds (RateLimited, retryable Upstream); the rest return
// immediately.
type FailureKind string

const (
	// FailureTimeout: the per-tool deadline elapsed before the backend replied.
	FailureTimeout FailureKind = "timeout"
	// FailureRateLimited: the backend rejected the call due to throttling.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureInvalidArgs: arguments failed schema validation; no call was made.
	FailureInvalidArgs FailureKind = "invalid_args"
	// FailureUpstream: the backend returned an error.
	FailureUpstream FailureKind = "upstream_error"
)

// ToolFailure is the typed failure half of a ToolResult.
type ToolFailure struct {
	Kind      FailureKind `json:"kind"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
}

// Error implements the error interface.
func (f *ToolFailure) Error() string {
	return fmt.Sprintf("tool failure [%s]: %s", f.Kind, f.Message)
}

// ToolResult is the outcome of exactly one tool call. A call never silently
// disappears: either Payload or Failure is set.
type ToolResult struct {
	Tool     string        `json:"tool"`
	CallID   string        `json:"call_id,omitempty"`
	Payload  any           `json:"payload,omitempty"`
	Failure  *ToolFailure  `json:"failure,omitempty"`
	Attempts int           `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed"`
}

// OK reports whether the call produced a success payload.
func (r ToolResult) OK() bool { return r.Failure == nil }
