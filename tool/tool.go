// Package tool implements the tool calling subsystem: schema-validated
// capabilities specialists may invoke during reasoning, plus the executor
// that applies timeout and retry policy to every call.
package tool

import (
	"context"
	"fmt"
)

// Tool defines a callable external capability.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case) and descriptions
//   - Declare a minimal JSON schema for their arguments
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description provided to the model
	// so it understands when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with already-validated arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolError represents errors raised by a tool backend.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	// Status carries the HTTP status code for backend responses, when known.
	Status int `json:"status,omitempty"`
	// Retryable marks transient failures the executor may retry.
	Retryable bool `json:"retryable,omitempty"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Error codes used by tool backends. RATE_LIMITED and retryable
// UPSTREAM_ERROR are the only classes the executor retries.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeRateLimited = "RATE_LIMITED"
	CodeUpstream    = "UPSTREAM_ERROR"
	CodeAuth        = "AUTH_ERROR"
)
