// Package model abstracts the reasoning call: prompt in, text or tool-call
// intents out. The call is opaque to the engine and may fail or time out;
// adapters classify failures as core.ErrModelTimeout or
// core.ErrModelUnavailable so the runner can apply its retry policy.
package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/threatdesk/threatdesk/core"
)

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a minimal JSON-Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the normalized model input produced by the runner.
type Request struct {
	System      string           `json:"system"`
	Messages    []core.Message   `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// Usage captures token accounting for a response when the provider reports it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed model turn: either final Text or one or more
// ToolCalls (possibly both when the provider interleaves them).
type Response struct {
	Text         string          `json:"text,omitempty"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason"`
	Usage        *Usage          `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive specialist reasoning.
type Model interface {
	// Generate performs one reasoning call. Implementations must respect ctx
	// cancellation and return core.ErrModelTimeout / core.ErrModelUnavailable
	// (wrapped) for the corresponding failure classes.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ClassifyErr maps a provider error onto the engine's model error taxonomy,
// preserving the original as the wrapped cause.
func ClassifyErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrModelTimeout, err)
	}
	if errors.Is(err, core.ErrModelTimeout) || errors.Is(err, core.ErrModelUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrModelUnavailable, err)
}

// ScriptStep is one canned MockModel turn.
type ScriptStep struct {
	Text      string
	ToolCalls []core.ToolCall
	Err       error
}

// MockModel is a lightweight in-memory Model useful for tests. Responses are
// served from a scripted queue; when the queue is exhausted the last step
// repeats. Safe for concurrent use.
type MockModel struct {
	info  Info
	mu    sync.Mutex
	steps []ScriptStep
	calls int
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string, steps ...ScriptStep) *MockModel {
	if len(steps) == 0 {
		steps = []ScriptStep{{Text: "mock response"}}
	}
	return &MockModel{
		info:  Info{Name: name, Provider: "mock", SupportsTools: true},
		steps: steps,
	}
}

// Generate implements Model, replaying the scripted steps in order.
func (m *MockModel) Generate(ctx context.Context, _ Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, ClassifyErr(err)
	}

	m.mu.Lock()
	idx := m.calls
	if idx >= len(m.steps) {
		idx = len(m.steps) - 1
	}
	step := m.steps[idx]
	m.calls++
	m.mu.Unlock()

	if step.Err != nil {
		return nil, step.Err
	}
	finish := "stop"
	if len(step.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return &Response{Text: step.Text, ToolCalls: step.ToolCalls, FinishReason: finish}, nil
}

// Calls reports how many Generate invocations the mock has served.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
