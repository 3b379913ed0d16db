package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/internal/util"
	"github.com/threatdesk/threatdesk/logging"
)

// ExecutorOptions configures timeout and retry policy.
type ExecutorOptions struct {
	// Timeout is the per-attempt deadline applied to every tool call.
	Timeout time.Duration
	// TimeoutFor overrides the default timeout for specific tools.
	TimeoutFor map[string]time.Duration
	// MaxAttempts bounds total attempts per call (first try included).
	MaxAttempts int
	// BaseBackoff seeds the exponential backoff between retries.
	BaseBackoff time.Duration
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Executor invokes named tools with validated arguments, enforcing per-tool
// timeout and bounded exponential-backoff retry for transient failures.
// Every outcome, success or failure, is returned as a core.ToolResult;
// the executor never panics past its boundary and never blocks beyond the
// configured deadline.
type Executor struct {
	tools       map[string]Tool
	timeout     time.Duration
	timeoutFor  map[string]time.Duration
	maxAttempts int
	baseBackoff time.Duration
	logger      logging.Logger
}

// NewExecutor builds an executor over the given tool set.
func NewExecutor(tools []Tool, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Timeout:     15 * time.Second,
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}
	return &Executor{
		tools:       byName,
		timeout:     opts.Timeout,
		timeoutFor:  opts.TimeoutFor,
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
		logger:      opts.Logger,
	}
}

// Lookup returns the named tool if registered.
func (e *Executor) Lookup(name string) (Tool, bool) {
	t, ok := e.tools[name]
	return t, ok
}

// Execute runs one tool call to completion. Malformed arguments fail fast
// with InvalidArgs and no backend call; transient failures (timeout, rate
// limit, retryable upstream) are retried with exponential backoff up to the
// attempt bound.
func (e *Executor) Execute(ctx context.Context, req core.ToolRequest) core.ToolResult {
	start := time.Now()
	result := core.ToolResult{Tool: req.Tool, CallID: req.CallID}

	t, ok := e.tools[req.Tool]
	if !ok {
		result.Failure = &core.ToolFailure{
			Kind:    core.FailureInvalidArgs,
			Message: fmt.Sprintf("unknown tool %q", req.Tool),
		}
		result.Elapsed = time.Since(start)
		return result
	}

	if err := util.ValidateArgs(req.Args, t.Parameters()); err != nil {
		e.logger.Warn("tool.args.invalid", "tool", req.Tool, "specialist", req.SpecialistID, "error", err.Error())
		result.Failure = &core.ToolFailure{Kind: core.FailureInvalidArgs, Message: err.Error()}
		result.Elapsed = time.Since(start)
		return result
	}

	timeout := e.timeout
	if override, ok := e.timeoutFor[req.Tool]; ok {
		timeout = override
	}

	var failure *core.ToolFailure
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		result.Attempts = attempt

		payload, err := e.attempt(ctx, t, req.Args, timeout)
		if err == nil {
			result.Payload = payload
			result.Failure = nil
			result.Elapsed = time.Since(start)
			e.logger.Info("tool.call.success", "tool", req.Tool, "attempts", attempt, "duration_ms", result.Elapsed.Milliseconds())
			return result
		}

		failure = classify(err)
		e.logger.Warn("tool.call.attempt_failed",
			"tool", req.Tool,
			"attempt", attempt,
			"kind", string(failure.Kind),
			"error", failure.Message,
		)

		if !failure.Retryable || attempt == e.maxAttempts {
			break
		}
		if err := e.backoff(ctx, attempt); err != nil {
			failure = &core.ToolFailure{Kind: core.FailureTimeout, Message: err.Error()}
			break
		}
	}

	result.Failure = failure
	result.Elapsed = time.Since(start)
	return result
}

// attempt performs one bounded call, converting panics from tool backends
// into errors so they cannot cross the executor boundary.
func (e *Executor) attempt(ctx context.Context, t Tool, args map[string]any, timeout time.Duration) (payload any, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		payload any
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: NewToolError(t.Name(), fmt.Sprintf("panic: %v", r), CodeUpstream)}
			}
		}()
		p, callErr := t.Call(attemptCtx, args)
		done <- outcome{payload: p, err: callErr}
	}()

	select {
	case <-attemptCtx.Done():
		return nil, attemptCtx.Err()
	case out := <-done:
		return out.payload, out.err
	}
}

// backoff sleeps for baseBackoff * 2^(attempt-1), aborting early on context
// cancellation.
func (e *Executor) backoff(ctx context.Context, attempt int) error {
	delay := e.baseBackoff << (attempt - 1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// classify maps a backend error onto the typed failure taxonomy. Timeouts and
// rate limits are transient; upstream errors retry only when the backend
// marks them retryable.
func classify(err error) *core.ToolFailure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.ToolFailure{Kind: core.FailureTimeout, Message: err.Error(), Retryable: true}
	}
	if errors.Is(err, context.Canceled) {
		return &core.ToolFailure{Kind: core.FailureTimeout, Message: err.Error()}
	}

	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		switch toolErr.Code {
		case CodeRateLimited:
			return &core.ToolFailure{Kind: core.FailureRateLimited, Message: toolErr.Message, Retryable: true}
		case CodeValidation:
			return &core.ToolFailure{Kind: core.FailureInvalidArgs, Message: toolErr.Message}
		case CodeAuth:
			return &core.ToolFailure{Kind: core.FailureUpstream, Message: toolErr.Message}
		default:
			return &core.ToolFailure{Kind: core.FailureUpstream, Message: toolErr.Message, Retryable: toolErr.Retryable}
		}
	}

	var vErr *util.ValidationError
	if errors.As(err, &vErr) {
		return &core.ToolFailure{Kind: core.FailureInvalidArgs, Message: vErr.Error()}
	}

	return &core.ToolFailure{Kind: core.FailureUpstream, Message: err.Error()}
}
