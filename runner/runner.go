// Package runner executes one specialist's reasoning loop: prompt the model,
// execute any requested tool calls, feed results back, and repeat until the
// model produces a final answer or a bound is hit.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/logging"
	"github.com/threatdesk/threatdesk/model"
	"github.com/threatdesk/threatdesk/registry"
	"github.com/threatdesk/threatdesk/tool"
)

// state labels the phases of one runner invocation.
type state string

const (
	stateStarted     state = "started"
	stateReasoning   state = "reasoning"
	stateToolCalling state = "tool_calling"
	stateFinished    state = "finished"
	stateAborted     state = "aborted"
)

// Options bounds the reasoning loop.
type Options struct {
	// MaxIterations caps reasoning/tool cycles before the runner forces a
	// best-effort finish.
	MaxIterations int
	// ModelRetries is how many times a failed model call is retried before
	// the runner aborts.
	ModelRetries int
	// RetryBackoff is the base delay between model retries, doubled per
	// attempt.
	RetryBackoff time.Duration
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Runner drives a single specialist. It is stateless across invocations and
// safe for concurrent use; each Run owns its transcript exclusively.
type Runner struct {
	model    model.Model
	executor *tool.Executor
	opts     Options
}

// Input is everything one invocation needs.
type Input struct {
	Profile registry.Profile
	Query   core.Query
	History []core.Turn
	// Guidance carries reviewer feedback on regeneration passes.
	Guidance string
}

// New constructs a Runner over the given model and tool executor.
func New(m model.Model, exec *tool.Executor, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxIterations: 6,
		ModelRetries:  2,
		RetryBackoff:  500 * time.Millisecond,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{model: m, executor: exec, opts: opts}
}

// Run executes the reasoning loop for one specialist and returns its turn.
// Abort conditions (model failure after retries, tool policy violation)
// return a *core.AbortError; hitting the iteration cap instead forces a
// best-effort partial answer.
func (r *Runner) Run(ctx context.Context, in Input) (*core.SpecialistTurn, error) {
	profile := in.Profile
	log := r.opts.Logger

	log.Info("runner.start", "specialist", profile.ID, "state", string(stateStarted))

	msgs := transcript(in.History, in.Query)
	req := model.Request{
		System:      systemPrompt(profile, in.Guidance),
		Messages:    msgs,
		Tools:       r.toolDefinitions(profile),
		Temperature: profile.Style.Temperature,
		MaxTokens:   profile.Style.MaxTokens,
	}

	turn := &core.SpecialistTurn{
		SpecialistID: profile.ID,
		AgentName:    profile.AgentName,
	}
	var lastText string

	for iteration := 1; iteration <= r.opts.MaxIterations; iteration++ {
		log.Debug("runner.state", "specialist", profile.ID, "state", string(stateReasoning), "iteration", iteration)

		resp, err := r.generate(ctx, profile, req)
		if err != nil {
			log.Warn("runner.abort", "specialist", profile.ID, "state", string(stateAborted), "error", err.Error())
			return nil, &core.AbortError{SpecialistID: profile.ID, Err: err}
		}
		if resp.Text != "" {
			lastText = resp.Text
		}

		if len(resp.ToolCalls) == 0 {
			turn.Answer = resp.Text
			turn.Confidence = confidence(turn)
			log.Info("runner.finish", "specialist", profile.ID, "state", string(stateFinished), "iterations", iteration)
			return turn, nil
		}

		log.Debug("runner.state", "specialist", profile.ID, "state", string(stateToolCalling), "calls", len(resp.ToolCalls))

		req.Messages = append(req.Messages, core.Message{
			Role:      "assistant",
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			if !profile.Permits(call.Name) {
				err := fmt.Errorf("%w: %s may not call %s", core.ErrToolNotPermitted, profile.ID, call.Name)
				log.Warn("runner.abort", "specialist", profile.ID, "state", string(stateAborted), "tool", call.Name)
				return nil, &core.AbortError{SpecialistID: profile.ID, Err: err}
			}

			result := r.executeCall(ctx, profile, call)
			turn.ToolResults = append(turn.ToolResults, result)
			req.Messages = append(req.Messages, core.ToolMessage(call.ID, call.Name, renderResult(result)))
		}
	}

	// Iteration cap reached: finish with whatever the model said last rather
	// than looping on a model that never stops requesting tools.
	turn.Partial = true
	turn.Answer = lastText
	if turn.Answer == "" {
		turn.Answer = "I could not complete a full analysis within the allotted reasoning steps. " +
			"The tool results gathered so far are reflected above; please narrow the question and retry."
	}
	turn.Confidence = confidence(turn)
	log.Warn("runner.iteration_cap", "specialist", profile.ID, "state", string(stateFinished), "cap", r.opts.MaxIterations)
	return turn, nil
}

// generate performs one model call with the profile's timeout, retrying
// transient model failures up to the configured bound.
func (r *Runner) generate(ctx context.Context, profile registry.Profile, req model.Request) (*model.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.opts.ModelRetries; attempt++ {
		if attempt > 0 {
			delay := r.opts.RetryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, model.ClassifyErr(ctx.Err())
			case <-time.After(delay):
			}
			r.opts.Logger.Debug("runner.model.retry", "specialist", profile.ID, "attempt", attempt)
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if profile.Style.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, profile.Style.Timeout)
		}
		resp, err := r.model.Generate(callCtx, req)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !errors.Is(err, core.ErrModelTimeout) && !errors.Is(err, core.ErrModelUnavailable) {
			return nil, err
		}
	}
	return nil, lastErr
}

// executeCall parses the model's argument payload and hands the call to the
// executor. Unparseable arguments become an InvalidArgs result without
// reaching the executor.
func (r *Runner) executeCall(ctx context.Context, profile registry.Profile, call core.ToolCall) core.ToolResult {
	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return core.ToolResult{
				Tool:   call.Name,
				CallID: call.ID,
				Failure: &core.ToolFailure{
					Kind:    core.FailureInvalidArgs,
					Message: fmt.Sprintf("arguments are not valid JSON: %v", err),
				},
			}
		}
	}
	return r.executor.Execute(ctx, core.ToolRequest{
		Tool:         call.Name,
		Args:         args,
		SpecialistID: profile.ID,
		CallID:       call.ID,
	})
}

// toolDefinitions exposes only the profile's permitted tools to the model.
func (r *Runner) toolDefinitions(profile registry.Profile) []model.ToolDefinition {
	var defs []model.ToolDefinition
	for _, name := range profile.Tools {
		t, ok := r.executor.Lookup(name)
		if !ok {
			r.opts.Logger.Warn("runner.tool.unregistered", "specialist", profile.ID, "tool", name)
			continue
		}
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// renderResult serializes a tool outcome for the transcript. Failures are
// reported to the model so it can adjust rather than hallucinate data.
func renderResult(result core.ToolResult) string {
	if !result.OK() {
		return fmt.Sprintf(`{"error": %q, "kind": %q}`, result.Failure.Message, string(result.Failure.Kind))
	}
	raw, err := json.Marshal(result.Payload)
	if err != nil {
		return fmt.Sprintf(`{"error": "unserializable tool payload: %v"}`, err)
	}
	return string(raw)
}

// confidence derives a coarse quality hint from the turn shape: full answers
// with clean tool runs rate highest.
func confidence(turn *core.SpecialistTurn) float64 {
	c := 0.9
	for _, result := range turn.ToolResults {
		if !result.OK() {
			c -= 0.1
		}
	}
	if turn.Partial {
		c = min(c, 0.5)
	}
	return max(c, 0.3)
}
