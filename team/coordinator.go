// Package team runs dispatch plans: it fans queries out to specialist
// runners, tolerates partial failure, and merges the survivors' answers into
// one response.
package team

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/logging"
	"github.com/threatdesk/threatdesk/registry"
	"github.com/threatdesk/threatdesk/runner"
)

// SpecialistRunner abstracts runner.Runner for testability.
type SpecialistRunner interface {
	Run(ctx context.Context, in runner.Input) (*core.SpecialistTurn, error)
}

// Options configures the coordinator.
type Options struct {
	// Merge combines multi-dispatch turns. Defaults to SectionMerge.
	Merge MergeStrategy
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Coordinator executes a DispatchPlan via specialist runners.
type Coordinator struct {
	registry *registry.Registry
	runner   SpecialistRunner
	merge    MergeStrategy
	logger   logging.Logger
}

// New constructs a Coordinator.
func New(reg *registry.Registry, r SpecialistRunner, optFns ...func(o *Options)) *Coordinator {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Merge == nil {
		opts.Merge = NewSectionMerge(reg)
	}
	return &Coordinator{registry: reg, runner: r, merge: opts.Merge, logger: opts.Logger}
}

// Run executes the plan and synthesizes one answer. guidance carries
// quality-gate feedback on regeneration passes and is empty on the first
// pass.
func (c *Coordinator) Run(ctx context.Context, plan core.DispatchPlan, query core.Query, history []core.Turn, guidance string) (*core.SynthesizedAnswer, error) {
	switch plan.Mode {
	case core.DispatchSingle:
		return c.runSingle(ctx, plan.Primary(), query, history, guidance)
	case core.DispatchMulti:
		return c.runMulti(ctx, plan, query, history, guidance)
	case core.DispatchFallback:
		return c.runSingle(ctx, string(registry.RoleGeneral), query, history, guidance)
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", plan.Mode)
	}
}

// runSingle executes exactly one specialist. An abort fails the whole turn;
// there is no silent fallback.
func (c *Coordinator) runSingle(ctx context.Context, specialistID string, query core.Query, history []core.Turn, guidance string) (*core.SynthesizedAnswer, error) {
	profile, err := c.registry.Find(specialistID)
	if err != nil {
		return nil, err
	}

	turn, err := c.runner.Run(ctx, runner.Input{
		Profile:  profile,
		Query:    query,
		History:  history,
		Guidance: guidance,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrSpecialistFailed, specialistID, err)
	}

	return &core.SynthesizedAnswer{
		Text: turn.Answer,
		Sections: []core.Section{{
			SpecialistID: turn.SpecialistID,
			AgentName:    turn.AgentName,
			Text:         turn.Answer,
		}},
		Citations: turn.ToolResults,
	}, nil
}

// runMulti fans out to every specialist in the plan concurrently. Each runner
// owns an isolated transcript; results are collected positionally so the
// merge order matches the plan regardless of completion order.
func (c *Coordinator) runMulti(ctx context.Context, plan core.DispatchPlan, query core.Query, history []core.Turn, guidance string) (*core.SynthesizedAnswer, error) {
	type slot struct {
		turn *core.SpecialistTurn
		err  error
	}
	slots := make([]slot, len(plan.Specialists))

	var wg sync.WaitGroup
	for i, specialistID := range plan.Specialists {
		profile, err := c.registry.Find(specialistID)
		if err != nil {
			slots[i] = slot{err: err}
			continue
		}

		wg.Add(1)
		go func(i int, profile registry.Profile) {
			defer wg.Done()
			turn, err := c.runner.Run(ctx, runner.Input{
				Profile:  profile,
				Query:    query,
				History:  history,
				Guidance: guidance,
			})
			slots[i] = slot{turn: turn, err: err}
		}(i, profile)
	}
	wg.Wait()

	var turns []core.SpecialistTurn
	var failures []core.SpecialistFailure
	for i, s := range slots {
		if s.err != nil {
			c.logger.Warn("team.specialist.failed", "specialist", plan.Specialists[i], "error", s.err.Error())
			failures = append(failures, core.SpecialistFailure{
				SpecialistID: plan.Specialists[i],
				Reason:       s.err.Error(),
			})
			continue
		}
		turns = append(turns, *s.turn)
	}

	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: %d specialists aborted", core.ErrAllSpecialistsFailed, len(failures))
	}

	answer, err := c.merge.Merge(ctx, query, turns)
	if err != nil {
		return nil, err
	}
	answer.Failed = failures
	c.logger.Info("team.merged",
		"specialists", len(turns),
		"failed", len(failures),
	)
	return answer, nil
}

// IsTurnFailure reports whether err is one of the turn-level failures a
// caller is expected to surface rather than retry.
func IsTurnFailure(err error) bool {
	return errors.Is(err, core.ErrSpecialistFailed) || errors.Is(err, core.ErrAllSpecialistsFailed)
}
