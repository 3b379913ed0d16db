// Package quality scores candidate answers against a rubric and bounds the
// cost of fixing weak ones: at most one regeneration pass per turn.
package quality

import (
	"context"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/logging"
)

// RegenerateFunc re-runs the coordinator with reviewer feedback folded into
// the specialists' prompts.
type RegenerateFunc func(ctx context.Context, feedback string) (*core.SynthesizedAnswer, error)

// Options configures the gate.
type Options struct {
	// DimensionFloor is the minimum acceptable score on any single
	// dimension, independent of the overall threshold.
	DimensionFloor float64
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Gate validates answers and triggers at most one regeneration.
type Gate struct {
	judge Judge
	opts  Options
}

// New constructs a Gate over the given judge.
func New(judge Judge, optFns ...func(o *Options)) *Gate {
	opts := Options{
		DimensionFloor: 4.0,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gate{judge: judge, opts: opts}
}

// Evaluate scores the answer against threshold (the overall pass bar on the
// 0–10 scale). A failing answer gets exactly one regeneration via regen; if
// the regenerated answer passes it replaces the original, otherwise the
// original is returned with the failure recorded in the verdict. A judge
// failure passes the answer through unscored: quality review must never take
// down an otherwise healthy turn.
func (g *Gate) Evaluate(ctx context.Context, query core.Query, answer *core.SynthesizedAnswer, threshold float64, regen RegenerateFunc) (*core.SynthesizedAnswer, *core.QualityVerdict, error) {
	verdict, err := g.judge.Score(ctx, query, answer)
	if err != nil {
		g.opts.Logger.Warn("quality.judge.unavailable", "error", err.Error())
		return answer, &core.QualityVerdict{Passed: true, Feedback: "quality review unavailable"}, nil
	}
	verdict.Passed = g.passes(verdict, threshold)
	if verdict.Passed {
		g.opts.Logger.Info("quality.pass", "overall", verdict.Overall)
		return answer, verdict, nil
	}

	g.opts.Logger.Info("quality.regenerate", "overall", verdict.Overall, "threshold", threshold)
	if regen == nil {
		return answer, verdict, nil
	}

	revised, err := regen(ctx, verdict.Feedback)
	if err != nil {
		g.opts.Logger.Warn("quality.regenerate.failed", "error", err.Error())
		return answer, verdict, nil
	}

	revisedVerdict, err := g.judge.Score(ctx, query, revised)
	if err != nil {
		g.opts.Logger.Warn("quality.judge.unavailable", "error", err.Error())
		// The revision was produced against concrete feedback; prefer it.
		verdict.Regenerated = true
		verdict.Revised = revised.Text
		verdict.Passed = true
		return revised, verdict, nil
	}
	revisedVerdict.Regenerated = true
	revisedVerdict.Revised = revised.Text
	revisedVerdict.Passed = g.passes(revisedVerdict, threshold)

	if revisedVerdict.Passed {
		return revised, revisedVerdict, nil
	}

	// Second failure: return the first answer with the failure noted rather
	// than looping.
	g.opts.Logger.Warn("quality.regenerate.still_failing", "overall", revisedVerdict.Overall)
	verdict.Regenerated = true
	return answer, verdict, nil
}

func (g *Gate) passes(v *core.QualityVerdict, threshold float64) bool {
	if v.Overall < threshold {
		return false
	}
	for _, score := range v.Scores {
		if score < g.opts.DimensionFloor {
			return false
		}
	}
	return true
}
