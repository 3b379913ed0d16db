// Package router classifies queries into dispatch plans: which specialists
// should handle a query and whether they run alone, together, or as the
// general fallback.
package router

import (
	"context"
	"sort"
	"strings"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/logging"
	"github.com/threatdesk/threatdesk/registry"
)

// Options holds the routing policy thresholds.
type Options struct {
	// SingleThreshold is the minimum top score for single dispatch.
	SingleThreshold float64
	// MultiThreshold is the minimum score to join a multi dispatch.
	MultiThreshold float64
	// Margin is how far the runner-up must trail the top score for single
	// dispatch to win over multi.
	Margin float64
	// MaxFanOut caps the number of specialists in a multi plan.
	MaxFanOut int
	// ContinuityBonus is added to specialists that handled the most recent
	// turn, keeping follow-up questions with the same experts.
	ContinuityBonus float64
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Router scores every specialist profile against the query and emits a
// DispatchPlan. Routing is deterministic: identical queries and scores always
// produce the identical plan.
type Router struct {
	registry *registry.Registry
	scorer   Scorer
	opts     Options
}

// New constructs a Router over the given registry and scorer.
func New(reg *registry.Registry, scorer Scorer, optFns ...func(o *Options)) *Router {
	opts := Options{
		SingleThreshold: 0.6,
		MultiThreshold:  0.3,
		Margin:          0.2,
		MaxFanOut:       4,
		ContinuityBonus: 0.15,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{registry: reg, scorer: scorer, opts: opts}
}

// candidate pairs a profile with its score for ranking.
type candidate struct {
	profile registry.Profile
	score   float64
}

// Route classifies the query against all specialist profiles.
//
// Policy: the top scorer wins single dispatch when it clears the single
// threshold and leads the runner-up by the configured margin. Otherwise all
// profiles clearing the multi threshold with pairwise-disjoint topic
// signatures form a multi plan, ordered by descending score and capped at
// the fan-out limit. When nothing clears the multi threshold the plan falls
// back to the general responder.
func (r *Router) Route(ctx context.Context, query core.Query, history []core.Turn) (core.DispatchPlan, error) {
	if query.IsEmpty() {
		return core.DispatchPlan{}, core.ErrInvalidQuery
	}

	recent := recentSpecialists(history)

	var candidates []candidate
	for _, profile := range r.registry.Profiles() {
		// Fallback profiles carry no topic signature and are never scored.
		if len(profile.TriggerTerms) == 0 {
			continue
		}
		score, err := r.scorer.Score(ctx, query, profile)
		if err != nil {
			r.opts.Logger.Warn("router.score.failed", "specialist", profile.ID, "error", err.Error())
			continue
		}
		if recent[profile.ID] {
			score += r.opts.ContinuityBonus
		}
		if score > 1 {
			score = 1
		}
		candidates = append(candidates, candidate{profile: profile, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].profile.ID < candidates[j].profile.ID
	})

	plan := r.decide(candidates)
	r.opts.Logger.Info("router.plan",
		"mode", string(plan.Mode),
		"specialists", strings.Join(plan.Specialists, ","),
	)
	return plan, nil
}

func (r *Router) decide(ranked []candidate) core.DispatchPlan {
	var above []candidate
	for _, c := range ranked {
		if c.score >= r.opts.MultiThreshold {
			above = append(above, c)
		}
	}
	if len(above) == 0 {
		return core.DispatchPlan{Mode: core.DispatchFallback}
	}

	top := above[0]
	if top.score >= r.opts.SingleThreshold {
		if len(above) == 1 || top.score-above[1].score >= r.opts.Margin {
			return core.DispatchPlan{Mode: core.DispatchSingle, Specialists: []string{top.profile.ID}}
		}
	}

	// Greedy disjoint selection in rank order: a candidate joins the plan
	// only if its topic signature does not overlap any already selected.
	selected := []candidate{top}
	for _, c := range above[1:] {
		if len(selected) == r.opts.MaxFanOut {
			break
		}
		if disjointFromAll(c.profile, selected) {
			selected = append(selected, c)
		}
	}

	if len(selected) < 2 {
		// A lone weak signal still goes to the best-matching specialist.
		return core.DispatchPlan{Mode: core.DispatchSingle, Specialists: []string{top.profile.ID}}
	}

	ids := make([]string, len(selected))
	for i, c := range selected {
		ids[i] = c.profile.ID
	}
	return core.DispatchPlan{Mode: core.DispatchMulti, Specialists: ids, Merge: "synthesize"}
}

// recentSpecialists collects the specialist ids of the most recent turn.
func recentSpecialists(history []core.Turn) map[string]bool {
	out := map[string]bool{}
	if len(history) == 0 {
		return out
	}
	last := history[len(history)-1]
	for _, id := range last.Plan.Specialists {
		out[id] = true
	}
	return out
}

// disjointFromAll reports whether p's trigger terms share nothing with any
// already-selected profile.
func disjointFromAll(p registry.Profile, selected []candidate) bool {
	terms := map[string]bool{}
	for _, t := range p.TriggerTerms {
		terms[strings.ToLower(t)] = true
	}
	for _, s := range selected {
		for _, t := range s.profile.TriggerTerms {
			if terms[strings.ToLower(t)] {
				return false
			}
		}
	}
	return true
}
