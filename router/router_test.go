package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/registry"
)

func defaultRouter() *Router {
	return New(registry.Default(), NewKeywordScorer())
}

func query(text string) core.Query {
	return core.NewQuery("thread-1", text)
}

func TestRouteEmptyQuery(t *testing.T) {
	r := defaultRouter()

	_, err := r.Route(context.Background(), query("   "), nil)

	assert.ErrorIs(t, err, core.ErrInvalidQuery)
}

func TestRouteSingleIncidentResponse(t *testing.T) {
	r := defaultRouter()

	plan, err := r.Route(context.Background(), query(
		"We found ransomware on a file server and need containment steps now",
	), nil)
	require.NoError(t, err)

	assert.Equal(t, core.DispatchSingle, plan.Mode)
	assert.Equal(t, []string{"incident_response"}, plan.Specialists)
}

func TestRouteMultiIncidentAndCompliance(t *testing.T) {
	r := defaultRouter()

	plan, err := r.Route(context.Background(), query(
		"A ransomware breach hit our payment systems; what containment steps do we take "+
			"and what are our GDPR notification obligations under the regulation?",
	), nil)
	require.NoError(t, err)

	require.Equal(t, core.DispatchMulti, plan.Mode)
	assert.Equal(t, "synthesize", plan.Merge)
	assert.Contains(t, plan.Specialists, "incident_response")
	assert.Contains(t, plan.Specialists, "compliance")
	assert.LessOrEqual(t, len(plan.Specialists), 4)
}

func TestRouteFallback(t *testing.T) {
	r := defaultRouter()

	plan, err := r.Route(context.Background(), query("Hello there, how are you today?"), nil)
	require.NoError(t, err)

	assert.Equal(t, core.DispatchFallback, plan.Mode)
	assert.Empty(t, plan.Specialists)
}

func TestRouteDeterministic(t *testing.T) {
	r := defaultRouter()
	q := query("ransomware breach with gdpr notification obligations and audit questions")

	first, err := r.Route(context.Background(), q, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		plan, err := r.Route(context.Background(), q, nil)
		require.NoError(t, err)
		assert.Equal(t, first, plan)
	}
}

func TestRouteLexicographicTieBreak(t *testing.T) {
	reg, err := registry.New(
		registry.Profile{
			ID: "bravo", Role: registry.RolePrevention, AgentName: "B",
			TriggerTerms: []string{"beta"},
			Style:        registry.Style{Timeout: time.Second},
		},
		registry.Profile{
			ID: "alpha", Role: registry.RoleThreatIntel, AgentName: "A",
			TriggerTerms: []string{"alpha"},
			Style:        registry.Style{Timeout: time.Second},
		},
	)
	require.NoError(t, err)

	// Both profiles score identically; the tie must break on id order.
	scorer := ScorerFunc(func(_ context.Context, _ core.Query, _ registry.Profile) (float64, error) {
		return 0.9, nil
	})
	r := New(reg, scorer)

	plan, err := r.Route(context.Background(), query("alpha beta"), nil)
	require.NoError(t, err)

	require.Equal(t, core.DispatchMulti, plan.Mode)
	assert.Equal(t, []string{"alpha", "bravo"}, plan.Specialists)
}

func TestRouteScorerFailureSkipsProfile(t *testing.T) {
	reg := registry.Default()
	scorer := ScorerFunc(func(_ context.Context, q core.Query, p registry.Profile) (float64, error) {
		if p.ID == "incident_response" {
			return 0, errors.New("classifier down")
		}
		return NewKeywordScorer().Score(context.Background(), q, p)
	})
	r := New(reg, scorer)

	plan, err := r.Route(context.Background(), query(
		"ransomware containment and gdpr notification obligations",
	), nil)
	require.NoError(t, err)

	assert.NotContains(t, plan.Specialists, "incident_response")
}

func TestRouteMaxFanOut(t *testing.T) {
	reg := registry.Default()
	scorer := ScorerFunc(func(_ context.Context, _ core.Query, _ registry.Profile) (float64, error) {
		return 0.5, nil
	})
	r := New(reg, scorer, func(o *Options) { o.MaxFanOut = 2 })

	plan, err := r.Route(context.Background(), query("anything at all"), nil)
	require.NoError(t, err)

	if plan.Mode == core.DispatchMulti {
		assert.LessOrEqual(t, len(plan.Specialists), 2)
	}
}

func TestRouteContinuityBonus(t *testing.T) {
	r := defaultRouter()

	// "What about the firewall rules?" alone only weakly matches prevention;
	// a prior prevention turn should keep the follow-up with the same expert.
	history := []core.Turn{{
		Plan: core.DispatchPlan{Mode: core.DispatchSingle, Specialists: []string{"prevention"}},
	}}

	plan, err := r.Route(context.Background(), query("what about the firewall rules"), history)
	require.NoError(t, err)

	require.NotEqual(t, core.DispatchFallback, plan.Mode)
	assert.Contains(t, plan.Specialists, "prevention")
}

func TestKeywordScorerBounds(t *testing.T) {
	s := NewKeywordScorer()
	profile := registry.Default().Profiles()[0]

	score, err := s.Score(context.Background(), query(
		"incident breach ransomware malware infection compromised hacked attack",
	), profile)
	require.NoError(t, err)

	assert.LessOrEqual(t, score, 1.0)
	assert.Greater(t, score, 0.9)
}

func TestKeywordScorerWordBoundary(t *testing.T) {
	s := NewKeywordScorer()
	profile := registry.Profile{TriggerTerms: []string{"cve"}}

	score, err := s.Score(context.Background(), query("our receiver process crashed"), profile)
	require.NoError(t, err)
	assert.Zero(t, score, "substring inside another word must not match")

	score, err = s.Score(context.Background(), query("is CVE-2024-3094 exploitable"), profile)
	require.NoError(t, err)
	assert.Greater(t, score, 0.0)
}
