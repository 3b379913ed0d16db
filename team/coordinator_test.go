package team

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/model"
	"github.com/threatdesk/threatdesk/registry"
	"github.com/threatdesk/threatdesk/runner"
)

// fakeRunner returns canned turns per specialist id and can delay or abort
// selected specialists.
type fakeRunner struct {
	answers map[string]string
	aborts  map[string]error
	delays  map[string]time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, in runner.Input) (*core.SpecialistTurn, error) {
	if d, ok := f.delays[in.Profile.ID]; ok {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	if err, ok := f.aborts[in.Profile.ID]; ok {
		return nil, &core.AbortError{SpecialistID: in.Profile.ID, Err: err}
	}
	answer, ok := f.answers[in.Profile.ID]
	if !ok {
		answer = "canned answer from " + in.Profile.ID
	}
	return &core.SpecialistTurn{
		SpecialistID: in.Profile.ID,
		AgentName:    in.Profile.AgentName,
		Answer:       answer,
		Confidence:   0.9,
	}, nil
}

func coordinator(f *fakeRunner) *Coordinator {
	return New(registry.Default(), f)
}

func singlePlan(id string) core.DispatchPlan {
	return core.DispatchPlan{Mode: core.DispatchSingle, Specialists: []string{id}}
}

func multiPlan(ids ...string) core.DispatchPlan {
	return core.DispatchPlan{Mode: core.DispatchMulti, Specialists: ids, Merge: "synthesize"}
}

func TestRunSingle(t *testing.T) {
	c := coordinator(&fakeRunner{answers: map[string]string{
		"incident_response": "Isolate the host, preserve memory.",
	}})

	answer, err := c.Run(context.Background(), singlePlan("incident_response"),
		core.NewQuery("t1", "ransomware"), nil, "")
	require.NoError(t, err)

	assert.Equal(t, "Isolate the host, preserve memory.", answer.Text)
	require.Len(t, answer.Sections, 1)
	assert.Equal(t, "Sarah Chen", answer.Sections[0].AgentName)
	assert.Empty(t, answer.Failed)
}

func TestRunSingleAbortFailsTurn(t *testing.T) {
	c := coordinator(&fakeRunner{aborts: map[string]error{
		"incident_response": core.ErrModelUnavailable,
	}})

	_, err := c.Run(context.Background(), singlePlan("incident_response"),
		core.NewQuery("t1", "ransomware"), nil, "")

	assert.ErrorIs(t, err, core.ErrSpecialistFailed)
	assert.True(t, IsTurnFailure(err))
}

func TestRunSingleUnknownSpecialist(t *testing.T) {
	c := coordinator(&fakeRunner{})

	_, err := c.Run(context.Background(), singlePlan("nonexistent"),
		core.NewQuery("t1", "x"), nil, "")

	assert.ErrorIs(t, err, core.ErrUnknownSpecialist)
}

func TestRunFallbackUsesGeneralProfile(t *testing.T) {
	c := coordinator(&fakeRunner{answers: map[string]string{
		"general": "Hello! How can I help?",
	}})

	answer, err := c.Run(context.Background(), core.DispatchPlan{Mode: core.DispatchFallback},
		core.NewQuery("t1", "hi"), nil, "")
	require.NoError(t, err)

	require.Len(t, answer.Sections, 1)
	assert.Equal(t, "general", answer.Sections[0].SpecialistID)
}

func TestRunMultiAttributesSections(t *testing.T) {
	c := coordinator(&fakeRunner{answers: map[string]string{
		"incident_response": "Contain the ransomware first.",
		"compliance":        "GDPR requires notification within 72 hours.",
	}})

	answer, err := c.Run(context.Background(), multiPlan("incident_response", "compliance"),
		core.NewQuery("t1", "ransomware with gdpr implications"), nil, "")
	require.NoError(t, err)

	require.Len(t, answer.Sections, 2)
	assert.Equal(t, "incident_response", answer.Sections[0].SpecialistID)
	assert.Equal(t, "compliance", answer.Sections[1].SpecialistID)
	assert.Contains(t, answer.Text, "Contain the ransomware")
	assert.Contains(t, answer.Text, "72 hours")
}

func TestRunMultiToleratesPartialFailure(t *testing.T) {
	c := coordinator(&fakeRunner{
		answers: map[string]string{"compliance": "Notify the supervisory authority."},
		aborts:  map[string]error{"incident_response": core.ErrModelTimeout},
	})

	answer, err := c.Run(context.Background(), multiPlan("incident_response", "compliance"),
		core.NewQuery("t1", "breach"), nil, "")
	require.NoError(t, err)

	require.Len(t, answer.Sections, 1)
	assert.Equal(t, "compliance", answer.Sections[0].SpecialistID)
	require.Len(t, answer.Failed, 1)
	assert.Equal(t, "incident_response", answer.Failed[0].SpecialistID)
}

func TestRunMultiAllFail(t *testing.T) {
	c := coordinator(&fakeRunner{aborts: map[string]error{
		"incident_response": core.ErrModelUnavailable,
		"compliance":        core.ErrModelTimeout,
	}})

	answer, err := c.Run(context.Background(), multiPlan("incident_response", "compliance"),
		core.NewQuery("t1", "breach"), nil, "")

	assert.Nil(t, answer)
	assert.ErrorIs(t, err, core.ErrAllSpecialistsFailed)
	assert.True(t, IsTurnFailure(err))
}

func TestRunMultiStableUnderCompletionOrder(t *testing.T) {
	// The first-listed specialist finishes last; merge order must still
	// follow the plan.
	c := coordinator(&fakeRunner{
		answers: map[string]string{
			"incident_response": "Containment steps.",
			"threat_intel":      "This matches a known campaign.",
			"compliance":        "Notification duties apply.",
		},
		delays: map[string]time.Duration{
			"incident_response": 30 * time.Millisecond,
			"threat_intel":      10 * time.Millisecond,
		},
	})
	plan := multiPlan("incident_response", "threat_intel", "compliance")

	first, err := c.Run(context.Background(), plan, core.NewQuery("t1", "apt breach"), nil, "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := c.Run(context.Background(), plan, core.NewQuery("t1", "apt breach"), nil, "")
		require.NoError(t, err)
		assert.Equal(t, first.Text, again.Text)
		assert.Equal(t, first.Sections, again.Sections)
	}
	assert.Equal(t, "incident_response", first.Sections[0].SpecialistID)
	assert.Equal(t, "threat_intel", first.Sections[1].SpecialistID)
	assert.Equal(t, "compliance", first.Sections[2].SpecialistID)
}

func TestSectionMergeDedupesParagraphs(t *testing.T) {
	m := NewSectionMerge(registry.Default())
	turns := []core.SpecialistTurn{
		{SpecialistID: "incident_response", AgentName: "Sarah Chen",
			Answer: "Enable MFA everywhere.\n\nIsolate the host."},
		{SpecialistID: "prevention", AgentName: "Alex Rodriguez",
			Answer: "Enable MFA everywhere.\n\nSegment the network."},
	}

	answer, err := m.Merge(context.Background(), core.NewQuery("t1", "q"), turns)
	require.NoError(t, err)

	assert.Equal(t, 1, countOccurrences(answer.Text, "Enable MFA everywhere."))
	assert.Contains(t, answer.Sections[1].Text, "Segment the network.")
}

func TestSynthesisMergeUsesModelOutput(t *testing.T) {
	judge := model.NewMockModel("synth", model.ScriptStep{Text: "One coherent merged answer."})
	m := NewSynthesisMerge(judge, registry.Default())
	turns := []core.SpecialistTurn{
		{SpecialistID: "incident_response", AgentName: "Sarah Chen", Answer: "A",
			ToolResults: []core.ToolResult{{Tool: "ioc_analysis", Payload: "x"}}},
		{SpecialistID: "compliance", AgentName: "Maria Santos", Answer: "B"},
	}

	answer, err := m.Merge(context.Background(), core.NewQuery("t1", "q"), turns)
	require.NoError(t, err)

	assert.Equal(t, "One coherent merged answer.", answer.Text)
	assert.Len(t, answer.Sections, 2, "attribution survives synthesis")
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "ioc_analysis", answer.Citations[0].Tool)
}

func TestSynthesisMergeFallsBackOnModelFailure(t *testing.T) {
	judge := model.NewMockModel("synth", model.ScriptStep{Err: core.ErrModelUnavailable})
	m := NewSynthesisMerge(judge, registry.Default())
	turns := []core.SpecialistTurn{
		{SpecialistID: "incident_response", AgentName: "Sarah Chen", Answer: "Contain it."},
		{SpecialistID: "compliance", AgentName: "Maria Santos", Answer: "Notify in 72h."},
	}

	answer, err := m.Merge(context.Background(), core.NewQuery("t1", "q"), turns)
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "Contain it.")
	assert.Contains(t, answer.Text, "Notify in 72h.")
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
