package threatdesk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/model"
	"github.com/threatdesk/threatdesk/quality"
	"github.com/threatdesk/threatdesk/registry"
	"github.com/threatdesk/threatdesk/session"
	"github.com/threatdesk/threatdesk/tool"
)

// passJudge approves everything so tests exercise the happy path without a
// rubric-speaking model.
var passJudge = quality.JudgeFunc(func(context.Context, core.Query, *core.SynthesizedAnswer) (*core.QualityVerdict, error) {
	return &core.QualityVerdict{
		Scores: map[string]float64{
			core.DimensionAccuracy:     8,
			core.DimensionCompleteness: 8,
			core.DimensionTone:         8,
		},
		Overall: 8,
	}, nil
})

func testAdvisor(t *testing.T, m model.Model, optFns ...func(o *Options)) *Advisor {
	t.Helper()
	base := []func(o *Options){func(o *Options) {
		o.Judge = passJudge
		o.RequestTimeout = 5 * time.Second
	}}
	advisor, err := New(m, append(base, optFns...)...)
	require.NoError(t, err)
	return advisor
}

func TestChatSingleSpecialist(t *testing.T) {
	m := model.NewMockModel("mock", model.ScriptStep{Text: "Isolate the affected host."})
	advisor := testAdvisor(t, m)

	result, err := advisor.Chat(context.Background(), "thread-1",
		"We found ransomware on a file server and need containment steps now")
	require.NoError(t, err)

	assert.Equal(t, "Isolate the affected host.", result.Response)
	assert.Equal(t, "Sarah Chen", result.AgentName)
	assert.Equal(t, "incident_response", result.AgentRole)
	assert.Equal(t, core.DispatchSingle, result.Plan.Mode)
}

func TestChatFallback(t *testing.T) {
	m := model.NewMockModel("mock", model.ScriptStep{Text: "Hello! How can I help?"})
	advisor := testAdvisor(t, m)

	result, err := advisor.Chat(context.Background(), "thread-1", "good morning")
	require.NoError(t, err)

	assert.Equal(t, core.DispatchFallback, result.Plan.Mode)
	assert.Equal(t, "Advisory Assistant", result.AgentName)
	assert.Equal(t, "general", result.AgentRole)
}

func TestChatMultiSpecialist(t *testing.T) {
	m := model.NewMockModel("mock", model.ScriptStep{Text: "Specialist contribution."})
	advisor := testAdvisor(t, m)

	result, err := advisor.Chat(context.Background(), "thread-1",
		"A ransomware breach hit us; what containment steps do we take and what are "+
			"our GDPR notification obligations under the regulation?")
	require.NoError(t, err)

	assert.Equal(t, core.DispatchMulti, result.Plan.Mode)
	assert.Equal(t, "Advisory Team", result.AgentName)
	assert.Contains(t, result.Plan.Specialists, "incident_response")
	assert.Contains(t, result.Plan.Specialists, "compliance")
}

func TestChatEmptyMessage(t *testing.T) {
	m := model.NewMockModel("mock")
	advisor := testAdvisor(t, m)

	_, err := advisor.Chat(context.Background(), "thread-1", "   ")

	assert.ErrorIs(t, err, core.ErrInvalidQuery)
	assert.True(t, IsUserError(err))
}

func TestChatAppendsHistory(t *testing.T) {
	m := model.NewMockModel("mock", model.ScriptStep{Text: "answer"})
	store := session.NewInMemoryStore()
	advisor := testAdvisor(t, m, func(o *Options) { o.Store = store })

	_, err := advisor.Chat(context.Background(), "thread-1", "what is a ransomware incident")
	require.NoError(t, err)
	_, err = advisor.Chat(context.Background(), "thread-1", "tell me more about containment")
	require.NoError(t, err)

	sess, ok, err := store.Load("thread-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, sess.Len())
}

func TestChatGeneratesThreadID(t *testing.T) {
	m := model.NewMockModel("mock", model.ScriptStep{Text: "hi"})
	store := session.NewInMemoryStore()
	advisor := testAdvisor(t, m, func(o *Options) { o.Store = store })

	_, err := advisor.Chat(context.Background(), "", "hello there")
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
}

func TestChatSerializesSameThread(t *testing.T) {
	m := model.NewMockModel("mock", model.ScriptStep{Text: "answer"})
	store := session.NewInMemoryStore()
	advisor := testAdvisor(t, m, func(o *Options) { o.Store = store })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := advisor.Chat(context.Background(), "shared", "ransomware incident question")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, ok, err := store.Load("shared")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 8, sess.Len(), "every turn lands exactly once, no interleaved overwrite")
}

// stuckModel blocks until the context is cancelled.
type stuckModel struct{}

func (stuckModel) Generate(ctx context.Context, _ model.Request) (*model.Response, error) {
	<-ctx.Done()
	return nil, model.ClassifyErr(ctx.Err())
}

func (stuckModel) Info() model.Info {
	return model.Info{Name: "stuck", Provider: "test"}
}

func TestChatRequestTimeout(t *testing.T) {
	store := session.NewInMemoryStore()
	advisor := testAdvisor(t, stuckModel{}, func(o *Options) {
		o.Store = store
		o.RequestTimeout = 50 * time.Millisecond
	})

	start := time.Now()
	_, err := advisor.Chat(context.Background(), "thread-1", "ransomware containment question")

	assert.ErrorIs(t, err, core.ErrRequestTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 0, store.Len(), "nothing persists for a timed-out turn")
}

func TestNewRequiresFallbackProfile(t *testing.T) {
	m := model.NewMockModel("mock")
	reg, err := registry.New(registry.Profile{
		ID:           string(registry.RoleIncidentResponse),
		Role:         registry.RoleIncidentResponse,
		AgentName:    "Sarah Chen",
		TriggerTerms: []string{"incident"},
		Tools:        []string{registry.ToolWebSearch},
	})
	require.NoError(t, err)

	_, err = New(m, func(o *Options) { o.Registry = reg })
	assert.ErrorIs(t, err, core.ErrUnknownSpecialist,
		"a registry without the general profile must fail construction, not the first fallback query")
}

func TestNewRejectsUnregisteredToolReference(t *testing.T) {
	m := model.NewMockModel("mock")

	_, err := New(m, func(o *Options) {
		o.Tools = []tool.Tool{}
	})
	assert.Error(t, err, "profiles reference tools that are not registered")
}
