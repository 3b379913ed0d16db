package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/model"
	"github.com/threatdesk/threatdesk/registry"
	"github.com/threatdesk/threatdesk/tool"
)

type echoTool struct{}

func (echoTool) Name() string        { return "knowledge_search" }
func (echoTool) Description() string { return "test echo" }

func (echoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	}
}

func (echoTool) Call(_ context.Context, args map[string]any) (any, error) {
	return map[string]any{"echo": args["query"]}, nil
}

func testProfile() registry.Profile {
	return registry.Profile{
		ID:        "incident_response",
		Role:      registry.RoleIncidentResponse,
		AgentName: "Sarah Chen",
		Tools:     []string{"knowledge_search"},
		Style:     registry.Style{Temperature: 0.1, MaxTokens: 1000, Timeout: time.Second},
	}
}

func testExecutor() *tool.Executor {
	return tool.NewExecutor([]tool.Tool{echoTool{}}, func(o *tool.ExecutorOptions) {
		o.BaseBackoff = time.Millisecond
	})
}

func fastRunner(m model.Model) *Runner {
	return New(m, testExecutor(), func(o *Options) {
		o.RetryBackoff = time.Millisecond
	})
}

func runInput(text string) Input {
	return Input{Profile: testProfile(), Query: core.NewQuery("t1", text)}
}

func TestRunDirectAnswer(t *testing.T) {
	m := model.NewMockModel("mock",
		model.ScriptStep{Text: "Isolate the host."})
	r := fastRunner(m)

	turn, err := r.Run(context.Background(), runInput("ransomware on fileserver"))
	require.NoError(t, err)

	assert.Equal(t, "Isolate the host.", turn.Answer)
	assert.Equal(t, "incident_response", turn.SpecialistID)
	assert.Equal(t, "Sarah Chen", turn.AgentName)
	assert.False(t, turn.Partial)
	assert.Empty(t, turn.ToolResults)
	assert.Equal(t, 1, m.Calls())
}

func TestRunToolCallThenAnswer(t *testing.T) {
	m := model.NewMockModel("mock",
		model.ScriptStep{ToolCalls: []core.ToolCall{
			{ID: "c1", Name: "knowledge_search", Arguments: `{"query": "ransomware playbook"}`},
		}},
		model.ScriptStep{Text: "Per the playbook, isolate first."},
	)
	r := fastRunner(m)

	turn, err := r.Run(context.Background(), runInput("ransomware next steps"))
	require.NoError(t, err)

	assert.Equal(t, "Per the playbook, isolate first.", turn.Answer)
	require.Len(t, turn.ToolResults, 1)
	assert.True(t, turn.ToolResults[0].OK())
	assert.Equal(t, []string{"knowledge_search"}, turn.ToolsUsed())
	assert.Equal(t, 2, m.Calls())
}

func TestRunToolNotPermitted(t *testing.T) {
	m := model.NewMockModel("mock",
		model.ScriptStep{ToolCalls: []core.ToolCall{
			{ID: "c1", Name: "attack_surface", Arguments: `{"host": "example.com"}`},
		}},
	)
	r := fastRunner(m)

	_, err := r.Run(context.Background(), runInput("scan example.com"))

	var abort *core.AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, "incident_response", abort.SpecialistID)
	assert.ErrorIs(t, err, core.ErrToolNotPermitted)
}

func TestRunModelRetriedThenSucceeds(t *testing.T) {
	m := model.NewMockModel("mock",
		model.ScriptStep{Err: core.ErrModelUnavailable},
		model.ScriptStep{Err: core.ErrModelTimeout},
		model.ScriptStep{Text: "recovered answer"},
	)
	r := fastRunner(m)

	turn, err := r.Run(context.Background(), runInput("anything"))
	require.NoError(t, err)

	assert.Equal(t, "recovered answer", turn.Answer)
	assert.Equal(t, 3, m.Calls())
}

func TestRunModelRetriesExhausted(t *testing.T) {
	m := model.NewMockModel("mock",
		model.ScriptStep{Err: core.ErrModelUnavailable})
	r := fastRunner(m)

	_, err := r.Run(context.Background(), runInput("anything"))

	var abort *core.AbortError
	require.ErrorAs(t, err, &abort)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)
	assert.Equal(t, 3, m.Calls(), "one initial call plus two retries")
}

func TestRunIterationCapForcesPartial(t *testing.T) {
	// The model never stops asking for tools.
	m := model.NewMockModel("mock",
		model.ScriptStep{ToolCalls: []core.ToolCall{
			{ID: "c", Name: "knowledge_search", Arguments: `{"query": "more"}`},
		}},
	)
	r := fastRunner(m)

	turn, err := r.Run(context.Background(), runInput("endless"))
	require.NoError(t, err)

	assert.True(t, turn.Partial)
	assert.NotEmpty(t, turn.Answer)
	assert.Equal(t, 6, m.Calls(), "reasoning cycles stop at the cap")
	assert.Len(t, turn.ToolResults, 6)
	assert.LessOrEqual(t, turn.Confidence, 0.5)
}

func TestRunInvalidToolArgumentsBecomeFailureResult(t *testing.T) {
	m := model.NewMockModel("mock",
		model.ScriptStep{ToolCalls: []core.ToolCall{
			{ID: "c1", Name: "knowledge_search", Arguments: `{not json`},
		}},
		model.ScriptStep{Text: "answered without the tool"},
	)
	r := fastRunner(m)

	turn, err := r.Run(context.Background(), runInput("broken args"))
	require.NoError(t, err)

	require.Len(t, turn.ToolResults, 1)
	require.False(t, turn.ToolResults[0].OK())
	assert.Equal(t, core.FailureInvalidArgs, turn.ToolResults[0].Failure.Kind)
	assert.Equal(t, "answered without the tool", turn.Answer)
}

func TestRunGuidanceReachesSystemPrompt(t *testing.T) {
	prompt := systemPrompt(testProfile(), "The previous draft missed the notification deadline.")

	assert.Contains(t, prompt, "Sarah Chen")
	assert.Contains(t, prompt, "notification deadline")
}
