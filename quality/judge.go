package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/model"
)

// Judge scores a candidate answer against the rubric dimensions. Scores are
// on a 0–10 scale per dimension.
type Judge interface {
	Score(ctx context.Context, query core.Query, answer *core.SynthesizedAnswer) (*core.QualityVerdict, error)
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc func(ctx context.Context, query core.Query, answer *core.SynthesizedAnswer) (*core.QualityVerdict, error)

// Score calls fn.
func (fn JudgeFunc) Score(ctx context.Context, query core.Query, answer *core.SynthesizedAnswer) (*core.QualityVerdict, error) {
	return fn(ctx, query, answer)
}

// LLMJudge scores answers with a model call, expecting a strict JSON rubric
// response.
type LLMJudge struct {
	model model.Model
}

// NewLLMJudge constructs a model-backed judge.
func NewLLMJudge(m model.Model) *LLMJudge {
	return &LLMJudge{model: m}
}

const judgeSystemPrompt = "You are a strict quality reviewer for cybersecurity advisory answers. " +
	"Score the answer on three dimensions from 0 to 10: accuracy (technically correct, no " +
	"fabricated facts), completeness (addresses every part of the question), and tone " +
	"(professional, appropriately urgent, no filler). Respond with JSON only, exactly this shape: " +
	`{"accuracy": <number>, "completeness": <number>, "tone": <number>, "feedback": "<one paragraph of concrete improvements>"}`

// Score implements Judge.
func (j *LLMJudge) Score(ctx context.Context, query core.Query, answer *core.SynthesizedAnswer) (*core.QualityVerdict, error) {
	resp, err := j.model.Generate(ctx, model.Request{
		System: judgeSystemPrompt,
		Messages: []core.Message{core.UserMessage(fmt.Sprintf(
			"Question:\n%s\n\nAnswer under review:\n%s", query.Text, answer.Text,
		))},
	})
	if err != nil {
		return nil, err
	}

	var rubric struct {
		Accuracy     float64 `json:"accuracy"`
		Completeness float64 `json:"completeness"`
		Tone         float64 `json:"tone"`
		Feedback     string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(stripFences(resp.Text)), &rubric); err != nil {
		return nil, fmt.Errorf("judge returned unparseable rubric: %w", err)
	}

	scores := map[string]float64{
		core.DimensionAccuracy:     rubric.Accuracy,
		core.DimensionCompleteness: rubric.Completeness,
		core.DimensionTone:         rubric.Tone,
	}
	return &core.QualityVerdict{
		Scores:   scores,
		Overall:  (rubric.Accuracy + rubric.Completeness + rubric.Tone) / 3,
		Feedback: rubric.Feedback,
	}, nil
}

// stripFences removes a surrounding markdown code fence, which models often
// add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
