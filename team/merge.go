package team

import (
	"context"
	"fmt"
	"strings"

	"github.com/threatdesk/threatdesk/core"
	"github.com/threatdesk/threatdesk/model"
	"github.com/threatdesk/threatdesk/registry"
)

// MergeStrategy combines the finished specialist turns of a multi dispatch
// into one synthesized answer. Turns arrive in plan order and at least one is
// guaranteed present.
type MergeStrategy interface {
	Merge(ctx context.Context, query core.Query, turns []core.SpecialistTurn) (*core.SynthesizedAnswer, error)
}

// SectionMerge deterministically assembles one answer from per-specialist
// sections, in plan order, with exact duplicate paragraphs across sections
// dropped. It needs no model call and serves as the fallback when synthesis
// is unavailable.
type SectionMerge struct {
	registry *registry.Registry
}

// NewSectionMerge constructs a SectionMerge. The registry supplies role
// labels for section headings.
func NewSectionMerge(reg *registry.Registry) *SectionMerge {
	return &SectionMerge{registry: reg}
}

// Merge implements MergeStrategy.
func (m *SectionMerge) Merge(_ context.Context, _ core.Query, turns []core.SpecialistTurn) (*core.SynthesizedAnswer, error) {
	answer := &core.SynthesizedAnswer{}
	seen := map[string]bool{}
	var b strings.Builder

	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s%s\n\n", turn.AgentName, m.roleSuffix(turn.SpecialistID))

		var kept []string
		for _, para := range strings.Split(turn.Answer, "\n\n") {
			trimmed := strings.TrimSpace(para)
			if trimmed == "" || seen[trimmed] {
				continue
			}
			seen[trimmed] = true
			kept = append(kept, trimmed)
		}
		sectionText := strings.Join(kept, "\n\n")
		b.WriteString(sectionText)

		answer.Sections = append(answer.Sections, core.Section{
			SpecialistID: turn.SpecialistID,
			AgentName:    turn.AgentName,
			Text:         sectionText,
		})
		answer.Citations = append(answer.Citations, turn.ToolResults...)
	}

	answer.Text = b.String()
	return answer, nil
}

func (m *SectionMerge) roleSuffix(specialistID string) string {
	if m.registry == nil {
		return ""
	}
	profile, err := m.registry.Find(specialistID)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (%s)", strings.ReplaceAll(string(profile.Role), "_", " "))
}

// SynthesisMerge asks a model to weave the specialist contributions into one
// coherent answer, resolving redundancy and flagging conflicting
// recommendations instead of silently picking a winner. Attribution sections
// and the citation union come from the underlying turns regardless of what
// the model writes. On model failure it degrades to SectionMerge output.
type SynthesisMerge struct {
	model    model.Model
	fallback *SectionMerge
}

// NewSynthesisMerge constructs a SynthesisMerge over the given model.
func NewSynthesisMerge(m model.Model, reg *registry.Registry) *SynthesisMerge {
	return &SynthesisMerge{model: m, fallback: NewSectionMerge(reg)}
}

// Merge implements MergeStrategy.
func (m *SynthesisMerge) Merge(ctx context.Context, query core.Query, turns []core.SpecialistTurn) (*core.SynthesizedAnswer, error) {
	sectioned, err := m.fallback.Merge(ctx, query, turns)
	if err != nil {
		return nil, err
	}
	if len(turns) == 1 {
		return sectioned, nil
	}

	resp, err := m.model.Generate(ctx, model.Request{
		System:   synthesisSystemPrompt,
		Messages: []core.Message{core.UserMessage(synthesisUserPrompt(query, turns))},
	})
	if err != nil {
		// The sectioned assembly is always a valid answer.
		return sectioned, nil
	}
	if strings.TrimSpace(resp.Text) == "" {
		return sectioned, nil
	}

	return &core.SynthesizedAnswer{
		Text:      resp.Text,
		Sections:  sectioned.Sections,
		Citations: sectioned.Citations,
	}, nil
}

const synthesisSystemPrompt = "You are the coordinator of a cybersecurity advisory team. Merge the " +
	"specialist contributions below into one coherent answer. Preserve each specialist's key " +
	"recommendations and attribute them by name. Remove redundancy. If two specialists give " +
	"conflicting recommendations, present both and state the conflict explicitly rather than " +
	"choosing one."

func synthesisUserPrompt(query core.Query, turns []core.SpecialistTurn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User question:\n%s\n\nSpecialist contributions:\n", query.Text)
	for _, turn := range speakingOrder(turns) {
		fmt.Fprintf(&b, "\n[%s / %s]\n%s\n", turn.AgentName, turn.SpecialistID, turn.Answer)
		if turn.Partial {
			b.WriteString("(note: this contribution is partial)\n")
		}
	}
	return b.String()
}

// speakingOrder presents contributions to the synthesis model in the team's
// fixed precedence (incident response speaks first), leaving the positional
// turn slice untouched.
func speakingOrder(turns []core.SpecialistTurn) []core.SpecialistTurn {
	ids := make([]string, len(turns))
	byID := make(map[string]core.SpecialistTurn, len(turns))
	for i, turn := range turns {
		ids[i] = turn.SpecialistID
		byID[turn.SpecialistID] = turn
	}
	ordered := make([]core.SpecialistTurn, 0, len(turns))
	for _, id := range registry.OrderRoles(ids) {
		ordered = append(ordered, byID[id])
	}
	return ordered
}
