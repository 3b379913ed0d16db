package core

import "time"

// SpecialistTurn is the output of one specialist runner invocation. It is
// owned exclusively by the coordinator that requested it.
type SpecialistTurn struct {
	SpecialistID string       `json:"specialist_id"`
	AgentName    string       `json:"agent_name"`
	Answer       string       `json:"answer"`
	ToolResults  []ToolResult `json:"tool_results,omitempty"`
	Confidence   float64      `json:"confidence"`
	// Partial marks a best-effort answer forced by the iteration cap.
	Partial bool `json:"partial,omitempty"`
}

// ToolsUsed lists the names of tools that produced a result during the turn,
// in call order, without duplicates.
func (t SpecialistTurn) ToolsUsed() []string {
	seen := make(map[string]bool, len(t.ToolResults))
	names := make([]string, 0, len(t.ToolResults))
	for _, r := range t.ToolResults {
		if seen[r.Tool] {
			continue
		}
		seen[r.Tool] = true
		names = append(names, r.Tool)
	}
	return names
}

// Section is a slice of a synthesized answer attributed to its source
// specialist.
type Section struct {
	SpecialistID string `json:"specialist_id"`
	AgentName    string `json:"agent_name"`
	Text         string `json:"text"`
}

// SpecialistFailure records a specialist excluded from synthesis.
type SpecialistFailure struct {
	SpecialistID string `json:"specialist_id"`
	Reason       string `json:"reason"`
}

// SynthesizedAnswer is the merged result of a dispatch plan: one coherent
// text, per-specialist attribution and the union of tool citations. One per
// query turn.
type SynthesizedAnswer struct {
	Text      string              `json:"text"`
	Sections  []Section           `json:"sections,omitempty"`
	Citations []ToolResult        `json:"citations,omitempty"`
	Failed    []SpecialistFailure `json:"failed,omitempty"`
}

// ToolsUsed returns the distinct tool names cited by the answer, preserving
// citation order.
func (a SynthesizedAnswer) ToolsUsed() []string {
	seen := make(map[string]bool, len(a.Citations))
	names := make([]string, 0, len(a.Citations))
	for _, c := range a.Citations {
		if seen[c.Tool] {
			continue
		}
		seen[c.Tool] = true
		names = append(names, c.Tool)
	}
	return names
}

// TurnResult is the fully processed outcome of one query turn, ready for the
// presentation layer.
type TurnResult struct {
	Response    string          `json:"response"`
	AgentName   string          `json:"agent_name"`
	AgentRole   string          `json:"agent_role"`
	ToolsUsed   []string        `json:"tools_used"`
	Plan        DispatchPlan    `json:"plan"`
	Verdict     *QualityVerdict `json:"verdict,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}
