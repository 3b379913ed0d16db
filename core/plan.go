package core

// DispatchMode selects how a query is executed.
type DispatchMode string

const (
	// DispatchSingle routes the query to exactly one specialist.
	DispatchSingle DispatchMode = "single"
	// DispatchMulti runs several specialists and merges their outputs.
	DispatchMulti DispatchMode = "multi"
	// DispatchFallback handles queries no specialty claims (greetings,
	// generic knowledge, pure real-time lookups).
	DispatchFallback DispatchMode = "fallback"
)

// DispatchPlan is the routing decision for one query. Produced fresh per
// query and never mutated afterwards.
type DispatchPlan struct {
	Mode DispatchMode `json:"mode"`
	// Specialists are ordered by descending route score (deterministic
	// tie-break by id). Exactly one entry for Single, two or more for Multi,
	// empty for Fallback.
	Specialists []string `json:"specialists,omitempty"`
	// Merge names the strategy the coordinator applies for Multi plans.
	Merge string `json:"merge,omitempty"`
}

// Primary returns the highest-scoring specialist of the plan, or "" for a
// Fallback plan.
func (p DispatchPlan) Primary() string {
	if len(p.Specialists) == 0 {
		return ""
	}
	return p.Specialists[0]
}
