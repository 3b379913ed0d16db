package core

// Quality dimensions scored by the gate. Each is rated on a 0–10 scale.
const (
	DimensionAccuracy     = "accuracy"
	DimensionCompleteness = "completeness"
	DimensionTone         = "tone"
)

// QualityVerdict is the outcome of one quality gate evaluation.
type QualityVerdict struct {
	Passed   bool               `json:"passed"`
	Scores   map[string]float64 `json:"scores"`
	Overall  float64            `json:"overall"`
	Feedback string             `json:"feedback,omitempty"`
	// Revised holds the replacement answer when a regeneration pass ran and
	// its result was adopted. Empty otherwise.
	Revised string `json:"revised,omitempty"`
	// Regenerated reports whether a regeneration pass was attempted,
	// regardless of whether its result was adopted.
	Regenerated bool `json:"regenerated,omitempty"`
}
