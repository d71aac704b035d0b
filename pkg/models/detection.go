package models

import (
	"sort"

	"github.com/google/uuid"
)

// Strategy names. Every detection strategy exposes exactly one of these.
const (
	StrategyHeuristic = "HEURISTIC"
	StrategyRegex     = "REGEX"
	StrategyNER       = "NER"
	StrategyQuasi     = "QUASI_IDENTIFIER"
)

// QI pii-type family. Candidates with these types participate in
// quasi-identifier correlation analysis.
const (
	PiiTypeQuasiPrefix         = "QUASI_ID"
	PiiTypeQuasiMedCardinality = "QUASI_ID_MEDIUM_CARDINALITY"
	PiiTypeQuasiCorrelated     = "QUASI_ID_CORRELATED"
)

// PiiCandidate is one strategy's verdict on one column.
type PiiCandidate struct {
	ColumnID   uuid.UUID `json:"column_id"`
	PiiType    string    `json:"pii_type"`
	Confidence float64   `json:"confidence"` // in [0,1]
	Strategy   string    `json:"strategy"`
	Evidence   string    `json:"evidence,omitempty"`
}

// IsQuasiIdentifier reports whether the candidate belongs to the QI family.
func (c PiiCandidate) IsQuasiIdentifier() bool {
	return len(c.PiiType) >= len(PiiTypeQuasiPrefix) &&
		c.PiiType[:len(PiiTypeQuasiPrefix)] == PiiTypeQuasiPrefix
}

// DetectionResult aggregates the surviving candidates for one column after
// conflict resolution and threshold filtering.
type DetectionResult struct {
	ColumnID               uuid.UUID      `json:"column_id"`
	Candidates             []PiiCandidate `json:"candidates"`
	HighestConfidenceType  string         `json:"highest_confidence_type,omitempty"`
	HighestConfidenceScore float64        `json:"highest_confidence_score"`
	DetectionMethods       []string       `json:"detection_methods,omitempty"`
}

// NewDetectionResult derives the summary fields from a list of surviving
// candidates: the highest-confidence type and the union of contributing
// strategies (sorted for stable output).
func NewDetectionResult(columnID uuid.UUID, candidates []PiiCandidate) DetectionResult {
	result := DetectionResult{
		ColumnID:   columnID,
		Candidates: candidates,
	}

	methods := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		methods[c.Strategy] = struct{}{}
		if c.Confidence > result.HighestConfidenceScore {
			result.HighestConfidenceScore = c.Confidence
			result.HighestConfidenceType = c.PiiType
		}
	}

	for m := range methods {
		result.DetectionMethods = append(result.DetectionMethods, m)
	}
	sort.Strings(result.DetectionMethods)

	return result
}

// HasPii reports whether any candidate survived the reporting threshold.
func (r *DetectionResult) HasPii() bool {
	return len(r.Candidates) > 0
}

// QuasiIdentifierCandidates returns the QI-family candidates of this result.
func (r *DetectionResult) QuasiIdentifierCandidates() []PiiCandidate {
	var out []PiiCandidate
	for _, c := range r.Candidates {
		if c.IsQuasiIdentifier() {
			out = append(out, c)
		}
	}
	return out
}
