// Package detect scores columns for PII using a fixed chain of strategies:
// name heuristics, value regex matching, external NER, and quasi-identifier
// analysis. The pipeline resolves conflicting candidates and filters them
// against the reporting threshold.
package detect

import (
	"context"

	"github.com/privya-inc/privya-engine/pkg/models"
)

// Strategy scores one column. The sample may be nil for strategies that only
// need metadata (name heuristics run before any data is fetched).
type Strategy interface {
	Name() string
	Detect(ctx context.Context, column *models.Column, sample *models.SampleData) ([]models.PiiCandidate, error)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
