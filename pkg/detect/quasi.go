package detect

import (
	"context"
	"fmt"
	"math"
	"regexp"

	"github.com/privya-inc/privya-engine/pkg/config"
	"github.com/privya-inc/privya-engine/pkg/models"
)

const minQuasiSamples = 10

var quasiNamePatterns = []namePattern{
	{regexp.MustCompile(`(?i)gender|\bsex\b`), "QUASI_ID_GENDER", 0.85, "gender column"},
	{regexp.MustCompile(`(?i)zip|postal ?code|post ?code`), "QUASI_ID_POSTAL_CODE", 0.85, "postal code"},
	{regexp.MustCompile(`(?i)birth|\bdob\b|\bage\b`), "QUASI_ID_DATE_OF_BIRTH", 0.85, "birth date or age"},
	{regexp.MustCompile(`(?i)\bcity\b|municipality`), "QUASI_ID_CITY", 0.8, "city"},
	{regexp.MustCompile(`(?i)\bstate\b|province|region`), "QUASI_ID_STATE", 0.75, "state or province"},
	{regexp.MustCompile(`(?i)country|nationality`), "QUASI_ID_COUNTRY", 0.75, "country"},
	{regexp.MustCompile(`(?i)ethnic|\brace\b`), "QUASI_ID_ETHNICITY", 0.8, "ethnicity"},
	{regexp.MustCompile(`(?i)marital|occupation|job ?title|education`), "QUASI_ID_DEMOGRAPHIC", 0.75, "demographic attribute"},
}

// QuasiStrategy finds quasi-identifiers two ways: known demographic column
// names, and value cardinality sitting between the low and high thresholds.
// Cardinality confidence peaks at the midpoint of the configured band and
// falls off linearly towards its edges.
type QuasiStrategy struct {
	cfg config.QIConfig
}

func NewQuasiStrategy(cfg config.QIConfig) *QuasiStrategy {
	return &QuasiStrategy{cfg: cfg}
}

func (s *QuasiStrategy) Name() string { return models.StrategyQuasi }

func (s *QuasiStrategy) Detect(_ context.Context, column *models.Column, sample *models.SampleData) ([]models.PiiCandidate, error) {
	var candidates []models.PiiCandidate

	name := normalizeIdentifier(column.Name)
	comments := normalizeIdentifier(column.Comments)

	// Name matches take precedence over comment-only matches regardless of
	// table order; within each source the first pattern wins.
	if c, ok := s.namePassCandidate(column, name, comments); ok {
		candidates = append(candidates, c)
	}

	if c, ok := s.cardinalityCandidate(column, sample); ok {
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func (s *QuasiStrategy) namePassCandidate(column *models.Column, name, comments string) (models.PiiCandidate, bool) {
	for _, p := range quasiNamePatterns {
		if p.re.MatchString(name) {
			return models.PiiCandidate{
				ColumnID:   column.ID,
				PiiType:    p.piiType,
				Confidence: p.baseScore,
				Strategy:   s.Name(),
				Evidence:   fmt.Sprintf("column name matches %s", p.description),
			}, true
		}
	}
	if comments != "" {
		for _, p := range quasiNamePatterns {
			if p.re.MatchString(comments) {
				return models.PiiCandidate{
					ColumnID:   column.ID,
					PiiType:    p.piiType,
					Confidence: clamp01(0.8 * p.baseScore),
					Strategy:   s.Name(),
					Evidence:   fmt.Sprintf("column comment matches %s", p.description),
				}, true
			}
		}
	}
	return models.PiiCandidate{}, false
}

func (s *QuasiStrategy) cardinalityCandidate(column *models.Column, sample *models.SampleData) (models.PiiCandidate, bool) {
	if sample == nil {
		return models.PiiCandidate{}, false
	}
	values := sample.NonNullStrings()
	if len(values) < minQuasiSamples {
		return models.PiiCandidate{}, false
	}

	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	ratio := float64(len(distinct)) / float64(len(values))

	low, high := s.cfg.LowCardinalityThreshold, s.cfg.HighCardinalityThreshold
	if ratio <= low || ratio >= high {
		return models.PiiCandidate{}, false
	}

	mid := (low + high) / 2
	halfWidth := (high - low) / 2
	// 0.9 at the exact midpoint, 0.5 at either threshold.
	confidence := 0.5 + 0.4*(1-math.Abs(ratio-mid)/halfWidth)

	return models.PiiCandidate{
		ColumnID:   column.ID,
		PiiType:    models.PiiTypeQuasiMedCardinality,
		Confidence: clamp01(confidence),
		Strategy:   s.Name(),
		Evidence:   fmt.Sprintf("%d distinct values over %d samples (ratio %.2f)", len(distinct), len(values), ratio),
	}, true
}
