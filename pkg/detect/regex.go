package detect

import (
	"context"
	"fmt"
	"sort"

	"github.com/privya-inc/privya-engine/pkg/config"
	"github.com/privya-inc/privya-engine/pkg/logging"
	"github.com/privya-inc/privya-engine/pkg/models"
)

// RegexStrategy applies the configured pattern bank to sampled values.
// For every pii type the confidence is baseScore x (matching samples /
// non-null samples); when several patterns share a pii type the strongest
// one wins. The strategy is pure: identical patterns and samples always
// produce the identical candidate set.
type RegexStrategy struct {
	patterns []config.Pattern
}

func NewRegexStrategy(patterns []config.Pattern) *RegexStrategy {
	return &RegexStrategy{patterns: patterns}
}

func (s *RegexStrategy) Name() string { return models.StrategyRegex }

func (s *RegexStrategy) Detect(_ context.Context, column *models.Column, sample *models.SampleData) ([]models.PiiCandidate, error) {
	if sample == nil {
		return nil, nil
	}
	values := sample.NonNullStrings()
	if len(values) == 0 {
		return nil, nil
	}

	type hit struct {
		confidence float64
		evidence   string
	}
	best := make(map[string]hit)

	for _, p := range s.patterns {
		matches := 0
		firstMatch := ""
		for _, v := range values {
			if p.Regex.MatchString(v) {
				if matches == 0 {
					firstMatch = v
				}
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		conf := clamp01(p.Score * float64(matches) / float64(len(values)))
		if prev, ok := best[p.PiiType]; !ok || conf > prev.confidence {
			best[p.PiiType] = hit{
				confidence: conf,
				evidence: fmt.Sprintf("pattern %s matched %d/%d samples, e.g. %s",
					p.Name, matches, len(values), logging.MaskValue(firstMatch)),
			}
		}
	}

	candidates := make([]models.PiiCandidate, 0, len(best))
	for piiType, h := range best {
		candidates = append(candidates, models.PiiCandidate{
			ColumnID:   column.ID,
			PiiType:    piiType,
			Confidence: h.confidence,
			Strategy:   s.Name(),
			Evidence:   h.evidence,
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].PiiType < candidates[j].PiiType })
	return candidates, nil
}
