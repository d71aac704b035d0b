package detect

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/privya-inc/privya-engine/pkg/apperrors"
	"github.com/privya-inc/privya-engine/pkg/logging"
	"github.com/privya-inc/privya-engine/pkg/models"
	"github.com/privya-inc/privya-engine/pkg/ner"
)

// nerLabelTypes maps service entity labels to pii types. Unknown labels are
// ignored rather than surfaced as UNKNOWN.
var nerLabelTypes = map[string]string{
	"PERSON":      "NAME",
	"PER":         "NAME",
	"EMAIL":       "EMAIL",
	"PHONE":       "PHONE",
	"GPE":         "ADDRESS",
	"LOC":         "ADDRESS",
	"LOCATION":    "ADDRESS",
	"DATE":        "DATE_OF_BIRTH",
	"SSN":         "SSN",
	"CREDIT_CARD": "CREDIT_CARD",
	"IBAN":        "BANK_ACCOUNT",
	"ORG":         "ORGANIZATION",
}

// NERStrategy sends a batch of sampled values to the external NER service.
// An open circuit breaker is not an error: the strategy reports no
// candidates and the column moves on.
type NERStrategy struct {
	client     ner.Client
	maxSamples int
	logger     *zap.Logger
}

func NewNERStrategy(client ner.Client, maxSamples int, logger *zap.Logger) *NERStrategy {
	if maxSamples <= 0 {
		maxSamples = 100
	}
	return &NERStrategy{
		client:     client,
		maxSamples: maxSamples,
		logger:     logger.Named("ner-strategy"),
	}
}

func (s *NERStrategy) Name() string { return models.StrategyNER }

func (s *NERStrategy) Detect(ctx context.Context, column *models.Column, sample *models.SampleData) ([]models.PiiCandidate, error) {
	if sample == nil {
		return nil, nil
	}
	texts := sample.NonNullStrings()
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > s.maxSamples {
		texts = texts[:s.maxSamples]
	}

	entities, err := s.client.Extract(ctx, column.Name, texts)
	if err != nil {
		if errors.Is(err, apperrors.ErrCircuitOpen) {
			s.logger.Debug("circuit open, skipping NER", zap.String("column", column.Name))
			return nil, nil
		}
		return nil, err
	}

	best := make(map[string]ner.Entity)
	for _, e := range entities {
		piiType, ok := nerLabelTypes[e.Label]
		if !ok {
			continue
		}
		if prev, seen := best[piiType]; !seen || e.Score > prev.Score {
			best[piiType] = e
		}
	}

	candidates := make([]models.PiiCandidate, 0, len(best))
	for piiType, e := range best {
		candidates = append(candidates, models.PiiCandidate{
			ColumnID:   column.ID,
			PiiType:    piiType,
			Confidence: clamp01(e.Score),
			Strategy:   s.Name(),
			Evidence:   "entity " + e.Label + " in " + logging.MaskValue(e.Text),
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].PiiType < candidates[j].PiiType })
	return candidates, nil
}
