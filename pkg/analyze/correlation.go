// Package analyze turns per-column detection results into cross-column
// findings: pairwise quasi-identifier correlations, correlated groups, and
// k-anonymity risk assessment.
package analyze

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/privya-inc/privya-engine/pkg/config"
	"github.com/privya-inc/privya-engine/pkg/models"
)

const minAlignedSamples = 10

// pairKey is an unordered column pair. Lo sorts before Hi by uuid string so
// (a,b) and (b,a) share one cache slot.
type pairKey struct {
	Lo, Hi uuid.UUID
}

func newPairKey(a, b uuid.UUID) pairKey {
	if a.String() > b.String() {
		a, b = b, a
	}
	return pairKey{Lo: a, Hi: b}
}

// CorrelationAnalyzer computes pairwise associations between quasi-identifier
// columns. The association is a categorical proxy for Cramér's V: how few
// distinct values of one column co-occur with each value of the other.
// Pair results are cached across calls; the cache is safe for concurrent use.
type CorrelationAnalyzer struct {
	cfg    config.QIConfig
	cache  sync.Map // pairKey -> float64
	logger *zap.Logger
}

func NewCorrelationAnalyzer(cfg config.QIConfig, logger *zap.Logger) *CorrelationAnalyzer {
	return &CorrelationAnalyzer{cfg: cfg, logger: logger.Named("correlation")}
}

// CorrelationOutcome is the analyzer's full output. Results carries the
// augmented detection results: every correlated column gains a
// QUASI_ID_CORRELATED candidate.
type CorrelationOutcome struct {
	Results      map[uuid.UUID]models.DetectionResult
	Correlations []models.ColumnCorrelation
	Groups       []models.QuasiIdentifierGroup
}

// Analyze inspects every detection result holding at least one QI-family
// candidate at or above the configured confidence threshold. Fewer than two
// such columns means nothing to correlate.
func (a *CorrelationAnalyzer) Analyze(
	ctx context.Context,
	results map[uuid.UUID]models.DetectionResult,
	samples map[uuid.UUID]models.SampleData,
) (CorrelationOutcome, error) {
	outcome := CorrelationOutcome{Results: results}

	qiColumns := a.qiColumns(results)
	if len(qiColumns) < 2 {
		return outcome, nil
	}
	if len(qiColumns) > a.cfg.MaxCorrelationColumnsAnalyze {
		qiColumns = qiColumns[:a.cfg.MaxCorrelationColumnsAnalyze]
	}

	correlations, err := a.pairwise(ctx, qiColumns, samples)
	if err != nil {
		return outcome, err
	}
	outcome.Correlations = correlations
	outcome.Groups = a.formGroups(correlations)
	outcome.Results = a.augment(results, correlations)
	return outcome, nil
}

// qiColumns returns candidate column ids sorted by their best QI confidence
// descending, so truncation keeps the strongest.
func (a *CorrelationAnalyzer) qiColumns(results map[uuid.UUID]models.DetectionResult) []uuid.UUID {
	type scored struct {
		id         uuid.UUID
		confidence float64
	}
	var cols []scored
	for id, res := range results {
		best := 0.0
		for _, c := range res.QuasiIdentifierCandidates() {
			if c.Confidence > best {
				best = c.Confidence
			}
		}
		if best >= a.cfg.ConfidenceThreshold {
			cols = append(cols, scored{id, best})
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].confidence != cols[j].confidence {
			return cols[i].confidence > cols[j].confidence
		}
		return cols[i].id.String() < cols[j].id.String()
	})

	out := make([]uuid.UUID, len(cols))
	for i, c := range cols {
		out[i] = c.id
	}
	return out
}

func (a *CorrelationAnalyzer) pairwise(
	ctx context.Context,
	columns []uuid.UUID,
	samples map[uuid.UUID]models.SampleData,
) ([]models.ColumnCorrelation, error) {
	var correlations []models.ColumnCorrelation

	for i := 0; i < len(columns); i++ {
		for j := i + 1; j < len(columns); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			key := newPairKey(columns[i], columns[j])

			var assoc float64
			if cached, ok := a.cache.Load(key); ok {
				assoc = cached.(float64)
			} else {
				si, oki := samples[columns[i]]
				sj, okj := samples[columns[j]]
				if !oki || !okj {
					continue
				}
				var skip bool
				assoc, skip = pairAssociation(&si, &sj)
				if skip {
					continue
				}
				a.cache.Store(key, assoc)
			}

			if assoc >= a.cfg.MinCorrelationCoefficient {
				correlations = append(correlations, models.ColumnCorrelation{
					ColumnA:     key.Lo,
					ColumnB:     key.Hi,
					Association: assoc,
				})
			}
		}
	}

	sort.Slice(correlations, func(i, j int) bool {
		if correlations[i].ColumnA != correlations[j].ColumnA {
			return correlations[i].ColumnA.String() < correlations[j].ColumnA.String()
		}
		return correlations[i].ColumnB.String() < correlations[j].ColumnB.String()
	})
	return correlations, nil
}

// pairAssociation computes the symmetric association for one pair, the
// maximum of the two directional scores. Returns skip=true when the aligned
// window is too small or either column is fully unique.
func pairAssociation(a, b *models.SampleData) (float64, bool) {
	va, vb := a.StringValues(), b.StringValues()
	n := len(va)
	if len(vb) < n {
		n = len(vb)
	}
	if n < minAlignedSamples {
		return 0, true
	}
	va, vb = va[:n], vb[:n]

	if distinctOf(va) == n || distinctOf(vb) == n {
		return 0, true
	}

	ab := directionalAssociation(va, vb)
	ba := directionalAssociation(vb, va)
	if ba > ab {
		ab = ba
	}
	return clamp01(ab), false
}

// directionalAssociation measures how strongly values of from determine
// values of to: 1 when each from-value co-occurs with a single to-value,
// 0 when each co-occurs with every distinct to-value.
func directionalAssociation(from, to []string) float64 {
	cooccur := make(map[string]map[string]struct{})
	for i, v := range from {
		set, ok := cooccur[v]
		if !ok {
			set = make(map[string]struct{})
			cooccur[v] = set
		}
		set[to[i]] = struct{}{}
	}

	total := 0
	for _, set := range cooccur {
		total += len(set)
	}
	avgDistinct := float64(total) / float64(len(cooccur))

	toDistinct := distinctOf(to)
	if toDistinct == 0 {
		return 0
	}
	return 1 - avgDistinct/float64(toDistinct)
}

func distinctOf(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// formGroups builds connected components over the correlation graph and
// keeps those within the configured size bounds. Group score is the mean of
// the component's pairwise associations.
func (a *CorrelationAnalyzer) formGroups(correlations []models.ColumnCorrelation) []models.QuasiIdentifierGroup {
	if len(correlations) == 0 {
		return nil
	}

	adjacency := make(map[uuid.UUID][]uuid.UUID)
	edgeScore := make(map[pairKey]float64)
	for _, c := range correlations {
		adjacency[c.ColumnA] = append(adjacency[c.ColumnA], c.ColumnB)
		adjacency[c.ColumnB] = append(adjacency[c.ColumnB], c.ColumnA)
		edgeScore[newPairKey(c.ColumnA, c.ColumnB)] = c.Association
	}

	visited := make(map[uuid.UUID]bool)
	var groups []models.QuasiIdentifierGroup

	roots := make([]uuid.UUID, 0, len(adjacency))
	for id := range adjacency {
		roots = append(roots, id)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].String() < roots[j].String() })

	for _, root := range roots {
		if visited[root] {
			continue
		}
		component := []uuid.UUID{}
		queue := []uuid.UUID{root}
		visited[root] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			component = append(component, cur)
			for _, next := range adjacency[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}

		if len(component) < a.cfg.MinGroupSize || len(component) > a.cfg.MaxGroupSize {
			continue
		}

		sort.Slice(component, func(i, j int) bool { return component[i].String() < component[j].String() })
		sum, edges := 0.0, 0
		for i := 0; i < len(component); i++ {
			for j := i + 1; j < len(component); j++ {
				if score, ok := edgeScore[newPairKey(component[i], component[j])]; ok {
					sum += score
					edges++
				}
			}
		}
		score := 0.0
		if edges > 0 {
			score = sum / float64(edges)
		}
		groups = append(groups, models.QuasiIdentifierGroup{
			Columns:   component,
			RiskScore: score,
		})
	}
	return groups
}

// augment adds a QUASI_ID_CORRELATED candidate to every column that appears
// in at least one correlation, scored with its strongest association.
func (a *CorrelationAnalyzer) augment(
	results map[uuid.UUID]models.DetectionResult,
	correlations []models.ColumnCorrelation,
) map[uuid.UUID]models.DetectionResult {
	if len(correlations) == 0 {
		return results
	}

	strongest := make(map[uuid.UUID]float64)
	partners := make(map[uuid.UUID]int)
	for _, c := range correlations {
		for _, id := range []uuid.UUID{c.ColumnA, c.ColumnB} {
			partners[id]++
			if c.Association > strongest[id] {
				strongest[id] = c.Association
			}
		}
	}

	augmented := make(map[uuid.UUID]models.DetectionResult, len(results))
	for id, res := range results {
		assoc, ok := strongest[id]
		if !ok {
			augmented[id] = res
			continue
		}
		candidates := append([]models.PiiCandidate{}, res.Candidates...)
		candidates = append(candidates, models.PiiCandidate{
			ColumnID:   id,
			PiiType:    models.PiiTypeQuasiCorrelated,
			Confidence: assoc,
			Strategy:   models.StrategyQuasi,
			Evidence:   fmt.Sprintf("correlated with %d other column(s)", partners[id]),
		})
		augmented[id] = models.NewDetectionResult(id, candidates)
	}
	return augmented
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
