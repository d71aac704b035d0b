package detect

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/privya-inc/privya-engine/pkg/config"
	"github.com/privya-inc/privya-engine/pkg/metrics"
	"github.com/privya-inc/privya-engine/pkg/models"
)

// strategyPriority orders strategies for conflict-resolution tie breaks.
// Lower wins.
var strategyPriority = map[string]int{
	models.StrategyHeuristic: 0,
	models.StrategyRegex:     1,
	models.StrategyNER:       2,
	models.StrategyQuasi:     3,
}

// Pipeline runs the detection chain per column. Chain strategies execute in
// order with optional short-circuiting; the quasi-identifier strategy always
// runs afterwards so correlation analysis never loses its input to an early
// stop.
type Pipeline struct {
	cfg     config.DetectionConfig
	chain   []Strategy
	quasi   Strategy
	workers int
	logger  *zap.Logger
}

// NewPipeline builds a pipeline. chain must be in execution order; quasi may
// be nil when the strategy is disabled by the scan request.
func NewPipeline(cfg config.DetectionConfig, chain []Strategy, quasi Strategy, logger *zap.Logger) *Pipeline {
	workers := cfg.MaxConcurrentColumns
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	return &Pipeline{
		cfg:     cfg,
		chain:   chain,
		quasi:   quasi,
		workers: workers,
		logger:  logger.Named("pipeline"),
	}
}

// DetectColumns scores every column, in parallel up to the configured bound.
// Samples are keyed by column id; a column without a sample still runs the
// metadata-only strategies.
func (p *Pipeline) DetectColumns(
	ctx context.Context,
	columns []*models.Column,
	samples map[uuid.UUID]models.SampleData,
) map[uuid.UUID]models.DetectionResult {
	results := make(map[uuid.UUID]models.DetectionResult, len(columns))
	if len(columns) == 0 {
		return results
	}

	type scored struct {
		columnID uuid.UUID
		result   models.DetectionResult
	}
	resultsChan := make(chan scored, len(columns))
	sem := make(chan struct{}, p.workers)

	var wg sync.WaitGroup
	for _, col := range columns {
		wg.Add(1)
		go func(col *models.Column) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				resultsChan <- scored{col.ID, models.NewDetectionResult(col.ID, nil)}
				return
			}

			var sample *models.SampleData
			if s, ok := samples[col.ID]; ok {
				sample = &s
			}
			resultsChan <- scored{col.ID, p.detectColumn(ctx, col, sample)}
		}(col)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for r := range resultsChan {
		results[r.columnID] = r.result
	}
	return results
}

// detectColumn runs the chain, then conflict resolution and the reporting
// threshold filter.
func (p *Pipeline) detectColumn(ctx context.Context, col *models.Column, sample *models.SampleData) models.DetectionResult {
	start := time.Now()
	var all []models.PiiCandidate

	for _, strategy := range p.chain {
		if ctx.Err() != nil {
			break
		}
		fresh, err := strategy.Detect(ctx, col, sample)
		if err != nil {
			p.logger.Warn("strategy failed, continuing",
				zap.String("strategy", strategy.Name()),
				zap.String("column", col.Name),
				zap.Error(err))
			continue
		}
		all = append(all, fresh...)

		if p.cfg.StopPipelineOnHighConfidence && p.hasHighConfidence(strategy.Name(), fresh) {
			break
		}
	}

	if p.quasi != nil && ctx.Err() == nil {
		fresh, err := p.quasi.Detect(ctx, col, sample)
		if err != nil {
			p.logger.Warn("strategy failed, continuing",
				zap.String("strategy", p.quasi.Name()),
				zap.String("column", col.Name),
				zap.Error(err))
		} else {
			all = append(all, fresh...)
		}
	}

	survivors := filterByThreshold(resolveConflicts(all), p.cfg.ReportingThreshold)
	metrics.DetectionDuration.Observe(time.Since(start).Seconds())
	return models.NewDetectionResult(col.ID, survivors)
}

func (p *Pipeline) hasHighConfidence(strategyName string, candidates []models.PiiCandidate) bool {
	threshold, ok := p.strategyThreshold(strategyName)
	if !ok {
		return false
	}
	for _, c := range candidates {
		if c.Confidence >= threshold {
			return true
		}
	}
	return false
}

func (p *Pipeline) strategyThreshold(name string) (float64, bool) {
	switch name {
	case models.StrategyHeuristic:
		return p.cfg.HeuristicThreshold, true
	case models.StrategyRegex:
		return p.cfg.RegexThreshold, true
	case models.StrategyNER:
		return p.cfg.NERThreshold, true
	default:
		return 0, false
	}
}

// resolveConflicts keeps one candidate per pii type: maximum confidence,
// ties broken by strategy priority then lexicographic strategy name.
func resolveConflicts(candidates []models.PiiCandidate) []models.PiiCandidate {
	best := make(map[string]models.PiiCandidate, len(candidates))
	for _, c := range candidates {
		prev, ok := best[c.PiiType]
		if !ok || wins(c, prev) {
			best[c.PiiType] = c
		}
	}

	out := make([]models.PiiCandidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PiiType < out[j].PiiType })
	return out
}

func wins(a, b models.PiiCandidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	pa, pb := priorityOf(a.Strategy), priorityOf(b.Strategy)
	if pa != pb {
		return pa < pb
	}
	return a.Strategy < b.Strategy
}

func priorityOf(strategy string) int {
	if p, ok := strategyPriority[strategy]; ok {
		return p
	}
	return len(strategyPriority)
}

func filterByThreshold(candidates []models.PiiCandidate, threshold float64) []models.PiiCandidate {
	out := candidates[:0]
	for _, c := range candidates {
		if c.Confidence >= threshold {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
