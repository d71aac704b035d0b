// Package scanner runs scans end to end: metadata extraction, sampling,
// detection, quasi-identifier analysis, and report generation, driven by a
// strict job state machine with broadcast progress events.
package scanner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
	"github.com/privya-inc/privya-engine/pkg/analyze"
	"github.com/privya-inc/privya-engine/pkg/apperrors"
	"github.com/privya-inc/privya-engine/pkg/config"
	"github.com/privya-inc/privya-engine/pkg/detect"
	"github.com/privya-inc/privya-engine/pkg/dialect"
	"github.com/privya-inc/privya-engine/pkg/logging"
	"github.com/privya-inc/privya-engine/pkg/metrics"
	"github.com/privya-inc/privya-engine/pkg/models"
	"github.com/privya-inc/privya-engine/pkg/ner"
	"github.com/privya-inc/privya-engine/pkg/report"
	"github.com/privya-inc/privya-engine/pkg/sampler"
)

// Progress milestones per stage. Sampling and detection interpolate within
// their band by completed columns.
const (
	progressMetadata   = 10
	progressSampling   = 60
	progressDetection  = 85
	progressAnalysis   = 90
	progressGenerating = 95
	progressDone       = 100
)

type job struct {
	mu      sync.Mutex
	model   models.ScanJob
	request models.ScanRequest
	cancel  context.CancelFunc
	done    chan struct{}
	report  *models.Report
}

// Orchestrator owns the scan lifecycle. One orchestrator serves many
// concurrent jobs; per-job state is isolated, the DB permit semaphore is
// shared through the sampler.
type Orchestrator struct {
	cfg       *config.Config
	connector datasource.Connector
	nerClient ner.Client // nil when NER is disabled
	patterns  []config.Pattern

	hub      *Hub
	sampler  *sampler.Sampler
	assessor *analyze.RiskAssessor
	builder  *report.Builder
	logger   *zap.Logger

	// extractorFor resolves a metadata extractor from a product name.
	// Defaults to the adapter registry.
	extractorFor func(productName string) datasource.MetadataExtractor

	mu   sync.RWMutex
	jobs map[uuid.UUID]*job
}

// New wires an orchestrator. nerClient may be nil; the NER strategy is then
// skipped regardless of the scan request.
func New(cfg *config.Config, connector datasource.Connector, nerClient ner.Client, patterns []config.Pattern, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		connector:    connector,
		nerClient:    nerClient,
		patterns:     patterns,
		hub:          NewHub(),
		sampler:      sampler.New(cfg.Sampling, logger),
		assessor:     analyze.NewRiskAssessor(logger),
		builder:      report.NewBuilder(logger),
		logger:       logger.Named("orchestrator"),
		extractorFor: datasource.ExtractorForProduct,
		jobs:         make(map[uuid.UUID]*job),
	}
}

// SubmitScan starts a scan and returns immediately with its job id.
func (o *Orchestrator) SubmitScan(req models.ScanRequest) (uuid.UUID, error) {
	if req.ConnectionID == "" {
		return uuid.Nil, apperrors.NewConfigError("connection_id", "must not be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		model: models.ScanJob{
			ID:           uuid.New(),
			ConnectionID: req.ConnectionID,
			StartTime:    time.Now().UTC(),
			Status:       models.ScanPending,
		},
		request: req,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	o.mu.Lock()
	o.jobs[j.model.ID] = j
	o.mu.Unlock()

	metrics.ScansByStatus.WithLabelValues(string(models.ScanPending)).Inc()
	o.publish(j, "scan submitted")

	go o.run(ctx, j)
	return j.model.ID, nil
}

// GetStatus returns a snapshot of the job.
func (o *Orchestrator) GetStatus(jobID uuid.UUID) (models.ScanJob, error) {
	j, err := o.job(jobID)
	if err != nil {
		return models.ScanJob{}, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.model, nil
}

// Cancel requests cooperative cancellation. Idempotent: cancelling a
// terminal job is a no-op.
func (o *Orchestrator) Cancel(jobID uuid.UUID) error {
	j, err := o.job(jobID)
	if err != nil {
		return err
	}
	j.mu.Lock()
	terminal := j.model.Status.IsTerminal()
	j.mu.Unlock()
	if terminal {
		return nil
	}
	j.cancel()
	return nil
}

// Await blocks until the job reaches a terminal state or ctx expires.
func (o *Orchestrator) Await(ctx context.Context, jobID uuid.UUID) (models.ScanJob, error) {
	j, err := o.job(jobID)
	if err != nil {
		return models.ScanJob{}, err
	}
	select {
	case <-j.done:
		return o.GetStatus(jobID)
	case <-ctx.Done():
		return models.ScanJob{}, ctx.Err()
	}
}

// Subscribe returns an event stream. A nil jobID receives events for every
// job.
func (o *Orchestrator) Subscribe(jobID *uuid.UUID) *Subscription {
	return o.hub.Subscribe(jobID)
}

// Unsubscribe releases a subscription.
func (o *Orchestrator) Unsubscribe(sub *Subscription) {
	o.hub.Unsubscribe(sub)
}

// GetReport returns the finished report. Any non-COMPLETED status yields
// ErrNotReady.
func (o *Orchestrator) GetReport(jobID uuid.UUID) (models.Report, error) {
	j, err := o.job(jobID)
	if err != nil {
		return models.Report{}, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.model.Status != models.ScanCompleted || j.report == nil {
		return models.Report{}, fmt.Errorf("job %s is %s: %w", jobID, j.model.Status, apperrors.ErrNotReady)
	}
	return *j.report, nil
}

// Close tears down the event hub. Running jobs are not cancelled.
func (o *Orchestrator) Close() {
	o.hub.Close()
}

func (o *Orchestrator) job(jobID uuid.UUID) (*job, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, apperrors.ErrNotFound)
	}
	return j, nil
}

// run drives one scan through every stage. All partial results live on the
// stack; a cancelled or failed scan keeps none of them.
func (o *Orchestrator) run(ctx context.Context, j *job) {
	defer close(j.done)
	logger := o.logger.With(zap.String("job_id", j.model.ID.String()))

	result, err := o.execute(ctx, j, logger)
	switch {
	case ctx.Err() != nil:
		o.finish(j, models.ScanCancelled, "")
		logger.Info("scan cancelled")
	case err != nil:
		o.finish(j, models.ScanFailed, logging.SanitizeError(err))
		logger.Error("scan failed", zap.String("error", logging.SanitizeError(err)))
	default:
		j.mu.Lock()
		j.report = result
		j.model.TableCount = result.TableCount
		j.model.ColumnCount = result.ColumnCount
		j.model.PiiColumnCount = result.PiiColumnCount
		j.mu.Unlock()
		o.finish(j, models.ScanCompleted, "")
		logger.Info("scan completed",
			zap.Int("columns", result.ColumnCount),
			zap.Int("pii_columns", result.PiiColumnCount))
	}
}

func (o *Orchestrator) execute(ctx context.Context, j *job, logger *zap.Logger) (*models.Report, error) {
	req := j.request

	if err := o.transition(j, models.ScanExtractingMetadata, 1, "extracting schema metadata"); err != nil {
		return nil, err
	}
	conn, err := o.connector.Open(ctx, req.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("open connection %s: %w", req.ConnectionID, err)
	}
	defer conn.Close()

	product := conn.ProductName()
	d, err := dialect.ForProduct(product)
	if err != nil {
		return nil, err
	}
	extractor := o.extractorFor(product)
	if extractor == nil {
		return nil, fmt.Errorf("product %q: %w", product, apperrors.ErrUnsupportedDialect)
	}

	graph, err := extractor.ExtractSchema(ctx, conn, req.IncludedSchemas)
	if err != nil {
		return nil, fmt.Errorf("extract schema: %w", err)
	}
	columns := o.selectColumns(graph, req)
	o.progress(j, progressMetadata, "schema metadata extracted")

	if err := o.transition(j, models.ScanSampling, progressMetadata, "sampling column values"); err != nil {
		return nil, err
	}
	samples, failures := o.sampleAll(ctx, j, conn, d, graph, columns, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.progress(j, progressSampling, "sampling finished")

	if err := o.transition(j, models.ScanDetectingPii, progressSampling, "detecting PII"); err != nil {
		return nil, err
	}
	results := o.detectAll(ctx, j, columns, samples, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.progress(j, progressDetection, "detection finished")

	if err := o.transition(j, models.ScanAnalyzingQI, progressDetection, "analyzing quasi-identifiers"); err != nil {
		return nil, err
	}
	correlator := analyze.NewCorrelationAnalyzer(o.qiConfig(req), logger)
	outcome, err := correlator.Analyze(ctx, results, samples)
	if err != nil {
		return nil, err
	}
	assessment, err := o.assessor.Assess(ctx, graph, outcome.Results, samples, outcome.Correlations, outcome.Groups)
	if err != nil {
		return nil, err
	}
	o.progress(j, progressAnalysis, "analysis finished")

	if err := o.transition(j, models.ScanGeneratingReport, progressGenerating, "generating report"); err != nil {
		return nil, err
	}
	rep := o.builder.Build(report.Input{
		JobID:            j.model.ID,
		ConnectionID:     req.ConnectionID,
		Graph:            graph,
		Results:          outcome.Results,
		Samples:          samples,
		Correlations:     outcome.Correlations,
		Assessment:       assessment,
		SamplingFailures: failures,
	})
	return &rep, nil
}

// selectColumns applies the request's table include and exclude filters.
// Filters match the bare table name or "schema.table", case-insensitive.
func (o *Orchestrator) selectColumns(graph *models.SchemaGraph, req models.ScanRequest) []*models.Column {
	included := normalizeSet(req.IncludedTables)
	excluded := normalizeSet(req.ExcludedTables)

	var columns []*models.Column
	for _, table := range graph.Tables {
		qualified := ""
		if schema, ok := graph.Schemas[table.SchemaID]; ok {
			qualified = strings.ToLower(schema.Name + "." + table.Name)
		}
		name := strings.ToLower(table.Name)

		if len(included) > 0 && !included[name] && !included[qualified] {
			continue
		}
		if excluded[name] || excluded[qualified] {
			continue
		}
		columns = append(columns, graph.ColumnsOf(table.ID)...)
	}
	return columns
}

func normalizeSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}

// sampleAll samples table by table so progress moves within the band.
func (o *Orchestrator) sampleAll(
	ctx context.Context,
	j *job,
	conn datasource.Connection,
	d dialect.Dialect,
	graph *models.SchemaGraph,
	columns []*models.Column,
	req models.ScanRequest,
) (map[uuid.UUID]models.SampleData, []string) {
	n := req.MaxSampleSize
	if n <= 0 {
		n = o.cfg.Sampling.DefaultSize
	}
	method := req.SamplingMethod
	if method == "" {
		method = models.SamplingMethod(o.cfg.Sampling.DefaultMethod)
	}

	samples := make(map[uuid.UUID]models.SampleData, len(columns))
	var failures []string

	byTable := make(map[uuid.UUID][]*models.Column)
	for _, col := range columns {
		byTable[col.TableID] = append(byTable[col.TableID], col)
	}

	doneCols := 0
	for _, tableColumns := range byTable {
		if ctx.Err() != nil {
			return samples, failures
		}
		results := o.sampler.SampleColumns(ctx, conn, d, graph, tableColumns, n, method)
		for id, res := range results {
			if res.Err != nil {
				if ctx.Err() == nil {
					failures = append(failures, graph.QualifiedColumnName(id))
				}
				continue
			}
			samples[id] = res.Data
		}
		doneCols += len(tableColumns)
		o.progress(j, interpolate(progressMetadata, progressSampling, doneCols, len(columns)),
			fmt.Sprintf("sampled %d/%d columns", doneCols, len(columns)))
	}
	return samples, failures
}

// detectAll scores columns in table batches for the same progress reason.
func (o *Orchestrator) detectAll(
	ctx context.Context,
	j *job,
	columns []*models.Column,
	samples map[uuid.UUID]models.SampleData,
	req models.ScanRequest,
) map[uuid.UUID]models.DetectionResult {
	pipeline := o.buildPipeline(req)

	results := make(map[uuid.UUID]models.DetectionResult, len(columns))
	const batchSize = 64
	done := 0
	for start := 0; start < len(columns); start += batchSize {
		if ctx.Err() != nil {
			return results
		}
		end := start + batchSize
		if end > len(columns) {
			end = len(columns)
		}
		batch := columns[start:end]
		for id, res := range pipeline.DetectColumns(ctx, batch, samples) {
			results[id] = res
		}
		done += len(batch)
		o.progress(j, interpolate(progressSampling, progressDetection, done, len(columns)),
			fmt.Sprintf("scored %d/%d columns", done, len(columns)))
	}
	return results
}

// buildPipeline honors the request's strategy subset; an empty subset means
// every configured strategy.
func (o *Orchestrator) buildPipeline(req models.ScanRequest) *detect.Pipeline {
	wanted := normalizeSet(req.Strategies)
	enabled := func(name string) bool {
		return len(wanted) == 0 || wanted[strings.ToLower(name)]
	}

	var chain []detect.Strategy
	if enabled(models.StrategyHeuristic) {
		chain = append(chain, detect.NewHeuristicStrategy())
	}
	if enabled(models.StrategyRegex) {
		chain = append(chain, detect.NewRegexStrategy(o.patterns))
	}
	if enabled(models.StrategyNER) && o.nerClient != nil {
		chain = append(chain, detect.NewNERStrategy(o.nerClient, o.cfg.NER.MaxSamples, o.logger))
	}
	var quasi detect.Strategy
	if enabled(models.StrategyQuasi) {
		quasi = detect.NewQuasiStrategy(o.cfg.QI)
	}
	return detect.NewPipeline(o.cfg.Detection, chain, quasi, o.logger)
}

// qiConfig applies the request's confidence threshold override.
func (o *Orchestrator) qiConfig(req models.ScanRequest) config.QIConfig {
	cfg := o.cfg.QI
	if req.ConfidenceThreshold > 0 {
		cfg.ConfidenceThreshold = req.ConfidenceThreshold
	}
	return cfg
}

// transition moves the job forward, enforcing the state machine, and
// publishes the event.
func (o *Orchestrator) transition(j *job, next models.ScanStatus, progress int, operation string) error {
	j.mu.Lock()
	current := j.model.Status
	if !current.CanTransitionTo(next) {
		j.mu.Unlock()
		return fmt.Errorf("%s -> %s: %w", current, next, apperrors.ErrInvalidTransition)
	}
	j.model.Status = next
	if progress > j.model.Progress {
		j.model.Progress = progress
	}
	j.mu.Unlock()

	metrics.ScansByStatus.WithLabelValues(string(next)).Inc()
	o.publish(j, operation)
	return nil
}

// progress raises the job's progress, never lowering it.
func (o *Orchestrator) progress(j *job, progress int, operation string) {
	j.mu.Lock()
	if progress <= j.model.Progress {
		j.mu.Unlock()
		return
	}
	j.model.Progress = progress
	j.mu.Unlock()
	o.publish(j, operation)
}

// finish forces a terminal state. Invalid forward transitions cannot happen
// here: FAILED and CANCELLED are reachable from every non-terminal state.
func (o *Orchestrator) finish(j *job, status models.ScanStatus, errorMessage string) {
	j.mu.Lock()
	if j.model.Status.IsTerminal() {
		j.mu.Unlock()
		return
	}
	j.model.Status = status
	j.model.ErrorMessage = errorMessage
	now := time.Now().UTC()
	j.model.EndTime = &now
	if status == models.ScanCompleted {
		j.model.Progress = progressDone
	}
	j.mu.Unlock()

	metrics.ScansByStatus.WithLabelValues(string(status)).Inc()
	o.publish(j, "")
}

func (o *Orchestrator) publish(j *job, operation string) {
	j.mu.Lock()
	event := models.ScanEvent{
		JobID:            j.model.ID,
		Status:           j.model.Status,
		Progress:         j.model.Progress,
		Timestamp:        time.Now().UTC(),
		CurrentOperation: operation,
		ErrorMessage:     j.model.ErrorMessage,
	}
	j.mu.Unlock()
	o.hub.Publish(event)
}

func interpolate(lo, hi, done, total int) int {
	if total <= 0 {
		return hi
	}
	return lo + (hi-lo)*done/total
}
