// Package sampler extracts per-column value samples from a scanned database
// with bounded parallelism. Workers run per column; every query additionally
// holds a process-wide permit so that concurrent scans against the same
// server never exceed the configured number of in-flight DB queries.
package sampler

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
	"github.com/privya-inc/privya-engine/pkg/apperrors"
	"github.com/privya-inc/privya-engine/pkg/config"
	"github.com/privya-inc/privya-engine/pkg/dialect"
	"github.com/privya-inc/privya-engine/pkg/logging"
	"github.com/privya-inc/privya-engine/pkg/metrics"
	"github.com/privya-inc/privya-engine/pkg/models"
)

var (
	permitsOnce sync.Once
	permits     *semaphore.Weighted
)

// GlobalPermits returns the process-wide DB-query semaphore, creating it on
// first use. The limit is fixed for the life of the process; later calls
// with a different max reuse the original semaphore.
func GlobalPermits(max int64) *semaphore.Weighted {
	permitsOnce.Do(func() {
		if max < 1 {
			max = 5
		}
		permits = semaphore.NewWeighted(max)
	})
	return permits
}

// Result is the outcome for one column. Exactly one of Data or Err is
// meaningful; Err is an *apperrors.SamplingError except under cancellation,
// where it wraps context.Canceled.
type Result struct {
	ColumnID uuid.UUID
	Data     models.SampleData
	Err      error
}

// Sampler draws value samples for columns. The worker pool belongs to the
// Sampler, not to a single call, so concurrent scans through one Sampler
// share it.
type Sampler struct {
	cfg     config.SamplingConfig
	sem     chan struct{}
	permits *semaphore.Weighted
	logger  *zap.Logger
}

// New creates a Sampler. Worker count defaults to twice the CPU count.
func New(cfg config.SamplingConfig, logger *zap.Logger) *Sampler {
	return &Sampler{
		cfg:     cfg,
		sem:     make(chan struct{}, runtime.NumCPU()*2),
		permits: GlobalPermits(cfg.MaxConcurrentDBQueries),
		logger:  logger.Named("sampler"),
	}
}

// SampleColumns samples every column concurrently and returns one Result per
// column, keyed by column id. A single column failure is recorded in its
// Result and does not abort the call; cancellation does.
func (s *Sampler) SampleColumns(
	ctx context.Context,
	conn datasource.Connection,
	d dialect.Dialect,
	graph *models.SchemaGraph,
	columns []*models.Column,
	n int,
	method models.SamplingMethod,
) map[uuid.UUID]Result {
	results := make(map[uuid.UUID]Result, len(columns))
	if len(columns) == 0 {
		return results
	}
	if n <= 0 {
		n = s.cfg.DefaultSize
	}
	if method == "" {
		method = models.SamplingMethod(s.cfg.DefaultMethod)
	}

	resultsChan := make(chan Result, len(columns))

	var wg sync.WaitGroup
	for _, col := range columns {
		wg.Add(1)
		go func(col *models.Column) {
			defer wg.Done()

			select {
			case s.sem <- struct{}{}:
				defer func() { <-s.sem }()
			case <-ctx.Done():
				resultsChan <- Result{ColumnID: col.ID, Err: ctx.Err()}
				return
			}

			data, err := s.sampleColumn(ctx, conn, d, graph, col, n, method)
			resultsChan <- Result{ColumnID: col.ID, Data: data, Err: err}
		}(col)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for res := range resultsChan {
		results[res.ColumnID] = res
	}
	return results
}

func (s *Sampler) sampleColumn(
	ctx context.Context,
	conn datasource.Connection,
	d dialect.Dialect,
	graph *models.SchemaGraph,
	col *models.Column,
	n int,
	method models.SamplingMethod,
) (models.SampleData, error) {
	table, ok := graph.Tables[col.TableID]
	if !ok {
		return models.SampleData{}, s.failure(graph, col, fmt.Errorf("column %s has no table", col.Name))
	}
	schema, ok := graph.Schemas[table.SchemaID]
	if !ok {
		return models.SampleData{}, s.failure(graph, col, fmt.Errorf("table %s has no schema", table.Name))
	}

	size := s.determineOptimalSampleSize(ctx, conn, d, schema.Name, table.Name, n)
	query := d.SamplingQuery(schema.Name, table.Name, col.Name, size, method)

	if err := s.permits.Acquire(ctx, 1); err != nil {
		return models.SampleData{}, err
	}
	metrics.DBQueriesInFlight.Inc()

	values, err := s.fetchValues(ctx, conn, query, size)

	metrics.DBQueriesInFlight.Dec()
	s.permits.Release(1)

	if err != nil {
		if ctx.Err() != nil {
			return models.SampleData{}, ctx.Err()
		}
		metrics.SamplingErrors.Inc()
		s.logger.Warn("column sampling failed",
			zap.String("column", graph.QualifiedColumnName(col.ID)),
			zap.String("query", logging.SanitizeQuery(query)),
			zap.String("error", logging.SanitizeError(err)))
		return models.SampleData{}, s.failure(graph, col, err)
	}

	data := models.NewSampleData(col.ID, values)
	if s.cfg.EntropyEnabled {
		data.ComputeEntropy()
	}
	return data, nil
}

func (s *Sampler) fetchValues(ctx context.Context, conn datasource.Connection, query string, size int) ([]any, error) {
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]any, 0, size)
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
		if len(values) >= size {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// determineOptimalSampleSize probes the table row count and shrinks the
// request when the table is smaller than it. The probe holds a global DB
// permit like any other query. Probe failures are non-fatal and fall back
// to the requested size.
func (s *Sampler) determineOptimalSampleSize(ctx context.Context, conn datasource.Connection, d dialect.Dialect, schema, table string, n int) int {
	if err := s.permits.Acquire(ctx, 1); err != nil {
		return n
	}
	metrics.DBQueriesInFlight.Inc()

	v, err := conn.QueryValue(ctx, d.CountQuery(schema, table))

	metrics.DBQueriesInFlight.Dec()
	s.permits.Release(1)

	if err != nil {
		s.logger.Debug("row count probe failed, using requested size",
			zap.String("table", schema+"."+table), zap.Error(err))
		return n
	}
	count, ok := toInt64(v)
	if !ok {
		return n
	}
	if count >= 0 && count < int64(n) {
		return int(count)
	}
	return n
}

func (s *Sampler) failure(graph *models.SchemaGraph, col *models.Column, cause error) error {
	table, schema := "", ""
	if t, ok := graph.Tables[col.TableID]; ok {
		table = t.Name
		if sc, ok := graph.Schemas[t.SchemaID]; ok {
			schema = sc.Name
		}
	}
	return &apperrors.SamplingError{Schema: schema, Table: table, Column: col.Name, Cause: cause}
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case int:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float64:
		return int64(t), true
	case []byte:
		var n int64
		if _, err := fmt.Sscan(string(t), &n); err != nil {
			return 0, false
		}
		return n, true
	case string:
		var n int64
		if _, err := fmt.Sscan(t, &n); err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
