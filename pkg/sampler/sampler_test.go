package sampler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
	"github.com/privya-inc/privya-engine/pkg/apperrors"
	"github.com/privya-inc/privya-engine/pkg/config"
	"github.com/privya-inc/privya-engine/pkg/dialect"
	"github.com/privya-inc/privya-engine/pkg/models"
)

type fakeRows struct {
	values []any
	pos    int
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*any)) = r.values[r.pos-1]
	return nil
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}

// fakeConn simulates a database under load: every statement, COUNT probes
// included, holds for delay and the peak number of concurrent statements is
// recorded.
type fakeConn struct {
	values    []any
	rowCount  int64
	delay     time.Duration
	failOn    string
	inFlight  atomic.Int64
	peak      atomic.Int64
	blockCtx  bool
	countErrs atomic.Int64
}

// track counts a statement as in flight until the returned func runs.
func (c *fakeConn) track() func() {
	cur := c.inFlight.Add(1)
	for {
		prev := c.peak.Load()
		if cur <= prev || c.peak.CompareAndSwap(prev, cur) {
			break
		}
	}
	return func() { c.inFlight.Add(-1) }
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (datasource.Rows, error) {
	defer c.track()()

	if c.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.failOn != "" && strings.Contains(sql, c.failOn) {
		return nil, errors.New("relation gone")
	}
	return &fakeRows{values: c.values}, nil
}

func (c *fakeConn) QueryValue(ctx context.Context, sql string, args ...any) (any, error) {
	defer c.track()()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.rowCount < 0 {
		c.countErrs.Add(1)
		return nil, errors.New("count failed")
	}
	return c.rowCount, nil
}

func (c *fakeConn) ProductName() string { return "PostgreSQL" }
func (c *fakeConn) Close() error        { return nil }

func testGraph(t *testing.T, columnCount int) (*models.SchemaGraph, []*models.Column) {
	t.Helper()
	graph := models.NewSchemaGraph()
	schema := graph.AddSchema("db", "public")
	table := graph.AddTable(schema.ID, "users", "")
	cols := make([]*models.Column, 0, columnCount)
	for i := 0; i < columnCount; i++ {
		cols = append(cols, graph.AddColumn(table.ID, models.Column{
			Name:            fmt.Sprintf("col_%d", i),
			DataType:        "text",
			OrdinalPosition: i + 1,
		}))
	}
	return graph, cols
}

func newTestSampler(cfg config.SamplingConfig, max int64) *Sampler {
	s := New(cfg, zap.NewNop())
	s.permits = semaphore.NewWeighted(max)
	return s
}

func TestSampleColumnsPermitBound(t *testing.T) {
	graph, cols := testGraph(t, 40)
	conn := &fakeConn{
		values:   []any{"a", "b", "c"},
		rowCount: 1000,
		delay:    10 * time.Millisecond,
	}
	s := newTestSampler(config.SamplingConfig{DefaultSize: 10, DefaultMethod: "RANDOM"}, 3)
	s.sem = make(chan struct{}, 16)

	results := s.SampleColumns(context.Background(), conn, dialect.PostgreSQL{}, graph, cols, 10, models.SamplingRandom)

	require.Len(t, results, 40)
	for _, col := range cols {
		res, ok := results[col.ID]
		require.True(t, ok, "missing result for %s", col.Name)
		require.NoError(t, res.Err)
		assert.LessOrEqual(t, len(res.Data.Values), 10)
	}
	// The fake counts COUNT probes as well as sampling queries; the permit
	// covers both, so the worker pool being wider than the permit limit must
	// not show up at the database.
	assert.LessOrEqual(t, conn.peak.Load(), int64(3),
		"peak concurrent DB queries observed: %d (limit 3)", conn.peak.Load())
}

func TestSampleColumnsSharedWorkerPool(t *testing.T) {
	// Two concurrent calls through one Sampler share its worker pool; a
	// per-call pool would let 4 statements through.
	graphA, colsA := testGraph(t, 10)
	graphB, colsB := testGraph(t, 10)
	conn := &fakeConn{
		values:   []any{"a", "b"},
		rowCount: 1000,
		delay:    10 * time.Millisecond,
	}
	s := newTestSampler(config.SamplingConfig{DefaultSize: 10, DefaultMethod: "RANDOM"}, 100)
	s.sem = make(chan struct{}, 2)

	done := make(chan struct{}, 2)
	go func() {
		s.SampleColumns(context.Background(), conn, dialect.PostgreSQL{}, graphA, colsA, 10, models.SamplingRandom)
		done <- struct{}{}
	}()
	go func() {
		s.SampleColumns(context.Background(), conn, dialect.PostgreSQL{}, graphB, colsB, 10, models.SamplingRandom)
		done <- struct{}{}
	}()
	<-done
	<-done

	assert.LessOrEqual(t, conn.peak.Load(), int64(2), "worker pool is shared across calls")
}

func TestSampleColumnsSingleFailureDoesNotAbort(t *testing.T) {
	graph, cols := testGraph(t, 5)
	conn := &fakeConn{
		values:   []any{"x", nil, "y"},
		rowCount: 1000,
		failOn:   `"col_2"`,
	}
	s := newTestSampler(config.SamplingConfig{DefaultSize: 10, DefaultMethod: "RANDOM"}, 5)

	results := s.SampleColumns(context.Background(), conn, dialect.PostgreSQL{}, graph, cols, 10, models.SamplingRandom)
	require.Len(t, results, 5)

	failed := 0
	for _, col := range cols {
		res := results[col.ID]
		if res.Err != nil {
			failed++
			var se *apperrors.SamplingError
			require.ErrorAs(t, res.Err, &se)
			assert.Equal(t, "col_2", se.Column)
			assert.Equal(t, "users", se.Table)
			continue
		}
		assert.Equal(t, 3, res.Data.TotalCount)
		assert.Equal(t, 1, res.Data.NullCount)
	}
	assert.Equal(t, 1, failed)
}

func TestSampleColumnsCancellation(t *testing.T) {
	graph, cols := testGraph(t, 8)
	conn := &fakeConn{rowCount: 1000, blockCtx: true}
	s := newTestSampler(config.SamplingConfig{DefaultSize: 10, DefaultMethod: "RANDOM"}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan map[uuid.UUID]Result, 1)
	go func() {
		done <- s.SampleColumns(ctx, conn, dialect.PostgreSQL{}, graph, cols, 10, models.SamplingRandom)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case results := <-done:
		require.Len(t, results, 8)
		for _, res := range results {
			require.Error(t, res.Err)
			assert.ErrorIs(t, res.Err, context.Canceled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sampler did not return after cancellation")
	}

	// All permits must be back after a cancelled run.
	for i := 0; i < 2; i++ {
		require.True(t, s.permits.TryAcquire(1), "permit leaked after cancellation")
	}
	s.permits.Release(2)
}

func TestOptimalSampleSizeSmallTable(t *testing.T) {
	graph, cols := testGraph(t, 1)
	conn := &fakeConn{
		values:   []any{"a", "b", "c", "d", "e", "f", "g", "h"},
		rowCount: 4,
	}
	s := newTestSampler(config.SamplingConfig{DefaultSize: 1000, DefaultMethod: "RANDOM"}, 5)

	results := s.SampleColumns(context.Background(), conn, dialect.PostgreSQL{}, graph, cols, 1000, models.SamplingRandom)
	res := results[cols[0].ID]
	require.NoError(t, res.Err)
	assert.Len(t, res.Data.Values, 4, "sample should shrink to the table row count")
}

func TestOptimalSampleSizeCountFailureFallsBack(t *testing.T) {
	graph, cols := testGraph(t, 1)
	conn := &fakeConn{
		values:   []any{"a", "b"},
		rowCount: -1, // count probe fails
	}
	s := newTestSampler(config.SamplingConfig{DefaultSize: 10, DefaultMethod: "RANDOM"}, 5)

	results := s.SampleColumns(context.Background(), conn, dialect.PostgreSQL{}, graph, cols, 10, models.SamplingRandom)
	res := results[cols[0].ID]
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Data.TotalCount)
	assert.Equal(t, int64(1), conn.countErrs.Load())
}

func TestSampleColumnsEntropy(t *testing.T) {
	graph, cols := testGraph(t, 1)
	conn := &fakeConn{values: []any{"a", "a", "b", "b"}, rowCount: 100}
	s := newTestSampler(config.SamplingConfig{DefaultSize: 10, EntropyEnabled: true, DefaultMethod: "RANDOM"}, 5)

	results := s.SampleColumns(context.Background(), conn, dialect.PostgreSQL{}, graph, cols, 10, models.SamplingRandom)
	res := results[cols[0].ID]
	require.NoError(t, res.Err)
	require.NotNil(t, res.Data.Entropy)
	assert.InDelta(t, 1.0, *res.Data.Entropy, 1e-9)
}
