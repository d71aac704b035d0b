// Package report assembles the final scan record. The report is a neutral
// aggregate; rendering to JSON, CSV, or anything else is the host's concern.
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/privya-inc/privya-engine/pkg/analyze"
	"github.com/privya-inc/privya-engine/pkg/models"
)

// Builder aggregates scan outputs into a Report.
type Builder struct {
	logger *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger.Named("report")}
}

// Input carries everything a finished scan produced.
type Input struct {
	JobID        uuid.UUID
	ConnectionID string

	Graph        *models.SchemaGraph
	Results      map[uuid.UUID]models.DetectionResult
	Samples      map[uuid.UUID]models.SampleData
	Correlations []models.ColumnCorrelation
	Assessment   analyze.Assessment

	SamplingFailures []string
}

// Build produces the report. Detection results are ordered by qualified
// column name so repeated scans of the same schema diff cleanly.
func (b *Builder) Build(in Input) models.Report {
	rep := models.Report{
		JobID:        in.JobID,
		ConnectionID: in.ConnectionID,
		GeneratedAt:  time.Now().UTC(),

		Correlations: in.Correlations,
		QIGroups:     in.Assessment.Groups,
		TableRisks:   in.Assessment.TableRisks,
		ColumnRisks:  in.Assessment.ColumnRisks,

		OverallRisk:     in.Assessment.Overall,
		Recommendations: in.Assessment.Recommendations,

		SamplingFailures: in.SamplingFailures,
	}
	if rep.OverallRisk == "" {
		rep.OverallRisk = models.RiskLow
	}

	if in.Graph != nil {
		rep.TableCount = len(in.Graph.Tables)
		rep.ColumnCount = len(in.Graph.Columns)
	}
	rep.SampledColumns = len(in.Samples)

	ids := make([]uuid.UUID, 0, len(in.Results))
	for id := range in.Results {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return b.sortKey(in.Graph, ids[i]) < b.sortKey(in.Graph, ids[j])
	})

	rep.Results = make([]models.DetectionResult, 0, len(ids))
	for _, id := range ids {
		res := in.Results[id]
		rep.Results = append(rep.Results, res)
		if res.HasPii() {
			rep.PiiColumnCount++
		}
	}

	b.logger.Info("report built",
		zap.String("job_id", in.JobID.String()),
		zap.Int("columns", rep.ColumnCount),
		zap.Int("pii_columns", rep.PiiColumnCount),
		zap.String("overall_risk", string(rep.OverallRisk)))
	return rep
}

func (b *Builder) sortKey(graph *models.SchemaGraph, id uuid.UUID) string {
	if graph != nil {
		if name := graph.QualifiedColumnName(id); name != "" {
			return name
		}
	}
	return id.String()
}
