package analyze

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/privya-inc/privya-engine/pkg/models"
)

// RiskAssessor computes k-anonymity per table over the quasi-identifier
// columns found by detection, plus a distinct-ratio risk per column.
type RiskAssessor struct {
	logger *zap.Logger
}

func NewRiskAssessor(logger *zap.Logger) *RiskAssessor {
	return &RiskAssessor{logger: logger.Named("risk")}
}

// Assessment is the assessor's aggregate output.
type Assessment struct {
	TableRisks      []models.TableRisk
	ColumnRisks     []models.ColumnRisk
	Groups          []models.QuasiIdentifierGroup
	Overall         models.RiskLevel
	Recommendations []string
}

// Assess derives table, column, and group risk from the augmented detection
// results. Only columns with at least one QI-family candidate participate.
func (r *RiskAssessor) Assess(
	ctx context.Context,
	graph *models.SchemaGraph,
	results map[uuid.UUID]models.DetectionResult,
	samples map[uuid.UUID]models.SampleData,
	correlations []models.ColumnCorrelation,
	groups []models.QuasiIdentifierGroup,
) (Assessment, error) {
	assessment := Assessment{Overall: models.RiskLow}

	qiConfidence := make(map[uuid.UUID]float64)
	byTable := make(map[uuid.UUID][]uuid.UUID)
	for id, res := range results {
		best := 0.0
		for _, c := range res.QuasiIdentifierCandidates() {
			if c.Confidence > best {
				best = c.Confidence
			}
		}
		if best == 0 {
			continue
		}
		qiConfidence[id] = best
		col, ok := graph.Columns[id]
		if !ok {
			continue
		}
		byTable[col.TableID] = append(byTable[col.TableID], id)
	}

	tableIDs := make([]uuid.UUID, 0, len(byTable))
	for id := range byTable {
		tableIDs = append(tableIDs, id)
	}
	sort.Slice(tableIDs, func(i, j int) bool { return tableIDs[i].String() < tableIDs[j].String() })

	for _, tableID := range tableIDs {
		if err := ctx.Err(); err != nil {
			return assessment, err
		}
		columns := byTable[tableID]
		sort.Slice(columns, func(i, j int) bool { return columns[i].String() < columns[j].String() })

		k := r.tableKAnonymity(graph, tableID, columns, samples)
		level := riskFromK(k)
		assessment.TableRisks = append(assessment.TableRisks, models.TableRisk{
			TableID:    tableID,
			QIColumns:  columns,
			KAnonymity: k,
			Level:      level,
		})
		assessment.Overall = models.MaxRisk(assessment.Overall, level)
	}

	columnIDs := make([]uuid.UUID, 0, len(qiConfidence))
	for id := range qiConfidence {
		columnIDs = append(columnIDs, id)
	}
	sort.Slice(columnIDs, func(i, j int) bool { return columnIDs[i].String() < columnIDs[j].String() })

	for _, id := range columnIDs {
		sample, ok := samples[id]
		if !ok || sample.TotalCount == 0 {
			continue
		}
		ratio := float64(sample.DistinctCount()) / float64(sample.TotalCount)
		assessment.ColumnRisks = append(assessment.ColumnRisks, models.ColumnRisk{
			ColumnID:      id,
			DistinctRatio: ratio,
			Confidence:    qiConfidence[id],
			Level:         columnRisk(ratio, qiConfidence[id]),
		})
	}

	assessment.Groups = r.scoreGroups(graph, groups, samples)
	assessment.Recommendations = recommendations(assessment.Overall, len(correlations) > 0)
	return assessment, nil
}

func (r *RiskAssessor) tableKAnonymity(graph *models.SchemaGraph, tableID uuid.UUID, columns []uuid.UUID, samples map[uuid.UUID]models.SampleData) int64 {
	valueSets := make([][]any, 0, len(columns))
	for _, id := range columns {
		if s, ok := samples[id]; ok {
			valueSets = append(valueSets, s.Values)
		}
	}
	rowCount := int64(0)
	if t, ok := graph.Tables[tableID]; ok && t.RowCount != nil {
		rowCount = *t.RowCount
	}
	return KAnonymity(valueSets, rowCount)
}

// KAnonymity computes k over row-signatures built from the aligned samples
// of the given columns. Nulls render as "NULL" and columns join with "|".
// No rows means k is unbounded; all-distinct signatures fall back to the
// table row count because sample uniqueness says nothing about the full
// table.
func KAnonymity(valuesByColumn [][]any, rowCount int64) int64 {
	if len(valuesByColumn) == 0 {
		return models.KAnonymityInfinite
	}
	n := len(valuesByColumn[0])
	for _, values := range valuesByColumn[1:] {
		if len(values) < n {
			n = len(values)
		}
	}
	if n == 0 {
		return models.KAnonymityInfinite
	}

	classes := make(map[string]int64, n)
	var sb strings.Builder
	for row := 0; row < n; row++ {
		sb.Reset()
		for i, values := range valuesByColumn {
			if i > 0 {
				sb.WriteByte('|')
			}
			if values[row] == nil {
				sb.WriteString("NULL")
			} else {
				sb.WriteString(models.CoerceString(values[row]))
			}
		}
		classes[sb.String()]++
	}

	k := int64(n)
	allDistinct := true
	for _, size := range classes {
		if size < k {
			k = size
		}
		if size > 1 {
			allDistinct = false
		}
	}
	if allDistinct {
		if rowCount > 0 {
			return rowCount
		}
		return int64(n)
	}
	return k
}

func (r *RiskAssessor) scoreGroups(graph *models.SchemaGraph, groups []models.QuasiIdentifierGroup, samples map[uuid.UUID]models.SampleData) []models.QuasiIdentifierGroup {
	out := make([]models.QuasiIdentifierGroup, 0, len(groups))
	for _, g := range groups {
		valueSets := make([][]any, 0, len(g.Columns))
		var rowCount int64
		for _, id := range g.Columns {
			if s, ok := samples[id]; ok {
				valueSets = append(valueSets, s.Values)
			}
			if col, ok := graph.Columns[id]; ok {
				if t, ok := graph.Tables[col.TableID]; ok && t.RowCount != nil && *t.RowCount > rowCount {
					rowCount = *t.RowCount
				}
			}
		}
		g.KAnonymity = KAnonymity(valueSets, rowCount)
		out = append(out, g)
	}
	return out
}

func riskFromK(k int64) models.RiskLevel {
	switch {
	case k <= 1:
		return models.RiskCritical
	case k <= 5:
		return models.RiskHigh
	case k <= 15:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func columnRisk(ratio, confidence float64) models.RiskLevel {
	switch {
	case ratio >= 0.9 && confidence >= 0.8:
		return models.RiskCritical
	case ratio >= 0.7 && confidence >= 0.7:
		return models.RiskHigh
	case (ratio >= 0.5 && confidence >= 0.6) || (ratio >= 0.3 && confidence >= 0.8):
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// recommendations is deterministic: the same level and correlation presence
// always produce the same list in the same order.
func recommendations(overall models.RiskLevel, hasCorrelations bool) []string {
	var recs []string
	switch overall {
	case models.RiskCritical:
		recs = append(recs,
			"Apply suppression or generalization to quasi-identifier columns before any data sharing",
			"Restrict access to the affected tables to named principals",
			"Re-scan after remediation to confirm k-anonymity has improved")
	case models.RiskHigh:
		recs = append(recs,
			"Generalize high-cardinality quasi-identifiers (for example, bucket ages and truncate postal codes)",
			"Review downstream exports of the affected tables")
	case models.RiskMedium:
		recs = append(recs,
			"Monitor the affected tables and re-scan on schema changes")
	case models.RiskLow:
		recs = append(recs,
			"No immediate action required; keep periodic scans scheduled")
	}
	if hasCorrelations {
		recs = append(recs,
			"Correlated quasi-identifiers detected: consider l-diversity in addition to k-anonymity when releasing data")
	}
	return recs
}
