package analyze

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/privya-inc/privya-engine/pkg/models"
)

func riskGraph(t *testing.T, columnNames ...string) (*models.SchemaGraph, []*models.Column) {
	t.Helper()
	graph := models.NewSchemaGraph()
	schema := graph.AddSchema("db", "public")
	table := graph.AddTable(schema.ID, "patients", "")
	cols := make([]*models.Column, 0, len(columnNames))
	for i, name := range columnNames {
		cols = append(cols, graph.AddColumn(table.ID, models.Column{
			Name:            name,
			DataType:        "varchar",
			OrdinalPosition: i + 1,
		}))
	}
	return graph, cols
}

func TestKAnonymityLiteral(t *testing.T) {
	// zip=[1,1,2,2,3], gender=[M,M,F,F,F] -> classes {1|M:2, 2|F:2, 3|F:1} -> k=1
	zip := []any{"1", "1", "2", "2", "3"}
	gender := []any{"M", "M", "F", "F", "F"}

	k := KAnonymity([][]any{zip, gender}, 5)
	assert.Equal(t, int64(1), k)
	assert.Equal(t, models.RiskCritical, riskFromK(k))
}

func TestKAnonymityNullsAndAlignment(t *testing.T) {
	a := []any{"x", nil, "x", nil}
	b := []any{"1", "2", "1", "2", "3"} // longer; alignment truncates to 4

	k := KAnonymity([][]any{a, b}, 100)
	// signatures: x|1, NULL|2, x|1, NULL|2 -> classes of size 2
	assert.Equal(t, int64(2), k)
}

func TestKAnonymityAllDistinctFallsBackToRowCount(t *testing.T) {
	a := []any{"a", "b", "c", "d"}
	b := []any{"1", "2", "3", "4"}

	assert.Equal(t, int64(5000), KAnonymity([][]any{a, b}, 5000))
	// Without a known row count, the sample size stands in.
	assert.Equal(t, int64(4), KAnonymity([][]any{a, b}, 0))
}

func TestKAnonymityNoRows(t *testing.T) {
	assert.Equal(t, models.KAnonymityInfinite, KAnonymity(nil, 0))
	assert.Equal(t, models.KAnonymityInfinite, KAnonymity([][]any{{}}, 0))
}

func TestRiskFromK(t *testing.T) {
	assert.Equal(t, models.RiskCritical, riskFromK(0))
	assert.Equal(t, models.RiskCritical, riskFromK(1))
	assert.Equal(t, models.RiskHigh, riskFromK(2))
	assert.Equal(t, models.RiskHigh, riskFromK(5))
	assert.Equal(t, models.RiskMedium, riskFromK(6))
	assert.Equal(t, models.RiskMedium, riskFromK(15))
	assert.Equal(t, models.RiskLow, riskFromK(16))
	assert.Equal(t, models.RiskLow, riskFromK(models.KAnonymityInfinite))
}

func TestColumnRiskRules(t *testing.T) {
	assert.Equal(t, models.RiskCritical, columnRisk(0.95, 0.85))
	assert.Equal(t, models.RiskHigh, columnRisk(0.75, 0.72))
	assert.Equal(t, models.RiskMedium, columnRisk(0.55, 0.65))
	assert.Equal(t, models.RiskMedium, columnRisk(0.35, 0.85))
	assert.Equal(t, models.RiskLow, columnRisk(0.2, 0.95))
	assert.Equal(t, models.RiskLow, columnRisk(0.95, 0.5))
}

func TestAssessTableRiskCritical(t *testing.T) {
	graph, cols := riskGraph(t, "zip", "gender")
	zip, gender := cols[0], cols[1]

	results := map[uuid.UUID]models.DetectionResult{
		zip.ID:    qiResult(zip.ID, 0.85),
		gender.ID: qiResult(gender.ID, 0.85),
	}
	samples := map[uuid.UUID]models.SampleData{
		zip.ID:    sampleFrom(zip.ID, "1", "1", "2", "2", "3"),
		gender.ID: sampleFrom(gender.ID, "M", "M", "F", "F", "F"),
	}

	r := NewRiskAssessor(zap.NewNop())
	assessment, err := r.Assess(context.Background(), graph, results, samples, nil, nil)
	require.NoError(t, err)

	require.Len(t, assessment.TableRisks, 1)
	tr := assessment.TableRisks[0]
	assert.Equal(t, int64(1), tr.KAnonymity)
	assert.Equal(t, models.RiskCritical, tr.Level)
	assert.Len(t, tr.QIColumns, 2)
	assert.Equal(t, models.RiskCritical, assessment.Overall)
	assert.NotEmpty(t, assessment.Recommendations)
}

func TestAssessIgnoresNonQIColumns(t *testing.T) {
	graph, cols := riskGraph(t, "zip", "note")
	zip, note := cols[0], cols[1]

	results := map[uuid.UUID]models.DetectionResult{
		zip.ID: qiResult(zip.ID, 0.85),
		note.ID: models.NewDetectionResult(note.ID, []models.PiiCandidate{{
			ColumnID: note.ID, PiiType: "EMAIL", Confidence: 0.9, Strategy: models.StrategyRegex,
		}}),
	}
	samples := map[uuid.UUID]models.SampleData{
		zip.ID:  sampleFrom(zip.ID, "1", "1", "2", "2"),
		note.ID: sampleFrom(note.ID, "a@x.io", "b@y.io", "c@z.io", "d@w.io"),
	}

	r := NewRiskAssessor(zap.NewNop())
	assessment, err := r.Assess(context.Background(), graph, results, samples, nil, nil)
	require.NoError(t, err)

	require.Len(t, assessment.TableRisks, 1)
	assert.Len(t, assessment.TableRisks[0].QIColumns, 1, "only the QI column participates")
	require.Len(t, assessment.ColumnRisks, 1)
	assert.Equal(t, zip.ID, assessment.ColumnRisks[0].ColumnID)
}

func TestAssessGroupKAnonymity(t *testing.T) {
	graph, cols := riskGraph(t, "zip", "gender")
	zip, gender := cols[0], cols[1]

	samples := map[uuid.UUID]models.SampleData{
		zip.ID:    sampleFrom(zip.ID, "1", "1", "2", "2", "3"),
		gender.ID: sampleFrom(gender.ID, "M", "M", "F", "F", "F"),
	}
	groups := []models.QuasiIdentifierGroup{{
		Columns:   []uuid.UUID{zip.ID, gender.ID},
		RiskScore: 0.8,
	}}

	r := NewRiskAssessor(zap.NewNop())
	assessment, err := r.Assess(context.Background(), graph,
		map[uuid.UUID]models.DetectionResult{}, samples, nil, groups)
	require.NoError(t, err)

	require.Len(t, assessment.Groups, 1)
	assert.Equal(t, int64(1), assessment.Groups[0].KAnonymity)
	assert.Equal(t, 0.8, assessment.Groups[0].RiskScore)
}

func TestRecommendationsDeterministic(t *testing.T) {
	first := recommendations(models.RiskCritical, true)
	second := recommendations(models.RiskCritical, true)
	assert.Equal(t, first, second)

	withCorr := recommendations(models.RiskLow, true)
	withoutCorr := recommendations(models.RiskLow, false)
	assert.Greater(t, len(withCorr), len(withoutCorr),
		"correlation presence adds the l-diversity recommendation")
}
