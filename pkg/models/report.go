package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// RiskLevel classifies re-identification risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

var riskOrder = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Severity returns the ordinal severity of the level, higher is worse.
func (r RiskLevel) Severity() int { return riskOrder[r] }

// MaxRisk returns the more severe of two levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// KAnonymityInfinite marks the k value for tables with no rows.
const KAnonymityInfinite = int64(math.MaxInt64)

// QuasiIdentifierGroup is a set of columns whose combination narrows
// equivalence classes. Groups form from the transitive closure of pairwise
// correlations, bounded by a maximum group size.
type QuasiIdentifierGroup struct {
	Columns    []uuid.UUID `json:"columns"`
	RiskScore  float64     `json:"risk_score"` // in [0,1], mean pairwise association
	KAnonymity int64       `json:"k_anonymity"`
}

// TableRisk holds per-table k-anonymity and its derived risk level.
type TableRisk struct {
	TableID    uuid.UUID   `json:"table_id"`
	QIColumns  []uuid.UUID `json:"qi_columns"`
	KAnonymity int64       `json:"k_anonymity"`
	Level      RiskLevel   `json:"level"`
}

// ColumnRisk holds per-column distinct-ratio risk.
type ColumnRisk struct {
	ColumnID      uuid.UUID `json:"column_id"`
	DistinctRatio float64   `json:"distinct_ratio"`
	Confidence    float64   `json:"confidence"`
	Level         RiskLevel `json:"level"`
}

// ColumnCorrelation records a symmetric pairwise association between two
// quasi-identifier columns.
type ColumnCorrelation struct {
	ColumnA     uuid.UUID `json:"column_a"`
	ColumnB     uuid.UUID `json:"column_b"`
	Association float64   `json:"association"` // in [0,1]
}

// Report is the neutral aggregate record produced at the end of a scan.
// Serialization to JSON/CSV/PDF is the host's concern.
type Report struct {
	JobID        uuid.UUID `json:"job_id"`
	ConnectionID string    `json:"connection_id"`
	GeneratedAt  time.Time `json:"generated_at"`

	TableCount     int `json:"table_count"`
	ColumnCount    int `json:"column_count"`
	SampledColumns int `json:"sampled_columns"`
	PiiColumnCount int `json:"pii_column_count"`

	Results      []DetectionResult      `json:"results"`
	Correlations []ColumnCorrelation    `json:"correlations,omitempty"`
	QIGroups     []QuasiIdentifierGroup `json:"qi_groups,omitempty"`
	TableRisks   []TableRisk            `json:"table_risks,omitempty"`
	ColumnRisks  []ColumnRisk           `json:"column_risks,omitempty"`

	OverallRisk     RiskLevel `json:"overall_risk"`
	Recommendations []string  `json:"recommendations,omitempty"`

	SamplingFailures []string `json:"sampling_failures,omitempty"`
}
