package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanStatus is the lifecycle state of a scan job.
type ScanStatus string

const (
	ScanPending            ScanStatus = "PENDING"
	ScanExtractingMetadata ScanStatus = "EXTRACTING_METADATA"
	ScanSampling           ScanStatus = "SAMPLING"
	ScanDetectingPii       ScanStatus = "DETECTING_PII"
	ScanAnalyzingQI        ScanStatus = "ANALYZING_QI"
	ScanGeneratingReport   ScanStatus = "GENERATING_REPORT"
	ScanCompleted          ScanStatus = "COMPLETED"
	ScanFailed             ScanStatus = "FAILED"
	ScanCancelled          ScanStatus = "CANCELLED"
)

// forward is the single valid forward path through the scan lifecycle.
var forward = map[ScanStatus]ScanStatus{
	ScanPending:            ScanExtractingMetadata,
	ScanExtractingMetadata: ScanSampling,
	ScanSampling:           ScanDetectingPii,
	ScanDetectingPii:       ScanAnalyzingQI,
	ScanAnalyzingQI:        ScanGeneratingReport,
	ScanGeneratingReport:   ScanCompleted,
}

// IsTerminal reports whether the status ends the scan lifecycle.
func (s ScanStatus) IsTerminal() bool {
	return s == ScanCompleted || s == ScanFailed || s == ScanCancelled
}

// CanTransitionTo reports whether moving from s to next is a valid state
// machine step: the single forward edge, or any non-terminal state to
// FAILED or CANCELLED.
func (s ScanStatus) CanTransitionTo(next ScanStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == ScanFailed || next == ScanCancelled {
		return true
	}
	return forward[s] == next
}

// ScanJob tracks one scan through its lifecycle.
type ScanJob struct {
	ID           uuid.UUID  `json:"id"`
	ConnectionID string     `json:"connection_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"` // set iff terminal
	Status       ScanStatus `json:"status"`
	Progress     int        `json:"progress"` // monotonic, 0-100
	ErrorMessage string     `json:"error_message,omitempty"`

	TableCount     int `json:"table_count"`
	ColumnCount    int `json:"column_count"`
	PiiColumnCount int `json:"pii_column_count"`
}

// ScanEvent is the stable payload published on every job transition and
// progress update.
type ScanEvent struct {
	JobID            uuid.UUID  `json:"job_id"`
	Status           ScanStatus `json:"status"`
	Progress         int        `json:"progress"`
	Timestamp        time.Time  `json:"timestamp"`
	CurrentOperation string     `json:"current_operation,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}

// SamplingMethod selects how rows are drawn from a column.
type SamplingMethod string

const (
	SamplingRandom     SamplingMethod = "RANDOM"
	SamplingFirstN     SamplingMethod = "FIRST_N"
	SamplingStratified SamplingMethod = "STRATIFIED"
)

// ScanRequest carries the per-scan options recognized at submission.
// Zero values fall back to the engine configuration.
type ScanRequest struct {
	ConnectionID        string         `json:"connection_id"`
	IncludedSchemas     []string       `json:"included_schemas,omitempty"`
	IncludedTables      []string       `json:"included_tables,omitempty"`
	ExcludedTables      []string       `json:"excluded_tables,omitempty"`
	MaxSampleSize       int            `json:"max_sample_size,omitempty"`
	SamplingMethod      SamplingMethod `json:"sampling_method,omitempty"`
	ConfidenceThreshold float64        `json:"confidence_threshold,omitempty"`
	Strategies          []string       `json:"strategies,omitempty"`
}
