package models

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// SampleData holds the values sampled from one column plus basic statistics.
// Values is a finite, ordered sequence; nil entries represent SQL NULLs.
type SampleData struct {
	ColumnID   uuid.UUID
	Values     []any
	NullCount  int
	TotalCount int
	// Entropy is the base-2 Shannon entropy over discrete value frequency,
	// with all nulls counted as a single bucket. Nil when entropy
	// calculation is disabled.
	Entropy *float64
}

// NewSampleData builds SampleData from raw values, counting nulls.
func NewSampleData(columnID uuid.UUID, values []any) SampleData {
	nulls := 0
	for _, v := range values {
		if v == nil {
			nulls++
		}
	}
	return SampleData{
		ColumnID:   columnID,
		Values:     values,
		NullCount:  nulls,
		TotalCount: len(values),
	}
}

// NonNullStrings returns the non-null values coerced to strings, preserving
// sample order. Byte slices are converted as text.
func (s *SampleData) NonNullStrings() []string {
	out := make([]string, 0, s.TotalCount-s.NullCount)
	for _, v := range s.Values {
		if v == nil {
			continue
		}
		out = append(out, CoerceString(v))
	}
	return out
}

// StringValues returns every value coerced to a string, with nulls mapped to
// the literal "null". Used by correlation analysis where position matters.
func (s *SampleData) StringValues() []string {
	out := make([]string, len(s.Values))
	for i, v := range s.Values {
		if v == nil {
			out[i] = "null"
		} else {
			out[i] = CoerceString(v)
		}
	}
	return out
}

// DistinctCount returns the number of distinct values in the sample, with
// all nulls counted as one bucket.
func (s *SampleData) DistinctCount() int {
	seen := make(map[string]struct{}, len(s.Values))
	for _, v := range s.Values {
		key := "\x00null"
		if v != nil {
			key = CoerceString(v)
		}
		seen[key] = struct{}{}
	}
	return len(seen)
}

// ComputeEntropy calculates and stores the base-2 Shannon entropy of the
// sample's value distribution.
func (s *SampleData) ComputeEntropy() {
	e := ShannonEntropy(s.Values)
	s.Entropy = &e
}

// ShannonEntropy computes base-2 Shannon entropy over the discrete frequency
// distribution of values. All nulls count as a single bucket.
func ShannonEntropy(values []any) float64 {
	if len(values) == 0 {
		return 0
	}

	freq := make(map[string]int, len(values))
	for _, v := range values {
		key := "\x00null"
		if v != nil {
			key = CoerceString(v)
		}
		freq[key]++
	}

	total := float64(len(values))
	entropy := 0.0
	for _, count := range freq {
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// CoerceString converts a sampled database value to its text form.
func CoerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
