package detect

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privya-inc/privya-engine/pkg/config"
	"github.com/privya-inc/privya-engine/pkg/models"
)

var emailPattern = config.Pattern{
	Name:    "EMAIL_RFC5322",
	Regex:   regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`),
	Score:   0.9,
	PiiType: "EMAIL",
}

func sampleOf(values ...any) *models.SampleData {
	s := models.NewSampleData(uuid.New(), values)
	return &s
}

func TestRegexFullMatchRate(t *testing.T) {
	s := NewRegexStrategy([]config.Pattern{emailPattern})

	sample := sampleOf("a@x.io", "b@y.org", "c@z.net", "d@w.co")
	cands, err := s.Detect(context.Background(), col("email", ""), sample)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "EMAIL", cands[0].PiiType)
	assert.Equal(t, 0.9, cands[0].Confidence)
	assert.Equal(t, models.StrategyRegex, cands[0].Strategy)
}

func TestRegexPartialMatchRate(t *testing.T) {
	s := NewRegexStrategy([]config.Pattern{emailPattern})

	sample := sampleOf("a@x.io", "not-an-email", "b@y.org", "nope")
	cands, err := s.Detect(context.Background(), col("contact", ""), sample)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.InDelta(t, 0.9*0.5, cands[0].Confidence, 1e-9)
}

func TestRegexIgnoresNulls(t *testing.T) {
	s := NewRegexStrategy([]config.Pattern{emailPattern})

	// 2 matches out of 2 non-null samples.
	sample := sampleOf("a@x.io", nil, "b@y.org", nil)
	cands, err := s.Detect(context.Background(), col("contact", ""), sample)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, 0.9, cands[0].Confidence)
}

func TestRegexEmptySampleNoCandidate(t *testing.T) {
	s := NewRegexStrategy([]config.Pattern{emailPattern})

	cands, err := s.Detect(context.Background(), col("contact", ""), sampleOf(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, cands)

	cands, err = s.Detect(context.Background(), col("contact", ""), nil)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestRegexOneCandidatePerType(t *testing.T) {
	loose := config.Pattern{
		Name:    "EMAIL_LOOSE",
		Regex:   regexp.MustCompile(`@`),
		Score:   0.5,
		PiiType: "EMAIL",
	}
	s := NewRegexStrategy([]config.Pattern{emailPattern, loose})

	sample := sampleOf("a@x.io", "b@y.org")
	cands, err := s.Detect(context.Background(), col("email", ""), sample)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	// The strict pattern wins with the higher confidence.
	assert.Equal(t, 0.9, cands[0].Confidence)
}

func TestRegexApplicationIsPure(t *testing.T) {
	s := NewRegexStrategy([]config.Pattern{emailPattern})
	sample := sampleOf("a@x.io", "plain", "b@y.org")
	c := col("email", "")

	first, err := s.Detect(context.Background(), c, sample)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.Detect(context.Background(), c, sample)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRegexEvidenceIsMasked(t *testing.T) {
	s := NewRegexStrategy([]config.Pattern{emailPattern})

	sample := sampleOf("alice.smith@example.com")
	cands, err := s.Detect(context.Background(), col("email", ""), sample)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.NotContains(t, cands[0].Evidence, "alice.smith@example.com")
}
