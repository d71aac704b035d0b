package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privya-inc/privya-engine/pkg/models"
)

func col(name, comments string) *models.Column {
	return &models.Column{Name: name, Comments: comments, DataType: "varchar"}
}

func TestHeuristicNameMatch(t *testing.T) {
	s := NewHeuristicStrategy()

	cands, err := s.Detect(context.Background(), col("email_address", ""), nil)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "EMAIL", cands[0].PiiType)
	assert.Equal(t, 0.9, cands[0].Confidence)
	assert.Equal(t, models.StrategyHeuristic, cands[0].Strategy)
}

func TestHeuristicCommentMatchIsDiscounted(t *testing.T) {
	s := NewHeuristicStrategy()

	cands, err := s.Detect(context.Background(), col("col_17", "social security number of the applicant"), nil)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "SSN", cands[0].PiiType)
	assert.InDelta(t, 0.8*0.95, cands[0].Confidence, 1e-9)
}

func TestHeuristicNameBeatsComment(t *testing.T) {
	s := NewHeuristicStrategy()

	// Name says phone, comment says email; the name wins.
	cands, err := s.Detect(context.Background(), col("phone", "primary email contact"), nil)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "PHONE", cands[0].PiiType)
}

func TestHeuristicSingleCandidatePerColumn(t *testing.T) {
	s := NewHeuristicStrategy()

	// Matches both the ssn and name patterns; only the first fires.
	cands, err := s.Detect(context.Background(), col("ssn_holder_name", ""), nil)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "SSN", cands[0].PiiType)
}

func TestHeuristicNoMatch(t *testing.T) {
	s := NewHeuristicStrategy()

	cands, err := s.Detect(context.Background(), col("quantity", "units on hand"), nil)
	require.NoError(t, err)
	assert.Empty(t, cands)
}
