//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryLogRepository_Create(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewQueryLogRepository(pool)

	entry := &domain.QueryLogEntry{
		ID:           uuid.NewString(),
		RequestID:    "req-7",
		Query:        "ما هي اللغة العربية",
		Language:     domain.LanguageArabic,
		TopK:         5,
		DocumentID:   "doc-1",
		CandidateIDs: []string{"doc-1:000002", "doc-1:000000"},
		FusedScores:  []float64{0.93, 0.6},
		Answered:     true,
		Latency:      1500 * time.Millisecond,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, entry))

	var latency int64
	var candidates []string
	var requestID string
	err := pool.QueryRow(ctx, `SELECT latency_ms, candidate_ids, request_id FROM query_logs WHERE id = $1`, entry.ID).
		Scan(&latency, &candidates, &requestID)
	require.NoError(t, err)
	assert.Equal(t, "req-7", requestID)
	assert.Equal(t, int64(1500), latency)
	assert.Equal(t, entry.CandidateIDs, candidates)
}
