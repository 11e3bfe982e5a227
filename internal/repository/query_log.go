package repository

import (
	"context"
	"encoding/json"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryLogRepository stores answered queries for evaluation and tuning.
type QueryLogRepository struct {
	pool *pgxpool.Pool
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{pool: pool}
}

func (r *QueryLogRepository) Create(ctx context.Context, entry *domain.QueryLogEntry) error {
	candidateIDs, _ := json.Marshal(entry.CandidateIDs)
	fusedScores, _ := json.Marshal(entry.FusedScores)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO query_logs
			(id, request_id, query, language, top_k, document_id, candidate_ids, fused_scores, empty_context, answered, latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID,
		nullableString(entry.RequestID),
		entry.Query,
		entry.Language,
		entry.TopK,
		nullableString(entry.DocumentID),
		candidateIDs,
		fusedScores,
		entry.EmptyContext,
		entry.Answered,
		entry.Latency.Milliseconds(),
		entry.CreatedAt,
	)
	return err
}
