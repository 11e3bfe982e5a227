package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// decisionParams is the JSON shape of the params column. Only the field matching the
// strategy is set.
type decisionParams struct {
	Fixed   *domain.FixedParams   `json:"fixed,omitempty"`
	Dynamic *domain.DynamicParams `json:"dynamic,omitempty"`
}

type DecisionRepository struct {
	db dbtx
}

func NewDecisionRepository(pool *pgxpool.Pool) *DecisionRepository {
	return &DecisionRepository{db: pool}
}

func NewDecisionRepositoryWithTx(tx pgx.Tx) *DecisionRepository {
	return &DecisionRepository{db: tx}
}

func (r *DecisionRepository) Create(ctx context.Context, d *domain.ChunkingDecision) error {
	score, err := json.Marshal(d.Score)
	if err != nil {
		return fmt.Errorf("failed to encode structure score: %w", err)
	}
	params, err := json.Marshal(decisionParams{Fixed: d.Fixed, Dynamic: d.Dynamic})
	if err != nil {
		return fmt.Errorf("failed to encode chunking params: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO chunking_decisions (document_id, strategy, reason, score, params, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.DocumentID, d.Strategy, d.Reason, score, params, d.CreatedAt,
	)
	return err
}

func (r *DecisionRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.ChunkingDecision, error) {
	var d domain.ChunkingDecision
	var score, params []byte
	err := r.db.QueryRow(ctx,
		`SELECT document_id, strategy, reason, score, params, created_at
		 FROM chunking_decisions WHERE document_id = $1`,
		documentID,
	).Scan(&d.DocumentID, &d.Strategy, &d.Reason, &score, &params, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDecisionNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(score, &d.Score); err != nil {
		return nil, fmt.Errorf("failed to decode structure score: %w", err)
	}
	var p decisionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("failed to decode chunking params: %w", err)
	}
	d.Fixed, d.Dynamic = p.Fixed, p.Dynamic
	return &d, nil
}
