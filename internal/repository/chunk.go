package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const chunkColumns = `id, document_id, sequence, text, lexical_text, span_start, span_end, heading, has_diacritics, token_estimate, embedding IS NOT NULL, created_at`

var lexicalTerm = regexp.MustCompile(`[\p{L}\p{N}]+`)

// ChunkRepository persists chunks and serves vector and full-text search over them.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a document and inserts new ones.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if err := domain.ValidateChunkSequence(chunks); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var embedding any
		if len(c.Embedding) > 0 {
			embedding = pgvector.NewVector(c.Embedding)
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks
				(id, document_id, sequence, text, lexical_text, span_start, span_end, heading, has_diacritics, token_estimate, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			c.ID,
			documentID,
			c.Sequence,
			c.Text,
			c.LexicalText,
			c.Span.Start,
			c.Span.End,
			nullableString(c.Heading),
			c.HasDiacritics,
			c.TokenEstimate,
			embedding,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE document_id = $1 ORDER BY sequence ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// GetByIDs returns the chunks for ids in the order given, skipping unknown ids.
func (r *ChunkRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return []domain.Chunk{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found, err := scanChunkRows(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Chunk, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]domain.Chunk, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *ChunkRepository) ListMissingEmbeddings(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`
		 FROM chunks
		 WHERE document_id = $1 AND embedding IS NULL
		 ORDER BY sequence ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), chunkID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrCodeNotFound, "chunk not found")
	}
	return nil
}

// SearchVector ranks embedded chunks by cosine similarity to embedding.
func (r *ChunkRepository) SearchVector(ctx context.Context, embedding []float32, k int, filter domain.SearchFilter) ([]domain.ScoredHit, error) {
	if k <= 0 || !validFilter(filter) {
		return []domain.ScoredHit{}, nil
	}

	query := `
		SELECT id, document_id, sequence, (1 - (embedding <=> $1))::float8 AS score
		FROM chunks
		WHERE embedding IS NOT NULL`
	args := []any{pgvector.NewVector(embedding), k}
	if filter.DocumentID != "" {
		query += " AND document_id = $3"
		args = append(args, filter.DocumentID)
	}
	query += `
		ORDER BY embedding <=> $1, sequence ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

// SearchLexical ranks chunks by full-text match of the shadow query against their shadow
// text. Query terms are OR-ed so a partial match still scores.
func (r *ChunkRepository) SearchLexical(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredHit, error) {
	tsQuery := buildTSQuery(query)
	if tsQuery == "" || k <= 0 || !validFilter(filter) {
		return []domain.ScoredHit{}, nil
	}

	sql := `
		SELECT id, document_id, sequence,
		       ts_rank(to_tsvector('simple', lexical_text), to_tsquery('simple', $1))::float8 AS score
		FROM chunks
		WHERE to_tsvector('simple', lexical_text) @@ to_tsquery('simple', $1)`
	args := []any{tsQuery, k}
	if filter.DocumentID != "" {
		sql += " AND document_id = $3"
		args = append(args, filter.DocumentID)
	}
	sql += `
		ORDER BY score DESC, id ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

// validFilter reports whether filter can match any row. Document ids are UUIDs.
func validFilter(filter domain.SearchFilter) bool {
	return filter.DocumentID == "" || uuid.Validate(filter.DocumentID) == nil
}

// buildTSQuery turns free text into an OR of its letter and digit runs.
func buildTSQuery(query string) string {
	terms := lexicalTerm.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]bool, len(terms))
	unique := terms[:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	return strings.Join(unique, " | ")
}

func scanChunkRows(rows pgx.Rows) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0)
	for rows.Next() {
		var c domain.Chunk
		var heading *string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Sequence, &c.Text, &c.LexicalText,
			&c.Span.Start, &c.Span.End, &heading, &c.HasDiacritics, &c.TokenEstimate, &c.HasEmbedding, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Heading = stringOrEmpty(heading)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func scanHits(rows pgx.Rows) ([]domain.ScoredHit, error) {
	hits := make([]domain.ScoredHit, 0)
	for rows.Next() {
		var h domain.ScoredHit
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.Sequence, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
