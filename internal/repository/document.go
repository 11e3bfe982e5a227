package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/pagination"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const documentColumns = `id, filename, format, language, text, structure, status, source_key, content_hash, chunk_count, created_at, updated_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	structure, err := json.Marshal(d.Structure)
	if err != nil {
		return fmt.Errorf("failed to encode document structure: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.Filename, d.Format, d.Language, d.Text, structure, d.Status,
		nullableString(d.SourceKey), d.ContentHash, d.ChunkCount, d.CreatedAt, d.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "idx_documents_content_hash" {
		return domain.NewDomainErrorWithCause(domain.ErrCodeAlreadyExists, domain.ErrDuplicateContent.Message, err)
	}
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	return d, err
}

func (r *DocumentRepository) GetByContentHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE content_hash = $1`, hash)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	return d, err
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.Document, 0, limit+1)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Stats counts documents and chunks. A document counts as Arabic when normalization found
// Arabic script in it.
func (r *DocumentRepository) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	var st domain.CorpusStats
	err := r.db.QueryRow(ctx,
		`SELECT
			(SELECT count(*) FROM documents),
			(SELECT count(*) FROM documents WHERE (structure->>'has_arabic')::boolean),
			(SELECT count(*) FROM chunks),
			(SELECT count(embedding) FROM chunks)`,
	).Scan(&st.TotalDocuments, &st.ArabicDocuments, &st.TotalChunks, &st.EmbeddedChunks)
	if err != nil {
		return nil, fmt.Errorf("failed to count corpus: %w", err)
	}
	return &st, nil
}

// Delete removes a document; its decision, chunks and jobs go with it through ON DELETE CASCADE.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var structure []byte
	var sourceKey *string
	err := row.Scan(&d.ID, &d.Filename, &d.Format, &d.Language, &d.Text, &structure, &d.Status,
		&sourceKey, &d.ContentHash, &d.ChunkCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.SourceKey = stringOrEmpty(sourceKey)
	if len(structure) > 0 {
		if err := json.Unmarshal(structure, &d.Structure); err != nil {
			return nil, fmt.Errorf("failed to decode document structure: %w", err)
		}
	}
	return &d, nil
}
