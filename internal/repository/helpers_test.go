//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := testutil.StartPostgres(ctx, t)
	return testutil.NewMigratedPool(ctx, t, dsn, "../../migrations")
}

func newTestDocument(filename string, createdAt time.Time) *domain.Document {
	d := domain.NewDocument(uuid.NewString(), filename, domain.DocumentFormatText, domain.LanguageEnglish,
		"Some text about retrieval.", createdAt.UTC().Truncate(time.Microsecond))
	d.ContentHash = uuid.NewString()
	d.Structure = domain.DocumentStructure{
		StructureScore: domain.StructureScore{HeadingCount: 2, ParagraphCount: 4, Score: 0.55},
		HasArabic:      false,
	}
	return d
}

func seedDocument(ctx context.Context, t *testing.T, repo *DocumentRepository) *domain.Document {
	t.Helper()
	d := newTestDocument("seed.txt", time.Now())
	require.NoError(t, repo.Create(ctx, d))
	return d
}

func testVector(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}
