package memindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/textnorm"
)

func newChunk(doc string, seq int, text string, emb []float32) domain.Chunk {
	return domain.Chunk{
		ID:          domain.ChunkID(doc, seq),
		DocumentID:  doc,
		Sequence:    seq,
		Text:        text,
		LexicalText: textnorm.Shadow(text),
		Embedding:   emb,
	}
}

func seeded(t *testing.T) *Index {
	t.Helper()
	ix, err := New()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ix.ReplaceChunks(ctx, "doc-a", []domain.Chunk{
		newChunk("doc-a", 0, "Hybrid retrieval fuses vector and lexical scores.", []float32{1, 0, 0}),
		newChunk("doc-a", 1, "اللُّغَةُ الْعَرَبِيَّةُ جميلة", []float32{0, 1, 0}),
		newChunk("doc-a", 2, "Chunks without embeddings stay searchable by keyword.", nil),
	}))
	require.NoError(t, ix.ReplaceChunks(ctx, "doc-b", []domain.Chunk{
		newChunk("doc-b", 0, "Vector search ranks by cosine similarity.", []float32{0.9, 0.1, 0}),
	}))
	return ix
}

func TestIndex_SearchVector(t *testing.T) {
	ix := seeded(t)

	hits, err := ix.SearchVector(context.Background(), []float32{1, 0, 0}, 10, domain.SearchFilter{})

	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "doc-a:000000", hits[0].ChunkID)
	assert.Equal(t, "doc-b:000000", hits[1].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.Greater(t, hits[1].Score, hits[2].Score)
}

func TestIndex_SearchVector_FilterByDocument(t *testing.T) {
	ix := seeded(t)

	hits, err := ix.SearchVector(context.Background(), []float32{1, 0, 0}, 10, domain.SearchFilter{DocumentID: "doc-b"})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-b", hits[0].DocumentID)
	assert.Equal(t, 0, hits[0].Sequence)
}

func TestIndex_SearchVector_Empty(t *testing.T) {
	ix, err := New()
	require.NoError(t, err)

	hits, err := ix.SearchVector(context.Background(), []float32{1, 0}, 5, domain.SearchFilter{})

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_SearchLexical_MatchesAcrossDiacritics(t *testing.T) {
	ix := seeded(t)

	hits, err := ix.SearchLexical(context.Background(), textnorm.Shadow("العربية"), 5, domain.SearchFilter{})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-a:000001", hits[0].ChunkID)
}

func TestIndex_SearchLexical_IncludesUnembeddedChunks(t *testing.T) {
	ix := seeded(t)

	hits, err := ix.SearchLexical(context.Background(), "keyword embeddings", 5, domain.SearchFilter{})

	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "doc-a:000002", hits[0].ChunkID)
}

func TestIndex_SearchLexical_RanksRarerTermsHigher(t *testing.T) {
	ix := seeded(t)

	hits, err := ix.SearchLexical(context.Background(), "vector cosine", 5, domain.SearchFilter{})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "doc-b:000000", hits[0].ChunkID)
	assert.Equal(t, "doc-a:000000", hits[1].ChunkID)
}

func TestIndex_SearchLexical_NoMatch(t *testing.T) {
	ix := seeded(t)

	hits, err := ix.SearchLexical(context.Background(), "zebra", 5, domain.SearchFilter{})

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_ReplaceChunks_DropsPreviousChunks(t *testing.T) {
	ix := seeded(t)
	ctx := context.Background()

	require.NoError(t, ix.ReplaceChunks(ctx, "doc-a", []domain.Chunk{
		newChunk("doc-a", 0, "Fresh content only.", []float32{0, 0, 1}),
	}))

	chunks, err := ix.ListByDocument(ctx, "doc-a")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Fresh content only.", chunks[0].Text)
	assert.Equal(t, 2, ix.Len())

	hits, err := ix.SearchLexical(ctx, "hybrid", 5, domain.SearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_ReplaceChunks_RejectsGaps(t *testing.T) {
	ix, err := New()
	require.NoError(t, err)

	err = ix.ReplaceChunks(context.Background(), "doc", []domain.Chunk{
		newChunk("doc", 0, "a", nil),
		newChunk("doc", 2, "b", nil),
	})

	assert.Error(t, err)
}

func TestIndex_MissingEmbeddingsAndUpdate(t *testing.T) {
	ix := seeded(t)
	ctx := context.Background()

	missing, err := ix.ListMissingEmbeddings(ctx, "doc-a")
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "doc-a:000002", missing[0].ID)

	require.NoError(t, ix.UpdateEmbedding(ctx, "doc-a:000002", []float32{0, 0, 1}))

	missing, err = ix.ListMissingEmbeddings(ctx, "doc-a")
	require.NoError(t, err)
	assert.Empty(t, missing)

	hits, err := ix.SearchVector(ctx, []float32{0, 0, 1}, 1, domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-a:000002", hits[0].ChunkID)
}

func TestIndex_UpdateEmbedding_UnknownChunk(t *testing.T) {
	ix := seeded(t)

	err := ix.UpdateEmbedding(context.Background(), "nope:000000", []float32{1, 0, 0})

	assert.True(t, domain.HasCode(err, domain.ErrCodeNotFound))
}

func TestIndex_GetByIDs_KeepsOrderAndSkipsUnknown(t *testing.T) {
	ix := seeded(t)

	chunks, err := ix.GetByIDs(context.Background(), []string{"doc-b:000000", "missing", "doc-a:000001"})

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "doc-b:000000", chunks[0].ID)
	assert.Equal(t, "doc-a:000001", chunks[1].ID)
}

func TestIndex_DeleteDocument(t *testing.T) {
	ix := seeded(t)
	ctx := context.Background()

	require.NoError(t, ix.DeleteDocument(ctx, "doc-a"))

	assert.Equal(t, 1, ix.Len())
	hits, err := ix.SearchVector(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-b", hits[0].DocumentID)
}
