package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/pagination"
)

func newDocumentFixture() (*DocumentService, *MockDocumentRepository, *MockDecisionRepository, *MockChunkRepository, *MockSourceStore) {
	docs := new(MockDocumentRepository)
	decisions := new(MockDecisionRepository)
	chunks := new(MockChunkRepository)
	sources := new(MockSourceStore)
	return NewDocumentService(docs, decisions, chunks, sources), docs, decisions, chunks, sources
}

func TestDocumentService_Get(t *testing.T) {
	svc, docs, _, _, _ := newDocumentFixture()
	doc := &domain.Document{ID: "doc-1"}

	docs.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)

	got, err := svc.Get(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestDocumentService_Stats(t *testing.T) {
	svc, docs, _, _, _ := newDocumentFixture()
	want := &domain.CorpusStats{TotalDocuments: 3, ArabicDocuments: 2, TotalChunks: 40, EmbeddedChunks: 38}

	docs.On("Stats", mock.Anything).Return(want, nil).Once()
	docs.On("Stats", mock.Anything).Return(nil, errors.New("connection reset")).Once()

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = svc.Stats(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func TestDocumentService_List(t *testing.T) {
	svc, docs, _, _, _ := newDocumentFixture()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cursor := pagination.EncodeCursor("doc-9", ts)
	page := &DocumentPageResult{Items: []*domain.Document{{ID: "doc-8"}}, NextCursor: "next", HasMore: true}

	docs.On("ListWithCursor", mock.Anything, mock.MatchedBy(func(c *pagination.Cursor) bool {
		return c != nil && c.LastID == "doc-9" && c.Timestamp.Equal(ts)
	}), 20).Return(page, nil)

	out, err := svc.List(context.Background(), cursor, 0)

	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, "next", out.Cursor)
	assert.True(t, out.HasMore)
}

func TestDocumentService_List_ClampsLimit(t *testing.T) {
	svc, docs, _, _, _ := newDocumentFixture()

	docs.On("ListWithCursor", mock.Anything, (*pagination.Cursor)(nil), maxListLimit).
		Return(&DocumentPageResult{}, nil)

	_, err := svc.List(context.Background(), "", 1000)

	require.NoError(t, err)
	docs.AssertExpectations(t)
}

func TestDocumentService_List_InvalidCursor(t *testing.T) {
	svc, _, _, _, _ := newDocumentFixture()

	_, err := svc.List(context.Background(), "%%%", 10)

	assert.True(t, domain.HasCode(err, domain.ErrCodeValidation))
}

func TestDocumentService_Delete_RemovesSource(t *testing.T) {
	svc, docs, _, _, sources := newDocumentFixture()

	docs.On("GetByID", mock.Anything, "doc-1").Return(&domain.Document{ID: "doc-1", SourceKey: "documents/doc-1/a.pdf"}, nil)
	docs.On("Delete", mock.Anything, "doc-1").Return(nil)
	sources.On("DeleteObject", mock.Anything, "documents/doc-1/a.pdf").Return(errors.New("bucket gone"))

	err := svc.Delete(context.Background(), "doc-1")

	require.NoError(t, err)
	sources.AssertExpectations(t)
}

func TestDocumentService_Delete_NotFound(t *testing.T) {
	svc, docs, _, _, _ := newDocumentFixture()

	docs.On("GetByID", mock.Anything, "doc-x").Return(nil, domain.ErrDocumentNotFound)

	err := svc.Delete(context.Background(), "doc-x")

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	docs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDocumentService_Chunks(t *testing.T) {
	svc, docs, _, chunks, _ := newDocumentFixture()
	list := []domain.Chunk{{ID: "doc-1:000000"}, {ID: "doc-1:000001", Sequence: 1}}

	docs.On("GetByID", mock.Anything, "doc-1").Return(&domain.Document{ID: "doc-1"}, nil)
	chunks.On("ListByDocument", mock.Anything, "doc-1").Return(list, nil)

	got, err := svc.Chunks(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, list, got)
}

func TestDocumentService_Decision(t *testing.T) {
	svc, _, decisions, _, _ := newDocumentFixture()

	decisions.On("GetByDocumentID", mock.Anything, "doc-1").Return(nil, domain.ErrDecisionNotFound)

	_, err := svc.Decision(context.Background(), "doc-1")

	assert.ErrorIs(t, err, domain.ErrDecisionNotFound)
}

func TestDocumentService_SourceURL(t *testing.T) {
	svc, docs, _, _, sources := newDocumentFixture()

	docs.On("GetByID", mock.Anything, "doc-1").Return(&domain.Document{ID: "doc-1", SourceKey: "documents/doc-1/a.pdf"}, nil)
	sources.On("GenerateDownloadURL", mock.Anything, "documents/doc-1/a.pdf").Return("https://s3.local/signed", nil)

	url, err := svc.SourceURL(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "https://s3.local/signed", url)
}

func TestDocumentService_SourceURL_NotStored(t *testing.T) {
	svc, docs, _, _, sources := newDocumentFixture()

	docs.On("GetByID", mock.Anything, "doc-1").Return(&domain.Document{ID: "doc-1"}, nil)

	_, err := svc.SourceURL(context.Background(), "doc-1")

	assert.True(t, domain.HasCode(err, domain.ErrCodeNotFound))
	sources.AssertNotCalled(t, "GenerateDownloadURL", mock.Anything, mock.Anything)
}
