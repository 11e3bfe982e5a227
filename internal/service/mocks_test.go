package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/pagination"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte, format domain.DocumentFormat) (string, error) {
	args := m.Called(ctx, data, format)
	return args.String(0), args.Error(1)
}

// MockEmbeddingClient mocks the embedding API client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetByContentHash(ctx context.Context, hash string) (*domain.Document, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CorpusStats), args.Error(1)
}

type MockDecisionRepository struct {
	mock.Mock
}

func (m *MockDecisionRepository) Create(ctx context.Context, d *domain.ChunkingDecision) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDecisionRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.ChunkingDecision, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChunkingDecision), args.Error(1)
}

type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) ListMissingEmbeddings(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	args := m.Called(ctx, chunkID, embedding)
	return args.Error(0)
}

type MockChunkSearcher struct {
	mock.Mock
}

func (m *MockChunkSearcher) SearchVector(ctx context.Context, embedding []float32, k int, filter domain.SearchFilter) ([]domain.ScoredHit, error) {
	args := m.Called(ctx, embedding, k, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredHit), args.Error(1)
}

func (m *MockChunkSearcher) SearchLexical(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredHit, error) {
	args := m.Called(ctx, query, k, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredHit), args.Error(1)
}

// MockEmbeddingJobRepository is a mock implementation of EmbeddingJobRepository
type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type MockQueryLogRepository struct {
	mock.Mock
}

func (m *MockQueryLogRepository) Create(ctx context.Context, entry *domain.QueryLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockSourceStore struct {
	mock.Mock
}

func (m *MockSourceStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockSourceStore) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockSourceStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
