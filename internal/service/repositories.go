package service

import (
	"context"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/pagination"
	"github.com/google/uuid"
)

// DocumentRepository defines the repository interface for document persistence
type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetByContentHash(ctx context.Context, hash string) (*domain.Document, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*domain.CorpusStats, error)
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// DecisionRepository stores the chunking decision made for each document
type DecisionRepository interface {
	Create(ctx context.Context, d *domain.ChunkingDecision) error
	GetByDocumentID(ctx context.Context, documentID string) (*domain.ChunkingDecision, error)
}

// ChunkRepository defines the repository interface for chunk persistence
type ChunkRepository interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error)
	ListMissingEmbeddings(ctx context.Context, documentID string) ([]domain.Chunk, error)
	UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error
}

// ChunkSearcher runs the two retrieval paths. Chunks without an embedding never match
// SearchVector. SearchLexical expects the diacritic-stripped query shadow.
type ChunkSearcher interface {
	SearchVector(ctx context.Context, embedding []float32, k int, filter domain.SearchFilter) ([]domain.ScoredHit, error)
	SearchLexical(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredHit, error)
}

// EmbeddingJobRepository defines the repository interface for embedding job persistence
type EmbeddingJobRepository interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// QueryLogRepository records answered queries
type QueryLogRepository interface {
	Create(ctx context.Context, entry *domain.QueryLogEntry) error
}

// SourceStore keeps the original uploaded files
type SourceStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}
