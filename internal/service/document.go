package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/pagination"
	"github.com/cloo-solutions/docrag/internal/telemetry"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// DocumentService exposes stored documents, their chunks and chunking decisions
type DocumentService struct {
	docs      DocumentRepository
	decisions DecisionRepository
	chunks    ChunkRepository
	sources   SourceStore
}

// NewDocumentService creates a new DocumentService. sources may be nil.
func NewDocumentService(docs DocumentRepository, decisions DecisionRepository, chunks ChunkRepository, sources SourceStore) *DocumentService {
	return &DocumentService{
		docs:      docs,
		decisions: decisions,
		chunks:    chunks,
		sources:   sources,
	}
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// Stats reports document and chunk totals
func (s *DocumentService) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Stats", telemetry.SpanAttributes{
		Operation: "stats",
	})
	defer span.End()

	st, err := s.docs.Stats(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return st, nil
}

// Get retrieves a document by ID
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Get", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "get",
	})
	defer span.End()

	return s.docs.GetByID(ctx, id)
}

// List returns a page of documents, newest first
func (s *DocumentService) List(ctx context.Context, cursor string, limit int) (*ListDocumentsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.List", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	page, err := s.docs.ListWithCursor(ctx, decoded, limit)
	if err != nil {
		return nil, err
	}
	return &ListDocumentsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Delete removes a document with its decision and chunks, then its source file
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if s.sources != nil && doc.SourceKey != "" {
		if err := s.sources.DeleteObject(ctx, doc.SourceKey); err != nil {
			log.Printf("document %s deleted but source %s was not removed: %v", id, doc.SourceKey, err)
		}
	}
	return nil
}

// Chunks lists a document's chunks in sequence order
func (s *DocumentService) Chunks(ctx context.Context, id string) ([]domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Chunks", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "chunks",
	})
	defer span.End()

	if _, err := s.docs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.chunks.ListByDocument(ctx, id)
}

// Decision returns the chunking decision recorded for a document
func (s *DocumentService) Decision(ctx context.Context, id string) (*domain.ChunkingDecision, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Decision", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "decision",
	})
	defer span.End()

	return s.decisions.GetByDocumentID(ctx, id)
}

// SourceURL returns a time-limited download URL for the document's original upload
func (s *DocumentService) SourceURL(ctx context.Context, id string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.SourceURL", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "source_url",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if s.sources == nil || doc.SourceKey == "" {
		return "", domain.NewDomainError(domain.ErrCodeNotFound, "original file not stored")
	}
	return s.sources.GenerateDownloadURL(ctx, doc.SourceKey)
}
