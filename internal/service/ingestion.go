package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/docrag/internal/chunking"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/extract"
	"github.com/cloo-solutions/docrag/internal/telemetry"
	"github.com/cloo-solutions/docrag/internal/textnorm"
)

// Extractor pulls raw text out of an uploaded file
type Extractor interface {
	Extract(ctx context.Context, data []byte, format domain.DocumentFormat) (string, error)
}

// IngestionConfig holds ingestion limits
type IngestionConfig struct {
	MaxUploadBytes int64
	Workers        int
}

// DefaultIngestionConfig returns the default ingestion limits
func DefaultIngestionConfig() IngestionConfig {
	return IngestionConfig{
		MaxUploadBytes: 10 << 20,
		Workers:        4,
	}
}

// IngestInput is a single document upload
type IngestInput struct {
	Filename     string
	Data         []byte
	Format       string // optional, detected from the filename when empty
	LanguageHint domain.Language
	Strategy     domain.Strategy
}

// IngestResult describes a stored document
type IngestResult struct {
	Document      *domain.Document
	Decision      *domain.ChunkingDecision
	ChunkCount    int
	EmbeddedCount int
	Duplicate     bool
}

// BatchItemResult is the outcome of one document of a batch
type BatchItemResult struct {
	Filename string
	Result   *IngestResult
	Err      error
}

// PreviewResult is the chunking outcome for a document without any persistence
type PreviewResult struct {
	Filename  string
	Format    domain.DocumentFormat
	Language  domain.Language
	Runes     int
	Structure domain.DocumentStructure
	Decision  domain.ChunkingDecision
	Chunks    []domain.Chunk
}

// IngestionService turns uploads into stored, chunked and embedded documents
type IngestionService struct {
	extractor  Extractor
	embeddings *EmbeddingService
	docs       DocumentRepository
	decisions  DecisionRepository
	chunks     ChunkRepository
	tx         TxRunner
	sources    SourceStore
	chunking   chunking.Config
	cfg        IngestionConfig
	uuidGen    UUIDGenerator
}

// NewIngestionService creates a new IngestionService. sources may be nil, in which case
// original uploads are not kept.
func NewIngestionService(
	extractor Extractor,
	embeddings *EmbeddingService,
	docs DocumentRepository,
	decisions DecisionRepository,
	chunks ChunkRepository,
	tx TxRunner,
	sources SourceStore,
	chunkingCfg chunking.Config,
	cfg IngestionConfig,
) *IngestionService {
	return &IngestionService{
		extractor:  extractor,
		embeddings: embeddings,
		docs:       docs,
		decisions:  decisions,
		chunks:     chunks,
		tx:         tx,
		sources:    sources,
		chunking:   chunkingCfg,
		cfg:        cfg,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// WithUUIDGenerator replaces the id generator (for testing)
func (s *IngestionService) WithUUIDGenerator(g UUIDGenerator) *IngestionService {
	s.uuidGen = g
	return s
}

// Ingest runs the full ingestion pipeline for one upload. Identical content is stored once:
// re-uploading it returns the existing document with Duplicate set.
//
// Extraction and encoding errors abort before anything is stored. Chunks whose embedding
// still fails after retries are stored without one, the document is marked partially_failed
// and an embedding job is queued.
func (s *IngestionService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	hash := contentHash(input.Data)
	existing, err := s.docs.GetByContentHash(ctx, hash)
	switch {
	case err == nil:
		return s.duplicateResult(ctx, existing)
	case !errors.Is(err, domain.ErrDocumentNotFound):
		return nil, err
	}

	docID := s.uuidGen.NewString()
	prepared, err := s.prepare(ctx, docID, input)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetData("strategy", string(prepared.Decision.Strategy))
	span.SetData("chunk_count", len(prepared.Chunks))

	now := time.Now().UTC()
	doc := domain.NewDocument(docID, input.Filename, prepared.Format, prepared.Language, prepared.Text, now)
	doc.Structure = prepared.Structure
	doc.ContentHash = hash
	doc.ChunkCount = len(prepared.Chunks)

	decision := prepared.Decision
	decision.CreatedAt = now

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	embedded, embedErr := s.embeddings.EmbedChunks(ctx, prepared.Chunks)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	doc.Status = domain.DocumentStatusReady
	var job *domain.EmbeddingJob
	if embedErr != nil {
		log.Printf("document %s: %d of %d chunks embedded, queueing embedding job: %v",
			docID, embedded, len(prepared.Chunks), embedErr)
		doc.Status = domain.DocumentStatusPartiallyFailed
		job = domain.QueueEmbeddingJob(s.uuidGen.NewString(), docID, now)
	}

	doc.SourceKey = s.storeSource(ctx, docID, input)
	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		if err := repos.Decisions().Create(ctx, &decision); err != nil {
			return err
		}
		if err := repos.Chunks().ReplaceChunks(ctx, docID, prepared.Chunks); err != nil {
			return err
		}
		if job != nil {
			return repos.EmbeddingJobs().Create(ctx, job)
		}
		return nil
	})
	if err != nil {
		s.removeSource(ctx, doc.SourceKey)
		if errors.Is(err, domain.ErrDuplicateContent) {
			// A concurrent upload of the same bytes committed first.
			return s.existingByHash(ctx, hash)
		}
		span.SetError(err)
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	return &IngestResult{
		Document:      doc,
		Decision:      &decision,
		ChunkCount:    len(prepared.Chunks),
		EmbeddedCount: embedded,
	}, nil
}

// IngestBatch ingests documents concurrently on a bounded pool. A failing document does
// not stop the others; results keep the input order.
func (s *IngestionService) IngestBatch(ctx context.Context, inputs []IngestInput) []BatchItemResult {
	results := make([]BatchItemResult, len(inputs))

	var g errgroup.Group
	g.SetLimit(max(s.cfg.Workers, 1))
	for i, input := range inputs {
		g.Go(func() error {
			res, err := s.Ingest(ctx, input)
			results[i] = BatchItemResult{Filename: input.Filename, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Preview runs extraction, normalization, analysis, selection and chunking without storing
// or embedding anything.
func (s *IngestionService) Preview(ctx context.Context, input IngestInput) (*PreviewResult, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	prepared, err := s.prepare(ctx, "preview", input)
	if err != nil {
		return nil, err
	}
	prepared.Filename = input.Filename
	return prepared, nil
}

// EmbedMissing embeds every chunk of a document that has no embedding yet and marks the
// document ready. It is driven by the embedding job worker.
func (s *IngestionService) EmbedMissing(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.EmbedMissing", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "embed_missing",
	})
	defer span.End()

	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		return err
	}

	missing, err := s.chunks.ListMissingEmbeddings(ctx, documentID)
	if err != nil {
		return err
	}
	for _, c := range missing {
		embedding, err := s.embeddings.Embed(ctx, c.Text)
		if err != nil {
			span.SetError(err)
			return err
		}
		if err := s.chunks.UpdateEmbedding(ctx, c.ID, embedding); err != nil {
			return fmt.Errorf("failed to update embedding: %w", err)
		}
	}

	return s.docs.UpdateStatus(ctx, documentID, domain.DocumentStatusReady)
}

// MarkEmbeddingFailed sets a document to failed once its embedding job gives up. EmbedMissing
// can still bring it back to ready later.
func (s *IngestionService) MarkEmbeddingFailed(ctx context.Context, documentID string) error {
	return s.docs.UpdateStatus(ctx, documentID, domain.DocumentStatusFailed)
}

func (s *IngestionService) validateInput(input IngestInput) error {
	if strings.TrimSpace(input.Filename) == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(input.Data)) > s.cfg.MaxUploadBytes {
		return domain.ErrDocumentTooLarge
	}
	return nil
}

// prepare runs the pure part of the pipeline: extraction through chunking.
func (s *IngestionService) prepare(ctx context.Context, docID string, input IngestInput) (*PreviewResult, error) {
	format, err := extract.DetectFormat(input.Filename, input.Format, input.Data)
	if err != nil {
		return nil, err
	}

	raw, err := s.extractor.Extract(ctx, input.Data, format)
	if err != nil {
		return nil, err
	}

	norm, err := textnorm.Normalize(raw, input.LanguageHint)
	if err != nil {
		return nil, err
	}
	if norm.Runes == 0 {
		return nil, domain.NewExtractionError(format, errors.New("no text left after normalization"))
	}

	score := chunking.Analyze(norm.Text, s.chunking)
	decision := chunking.Select(score, norm.Runes, norm.Language, s.chunking, input.Strategy)
	decision.DocumentID = docID
	telemetry.RecordDecision(ctx, docID, string(decision.Strategy), string(decision.Reason), score.Score)

	chunks, err := chunking.Apply(docID, norm.Text, decision)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{
		Format:   format,
		Language: norm.Language,
		Runes:    norm.Runes,
		Structure: domain.DocumentStructure{
			StructureScore: score,
			HasDiacritics:  norm.HasDiacritics,
			HasArabic:      norm.HasArabic,
		},
		Decision: decision,
		Chunks:   chunks,
	}, nil
}

// storeSource uploads the original file. Failures are logged and the document is kept
// without a source key.
func (s *IngestionService) storeSource(ctx context.Context, docID string, input IngestInput) string {
	if s.sources == nil {
		return ""
	}
	key := path.Join("documents", docID, path.Base(input.Filename))
	if err := s.sources.PutObject(ctx, key, input.Data, sourceContentType(input.Filename)); err != nil {
		log.Printf("document %s: failed to store source file: %v", docID, err)
		return ""
	}
	return key
}

// removeSource deletes an uploaded source whose document was not stored. It runs even when
// ctx is already cancelled.
func (s *IngestionService) removeSource(ctx context.Context, key string) {
	if s.sources == nil || key == "" {
		return
	}
	if err := s.sources.DeleteObject(context.WithoutCancel(ctx), key); err != nil {
		log.Printf("failed to remove source file %s: %v", key, err)
	}
}

func (s *IngestionService) existingByHash(ctx context.Context, hash string) (*IngestResult, error) {
	existing, err := s.docs.GetByContentHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load duplicate document: %w", err)
	}
	return s.duplicateResult(ctx, existing)
}

func (s *IngestionService) duplicateResult(ctx context.Context, doc *domain.Document) (*IngestResult, error) {
	result := &IngestResult{Document: doc, ChunkCount: doc.ChunkCount, Duplicate: true}
	decision, err := s.decisions.GetByDocumentID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	result.Decision = decision
	return result, nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sourceContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".md", ".markdown":
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}
