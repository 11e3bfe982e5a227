package service

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/retrieval"
	"github.com/cloo-solutions/docrag/internal/telemetry"
	"github.com/cloo-solutions/docrag/internal/textnorm"
)

const maxTopK = 50

// Generator produces an answer from a question and its assembled context
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// ChunkHydrator loads full chunks for fused candidates
type ChunkHydrator interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error)
}

// SearchInput is a retrieval request
type SearchInput struct {
	Query        string
	TopK         int
	DocumentID   string
	LanguageHint domain.Language
}

// SearchOutput holds fused candidates and the context assembled from them
type SearchOutput struct {
	Query      string
	Language   domain.Language
	Candidates []domain.RetrievalCandidate
	Context    domain.QueryContext
}

// Answer is the result of a question
type Answer struct {
	Question   string
	Answer     string
	Grounded   bool
	Language   domain.Language
	Candidates []domain.RetrievalCandidate
	Context    domain.QueryContext
	Latency    time.Duration
}

// QueryService answers questions with hybrid retrieval
type QueryService struct {
	embedder  Embedder
	searcher  ChunkSearcher
	chunks    ChunkHydrator
	generator Generator
	queryLog  QueryLogRepository
	cfg       retrieval.Config
	uuidGen   UUIDGenerator
}

// NewQueryService creates a new QueryService. queryLog may be nil.
func NewQueryService(
	embedder Embedder,
	searcher ChunkSearcher,
	chunks ChunkHydrator,
	generator Generator,
	queryLog QueryLogRepository,
	cfg retrieval.Config,
) *QueryService {
	return &QueryService{
		embedder:  embedder,
		searcher:  searcher,
		chunks:    chunks,
		generator: generator,
		queryLog:  queryLog,
		cfg:       cfg,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// Search runs vector and lexical retrieval concurrently, fuses the two rankings, hydrates
// the winners and assembles a context within the configured budget.
func (s *QueryService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Search", telemetry.SpanAttributes{
		DocumentID: input.DocumentID,
		Operation:  "search",
	})
	defer span.End()

	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	norm, err := textnorm.Normalize(input.Query, input.LanguageHint)
	if err != nil {
		return nil, err
	}
	if norm.Runes == 0 {
		return nil, domain.ErrEmptyQuery
	}

	k := input.TopK
	if k <= 0 {
		k = s.cfg.TopK
	}
	k = min(k, maxTopK)
	depth := s.cfg.SearchDepth(k)
	filter := domain.SearchFilter{DocumentID: input.DocumentID}

	embedding, err := s.embedder.GenerateEmbedding(ctx, norm.Text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		span.SetError(err)
		if domain.IsEmbeddingFailure(err) {
			return nil, err
		}
		return nil, domain.NewEmbeddingFailure(err)
	}

	var vectorHits, lexicalHits []domain.ScoredHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.searcher.SearchVector(gctx, embedding, depth, filter)
		vectorHits = hits
		return err
	})
	g.Go(func() error {
		hits, err := s.searcher.SearchLexical(gctx, norm.Shadow, depth, filter)
		lexicalHits = hits
		return err
	})
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, err
	}

	candidates := retrieval.Fuse(vectorHits, lexicalHits, k, s.cfg)
	if err := s.hydrate(ctx, candidates); err != nil {
		return nil, err
	}
	qc := retrieval.Assemble(candidates, s.cfg.ContextBudget, s.cfg.DedupeWindow)

	span.SetData("candidates", len(candidates))
	span.SetData("context_size", qc.Size)
	return &SearchOutput{
		Query:      norm.Text,
		Language:   norm.Language,
		Candidates: candidates,
		Context:    qc,
	}, nil
}

// Ask answers a question. An empty context yields an ungrounded answer; a cancelled
// context returns before the generator is called.
func (s *QueryService) Ask(ctx context.Context, input SearchInput) (*Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Ask", telemetry.SpanAttributes{
		DocumentID: input.DocumentID,
		Operation:  "ask",
	})
	defer span.End()

	start := time.Now()
	out, err := s.Search(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grounded := !out.Context.Empty()
	text, err := s.generator.Generate(ctx, domain.GenerationRequest{
		Question: out.Query,
		Context:  out.Context,
		Language: out.Language,
		Grounded: grounded,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	answer := &Answer{
		Question:   out.Query,
		Answer:     text,
		Grounded:   grounded,
		Language:   out.Language,
		Candidates: out.Candidates,
		Context:    out.Context,
		Latency:    time.Since(start),
	}
	s.logQuery(ctx, input, answer)
	return answer, nil
}

func (s *QueryService) hydrate(ctx context.Context, candidates []domain.RetrievalCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ChunkID
	}
	chunks, err := s.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]*domain.Chunk, len(chunks))
	for i := range chunks {
		byID[chunks[i].ID] = &chunks[i]
	}
	for i := range candidates {
		candidates[i].Chunk = byID[candidates[i].ChunkID]
	}
	return nil
}

// logQuery records the query; failures are logged and never fail the answer.
func (s *QueryService) logQuery(ctx context.Context, input SearchInput, a *Answer) {
	if s.queryLog == nil {
		return
	}
	entry := &domain.QueryLogEntry{
		ID:           s.uuidGen.NewString(),
		RequestID:    telemetry.RequestID(ctx),
		Query:        a.Question,
		Language:     a.Language,
		TopK:         input.TopK,
		DocumentID:   input.DocumentID,
		CandidateIDs: make([]string, len(a.Candidates)),
		FusedScores:  make([]float64, len(a.Candidates)),
		EmptyContext: !a.Grounded,
		Answered:     a.Answer != "",
		Latency:      a.Latency,
		CreatedAt:    time.Now().UTC(),
	}
	for i, c := range a.Candidates {
		entry.CandidateIDs[i] = c.ChunkID
		entry.FusedScores[i] = c.FusedScore
	}
	if err := s.queryLog.Create(ctx, entry); err != nil {
		log.Printf("failed to record query log: %v", err)
	}
}
