package service

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/cloo-solutions/docrag/internal/domain"
)

// Embedder generates embedding vectors
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingConfig controls retries and throttling of embedding calls
type EmbeddingConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	RatePerSecond float64
}

// DefaultEmbeddingConfig returns the default embedding retry policy
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// EmbeddingService wraps an Embedder with rate limiting and capped exponential backoff
type EmbeddingService struct {
	client  Embedder
	limiter *rate.Limiter
	cfg     EmbeddingConfig
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client Embedder, cfg EmbeddingConfig) *EmbeddingService {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), max(1, int(cfg.RatePerSecond)))
	}
	return &EmbeddingService{
		client:  client,
		limiter: limiter,
		cfg:     cfg,
	}
}

// Embed generates an embedding for text, retrying failures up to MaxRetries times.
// A final failure is returned as an EmbeddingFailure; cancellation returns ctx.Err().
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.BaseDelay
	b.MaxInterval = s.cfg.MaxDelay
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(s.cfg.MaxRetries, 0))), ctx)

	var embedding []float32
	op := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		v, err := s.client.GenerateEmbedding(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		embedding = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("embedding attempt failed, retrying in %v: %v", wait, err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.NewEmbeddingFailure(err)
	}
	return embedding, nil
}

// EmbedChunks fills in chunk embeddings in place and returns how many were embedded.
// After the first chunk that still fails once retries are exhausted, the remaining chunks
// are left without embeddings and that failure is returned alongside the count.
func (s *EmbeddingService) EmbedChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	embedded := 0
	for i := range chunks {
		if chunks[i].Embedding != nil {
			embedded++
			continue
		}
		v, err := s.Embed(ctx, chunks[i].Text)
		if err != nil {
			return embedded, err
		}
		chunks[i].Embedding = v
		embedded++
	}
	return embedded, nil
}
