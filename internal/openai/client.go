// Package openai adapts go-openai to the embedding and answer generation interfaces the
// services depend on.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is multilingual, so Arabic and English chunks share one space.
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions matches the vector column of the chunks table.
	DefaultEmbeddingDimensions = 1536
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// embedFunc returns the embedding of one text.
type embedFunc func(ctx context.Context, text string) ([]float32, error)

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// Client embeds chunk and query texts and checks the width of every vector it returns.
type Client struct {
	embed      embedFunc
	dimensions int
}

// newAPIClient builds a go-openai client, honouring a custom base URL for compatible gateways.
func newAPIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func NewClientWithConfig(cfg Config) *Client {
	dims := cfg.EmbeddingDimensions
	if dims <= 0 {
		dims = DefaultEmbeddingDimensions
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Client{
		embed:      remoteEmbedder(newAPIClient(cfg.APIKey, cfg.BaseURL), model, dims),
		dimensions: dims,
	}
}

func remoteEmbedder(api *openai.Client, model openai.EmbeddingModel, dims int) embedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		req := openai.EmbeddingRequest{Input: []string{text}, Model: model}
		// Only the text-embedding-3 family accepts a dimensions override.
		if model != openai.AdaEmbeddingV2 {
			req.Dimensions = dims
		}
		resp, err := api.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, errors.New("no embedding data returned")
		}
		return resp.Data[0].Embedding, nil
	}
}

// Dimensions returns the embedding width this client produces.
func (c *Client) Dimensions() int {
	if c.dimensions <= 0 {
		return DefaultEmbeddingDimensions
	}
	return c.dimensions
}

func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	embedding, err := c.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(embedding) != c.Dimensions() {
		return nil, ErrWrongDimensions
	}
	return embedding, nil
}
