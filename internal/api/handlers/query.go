package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/service"
)

type QueryService interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
	Ask(ctx context.Context, input service.SearchInput) (*service.Answer, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Language   string `json:"language,omitempty"`
}

type CandidateResponse struct {
	ChunkID      string   `json:"chunk_id"`
	DocumentID   string   `json:"document_id"`
	Sequence     int      `json:"sequence"`
	Heading      string   `json:"heading,omitempty"`
	VectorScore  float64  `json:"vector_score"`
	LexicalScore float64  `json:"lexical_score"`
	FusedScore   float64  `json:"fused_score"`
	Sources      []string `json:"sources"`
}

type SearchResponse struct {
	Query      string               `json:"query"`
	Language   string               `json:"language"`
	Candidates []*CandidateResponse `json:"candidates"`
	Context    domain.QueryContext  `json:"context"`
}

type AnswerResponse struct {
	Question   string               `json:"question"`
	Answer     string               `json:"answer"`
	Grounded   bool                 `json:"grounded"`
	Language   string               `json:"language"`
	Candidates []*CandidateResponse `json:"candidates"`
	Context    domain.QueryContext  `json:"context"`
	LatencyMs  int64                `json:"latency_ms"`
}

// NewAnswerResponse converts a service answer into its wire form.
func NewAnswerResponse(a *service.Answer) *AnswerResponse {
	return &AnswerResponse{
		Question:   a.Question,
		Answer:     a.Answer,
		Grounded:   a.Grounded,
		Language:   string(a.Language),
		Candidates: candidatesToResponse(a.Candidates),
		Context:    a.Context,
		LatencyMs:  a.Latency.Milliseconds(),
	}
}

func candidatesToResponse(cands []domain.RetrievalCandidate) []*CandidateResponse {
	out := make([]*CandidateResponse, len(cands))
	for i, c := range cands {
		resp := &CandidateResponse{
			ChunkID:      c.ChunkID,
			DocumentID:   c.DocumentID,
			Sequence:     c.Sequence,
			VectorScore:  c.VectorScore,
			LexicalScore: c.LexicalScore,
			FusedScore:   c.FusedScore,
			Sources:      c.Sources.Names(),
		}
		if c.Chunk != nil {
			resp.Heading = c.Chunk.Heading
		}
		out[i] = resp
	}
	return out
}

func decodeQueryRequest(w http.ResponseWriter, r *http.Request) (service.SearchInput, bool) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return service.SearchInput{}, false
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return service.SearchInput{}, false
	}
	if req.TopK < 0 {
		api.Error(w, http.StatusBadRequest, "top_k cannot be negative")
		return service.SearchInput{}, false
	}

	language, err := domain.ParseLanguageHint(req.Language)
	if err != nil {
		api.HandleError(w, err)
		return service.SearchInput{}, false
	}

	return service.SearchInput{
		Query:        req.Query,
		TopK:         req.TopK,
		DocumentID:   req.DocumentID,
		LanguageHint: language,
	}, true
}

// Search returns fused candidates and the assembled context without generating an answer.
func (h *QueryHandler) Search(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	out, err := h.svc.Search(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Query:      out.Query,
		Language:   string(out.Language),
		Candidates: candidatesToResponse(out.Candidates),
		Context:    out.Context,
	})
}

// Query answers a question from the retrieved context.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	answer, err := h.svc.Ask(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, NewAnswerResponse(answer))
}
