package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is the part of a multipart upload kept in memory before spilling to disk.
const multipartMemory = 8 << 20

type DocumentIngester interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
}

type DocumentService interface {
	Get(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, cursor string, limit int) (*service.ListDocumentsOutput, error)
	Delete(ctx context.Context, id string) error
	Chunks(ctx context.Context, id string) ([]domain.Chunk, error)
	Decision(ctx context.Context, id string) (*domain.ChunkingDecision, error)
	SourceURL(ctx context.Context, id string) (string, error)
	Stats(ctx context.Context) (*domain.CorpusStats, error)
}

type DocumentHandler struct {
	ingester DocumentIngester
	docs     DocumentService
}

func NewDocumentHandler(ingester DocumentIngester, docs DocumentService) *DocumentHandler {
	return &DocumentHandler{ingester: ingester, docs: docs}
}

type DocumentResponse struct {
	ID          string                   `json:"id"`
	Filename    string                   `json:"filename"`
	Format      string                   `json:"format"`
	Language    string                   `json:"language"`
	Status      string                   `json:"status"`
	ChunkCount  int                      `json:"chunk_count"`
	ContentHash string                   `json:"content_hash"`
	HasSource   bool                     `json:"has_source"`
	Structure   domain.DocumentStructure `json:"structure"`
	Text        string                   `json:"text,omitempty"`
	CreatedAt   string                   `json:"created_at"`
	UpdatedAt   string                   `json:"updated_at"`
}

type DecisionResponse struct {
	DocumentID string                `json:"document_id"`
	Strategy   string                `json:"strategy"`
	Reason     string                `json:"reason"`
	Score      domain.StructureScore `json:"score"`
	Fixed      *domain.FixedParams   `json:"fixed,omitempty"`
	Dynamic    *domain.DynamicParams `json:"dynamic,omitempty"`
	CreatedAt  string                `json:"created_at,omitempty"`
}

type StatsResponse struct {
	TotalDocuments  int `json:"total_documents"`
	ArabicDocuments int `json:"arabic_documents"`
	TotalChunks     int `json:"total_chunks"`
	EmbeddedChunks  int `json:"embedded_chunks"`
}

type ChunkResponse struct {
	ID            string `json:"id"`
	Sequence      int    `json:"sequence"`
	Text          string `json:"text"`
	Heading       string `json:"heading,omitempty"`
	SpanStart     int    `json:"span_start"`
	SpanEnd       int    `json:"span_end"`
	TokenEstimate int    `json:"token_estimate"`
	HasDiacritics bool   `json:"has_diacritics"`
	Embedded      bool   `json:"embedded"`
}

type IngestResponse struct {
	Document      *DocumentResponse `json:"document"`
	Decision      *DecisionResponse `json:"decision,omitempty"`
	ChunkCount    int               `json:"chunk_count"`
	EmbeddedCount int               `json:"embedded_count"`
	Duplicate     bool              `json:"duplicate"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func documentToResponse(d *domain.Document, withText bool) *DocumentResponse {
	resp := &DocumentResponse{
		ID:          d.ID,
		Filename:    d.Filename,
		Format:      string(d.Format),
		Language:    string(d.Language),
		Status:      string(d.Status),
		ChunkCount:  d.ChunkCount,
		ContentHash: d.ContentHash,
		HasSource:   d.SourceKey != "",
		Structure:   d.Structure,
		CreatedAt:   formatTime(d.CreatedAt),
		UpdatedAt:   formatTime(d.UpdatedAt),
	}
	if withText {
		resp.Text = d.Text
	}
	return resp
}

func decisionToResponse(d *domain.ChunkingDecision) *DecisionResponse {
	if d == nil {
		return nil
	}
	return &DecisionResponse{
		DocumentID: d.DocumentID,
		Strategy:   string(d.Strategy),
		Reason:     string(d.Reason),
		Score:      d.Score,
		Fixed:      d.Fixed,
		Dynamic:    d.Dynamic,
		CreatedAt:  formatTime(d.CreatedAt),
	}
}

func chunkToResponse(c domain.Chunk) *ChunkResponse {
	return &ChunkResponse{
		ID:            c.ID,
		Sequence:      c.Sequence,
		Text:          c.Text,
		Heading:       c.Heading,
		SpanStart:     c.Span.Start,
		SpanEnd:       c.Span.End,
		TokenEstimate: c.TokenEstimate,
		HasDiacritics: c.HasDiacritics,
		Embedded:      c.Embedded(),
	}
}

// Create ingests a multipart upload. The file goes in the "file" part; "format", "language"
// and "strategy" are optional form fields.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			api.HandleError(w, domain.ErrDocumentTooLarge)
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	strategy, err := domain.ParseStrategy(r.FormValue("strategy"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	language, err := domain.ParseLanguageHint(r.FormValue("language"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.ingester.Ingest(r.Context(), service.IngestInput{
		Filename:     header.Filename,
		Data:         data,
		Format:       r.FormValue("format"),
		LanguageHint: language,
		Strategy:     strategy,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	api.Success(w, status, IngestResponse{
		Document:      documentToResponse(result.Document, false),
		Decision:      decisionToResponse(result.Decision),
		ChunkCount:    result.ChunkCount,
		EmbeddedCount: result.EmbeddedCount,
		Duplicate:     result.Duplicate,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	out, err := h.docs.List(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(out.Items))
	for i, d := range out.Items {
		items[i] = documentToResponse(d, false)
	}
	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}

// Get returns a document. Pass include_text=true to include the normalized text.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.docs.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	withText, _ := strconv.ParseBool(r.URL.Query().Get("include_text"))
	api.Success(w, http.StatusOK, documentToResponse(doc, withText))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.docs.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	chunks, err := h.docs.Chunks(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*ChunkResponse, len(chunks))
	for i, c := range chunks {
		items[i] = chunkToResponse(c)
	}
	api.Success(w, http.StatusOK, items)
}

func (h *DocumentHandler) Decision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	decision, err := h.docs.Decision(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, decisionToResponse(decision))
}

// Stats reports corpus totals.
func (h *DocumentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.docs.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, StatsResponse{
		TotalDocuments:  st.TotalDocuments,
		ArabicDocuments: st.ArabicDocuments,
		TotalChunks:     st.TotalChunks,
		EmbeddedChunks:  st.EmbeddedChunks,
	})
}

// Source redirects to a short-lived download URL for the original upload.
func (h *DocumentHandler) Source(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.docs.SourceURL(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
