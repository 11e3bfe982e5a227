//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/openai"
)

func structuredMarkdown() []byte {
	var b strings.Builder
	b.WriteString("# Operations Handbook\n\n")
	sections := []string{"Deployment", "Monitoring", "Incident Response", "Backups"}
	for _, s := range sections {
		fmt.Fprintf(&b, "## %s\n\n", s)
		for i := 0; i < 3; i++ {
			fmt.Fprintf(&b, "The %s procedure step %d is documented here with enough detail for an on-call engineer to follow it without asking for help.\n\n", strings.ToLower(s), i+1)
		}
	}
	return []byte(b.String())
}

const arabicText = "اللُّغَةُ العَرَبِيَّةُ لغة سامية يتحدثها أكثر من أربعمائة مليون شخص.\n\n" +
	"تُكتب العربية من اليمين إلى اليسار وتستخدم الحركات لتوضيح النطق.\n\n" +
	"يعتمد البحث في النصوص العربية على توحيد الهمزات وإزالة التشكيل."

func decode[T any](t *testing.T, resp *APIResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

// TestE2E_HealthAndAuth checks the public health endpoint and bearer key enforcement
func TestE2E_HealthAndAuth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Raw(http.MethodGet, "/health", "")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.Raw(http.MethodGet, "/documents", "")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = env.Raw(http.MethodGet, "/documents", "wrong-key")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = env.Raw(http.MethodGet, "/documents", testAPIKey)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestE2E_DocumentLifecycle ingests a document and walks every document endpoint
func TestE2E_DocumentLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	content := structuredMarkdown()

	resp, err := env.Upload("handbook.md", content, map[string]string{"strategy": "dynamic"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	ingested := decode[handlers.IngestResponse](t, resp)
	require.NotNil(t, ingested.Document)
	require.NotNil(t, ingested.Decision)
	docID := ingested.Document.ID

	assert.Equal(t, "dynamic", ingested.Decision.Strategy)
	assert.Equal(t, "ready", ingested.Document.Status)
	assert.Equal(t, "en", ingested.Document.Language)
	assert.Positive(t, ingested.ChunkCount)
	assert.Equal(t, ingested.ChunkCount, ingested.EmbeddedCount)
	assert.True(t, ingested.Document.HasSource)

	t.Run("duplicate upload returns the existing document", func(t *testing.T) {
		resp, err := env.Upload("copy.md", content, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		dup := decode[handlers.IngestResponse](t, resp)
		assert.True(t, dup.Duplicate)
		assert.Equal(t, docID, dup.Document.ID)
	})

	t.Run("list", func(t *testing.T) {
		resp, err := env.Get("/documents?limit=10")
		require.NoError(t, err)
		list := decode[handlers.DocumentListResponse](t, resp)
		require.Len(t, list.Items, 1)
		assert.Equal(t, docID, list.Items[0].ID)
		assert.False(t, list.HasMore)
	})

	t.Run("stats", func(t *testing.T) {
		resp, err := env.Get("/stats")
		require.NoError(t, err)
		st := decode[handlers.StatsResponse](t, resp)
		assert.Equal(t, 1, st.TotalDocuments)
		assert.Equal(t, ingested.ChunkCount, st.TotalChunks)
		assert.Equal(t, ingested.ChunkCount, st.EmbeddedChunks)
	})

	t.Run("get with text", func(t *testing.T) {
		resp, err := env.Get("/documents/" + docID + "?include_text=true")
		require.NoError(t, err)
		doc := decode[handlers.DocumentResponse](t, resp)
		assert.Contains(t, doc.Text, "Operations Handbook")
		assert.Positive(t, doc.Structure.HeadingCount)
	})

	t.Run("chunks reassemble in order", func(t *testing.T) {
		resp, err := env.Get("/documents/" + docID + "/chunks")
		require.NoError(t, err)
		chunks := decode[[]*handlers.ChunkResponse](t, resp)
		require.Len(t, chunks, ingested.ChunkCount)
		for i, c := range chunks {
			assert.Equal(t, i, c.Sequence)
			assert.True(t, c.Embedded)
			assert.Equal(t, domain.ChunkID(docID, i), c.ID)
			if i > 0 {
				assert.Equal(t, chunks[i-1].SpanEnd, c.SpanStart, "dynamic chunks are contiguous")
			}
		}
	})

	t.Run("decision", func(t *testing.T) {
		resp, err := env.Get("/documents/" + docID + "/decision")
		require.NoError(t, err)
		d := decode[handlers.DecisionResponse](t, resp)
		assert.Equal(t, "dynamic", d.Strategy)
		assert.Equal(t, "override", d.Reason)
		assert.NotNil(t, d.Dynamic)
		assert.Nil(t, d.Fixed)
	})

	t.Run("source download", func(t *testing.T) {
		raw, err := env.Raw(http.MethodGet, "/documents/"+docID+"/source", testAPIKey)
		require.NoError(t, err)
		raw.Body.Close()
		require.Equal(t, http.StatusFound, raw.StatusCode)

		data, err := env.DownloadFile(raw.Header.Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("delete", func(t *testing.T) {
		resp, err := env.Delete("/documents/" + docID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, err = env.Get("/documents/" + docID)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

// TestE2E_Retrieval exercises hybrid search and answering over Arabic and English documents
func TestE2E_Retrieval(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("empty corpus is not grounded", func(t *testing.T) {
		resp, err := env.Post("/query", map[string]any{"query": "how are backups verified"})
		require.NoError(t, err)
		answer := decode[handlers.AnswerResponse](t, resp)
		assert.False(t, answer.Grounded)
		assert.Equal(t, openai.NoInformationMessage(domain.LanguageEnglish), answer.Answer)
		assert.Empty(t, answer.Context.Chunks)
	})

	resp, err := env.Upload("arabic.txt", []byte(arabicText), nil)
	require.NoError(t, err)
	arabic := decode[handlers.IngestResponse](t, resp)
	assert.Equal(t, "ar", arabic.Document.Language)
	assert.Equal(t, "fixed", arabic.Decision.Strategy)
	assert.True(t, arabic.Document.Structure.HasDiacritics)

	resp, err = env.Upload("handbook.md", structuredMarkdown(), nil)
	require.NoError(t, err)
	english := decode[handlers.IngestResponse](t, resp)

	t.Run("undiacritized query matches diacritized text", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]any{"query": "اللغة العربية", "top_k": 3})
		require.NoError(t, err)
		out := decode[handlers.SearchResponse](t, resp)
		assert.Equal(t, "ar", out.Language)
		require.NotEmpty(t, out.Candidates)
		assert.LessOrEqual(t, len(out.Candidates), 3)

		top := out.Candidates[0]
		assert.Equal(t, arabic.Document.ID, top.DocumentID)
		assert.Contains(t, top.Sources, "lexical")
		assert.LessOrEqual(t, out.Context.Size, out.Context.Budget)
	})

	t.Run("document filter", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]any{
			"query":       "incident response procedure",
			"document_id": english.Document.ID,
		})
		require.NoError(t, err)
		out := decode[handlers.SearchResponse](t, resp)
		require.NotEmpty(t, out.Candidates)
		for _, c := range out.Candidates {
			assert.Equal(t, english.Document.ID, c.DocumentID)
		}
	})

	t.Run("grounded answer cites context", func(t *testing.T) {
		resp, err := env.Post("/query", map[string]any{"query": "What is the backups procedure?"})
		require.NoError(t, err)
		answer := decode[handlers.AnswerResponse](t, resp)
		assert.True(t, answer.Grounded)
		assert.NotEmpty(t, answer.Answer)
		require.NotEmpty(t, answer.Context.Chunks)
		assert.Contains(t, answer.Context.Text, answer.Context.Chunks[0].Text)
	})

	t.Run("validation", func(t *testing.T) {
		resp, err := env.Post("/query", map[string]any{"query": ""})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, err = env.Post("/search", map[string]any{"query": "x", "language": "fr"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

// TestE2E_CLI drives the docrag binary against the running server
func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	workDir := t.TempDir()
	docsDir := filepath.Join(workDir, "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "handbook.md"), structuredMarkdown(), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "arabic.txt"), []byte(arabicText), 0o600))

	out, err := env.RunDocrag(workDir, "ingest", docsDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "OK   "+filepath.Join(docsDir, "arabic.txt"))
	assert.Contains(t, out, "OK   "+filepath.Join(docsDir, "handbook.md"))

	out, err = env.RunDocrag(workDir, "ingest", docsDir)
	require.NoError(t, err, out)
	assert.Equal(t, 2, strings.Count(out, "SKIP"))

	out, err = env.RunDocrag(workDir, "docs", "list", "--output")
	require.NoError(t, err, out)
	var list handlers.DocumentListResponse
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list.Items, 2)

	out, err = env.RunDocrag(workDir, "ask", "What", "is", "the", "monitoring", "procedure?")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Sources")

	out, err = env.RunDocrag(workDir, "analyze", filepath.Join(docsDir, "handbook.md"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "strategy=")
	assert.Contains(t, out, "language=en")
}
