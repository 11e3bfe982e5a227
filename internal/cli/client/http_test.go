package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_GetSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer drg-secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/documents/abc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"abc"}}`))
	}))
	defer srv.Close()

	c := NewAPIClientWithConfig("drg-secret-token", srv.URL+"/")
	resp, err := c.Get("/documents/abc")
	require.NoError(t, err)

	var doc struct {
		ID string `json:"id"`
	}
	require.NoError(t, resp.Decode(&doc))
	assert.Equal(t, "abc", doc.ID)
}

func TestAPIClient_NoKeyOmitsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig("", srv.URL).Get("/health")
	require.NoError(t, err)
}

func TestAPIClient_PostEncodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what is chunking", body["query"])
		_, _ = w.Write([]byte(`{"data":{"answer":"ok"}}`))
	}))
	defer srv.Close()

	resp, err := NewAPIClientWithConfig("", srv.URL).Post("/query", map[string]any{"query": "what is chunking"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"ok"}`, string(resp.Data))
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"document not found"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig("", srv.URL).Get("/documents/missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "document not found", apiErr.Message)
}

func TestAPIClient_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := NewAPIClientWithConfig("", srv.URL).Delete("/documents/abc")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestAPIClient_UploadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nBody text."), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "ar", r.FormValue("language"))
		assert.Equal(t, "dynamic", r.FormValue("strategy"))
		assert.Empty(t, r.FormValue("format"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "notes.md", header.Filename)
		assert.Equal(t, "# Title\n\nBody text.", string(content))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"document":{"id":"d1"},"duplicate":false}}`))
	}))
	defer srv.Close()

	var lastProgress int64
	resp, err := NewAPIClientWithConfig("", srv.URL).UploadDocument(path, UploadOptions{
		Language: "ar",
		Strategy: "dynamic",
		Progress: func(current, total int64) { lastProgress = current },
	})
	require.NoError(t, err)
	assert.Contains(t, string(resp.Data), `"d1"`)
	assert.Positive(t, lastProgress)
}

func TestAPIClient_SourceURLDoesNotFollowRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/documents/d1/source" {
			http.Redirect(w, r, "https://bucket.example.com/d1?sig=abc", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"document not found"}`))
	}))
	defer srv.Close()

	c := NewAPIClientWithConfig("", srv.URL)
	url, err := c.SourceURL("d1")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example.com/d1?sig=abc", url)

	_, err = c.SourceURL("missing")
	assert.True(t, IsNotFound(err))
}

func TestAPIClient_DownloadFileWithProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("original bytes"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "source.txt")
	var calls int
	err := NewAPIClientWithConfig("", srv.URL).DownloadFileWithProgress(srv.URL, out, func(current, total int64) { calls++ })
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "original bytes", string(data))
	assert.Positive(t, calls)
}

func TestProgressReader_ReportsProgress(t *testing.T) {
	data := []byte("hello world this is test data")
	reader := bytes.NewReader(data)

	var progressCalls []struct{ current, total int64 }
	pr := &progressReader{
		reader: reader,
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			progressCalls = append(progressCalls, struct{ current, total int64 }{current, total})
		},
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)

	// Progress should have been called at least once
	assert.NotEmpty(t, progressCalls)

	// Final progress should equal total
	lastCall := progressCalls[len(progressCalls)-1]
	assert.Equal(t, int64(len(data)), lastCall.current)
	assert.Equal(t, int64(len(data)), lastCall.total)
}

func TestProgressReader_NilCallback(t *testing.T) {
	data := []byte("hello world")
	reader := bytes.NewReader(data)

	pr := &progressReader{
		reader:     reader,
		total:      int64(len(data)),
		onProgress: nil, // No callback
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestProgressReader_SmallReads(t *testing.T) {
	data := []byte("hello world")
	reader := bytes.NewReader(data)

	var progressValues []int64
	pr := &progressReader{
		reader: reader,
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			progressValues = append(progressValues, current)
		},
	}

	// Read one byte at a time
	buf := make([]byte, 1)
	for {
		n, err := pr.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	// Progress should increase monotonically
	for i := 1; i < len(progressValues); i++ {
		assert.GreaterOrEqual(t, progressValues[i], progressValues[i-1])
	}
}
