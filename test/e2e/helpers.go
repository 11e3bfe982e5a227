//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
	"github.com/cloo-solutions/docrag/internal/api/middleware"
	"github.com/cloo-solutions/docrag/internal/chunking"
	"github.com/cloo-solutions/docrag/internal/extract"
	"github.com/cloo-solutions/docrag/internal/openai"
	"github.com/cloo-solutions/docrag/internal/repository"
	"github.com/cloo-solutions/docrag/internal/retrieval"
	"github.com/cloo-solutions/docrag/internal/server"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/cloo-solutions/docrag/internal/storage"
	"github.com/cloo-solutions/docrag/internal/testutil"
)

const (
	testAPIKey     = "drg-e2e-secret"
	embeddingWidth = 1536
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	dsn := testutil.StartPostgres(ctx, t)
	s3Endpoint := testutil.StartRustFS(ctx, t)
	pool := testutil.NewMigratedPool(ctx, t, dsn, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3Endpoint,
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "test-sources",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	serverURL, serverCloser := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the docrag client binary
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "docrag-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "docrag"), "./cmd/docrag")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build docrag: %v\n%s", err, out)
	}
}

// RunDocrag runs the docrag CLI against the test server with an isolated config dir
func (e *E2ETestEnv) RunDocrag(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "docrag"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"DOCRAG_API_KEY="+testAPIKey,
		"DOCRAG_API_URL="+e.ServerURL,
		"XDG_CONFIG_HOME="+filepath.Join(workDir, ".config"),
		"HOME="+workDir,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doJSON(http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body
func (e *E2ETestEnv) Post(path string, body any) (*APIResponse, error) {
	return e.doJSON(http.MethodPost, path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doJSON(http.MethodDelete, path, nil)
}

// Upload posts a document as multipart form data. fields are extra form values.
func (e *E2ETestEnv) Upload(filename string, content []byte, fields map[string]string) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+"/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(req, testAPIKey)
}

// Raw performs a request with an explicit token and returns the undecoded response
func (e *E2ETestEnv) Raw(method, path, token string) (*http.Response, error) {
	req, err := http.NewRequest(method, e.ServerURL+path, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := *e.HTTPClient
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return client.Do(req)
}

func (e *E2ETestEnv) doJSON(method, path string, body any) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.send(req, testAPIKey)
}

func (e *E2ETestEnv) send(req *http.Request, token string) (*APIResponse, error) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
	}
	if resp.StatusCode >= 400 {
		return &apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return &apiResp, nil
}

// DownloadFile downloads a file from a presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// hashEmbedder is a deterministic bag-of-words embedder: texts sharing tokens get similar vectors.
type hashEmbedder struct{}

func (hashEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, embeddingWidth)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(tok, ".,:;!?()\"'")))
		v[h.Sum32()%embeddingWidth]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v, nil
}

// startServer wires the production router with a deterministic embedder and the extractive generator
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func()) {
	docRepo := repository.NewDocumentRepository(pool)
	decisionRepo := repository.NewDecisionRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)

	embedder := hashEmbedder{}
	ingestion := service.NewIngestionService(
		extract.New(),
		service.NewEmbeddingService(embedder, service.DefaultEmbeddingConfig()),
		docRepo,
		decisionRepo,
		chunkRepo,
		repository.NewTxRunner(pool),
		s3Client,
		chunking.DefaultConfig(),
		service.DefaultIngestionConfig(),
	)
	documents := service.NewDocumentService(docRepo, decisionRepo, chunkRepo, s3Client)
	query := service.NewQueryService(
		embedder,
		chunkRepo,
		chunkRepo,
		openai.NewGenerator(openai.GeneratorConfig{}),
		repository.NewQueryLogRepository(pool),
		retrieval.DefaultConfig(),
	)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   middleware.NewStaticKeyValidator(testAPIKey),
		MaxUploadBytes:  service.DefaultIngestionConfig().MaxUploadBytes,
		HealthHandler:   handlers.NewHealthHandler(pool),
		DocumentHandler: handlers.NewDocumentHandler(ingestion, documents),
		QueryHandler:    handlers.NewQueryHandler(query),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
