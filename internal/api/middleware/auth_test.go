package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func TestAPIKeyAuth_Success(t *testing.T) {
	mockValidator := new(MockAuthValidator)
	mockValidator.On("ValidateAPIKey", mock.Anything, "drg-secret-token").Return("key_1", nil)

	var capturedClientID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedClientID = GetClientID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	middleware := APIKeyAuth(mockValidator)
	wrappedHandler := middleware(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer drg-secret-token")
	w := httptest.NewRecorder()

	wrappedHandler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "key_1", capturedClientID)
	mockValidator.AssertExpectations(t)
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	mockValidator := new(MockAuthValidator)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	middleware := APIKeyAuth(mockValidator)
	wrappedHandler := middleware(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	wrappedHandler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization header")
}

func TestAPIKeyAuth_InvalidFormat(t *testing.T) {
	mockValidator := new(MockAuthValidator)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	middleware := APIKeyAuth(mockValidator)
	wrappedHandler := middleware(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()

	wrappedHandler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid authorization format")
}

func TestAPIKeyAuth_ValidationFails(t *testing.T) {
	mockValidator := new(MockAuthValidator)
	mockValidator.On("ValidateAPIKey", mock.Anything, "wrong-token").Return("", errors.New("invalid key"))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	middleware := APIKeyAuth(mockValidator)
	wrappedHandler := middleware(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()

	wrappedHandler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid api key")
	mockValidator.AssertExpectations(t)
}

func TestGetClientID_ValidContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), ClientIDKey, "key_abc")
	clientID := GetClientID(ctx)
	assert.Equal(t, "key_abc", clientID)
}

func TestGetClientID_MissingContext(t *testing.T) {
	ctx := context.Background()
	clientID := GetClientID(ctx)
	assert.Equal(t, "", clientID)
}

func TestStaticKeyValidator(t *testing.T) {
	v := NewStaticKeyValidator("drg-secret-token")

	id, err := v.ValidateAPIKey(context.Background(), "drg-secret-token")
	assert.NoError(t, err)
	assert.Regexp(t, `^key_[0-9a-f]{8}$`, id)

	_, err = v.ValidateAPIKey(context.Background(), "drg-secret-tokeN")
	assert.Error(t, err)

	_, err = v.ValidateAPIKey(context.Background(), "")
	assert.Error(t, err)
}

func TestAPIKeyAuth_StaticKey(t *testing.T) {
	handler := APIKeyAuth(NewStaticKeyValidator("drg-secret-token"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetClientID(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer drg-secret-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer other")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
