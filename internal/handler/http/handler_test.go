package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"smallurl/internal/codec"
	"smallurl/internal/domain"
	"smallurl/internal/repository/memory"
	"smallurl/internal/service"
	"smallurl/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== MOCKS ====================

// MockURLService is a mock implementation of URLService
type MockURLService struct {
	mock.Mock
}

func (m *MockURLService) Shorten(ctx context.Context, originalURL string) (*domain.URLMapping, error) {
	args := m.Called(ctx, originalURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.URLMapping), args.Error(1)
}

func (m *MockURLService) Resolve(ctx context.Context, shortCode string) (*domain.URLMapping, error) {
	args := m.Called(ctx, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.URLMapping), args.Error(1)
}

func (m *MockURLService) Ready(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ==================== HELPER FUNCTIONS ====================

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, "debug")
}

func setupTestRouter(baseURL string) (http.Handler, *MockURLService) {
	mockService := new(MockURLService)
	handler := NewHandler(mockService, testLogger(), baseURL)
	return NewRouter(handler, false), mockService
}

func formRequest(value string) *http.Request {
	form := url.Values{"url": {value}}
	req := httptest.NewRequest(http.MethodPost, "/shorten", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func mapping(id int64, originalURL, code string) *domain.URLMapping {
	return (&domain.URLMapping{
		ID:          id,
		OriginalURL: originalURL,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}).WithShortCode(code)
}

// ==================== INDEX ====================

func TestIndex_RendersForm(t *testing.T) {
	router, _ := setupTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `action="/shorten"`)
	assert.Contains(t, w.Body.String(), `name="url"`)
}

// ==================== SHORTEN ====================

func TestShorten_HTMLSuccess(t *testing.T) {
	router, mockService := setupTestRouter("")

	mockService.On("Shorten", mock.Anything, "https://example.com/path").
		Return(mapping(1, "https://example.com/path", "gY2pX"), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, formRequest("https://example.com/path"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http://example.com/gY2pX")
	mockService.AssertExpectations(t)
}

func TestShorten_JSONSuccess(t *testing.T) {
	router, mockService := setupTestRouter("")

	mockService.On("Shorten", mock.Anything, "https://example.com/path").
		Return(mapping(1, "https://example.com/path", "gY2pX"), nil)

	req := formRequest("https://example.com/path")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "http://example.com/gY2pX", data["short_url"])
	assert.Equal(t, "gY2pX", data["short_code"])
	assert.Equal(t, "https://example.com/path", data["original_url"])
	assert.Equal(t, "URL shortened", response["message"])
	mockService.AssertExpectations(t)
}

func TestShorten_InvalidURL(t *testing.T) {
	router, mockService := setupTestRouter("")

	mockService.On("Shorten", mock.Anything, "not-a-url").Return(nil, domain.ErrInvalidURL)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, formRequest("not-a-url"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid URL")
	assert.Contains(t, w.Body.String(), `value="not-a-url"`)
	mockService.AssertExpectations(t)
}

func TestShorten_InvalidURL_JSON(t *testing.T) {
	router, mockService := setupTestRouter("")

	mockService.On("Shorten", mock.Anything, "").Return(nil, domain.ErrInvalidURL)

	req := formRequest("")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Invalid URL", response["error"])
}

func TestShorten_ServiceError(t *testing.T) {
	router, mockService := setupTestRouter("")

	mockService.On("Shorten", mock.Anything, "https://example.com").Return(nil, assert.AnError)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, formRequest("https://example.com"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestShorten_ShortURLOrigin(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		setup    func(*http.Request)
		expected string
	}{
		{
			name:     "request host",
			expected: "http://example.com/gY2pX",
		},
		{
			name:     "forwarded proto",
			setup:    func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") },
			expected: "https://example.com/gY2pX",
		},
		{
			name:     "unknown forwarded proto is ignored",
			setup:    func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "javascript") },
			expected: "http://example.com/gY2pX",
		},
		{
			name: "unknown forwarded proto keeps TLS scheme",
			setup: func(r *http.Request) {
				r.TLS = &tls.ConnectionState{}
				r.Header.Set("X-Forwarded-Proto", "ftp")
			},
			expected: "https://example.com/gY2pX",
		},
		{
			name:     "forwarded proto list uses first hop",
			setup:    func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS, http") },
			expected: "https://example.com/gY2pX",
		},
		{
			name:     "custom host header",
			setup:    func(r *http.Request) { r.Host = "sho.rt:8080" },
			expected: "http://sho.rt:8080/gY2pX",
		},
		{
			name:     "configured base URL",
			baseURL:  "https://s.example/",
			expected: "https://s.example/gY2pX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService := setupTestRouter(tt.baseURL)
			mockService.On("Shorten", mock.Anything, "https://example.com").
				Return(mapping(1, "https://example.com", "gY2pX"), nil)

			req := formRequest("https://example.com")
			req.Header.Set("Accept", "application/json")
			if tt.setup != nil {
				tt.setup(req)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			data := response["data"].(map[string]interface{})
			assert.Equal(t, tt.expected, data["short_url"])
		})
	}
}

// ==================== REDIRECT ====================

func TestRedirect_Success(t *testing.T) {
	router, mockService := setupTestRouter("")

	mockService.On("Resolve", mock.Anything, "gY2pX").
		Return(mapping(1, "https://example.com/path", "gY2pX"), nil)

	req := httptest.NewRequest(http.MethodGet, "/gY2pX", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://example.com/path", w.Header().Get("Location"))
	mockService.AssertExpectations(t)
}

func TestRedirect_NotFound(t *testing.T) {
	router, mockService := setupTestRouter("")

	mockService.On("Resolve", mock.Anything, "zzzzz").Return(nil, domain.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/zzzzz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
	mockService.AssertExpectations(t)
}

func TestRedirect_InternalError(t *testing.T) {
	router, mockService := setupTestRouter("")

	mockService.On("Resolve", mock.Anything, "gY2pX").Return(nil, assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/gY2pX", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRouter_UnknownPath(t *testing.T) {
	router, mockService := setupTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/a/b/c", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
	mockService.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

// ==================== HEALTH CHECK TESTS ====================

func TestHealthCheck(t *testing.T) {
	router, _ := setupTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name           string
		readyErr       error
		expectedStatus int
		expectedBody   string
	}{
		{"store up", nil, http.StatusOK, "ready"},
		{"store down", assert.AnError, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService := setupTestRouter("")
			mockService.On("Ready", mock.Anything).Return(tt.readyErr)

			req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedBody, response["status"])
		})
	}
}

func TestReadyCheck_LogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	mockService := new(MockURLService)
	mockService.On("Ready", mock.Anything).Return(assert.AnError)

	router := RequestIDMiddleware(NewRouter(NewHandler(mockService, logger.NewWithWriter(&buf, "info"), ""), false))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Store not ready", entry["msg"])
	assert.Equal(t, w.Header().Get("X-Request-ID"), entry["request_id"])
}

// ==================== END TO END ====================

func setupRealRouter(t *testing.T) http.Handler {
	t.Helper()
	c, err := codec.New(codec.Config{Salt: "my salt", MinLength: 5})
	require.NoError(t, err)

	svc := service.NewURLService(memory.NewMappingRepository(), c, nil, testLogger())
	return NewRouter(NewHandler(svc, testLogger(), ""), true)
}

func TestEndToEnd_ShortenThenRedirect(t *testing.T) {
	router := setupRealRouter(t)

	req := formRequest("https://example.com/path")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	shortURL := response["data"].(map[string]interface{})["short_url"].(string)

	parsed, err := url.Parse(shortURL)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(strings.TrimPrefix(parsed.Path, "/")), 5)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, parsed.Path, nil))

	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://example.com/path", w.Header().Get("Location"))
}

func TestEndToEnd_NotFoundCases(t *testing.T) {
	router := setupRealRouter(t)

	for _, path := range []string{"/abcde", "/zzzzz", "/!!!!!", "/favicon.ico"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestEndToEnd_MetricsExposed(t *testing.T) {
	router := setupRealRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{endpoint="/health/live",method="GET",status="200"}`)
}
