package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"smallurl/internal/domain"
	"smallurl/pkg/logger"

	"github.com/gorilla/mux"
)

// invalidURLMessage is the fixed text shown for any rejected submission.
const invalidURLMessage = "Invalid URL"

// URLService interface defines the service methods needed by the handler
type URLService interface {
	Shorten(ctx context.Context, originalURL string) (*domain.URLMapping, error)
	Resolve(ctx context.Context, shortCode string) (*domain.URLMapping, error)
	Ready(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	urlService URLService
	logger     *logger.Logger
	baseURL    string // fixed public origin; empty means derive it from the request
}

// NewHandler creates a new HTTP handler
func NewHandler(urlService URLService, log *logger.Logger, baseURL string) *Handler {
	return &Handler{
		urlService: urlService,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ShortenResponse is returned to JSON clients of POST /shorten
type ShortenResponse struct {
	ShortURL    string    `json:"short_url"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, http.StatusOK, indexPage{})
}

// Shorten handles POST /shorten with form field "url"
func (h *Handler) Shorten(w http.ResponseWriter, r *http.Request) {
	originalURL := r.PostFormValue("url")

	m, err := h.urlService.Shorten(r.Context(), originalURL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			if wantsJSON(r) {
				respondError(w, http.StatusBadRequest, invalidURLMessage)
				return
			}
			h.renderIndex(w, http.StatusBadRequest, indexPage{URL: originalURL, Error: invalidURLMessage})
			return
		}

		h.logger.WithContext(r.Context()).Error("Failed to shorten URL", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	shortURL := h.shortURL(r, m.Code())

	if wantsJSON(r) {
		respondSuccess(w, http.StatusCreated, ShortenResponse{
			ShortURL:    shortURL,
			ShortCode:   m.Code(),
			OriginalURL: m.OriginalURL,
			CreatedAt:   m.CreatedAt,
		}, "URL shortened")
		return
	}

	h.renderIndex(w, http.StatusOK, indexPage{ShortURL: shortURL})
}

// Redirect handles GET /{shortCode}. Every miss is a bare 404.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := mux.Vars(r)["shortCode"]

	m, err := h.urlService.Resolve(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		h.logger.WithContext(r.Context()).Error("Failed to resolve short code",
			"short_code", shortCode,
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// 301: the mapping never changes once the code exists.
	http.Redirect(w, r, m.OriginalURL, http.StatusMovedPermanently)
}

// HealthCheck handles GET /health/live
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ReadyCheck handles GET /health/ready
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.urlService.Ready(ctx); err != nil {
		h.logger.WithContext(ctx).Warn("Store not ready", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// shortURL joins the public origin and code. Without a configured base URL
// the origin is the scheme and host the request arrived on.
func (h *Handler) shortURL(r *http.Request, code string) string {
	if h.baseURL != "" {
		return h.baseURL + "/" + code
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	proto := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0]))
	if proto == "http" || proto == "https" {
		scheme = proto
	}

	return scheme + "://" + r.Host + "/" + code
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
