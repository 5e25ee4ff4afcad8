package domain

import (
	"errors"
	"strings"
	"time"

	"smallurl/pkg/validator"
)

// URLMapping is a single persisted association between an original URL and
// the short code derived from its id.
//
// A mapping is written in two steps: Create assigns ID with ShortCode still
// nil, then the code is backfilled. Between the two writes the record exists
// but cannot be resolved, which is harmless.
type URLMapping struct {
	ID          int64     `json:"id"`
	OriginalURL string    `json:"original_url"`
	ShortCode   *string   `json:"short_code,omitempty"` // nil until backfilled
	CreatedAt   time.Time `json:"created_at"`
}

// Domain errors
var (
	ErrInvalidURL     = errors.New("invalid URL")
	ErrEmptyURL       = errors.New("URL cannot be empty")
	ErrNotFound       = errors.New("mapping not found")
	ErrShortCodeTaken = errors.New("short code already assigned")
	ErrInvalidID      = errors.New("id must be non-negative")
)

// NewURLMapping creates a pending mapping for originalURL, trimmed of
// surrounding whitespace.
func NewURLMapping(originalURL string, createdAt time.Time) *URLMapping {
	return &URLMapping{
		OriginalURL: strings.TrimSpace(originalURL),
		CreatedAt:   createdAt,
	}
}

// Validate checks that OriginalURL is an absolute URI.
func (m *URLMapping) Validate() error {
	err := validator.ValidateAbsoluteURL(m.OriginalURL)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, validator.ErrEmptyURL):
		return errors.Join(ErrInvalidURL, ErrEmptyURL)
	default:
		return ErrInvalidURL
	}
}

// IsPending reports whether the short code has not been backfilled yet.
func (m *URLMapping) IsPending() bool {
	return m.ShortCode == nil || *m.ShortCode == ""
}

// Code returns the short code or "" while pending.
func (m *URLMapping) Code() string {
	if m.ShortCode == nil {
		return ""
	}
	return *m.ShortCode
}

// WithShortCode sets the short code.
func (m *URLMapping) WithShortCode(code string) *URLMapping {
	m.ShortCode = &code
	return m
}

// Clone returns a deep copy so stores never share the caller's pointers.
func (m *URLMapping) Clone() *URLMapping {
	c := *m
	if m.ShortCode != nil {
		code := *m.ShortCode
		c.ShortCode = &code
	}
	return &c
}
