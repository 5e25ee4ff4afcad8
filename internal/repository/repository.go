package repository

import (
	"context"

	"smallurl/internal/domain"
)

// MappingRepository is the durable store of URL mappings.
//
// Implementations must be safe for concurrent use. Each method is atomic on
// its own; Create followed by SetShortCode is deliberately not wrapped in a
// transaction, so callers may observe a pending mapping in between.
type MappingRepository interface {
	// Create inserts m with a NULL short code and sets m.ID to the id the
	// store assigned. Ids are never reused.
	Create(ctx context.Context, m *domain.URLMapping) error

	// SetShortCode backfills the short code of mapping id.
	// Returns domain.ErrNotFound if the id does not exist and
	// domain.ErrShortCodeTaken if another mapping already owns the code.
	SetShortCode(ctx context.Context, id int64, shortCode string) error

	// GetByShortCode finds the mapping whose stored short code equals
	// shortCode exactly. Returns domain.ErrNotFound if none matches.
	GetByShortCode(ctx context.Context, shortCode string) (*domain.URLMapping, error)

	// GetByID finds a mapping by primary key.
	// Returns domain.ErrNotFound if none matches.
	GetByID(ctx context.Context, id int64) (*domain.URLMapping, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
