// Package memory is a process-local MappingRepository for development and
// tests. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"smallurl/internal/domain"
	"smallurl/internal/repository"
)

type mappingRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*domain.URLMapping
	byCode map[string]int64
}

// NewMappingRepository creates an empty in-memory repository. Ids start at 1
// like a database sequence.
func NewMappingRepository() repository.MappingRepository {
	return &mappingRepository{
		nextID: 1,
		byID:   make(map[int64]*domain.URLMapping),
		byCode: make(map[string]int64),
	}
}

func (r *mappingRepository) Create(ctx context.Context, m *domain.URLMapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := m.Clone()
	stored.ID = r.nextID
	stored.ShortCode = nil
	r.byID[stored.ID] = stored
	r.nextID++

	m.ID = stored.ID
	m.ShortCode = nil
	return nil
}

func (r *mappingRepository) SetShortCode(ctx context.Context, id int64, shortCode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if owner, taken := r.byCode[shortCode]; taken && owner != id {
		return domain.ErrShortCodeTaken
	}

	if old := stored.Code(); old != "" {
		delete(r.byCode, old)
	}
	stored.WithShortCode(shortCode)
	r.byCode[shortCode] = id
	return nil
}

func (r *mappingRepository) GetByShortCode(ctx context.Context, shortCode string) (*domain.URLMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[shortCode]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *mappingRepository) GetByID(ctx context.Context, id int64) (*domain.URLMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return stored.Clone(), nil
}

func (r *mappingRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
