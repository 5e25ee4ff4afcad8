package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"smallurl/internal/codec"
	"smallurl/internal/domain"
	"smallurl/internal/metrics"
	"smallurl/internal/repository"
	"smallurl/pkg/logger"
	"smallurl/pkg/validator"
)

// URLService implements shorten and resolve on top of a mapping store and a
// code codec. It holds no per-request state.
type URLService struct {
	repo   repository.MappingRepository
	codec  codec.Codec
	clock  domain.Clock
	logger *logger.Logger
}

// NewURLService creates a new URL service
func NewURLService(repo repository.MappingRepository, c codec.Codec, clock domain.Clock, log *logger.Logger) *URLService {
	if clock == nil {
		clock = domain.RealClock{}
	}
	if log == nil {
		log = &logger.Logger{Logger: slog.Default()}
	}
	return &URLService{
		repo:   repo,
		codec:  c,
		clock:  clock,
		logger: log,
	}
}

// Shorten stores originalURL and returns the mapping with its short code.
//
// It performs two separate writes: the insert that assigns the id, then the
// backfill of the code derived from that id. If the second write fails the
// record stays pending forever. It can never be resolved and nothing else
// is affected.
func (s *URLService) Shorten(ctx context.Context, originalURL string) (*domain.URLMapping, error) {
	log := s.logger.WithContext(ctx)
	m := domain.NewURLMapping(originalURL, s.clock.Now())

	// Reject before touching the store
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, m); err != nil {
		log.Error("Failed to insert mapping", "error", err)
		return nil, fmt.Errorf("failed to create mapping: %w", err)
	}

	code, err := s.codec.Encode(m.ID)
	if err != nil {
		metrics.RecordPendingMapping()
		log.Error("Failed to encode id", "id", m.ID, "error", err)
		return nil, fmt.Errorf("failed to derive short code: %w", err)
	}

	if err := s.repo.SetShortCode(ctx, m.ID, code); err != nil {
		metrics.RecordPendingMapping()
		log.Error("Failed to backfill short code",
			"id", m.ID,
			"short_code", code,
			"error", err,
		)
		return nil, fmt.Errorf("failed to store short code: %w", err)
	}

	m.WithShortCode(code)
	metrics.RecordURLCreated()
	log.Info("URL shortened", "id", m.ID, "short_code", code)

	return m, nil
}

// Resolve finds the mapping for shortCode.
//
// Empty input, a code that does not decode, and a code with no stored
// record all return domain.ErrNotFound. Decoding only filters out foreign
// codes; the record is looked up by the stored code string.
func (s *URLService) Resolve(ctx context.Context, shortCode string) (*domain.URLMapping, error) {
	log := s.logger.WithContext(ctx)

	if err := validator.ValidateShortCode(shortCode); err != nil {
		if errors.Is(err, validator.ErrEmptyShortCode) {
			metrics.RecordNotFound("empty")
		} else {
			metrics.RecordNotFound("undecodable")
		}
		return nil, domain.ErrNotFound
	}

	if ids := s.codec.Decode(shortCode); len(ids) == 0 {
		metrics.RecordNotFound("undecodable")
		log.Debug("Short code does not decode", "short_code", shortCode)
		return nil, domain.ErrNotFound
	}

	m, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.RecordNotFound("unmatched")
			log.Debug("Short code not stored", "short_code", shortCode)
			return nil, domain.ErrNotFound
		}
		log.Error("Failed to look up short code", "short_code", shortCode, "error", err)
		return nil, fmt.Errorf("failed to resolve short code: %w", err)
	}

	metrics.RecordRedirect()
	return m, nil
}

// Ready reports whether the backing store answers.
func (s *URLService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
