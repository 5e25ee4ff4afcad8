package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smallurl/internal/domain"
	"smallurl/internal/metrics"
	"smallurl/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const backend = "postgres"

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// mappingRepository is the PostgreSQL implementation of repository.MappingRepository
type mappingRepository struct {
	db DBTX
}

// NewMappingRepository creates a new PostgreSQL mapping repository
func NewMappingRepository(db DBTX) repository.MappingRepository {
	return &mappingRepository{db: db}
}

// Create inserts a new mapping with a NULL short code. Each statement runs in
// its own implicit transaction.
func (r *mappingRepository) Create(ctx context.Context, m *domain.URLMapping) (err error) {
	defer func(start time.Time) { metrics.ObserveQuery(backend, "create", start, err) }(time.Now())

	query := `
		INSERT INTO url_mappings (original_url, short_code, created_at)
		VALUES ($1, NULL, $2)
		RETURNING id
	`

	var id int64
	if err = r.db.QueryRow(ctx, query, m.OriginalURL, m.CreatedAt).Scan(&id); err != nil {
		return fmt.Errorf("failed to create mapping: %w", err)
	}

	m.ID = id
	m.ShortCode = nil
	return nil
}

// SetShortCode backfills the short code of an existing mapping
func (r *mappingRepository) SetShortCode(ctx context.Context, id int64, shortCode string) (err error) {
	defer func(start time.Time) { metrics.ObserveQuery(backend, "set_short_code", start, err) }(time.Now())

	query := `UPDATE url_mappings SET short_code = $1 WHERE id = $2`

	result, err := r.db.Exec(ctx, query, shortCode, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("short code %q: %w", shortCode, domain.ErrShortCodeTaken)
		}
		return fmt.Errorf("failed to set short code: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("mapping %d: %w", id, domain.ErrNotFound)
	}

	return nil
}

// GetByShortCode retrieves a mapping by exact short code match
func (r *mappingRepository) GetByShortCode(ctx context.Context, shortCode string) (m *domain.URLMapping, err error) {
	defer func(start time.Time) { metrics.ObserveQuery(backend, "get_by_short_code", start, err) }(time.Now())

	query := `
		SELECT id, original_url, short_code, created_at
		FROM url_mappings
		WHERE short_code = $1
	`

	m, err = scanMapping(r.db.QueryRow(ctx, query, shortCode))
	if err != nil {
		return nil, fmt.Errorf("short code %q: %w", shortCode, err)
	}

	return m, nil
}

// GetByID retrieves a mapping by primary key
func (r *mappingRepository) GetByID(ctx context.Context, id int64) (m *domain.URLMapping, err error) {
	defer func(start time.Time) { metrics.ObserveQuery(backend, "get_by_id", start, err) }(time.Now())

	query := `
		SELECT id, original_url, short_code, created_at
		FROM url_mappings
		WHERE id = $1
	`

	m, err = scanMapping(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("mapping %d: %w", id, err)
	}

	return m, nil
}

// Ping checks the connection
func (r *mappingRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanMapping(row pgx.Row) (*domain.URLMapping, error) {
	m := &domain.URLMapping{}

	// short_code is nullable; pgx scans NULL into a nil *string
	err := row.Scan(&m.ID, &m.OriginalURL, &m.ShortCode, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	return m, nil
}

// InitDB initializes the database connection pool
// This is called once at application startup
func InitDB(ctx context.Context, dsn string, maxConns, minConns int, maxLifetime time.Duration) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = int32(maxConns)
	config.MinConns = int32(minConns)
	config.MaxConnLifetime = maxLifetime
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
