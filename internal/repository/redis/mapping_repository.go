// Package redis stores URL mappings in Redis. It is meant for deployments
// that run Redis with persistence (AOF or RDB) enabled; it is a store, not a
// cache, and keys never expire.
//
// Layout:
//
//	{smallurl}:mapping:seq          INCR counter handing out ids
//	{smallurl}:mapping:<id>         hash with original_url, created_at, short_code
//	{smallurl}:code:<short_code>    string holding the owning id
//
// Every key shares the {smallurl} hash tag and every key a script touches is
// passed in KEYS, so the store also runs on Redis Cluster (all keys land in
// one slot).
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"smallurl/internal/domain"
	"smallurl/internal/metrics"
	"smallurl/internal/repository"

	"github.com/redis/go-redis/v9"
)

const backend = "redis"

const (
	keyPrefix = "{smallurl}:"
	seqKey    = keyPrefix + "mapping:seq"
)

// maxSetCodeAttempts bounds retries when the record's code changes between
// the read and the scripted write.
const maxSetCodeAttempts = 3

func mappingKey(id int64) string {
	return fmt.Sprintf("%smapping:%d", keyPrefix, id)
}

func codeKey(shortCode string) string {
	return keyPrefix + "code:" + shortCode
}

// setCodeScript backfills a short code as a compare-and-set on the record's
// current code (ARGV[3], "" for none).
//
//	KEYS[1] record, KEYS[2] new code index, KEYS[3] current code index
//	ARGV[1] new code, ARGV[2] id, ARGV[3] expected current code
//
// Returns 1 on success, 0 when the mapping does not exist, -1 when another
// mapping owns the code and -2 when the current code no longer matches.
var setCodeScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return 0
	end
	local current = redis.call('HGET', KEYS[1], 'short_code') or ''
	if current ~= ARGV[3] then
		return -2
	end
	local owner = redis.call('GET', KEYS[2])
	if owner and owner ~= ARGV[2] then
		return -1
	end
	if current ~= '' and current ~= ARGV[1] then
		redis.call('DEL', KEYS[3])
	end
	redis.call('SET', KEYS[2], ARGV[2])
	redis.call('HSET', KEYS[1], 'short_code', ARGV[1])
	return 1
`)

type mappingRepository struct {
	client *redis.Client
}

// NewMappingRepository creates a Redis-backed mapping repository
func NewMappingRepository(client *redis.Client) repository.MappingRepository {
	return &mappingRepository{client: client}
}

func (r *mappingRepository) Create(ctx context.Context, m *domain.URLMapping) (err error) {
	defer func(start time.Time) { metrics.ObserveQuery(backend, "create", start, err) }(time.Now())

	// An id burned by a failed HSET is never handed out again; GetByID
	// reports it as not found.
	id, err := r.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate id: %w", err)
	}

	err = r.client.HSet(ctx, mappingKey(id),
		"original_url", m.OriginalURL,
		"created_at", m.CreatedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to create mapping: %w", err)
	}

	m.ID = id
	m.ShortCode = nil
	return nil
}

func (r *mappingRepository) SetShortCode(ctx context.Context, id int64, shortCode string) (err error) {
	defer func(start time.Time) { metrics.ObserveQuery(backend, "set_short_code", start, err) }(time.Now())

	key := mappingKey(id)

	for attempt := 0; attempt < maxSetCodeAttempts; attempt++ {
		current, err := r.client.HGet(ctx, key, "short_code").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis hget error: %w", err)
		}

		currentKey := codeKey(shortCode)
		if current != "" {
			currentKey = codeKey(current)
		}

		res, err := setCodeScript.Run(ctx, r.client,
			[]string{key, codeKey(shortCode), currentKey},
			shortCode,
			strconv.FormatInt(id, 10),
			current,
		).Int64()
		if err != nil {
			return fmt.Errorf("failed to set short code: %w", err)
		}

		switch res {
		case 1:
			return nil
		case 0:
			return fmt.Errorf("mapping %d: %w", id, domain.ErrNotFound)
		case -1:
			return fmt.Errorf("short code %q: %w", shortCode, domain.ErrShortCodeTaken)
		}
	}

	return fmt.Errorf("mapping %d: short code changed concurrently", id)
}

func (r *mappingRepository) GetByShortCode(ctx context.Context, shortCode string) (m *domain.URLMapping, err error) {
	defer func(start time.Time) { metrics.ObserveQuery(backend, "get_by_short_code", start, err) }(time.Now())

	id, err := r.client.Get(ctx, codeKey(shortCode)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("short code %q: %w", shortCode, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	m, err = r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	// The index and the record must agree; anything else is treated as absent.
	if m.Code() != shortCode {
		return nil, fmt.Errorf("short code %q: %w", shortCode, domain.ErrNotFound)
	}

	return m, nil
}

func (r *mappingRepository) GetByID(ctx context.Context, id int64) (m *domain.URLMapping, err error) {
	defer func(start time.Time) { metrics.ObserveQuery(backend, "get_by_id", start, err) }(time.Now())

	return r.load(ctx, id)
}

func (r *mappingRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *mappingRepository) load(ctx context.Context, id int64) (*domain.URLMapping, error) {
	fields, err := r.client.HGetAll(ctx, mappingKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall error: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("mapping %d: %w", id, domain.ErrNotFound)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("mapping %d has malformed created_at: %w", id, err)
	}

	m := &domain.URLMapping{
		ID:          id,
		OriginalURL: fields["original_url"],
		CreatedAt:   createdAt,
	}
	if code, ok := fields["short_code"]; ok && code != "" {
		m.WithShortCode(code)
	}

	return m, nil
}

// InitRedis creates a new Redis client and checks the connection
func InitRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
