package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/hireloop/jobgeo/internal/db"
)

// Cache is a Postgres-backed address cache keyed by the hash of the
// normalized address. It persists across runs so repeated backfills of the
// same address never repeat a provider call. Misses are cached too.
type Cache struct {
	pool    db.Pool
	ttlDays int
}

// CacheOption configures the Cache.
type CacheOption func(*Cache)

// WithCacheTTLDays expires cache rows older than the given number of days.
// Zero means no expiry.
func WithCacheTTLDays(days int) CacheOption {
	return func(c *Cache) { c.ttlDays = days }
}

// NewCache creates a Cache on the given pool.
func NewCache(pool db.Pool, opts ...CacheOption) *Cache {
	c := &Cache{pool: pool}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cacheKey returns SHA-256 hex of the normalized address. NFKC folding keeps
// visually-identical Unicode spellings of the same address on one key.
func cacheKey(address string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(norm.NFKC.String(address)), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// Get looks up a cached result, respecting TTL if configured. A miss is
// (nil, error); callers treat it as "not cached" and move on.
func (c *Cache) Get(ctx context.Context, address string) (*Result, error) {
	key := cacheKey(address)

	query := `SELECT latitude, longitude, provider, raw, matched FROM geocode_cache WHERE address_hash = $1`
	if c.ttlDays > 0 {
		query += fmt.Sprintf(" AND cached_at > now() - interval '%d days'", c.ttlDays)
	}

	var r Result
	row := c.pool.QueryRow(ctx, query, key)
	if err := row.Scan(&r.Latitude, &r.Longitude, &r.Provider, &r.Raw, &r.Matched); err != nil {
		return nil, err
	}

	zap.L().Debug("geocode cache hit",
		zap.String("key", key[:12]),
		zap.Bool("matched", r.Matched),
	)
	return &r, nil
}

// Put inserts or refreshes a cached result.
func (c *Cache) Put(ctx context.Context, address string, result *Result) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, provider, raw, matched, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			provider = EXCLUDED.provider,
			raw = EXCLUDED.raw,
			matched = EXCLUDED.matched,
			cached_at = now()`,
		cacheKey(address), result.Latitude, result.Longitude, result.Provider, nilIfEmptyRaw(result.Raw), result.Matched,
	)
	if err != nil {
		return eris.Wrap(err, "geocode: store cache")
	}
	return nil
}

// nilIfEmptyRaw returns nil for empty payloads, allowing NULL storage.
func nilIfEmptyRaw(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
