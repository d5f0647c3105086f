package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ycliang/growthsim/internal/database"
	"github.com/ycliang/growthsim/internal/domain"
)

// Cache stores aligned price tables in SQLite, one msgpack blob per
// (symbols, range, adjustment) key. Entries older than the TTL are
// treated as misses and overwritten on the next fetch.
type Cache struct {
	db  *database.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates the cache and its backing table.
func NewCache(db *database.DB, ttl time.Duration, log zerolog.Logger) (*Cache, error) {
	c := &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("service", "pricecache").Logger(),
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.db.Conn().Exec(`
		CREATE TABLE IF NOT EXISTS price_snapshots (
			key        TEXT PRIMARY KEY,
			fetched_at INTEGER NOT NULL,
			payload    BLOB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create price_snapshots table: %w", err)
	}
	return nil
}

// Get returns the cached table for key, or (nil, false) when the entry
// is absent or stale. Decode failures count as misses so a schema
// change never wedges the cache.
func (c *Cache) Get(ctx context.Context, key string) (*domain.PriceTable, bool) {
	var fetchedAt int64
	var payload []byte

	err := c.db.Conn().QueryRowContext(ctx,
		"SELECT fetched_at, payload FROM price_snapshots WHERE key = ?", key,
	).Scan(&fetchedAt, &payload)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Warn().Err(err).Str("key", key).Msg("Price cache read failed")
		}
		return nil, false
	}

	if time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		return nil, false
	}

	var table domain.PriceTable
	if err := msgpack.Unmarshal(payload, &table); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable price snapshot")
		return nil, false
	}

	return &table, true
}

// Put stores the table under key, replacing any previous snapshot.
func (c *Cache) Put(ctx context.Context, key string, table *domain.PriceTable) error {
	payload, err := msgpack.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode price snapshot: %w", err)
	}

	_, err = c.db.Conn().ExecContext(ctx,
		"INSERT OR REPLACE INTO price_snapshots (key, fetched_at, payload) VALUES (?, ?, ?)",
		key, time.Now().Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to store price snapshot: %w", err)
	}

	c.log.Debug().Str("key", key).Int("rows", table.Len()).Msg("Stored price snapshot")
	return nil
}

// Purge deletes entries older than the TTL.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-c.ttl).Unix()
	res, err := c.db.Conn().ExecContext(ctx,
		"DELETE FROM price_snapshots WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge price snapshots: %w", err)
	}
	return res.RowsAffected()
}
