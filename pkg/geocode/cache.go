package geocode

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	addr_hash  TEXT PRIMARY KEY,
	address    TEXT NOT NULL,
	match_type TEXT NOT NULL,
	source     TEXT NOT NULL,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL
);`

// Cache stores successful geocode results in a local SQLite database so
// repeated lookups of the same address skip the network.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache")
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "geocode: create cache schema")
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// cacheKey normalizes the address and hashes it so formatting differences
// collapse to one entry.
func cacheKey(addr Address) string {
	norm := strings.ToLower(strings.Join(strings.Fields(oneLine(addr)), " "))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for addr, if present.
func (c *Cache) Get(ctx context.Context, addr Address) (*Result, bool) {
	row := c.db.QueryRowContext(ctx,
		`SELECT address, match_type, source, latitude, longitude
		 FROM geocode_cache WHERE addr_hash = ?`, cacheKey(addr))

	r := Result{Matched: true}
	err := row.Scan(&r.Address, &r.MatchType, &r.Source, &r.Latitude, &r.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	return &r, true
}

// Put stores a matched result. Unmatched results are not cached so a later
// run can retry them.
func (c *Cache) Put(ctx context.Context, addr Address, r *Result) error {
	if r == nil || !r.Matched {
		return nil
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO geocode_cache
		 (addr_hash, address, match_type, source, latitude, longitude)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cacheKey(addr), r.Address, r.MatchType, r.Source, r.Latitude, r.Longitude)
	if err != nil {
		return eris.Wrap(err, "geocode: cache put")
	}
	return nil
}
