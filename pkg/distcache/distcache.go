// Package distcache provides a process-wide, persistent cache for
// DistanceOracle results, keyed by (ordered coordinate list, profile).
package distcache

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/singleflight"

	"tourweave/pkg/db"
)

// Cache caches distance-matrix query results in sqlite.
//
// A first-caller-populates contract is enforced with singleflight: concurrent
// requests for the same (coords, profile) key collapse into a single
// in-flight database round trip, never a duplicate provider call.
type Cache struct {
	db    *db.DB
	group singleflight.Group
}

// Entry is the cached payload for one (coords, profile) key.
type Entry struct {
	SelectedProvider string      `json:"selected_provider"`
	Matrix           [][]float64 `json:"matrix"`
	StartToEach      []float64   `json:"start_to_each,omitempty"`
}

// New wraps an already-initialized database handle.
func New(d *db.DB) *Cache {
	return &Cache{db: d}
}

// Key derives a stable cache key for a coordinate list and travel profile.
// The coordinates are hashed in the order given, because a cached matrix is
// indexed by that order; the same set in a different order is a different
// entry.
func Key(coords [][2]float64, profile string) string {
	h := sha256.New()
	for _, c := range coords {
		fmt.Fprintf(h, "%.6f,%.6f;", c[0], c[1])
	}
	fmt.Fprintf(h, "|%s", profile)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached entry for a key, if present.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool) {
	var matrixJSON, startJSON []byte
	var provider string

	row := c.db.QueryRowContext(ctx,
		`SELECT selected_provider, matrix_json, start_to_each_json FROM distance_matrix WHERE cache_key = ?`, key)
	if err := row.Scan(&provider, &matrixJSON, &startJSON); err != nil {
		return Entry{}, false
	}

	var e Entry
	e.SelectedProvider = provider
	if err := json.Unmarshal(matrixJSON, &e.Matrix); err != nil {
		return Entry{}, false
	}
	if len(startJSON) > 0 {
		_ = json.Unmarshal(startJSON, &e.StartToEach)
	}
	return e, true
}

// Set stores an entry under a key, overwriting any prior value.
func (c *Cache) Set(ctx context.Context, key, profile string, n int, e Entry) error {
	matrixJSON, err := json.Marshal(e.Matrix)
	if err != nil {
		return fmt.Errorf("marshal matrix: %w", err)
	}
	var startJSON []byte
	if e.StartToEach != nil {
		startJSON, err = json.Marshal(e.StartToEach)
		if err != nil {
			return fmt.Errorf("marshal start_to_each: %w", err)
		}
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO distance_matrix (cache_key, profile, n, selected_provider, matrix_json, start_to_each_json)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			profile=excluded.profile, n=excluded.n, selected_provider=excluded.selected_provider,
			matrix_json=excluded.matrix_json, start_to_each_json=excluded.start_to_each_json`,
		key, profile, n, e.SelectedProvider, matrixJSON, startJSON)
	if err != nil {
		return fmt.Errorf("store distance matrix: %w", err)
	}
	return nil
}

// GetOrCompute returns the cached entry for (key), or invokes compute exactly
// once among concurrent callers sharing the same key, caching its result.
func (c *Cache) GetOrCompute(ctx context.Context, key, profile string, n int, compute func() (Entry, error)) (Entry, error) {
	if e, hit := c.Get(ctx, key); hit {
		return e, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check: another goroutine may have populated the cache while we
		// queued for the singleflight group.
		if e, hit := c.Get(ctx, key); hit {
			return e, nil
		}
		e, err := compute()
		if err != nil {
			return Entry{}, err
		}
		if err := c.Set(ctx, key, profile, n, e); err != nil {
			return Entry{}, err
		}
		return e, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

// GetCache implements request.Cacher for raw provider response bytes,
// reusing the same sqlite-backed store as the matrix cache but keyed
// independently (the "cache" table concept is folded into distance_matrix's
// key space via a "raw:" prefix so a single db file serves both).
func (c *Cache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	e, hit := c.Get(ctx, "raw:"+key)
	if !hit {
		return nil, false
	}
	val, err := base64.StdEncoding.DecodeString(e.SelectedProvider)
	if err != nil {
		return nil, false
	}
	return val, true
}

// SetCache implements request.Cacher.
func (c *Cache) SetCache(ctx context.Context, key string, val []byte) error {
	encoded := base64.StdEncoding.EncodeToString(val)
	return c.Set(ctx, "raw:"+key, "raw", 0, Entry{SelectedProvider: encoded, Matrix: [][]float64{{0}}})
}
