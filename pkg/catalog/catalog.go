// Package catalog defines the POI catalog provider interface the
// Orchestrator consumes (spec.md §6 treats the catalog as an external
// collaborator: persistence, if any, is opaque) plus an in-memory
// implementation suitable as the default factory and for tests.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tourweave/pkg/geo"
	"tourweave/pkg/model"
)

// Filter narrows ListAllActive by the optional predicates spec.md §6 names.
// A nil/zero field means "no constraint on this dimension".
type Filter struct {
	Districts     []string
	Categories    []string
	MinRating     float64
	MaxPriceLevel float64
}

// Provider is the POI catalog contract the Orchestrator depends on. Real
// implementations may be backed by a database or a third-party place API;
// this package only commits to the interface and an in-memory reference
// implementation.
type Provider interface {
	ListAllActive(ctx context.Context) ([]model.POI, error)
	GetByID(ctx context.Context, id int) (model.POI, bool, error)
	Filter(ctx context.Context, f Filter) ([]model.POI, error)
	CountNear(ctx context.Context, lat, lon, km float64) (int, error)
	SearchByName(ctx context.Context, prefix string) ([]model.POI, error)
}

// MemoryCatalog is an in-memory Provider, guarded by an RWMutex so reads can
// proceed concurrently with the rare catalog refresh.
type MemoryCatalog struct {
	mu   sync.RWMutex
	pois map[int]model.POI
}

// NewMemoryCatalog builds a catalog seeded with the given POIs.
func NewMemoryCatalog(pois []model.POI) *MemoryCatalog {
	c := &MemoryCatalog{pois: make(map[int]model.POI, len(pois))}
	for _, p := range pois {
		c.pois[p.ID] = p
	}
	return c
}

// Upsert adds or replaces one POI.
func (c *MemoryCatalog) Upsert(p model.POI) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pois[p.ID] = p
}

// Remove deletes a POI by id, if present.
func (c *MemoryCatalog) Remove(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pois, id)
}

// ListAllActive returns every tracked POI, sorted by id for deterministic
// ordering across calls.
func (c *MemoryCatalog) ListAllActive(ctx context.Context) ([]model.POI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.POI, 0, len(c.pois))
	for _, p := range c.pois {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByID returns one POI by id.
func (c *MemoryCatalog) GetByID(ctx context.Context, id int) (model.POI, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pois[id]
	return p, ok, nil
}

// Filter returns POIs matching every non-zero predicate in f.
func (c *MemoryCatalog) Filter(ctx context.Context, f Filter) ([]model.POI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.POI
	for _, p := range c.pois {
		if len(f.Districts) > 0 && !containsFold(f.Districts, p.District) {
			continue
		}
		if len(f.Categories) > 0 && !containsFold(f.Categories, p.Category) {
			continue
		}
		if f.MinRating > 0 && p.Rating < f.MinRating {
			continue
		}
		if f.MaxPriceLevel > 0 && p.Price > f.MaxPriceLevel {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountNear counts POIs within km kilometers of (lat, lon).
func (c *MemoryCatalog) CountNear(ctx context.Context, lat, lon, km float64) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	origin := geo.Point{Lat: lat, Lon: lon}
	limitMeters := km * 1000
	count := 0
	for _, p := range c.pois {
		if geo.Distance(origin, geo.Point{Lat: p.Lat, Lon: p.Lon}) <= limitMeters {
			count++
		}
	}
	return count, nil
}

// SearchByName returns POIs whose display name starts with prefix
// (case-insensitive).
func (c *MemoryCatalog) SearchByName(ctx context.Context, prefix string) ([]model.POI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(prefix)
	var out []model.POI
	for _, p := range c.pois {
		if strings.HasPrefix(strings.ToLower(p.DisplayName), needle) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
