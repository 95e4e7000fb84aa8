package directory

import (
	"sync"

	"github.com/samber/lo"

	"github.com/kass/go-store-map/pkg/models"
)

// Catalog holds a copy of the directory that readers on other goroutines can
// use while the sequencer is still writing coordinates into the originals.
type Catalog struct {
	mu      sync.RWMutex
	records []*models.LocationRecord
}

// NewCatalog copies records into a new catalog
func NewCatalog(records []*models.LocationRecord) *Catalog {
	return &Catalog{records: cloneAll(records)}
}

// Update replaces the entry at index i with a copy of rec
func (c *Catalog) Update(i int, rec *models.LocationRecord) {
	if rec == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if i >= 0 && i < len(c.records) {
		c.records[i] = rec.Clone()
	}
}

// Records returns a copy of every record
func (c *Catalog) Records() []*models.LocationRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.records)
}

// Resolved returns a copy of the records with coordinates
func (c *Catalog) Resolved() []*models.LocationRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(lo.Filter(c.records, func(r *models.LocationRecord, _ int) bool { return r.Resolved() }))
}

// Find returns a copy of the record with key
func (c *Catalog) Find(key string) (*models.LocationRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := lo.Find(c.records, func(r *models.LocationRecord) bool { return r.Key == key })
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Len returns the number of records
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func cloneAll(records []*models.LocationRecord) []*models.LocationRecord {
	return lo.FilterMap(records, func(r *models.LocationRecord, _ int) (*models.LocationRecord, bool) {
		if r == nil {
			return nil, false
		}
		return r.Clone(), true
	})
}
