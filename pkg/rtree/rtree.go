// Package rtree implements an R-Tree index over resolved store locations,
// partitioned into longitude bands so viewport queries only touch the bands
// they overlap.
package rtree

import (
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/go-store-map/pkg/models"
)

const (
	tolerance   = 0.0001
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
	earthRadius = 6371.0 // km
)

// spatialRecord wraps a record to implement rtreego.Spatial
type spatialRecord struct {
	rec   *models.LocationRecord
	order int
	rect  *rtreego.Rect
}

func (sr *spatialRecord) Bounds() *rtreego.Rect {
	return sr.rect
}

// MarkerIndex is a thread-safe R-Tree index of store records
type MarkerIndex struct {
	partitions      []*rtreego.Rtree
	partitionBounds []models.BoundingBox
	numPartitions   int
	mu              sync.RWMutex
	itemCount       atomic.Int64
}

// NewMarkerIndex creates an index with one partition per CPU
func NewMarkerIndex() *MarkerIndex {
	return NewMarkerIndexWithPartitions(runtime.NumCPU())
}

// NewMarkerIndexWithPartitions creates an index with the given partition count
func NewMarkerIndexWithPartitions(numPartitions int) *MarkerIndex {
	if numPartitions <= 0 {
		numPartitions = runtime.NumCPU()
	}

	g := &MarkerIndex{
		partitions:      make([]*rtreego.Rtree, numPartitions),
		partitionBounds: make([]models.BoundingBox, numPartitions),
		numPartitions:   numPartitions,
	}

	// Longitude bands
	lngRange := 360.0 / float64(numPartitions)
	for i := 0; i < numPartitions; i++ {
		g.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)

		minLng := -180.0 + float64(i)*lngRange
		maxLng := minLng + lngRange
		if i == numPartitions-1 {
			maxLng = 180.0
		}

		g.partitionBounds[i] = models.BoundingBox{
			BottomLeft: models.Location{Lat: -90, Lng: minLng},
			TopRight:   models.Location{Lat: 90, Lng: maxLng},
		}
	}

	return g
}

// IndexRecords replaces the index contents with the resolved records.
// Unresolved records are ignored. Query results keep the input order.
func (g *MarkerIndex) IndexRecords(records []*models.LocationRecord) int {
	grouped := make([][]*spatialRecord, g.numPartitions)

	for i, rec := range records {
		pos, ok := rec.Position()
		if !ok {
			continue
		}
		rect := rtreego.Point{pos.Lat, pos.Lng}.ToRect(tolerance)
		idx := g.partitionFor(pos.Lng)
		grouped[idx] = append(grouped[idx], &spatialRecord{rec: rec, order: i, rect: rect})
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var wg sync.WaitGroup
	var total atomic.Int64
	for i := 0; i < g.numPartitions; i++ {
		g.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)
		if len(grouped[i]) == 0 {
			continue
		}

		wg.Add(1)
		go func(idx int, items []*spatialRecord) {
			defer wg.Done()
			for _, item := range items {
				g.partitions[idx].Insert(item)
			}
			total.Add(int64(len(items)))
		}(i, grouped[i])
	}
	wg.Wait()

	g.itemCount.Store(total.Load())
	return int(total.Load())
}

// QueryBox returns records inside box, edges included
func (g *MarkerIndex) QueryBox(box models.BoundingBox) []*models.LocationRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return collect(g.searchBox(box, func(loc models.Location) bool {
		return loc.Lat >= box.BottomLeft.Lat && loc.Lat <= box.TopRight.Lat &&
			loc.Lng >= box.BottomLeft.Lng && loc.Lng <= box.TopRight.Lng
	}))
}

// QueryViewport returns records strictly inside the viewport, using the same
// containment rule as the map reconciler
func (g *MarkerIndex) QueryViewport(bounds models.ViewportBounds) []*models.LocationRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var hits []*spatialRecord
	for _, box := range bounds.Boxes() {
		hits = append(hits, g.searchBox(box, func(loc models.Location) bool {
			return bounds.Contains(loc.Lat, loc.Lng)
		})...)
	}
	return collect(hits)
}

// searchBox searches the relevant partitions in parallel and keeps the hits
// that pass keep. Callers hold the read lock.
func (g *MarkerIndex) searchBox(box models.BoundingBox, keep func(models.Location) bool) []*spatialRecord {
	width := box.TopRight.Lat - box.BottomLeft.Lat
	height := box.TopRight.Lng - box.BottomLeft.Lng
	if width < 0 || height < 0 {
		return nil
	}
	// rtreego rejects zero-length sides
	width = math.Max(width, tolerance)
	height = math.Max(height, tolerance)

	rect, err := rtreego.NewRect(rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lng}, []float64{width, height})
	if err != nil {
		return nil
	}

	relevant := g.relevantPartitions(box)
	resultsChan := make(chan []*spatialRecord, len(relevant))

	for _, idx := range relevant {
		go func(idx int) {
			var hits []*spatialRecord
			for _, result := range g.partitions[idx].SearchIntersect(rect) {
				item, ok := result.(*spatialRecord)
				if !ok {
					continue
				}
				pos, ok := item.rec.Position()
				if ok && keep(pos) {
					hits = append(hits, item)
				}
			}
			resultsChan <- hits
		}(idx)
	}

	var all []*spatialRecord
	for range relevant {
		all = append(all, <-resultsChan...)
	}
	return all
}

// NearestNeighbors returns the n records closest to center by haversine distance
func (g *MarkerIndex) NearestNeighbors(center models.Location, n int) []*models.LocationRecord {
	if n <= 0 {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	type nearestResult struct {
		rec      *models.LocationRecord
		distance float64
	}

	resultsChan := make(chan []nearestResult, g.numPartitions)
	for i := 0; i < g.numPartitions; i++ {
		go func(idx int) {
			results := g.partitions[idx].NearestNeighbors(n, rtreego.Point{center.Lat, center.Lng})

			out := make([]nearestResult, 0, len(results))
			for _, result := range results {
				sr, ok := result.(*spatialRecord)
				if !ok || sr == nil {
					continue
				}
				pos, _ := sr.rec.Position()
				out = append(out, nearestResult{
					rec:      sr.rec,
					distance: Distance(center.Lat, center.Lng, pos.Lat, pos.Lng),
				})
			}
			resultsChan <- out
		}(i)
	}

	var all []nearestResult
	for i := 0; i < g.numPartitions; i++ {
		all = append(all, <-resultsChan...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].distance < all[j].distance })
	if len(all) > n {
		all = all[:n]
	}

	out := make([]*models.LocationRecord, len(all))
	for i, r := range all {
		out[i] = r.rec
	}
	return out
}

// Count returns the number of indexed records
func (g *MarkerIndex) Count() int64 {
	return g.itemCount.Load()
}

// Clear removes all records from the index
func (g *MarkerIndex) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := 0; i < g.numPartitions; i++ {
		g.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)
	}
	g.itemCount.Store(0)
}

func (g *MarkerIndex) partitionFor(lng float64) int {
	idx := int((lng + 180.0) / (360.0 / float64(g.numPartitions)))
	if idx >= g.numPartitions {
		idx = g.numPartitions - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// relevantPartitions returns the partitions whose band overlaps box
func (g *MarkerIndex) relevantPartitions(box models.BoundingBox) []int {
	var relevant []int
	for i, bounds := range g.partitionBounds {
		if box.BottomLeft.Lng <= bounds.TopRight.Lng &&
			box.TopRight.Lng >= bounds.BottomLeft.Lng {
			relevant = append(relevant, i)
		}
	}
	return relevant
}

// collect de-duplicates hits and restores input order
func collect(hits []*spatialRecord) []*models.LocationRecord {
	sort.Slice(hits, func(i, j int) bool { return hits[i].order < hits[j].order })

	out := make([]*models.LocationRecord, 0, len(hits))
	last := -1
	for _, h := range hits {
		if h.order == last {
			continue
		}
		last = h.order
		out = append(out, h.rec)
	}
	return out
}

// Distance calculates the Haversine distance between two points in kilometers
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lng1Rad := lng1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lng2Rad := lng2 * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLng := lng2Rad - lng1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
