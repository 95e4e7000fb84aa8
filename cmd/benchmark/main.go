// Command benchmark compares viewport filtering strategies over random
// stores: the linear containment scan the map reconciler performs against
// the partitioned R-Tree index.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kass/go-store-map/pkg/models"
	"github.com/kass/go-store-map/pkg/rtree"
)

type BenchmarkResult struct {
	Strategy      string
	TotalQueries  int
	TotalDuration time.Duration
	AvgDuration   time.Duration
	P50Duration   time.Duration
	P99Duration   time.Duration
	QueriesPerSec float64
	TotalResults  int64
	AvgResults    float64
}

type strategy struct {
	name  string
	query func(models.ViewportBounds) int
}

func main() {
	var (
		numStores  = flag.Int("stores", 100000, "Number of random stores")
		numQueries = flag.Int("n", 1000, "Number of viewports to query")
		workers    = flag.Int("w", runtime.NumCPU(), "Number of concurrent workers")
		span       = flag.Float64("span", 2.0, "Viewport width and height in degrees")
		wrapShare  = flag.Float64("wrap", 0.1, "Share of viewports crossing the antimeridian")
		k          = flag.Int("k", 10, "Nearest neighbors per query for the nearest strategy")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	flag.Parse()

	r := rand.New(rand.NewSource(*seed))

	log.Printf("Generating %d stores...\n", *numStores)
	records := make([]*models.LocationRecord, *numStores)
	for i := range records {
		rec := &models.LocationRecord{Key: fmt.Sprintf("store_%d", i)}
		rec.SetPosition(-80+r.Float64()*160, -180+r.Float64()*360)
		records[i] = rec
	}

	log.Println("Building R-Tree index...")
	start := time.Now()
	index := rtree.NewMarkerIndex()
	index.IndexRecords(records)
	log.Printf("Index built in %v (%d stores)\n", time.Since(start), index.Count())

	viewports := make([]models.ViewportBounds, *numQueries)
	for i := range viewports {
		viewports[i] = randomViewport(r, *span, r.Float64() < *wrapShare)
	}

	strategies := []strategy{
		{name: "linear", query: func(b models.ViewportBounds) int {
			n := 0
			for _, rec := range records {
				if pos, ok := rec.Position(); ok && b.Contains(pos.Lat, pos.Lng) {
					n++
				}
			}
			return n
		}},
		{name: "rtree", query: func(b models.ViewportBounds) int {
			return len(index.QueryViewport(b))
		}},
		{name: "nearest", query: func(b models.ViewportBounds) int {
			center := models.Location{
				Lat: (b.NorthEastLat + b.SouthWestLat) / 2,
				Lng: b.SouthWestLng,
			}
			return len(index.NearestNeighbors(center, *k))
		}},
	}

	var results []BenchmarkResult
	for _, s := range strategies {
		log.Printf("Running %d %s queries with %d workers...\n", *numQueries, s.name, *workers)
		results = append(results, run(s, viewports, *workers))
	}

	fmt.Println("\n=== Benchmark Results ===")
	fmt.Printf("Stores: %d  Viewports: %d  Workers: %d  CPU Cores: %d\n\n",
		*numStores, *numQueries, *workers, runtime.NumCPU())
	fmt.Printf("%-8s %12s %12s %12s %12s %12s\n", "STRATEGY", "AVG", "P50", "P99", "QPS", "AVG HITS")
	for _, res := range results {
		fmt.Printf("%-8s %12v %12v %12v %12.0f %12.2f\n",
			res.Strategy, res.AvgDuration, res.P50Duration, res.P99Duration, res.QueriesPerSec, res.AvgResults)
	}
}

// randomViewport returns a span x span viewport, optionally straddling the
// antimeridian
func randomViewport(r *rand.Rand, span float64, wrap bool) models.ViewportBounds {
	swLat := -80 + r.Float64()*(160-span)
	swLng := -180 + r.Float64()*(360-span)
	if wrap {
		swLng = 180 - r.Float64()*span
	}
	neLng := swLng + span
	if neLng > 180 {
		neLng -= 360
	}
	return models.ViewportBounds{
		NorthEastLat: swLat + span,
		NorthEastLng: neLng,
		SouthWestLat: swLat,
		SouthWestLng: swLng,
	}
}

func run(s strategy, viewports []models.ViewportBounds, workers int) BenchmarkResult {
	var (
		totalResults int64
		durations    = make([]time.Duration, len(viewports))
	)

	startTime := time.Now()

	queryCh := make(chan int, len(viewports))
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range queryCh {
				queryStart := time.Now()
				n := s.query(viewports[i])
				durations[i] = time.Since(queryStart)
				atomic.AddInt64(&totalResults, int64(n))
			}
		}()
	}

	for i := range viewports {
		queryCh <- i
	}
	close(queryCh)
	wg.Wait()

	totalDuration := time.Since(startTime)
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	res := BenchmarkResult{
		Strategy:      s.name,
		TotalQueries:  len(viewports),
		TotalDuration: totalDuration,
		QueriesPerSec: float64(len(viewports)) / totalDuration.Seconds(),
		TotalResults:  totalResults,
	}
	if len(durations) > 0 {
		res.AvgDuration = sum / time.Duration(len(durations))
		res.P50Duration = durations[len(durations)/2]
		res.P99Duration = durations[len(durations)*99/100]
		res.AvgResults = float64(totalResults) / float64(len(durations))
	}
	return res
}
