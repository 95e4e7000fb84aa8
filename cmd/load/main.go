// Command load geocodes the store directory and loads the resolved stores
// into PostGIS. With -synthetic it loads random stores instead, for sizing
// the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/app"
	"github.com/kass/go-store-map/pkg/config"
	"github.com/kass/go-store-map/pkg/models"
	"github.com/kass/go-store-map/pkg/postgis"
)

func main() {
	var (
		configFile = flag.String("config", "", "Config file (default ./storemap.yaml)")
		dsn        = flag.String("dsn", "", "PostGIS DSN (default from config)")
		synthetic  = flag.Int("synthetic", 0, "Load this many random stores instead of the directory")
		workers    = flag.Int("w", runtime.NumCPU(), "Worker goroutines for synthetic generation")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		noIndex    = flag.Bool("no-index", false, "Skip creating the spatial index")
		// Bounds for synthetic stores (default: greater Mexico City)
		minLat = flag.Float64("min-lat", 19.0, "Minimum latitude")
		maxLat = flag.Float64("max-lat", 19.8, "Maximum latitude")
		minLng = flag.Float64("min-lng", -99.5, "Minimum longitude")
		maxLng = flag.Float64("max-lng", -98.8, "Maximum longitude")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer zap.L().Sync() //nolint:errcheck

	if *dsn == "" {
		*dsn = cfg.PostGIS.DSN
	}
	if *dsn == "" {
		zap.L().Fatal("no PostGIS DSN; set postgis.dsn or pass -dsn")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var records []*models.LocationRecord
	if *synthetic > 0 {
		zap.L().Info("generating synthetic stores", zap.Int("count", *synthetic), zap.Int("workers", *workers))
		records = generateStores(*synthetic, *minLat, *maxLat, *minLng, *maxLng, *workers, *seed)
	} else {
		records, err = resolveDirectory(ctx, cfg)
		if err != nil {
			zap.L().Fatal("resolve directory", zap.Error(err))
		}
	}

	store, err := postgis.Open(ctx, *dsn)
	if err != nil {
		zap.L().Fatal("connect", zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	if err := store.InitSchema(ctx); err != nil {
		zap.L().Fatal("init schema", zap.Error(err))
	}

	start := time.Now()
	n, err := store.UpsertRecords(ctx, records)
	if err != nil {
		zap.L().Fatal("upsert stores", zap.Error(err))
	}
	elapsed := time.Since(start)
	zap.L().Info("stores loaded",
		zap.Int("rows", n),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rows_per_sec", float64(n)/elapsed.Seconds()),
	)

	if !*noIndex {
		start = time.Now()
		if err := store.CreateSpatialIndex(ctx); err != nil {
			zap.L().Fatal("create spatial index", zap.Error(err))
		}
		zap.L().Info("spatial index ready", zap.Duration("elapsed", time.Since(start)))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		zap.L().Warn("stats", zap.Error(err))
		return
	}
	zap.L().Info("database stats",
		zap.Any("rows", stats["row_count"]),
		zap.Any("table_size", stats["table_size"]),
		zap.Any("index_size", stats["index_size"]),
		zap.Any("database_size", stats["database_size"]),
	)
}

// resolveDirectory loads and geocodes the configured directory
func resolveDirectory(ctx context.Context, cfg *config.Config) ([]*models.LocationRecord, error) {
	env, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	records := env.LoadDirectory(ctx)
	sum := env.Sequencer().ResolveAll(ctx, records, nil)
	zap.L().Info("directory geocoded",
		zap.Int("stores", len(records)),
		zap.Int("resolved", sum.Resolved),
		zap.Int("skipped", sum.Skipped),
	)
	if sum.Canceled {
		return nil, ctx.Err()
	}
	return records, nil
}

func generateStores(n int, minLat, maxLat, minLng, maxLng float64, workers int, seed int64) []*models.LocationRecord {
	if workers < 1 {
		workers = 1
	}
	records := make([]*models.LocationRecord, n)
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int, r *rand.Rand) {
			defer wg.Done()
			for i := start; i < end; i++ {
				rec := &models.LocationRecord{
					Key:     fmt.Sprintf("synthetic-%d", i),
					Title:   fmt.Sprintf("Store %d", i),
					Address: fmt.Sprintf("Synthetic address %d", i),
				}
				rec.SetPosition(minLat+r.Float64()*(maxLat-minLat), minLng+r.Float64()*(maxLng-minLng))
				records[i] = rec
			}
		}(start, end, rand.New(rand.NewSource(seed+int64(w))))
	}
	wg.Wait()

	return records
}
