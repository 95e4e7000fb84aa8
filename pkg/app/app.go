// Package app wires configuration into the storage, geocoding, directory
// and favorites components shared by the storemap commands.
package app

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/config"
	"github.com/kass/go-store-map/pkg/directory"
	"github.com/kass/go-store-map/pkg/favorites"
	"github.com/kass/go-store-map/pkg/geocode"
	"github.com/kass/go-store-map/pkg/mapview"
	"github.com/kass/go-store-map/pkg/models"
	"github.com/kass/go-store-map/pkg/storage"
)

// Env holds the initialized components. Callers should defer Close.
type Env struct {
	Config    *config.Config
	KV        storage.KV
	Favorites *favorites.Set
	Provider  geocode.Provider
}

// New opens storage, loads the favorites list and builds the geocoding
// provider described by cfg.
func New(ctx context.Context, cfg *config.Config) (*Env, error) {
	kv, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, eris.Wrap(err, "app: open storage")
	}

	favs, err := favorites.Open(ctx, kv, cfg.Favorites.StorageKey)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	env := &Env{
		Config:    cfg,
		KV:        kv,
		Favorites: favs,
		Provider:  NewProvider(cfg.Geocode, kv),
	}

	zap.L().Debug("app: environment ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.Int("favorites", favs.Len()),
	)
	return env, nil
}

// NewProvider builds the Google provider, wrapped in the storage cache when
// enabled.
func NewProvider(cfg config.GeocodeConfig, kv storage.KV) geocode.Provider {
	opts := []geocode.GoogleOption{
		geocode.WithAPIKey(cfg.APIKey),
		geocode.WithBaseURL(cfg.BaseURL),
		geocode.WithRateLimit(cfg.RateLimitRPS),
	}
	if cfg.TimeoutSecs > 0 {
		opts = append(opts, geocode.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}))
	}

	var p geocode.Provider = geocode.NewGoogleProvider(opts...)
	if cfg.Cache && kv != nil {
		p = geocode.NewCachingProvider(p, kv)
	}
	return p
}

// Sequencer returns a sequencer over the configured provider
func (e *Env) Sequencer() *geocode.Sequencer {
	return geocode.NewSequencer(e.Provider,
		geocode.WithBackoff(e.Config.Geocode.Backoff()),
		geocode.WithMaxRetries(e.Config.Geocode.MaxRetries),
	)
}

// LoadDirectory loads the store directory, marks stores that are already
// favorites with the active icon and makes every pin click add its store to
// the favorites.
func (e *Env) LoadDirectory(ctx context.Context) []*models.LocationRecord {
	loader := &directory.Loader{
		Source:     e.Config.Directory.Source,
		KV:         e.KV,
		StorageKey: e.Config.Directory.StorageKey,
		Icon:       e.Config.Directory.Icon,
	}
	records := loader.Load(ctx)

	e.Favorites.MarkActive(records, e.Config.Directory.ActiveIcon)

	click := e.Favorites.ClickHandler(e.Config.Directory.ActiveIcon)
	for _, rec := range records {
		rec.Callback = click
	}
	return records
}

// Snapshotter persists source under the directory storage key
func (e *Env) Snapshotter(source func() []*models.LocationRecord) *directory.Snapshotter {
	return &directory.Snapshotter{
		KV:         e.KV,
		StorageKey: e.Config.Directory.StorageKey,
		Interval:   e.Config.Directory.SnapshotInterval(),
		Source:     source,
	}
}

// MapOptions returns the initial map view
func (e *Env) MapOptions() mapview.MapOptions {
	m := e.Config.Map
	return mapview.MapOptions{
		Center: models.Location{Lat: m.CenterLat, Lng: m.CenterLng},
		Zoom:   m.Zoom,
		Styles: mapview.BuildStyles(mapview.Colors(m.Colors)),
	}
}

// Close releases storage
func (e *Env) Close() error {
	if e.KV == nil {
		return nil
	}
	return e.KV.Close()
}
