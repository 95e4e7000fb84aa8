package directory

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/models"
	"github.com/kass/go-store-map/pkg/storage"
)

// DefaultSnapshotInterval is how often Run persists the directory
const DefaultSnapshotInterval = 30 * time.Second

// Snapshotter periodically writes the directory back to storage so resolved
// coordinates survive restarts.
type Snapshotter struct {
	KV         storage.KV
	StorageKey string
	Interval   time.Duration
	Source     func() []*models.LocationRecord
}

// Save writes the current records once
func (s *Snapshotter) Save(ctx context.Context) error {
	if s.Source == nil {
		return nil
	}
	key := s.StorageKey
	if key == "" {
		key = DefaultStorageKey
	}

	records := s.Source()
	if err := storage.SetJSON(ctx, s.KV, key, records); err != nil {
		return eris.Wrap(err, "directory: save snapshot")
	}
	zap.L().Debug("directory: snapshot saved", zap.String("key", key), zap.Int("records", len(records)))
	return nil
}

// Run saves on every tick until ctx is done, then saves one last time.
// Failed saves are logged and retried on the next tick.
func (s *Snapshotter) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return s.Save(final)
		case <-ticker.C:
			if err := s.Save(ctx); err != nil {
				zap.L().Warn("directory: snapshot failed", zap.Error(err))
			}
		}
	}
}
