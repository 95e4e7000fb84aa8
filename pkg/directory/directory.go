// Package directory loads the store directory and keeps a persisted
// snapshot of it, resolved coordinates included, so later runs skip
// geocoding.
package directory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/models"
	"github.com/kass/go-store-map/pkg/storage"
)

const (
	// DefaultStorageKey is where the directory snapshot is kept
	DefaultStorageKey = "stores"
	// DefaultSource is the directory file read on first run
	DefaultSource = "store_directory.json"
)

// Parse maps a JSON array of directory entries to records. Name becomes the
// key, title and content; Address is geocoded later.
func Parse(data []byte, icon string) ([]*models.LocationRecord, error) {
	var entries []models.DirectoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "directory: decode")
	}

	records := make([]*models.LocationRecord, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		address := strings.TrimSpace(e.Address)
		if name == "" && address == "" {
			continue
		}
		records = append(records, &models.LocationRecord{
			Key:     name,
			Title:   name,
			Content: name,
			Address: address,
			Icon:    icon,
		})
	}
	return records, nil
}

// Loader reads the directory, preferring the snapshot in storage
type Loader struct {
	// Source is a file path or an http(s) URL
	Source     string
	KV         storage.KV
	StorageKey string
	Icon       string
	Client     *http.Client
}

// Load returns the stored snapshot when there is one. Otherwise it reads
// Source, stores the result and returns it. Missing or malformed data yields
// an empty directory; failures are logged, never returned.
func (l *Loader) Load(ctx context.Context) []*models.LocationRecord {
	log := zap.L().With(zap.String("source", l.Source))
	key := l.storageKey()

	if l.KV != nil {
		var stored []*models.LocationRecord
		found, err := storage.GetJSON(ctx, l.KV, key, &stored)
		if err != nil {
			log.Warn("directory: ignoring stored snapshot", zap.Error(err))
		} else if found && len(stored) > 0 {
			log.Debug("directory: loaded from storage", zap.Int("records", len(stored)))
			return compact(stored)
		}
	}

	data, err := l.fetch(ctx)
	if err != nil {
		log.Warn("directory: source unavailable", zap.Error(err))
		return []*models.LocationRecord{}
	}

	records, err := Parse(data, l.Icon)
	if err != nil {
		log.Warn("directory: malformed source", zap.Error(err))
		return []*models.LocationRecord{}
	}

	if l.KV != nil {
		if err := storage.SetJSON(ctx, l.KV, key, records); err != nil {
			log.Warn("directory: could not store snapshot", zap.Error(err))
		}
	}

	log.Info("directory: loaded", zap.Int("records", len(records)))
	return records
}

func (l *Loader) storageKey() string {
	if l.StorageKey == "" {
		return DefaultStorageKey
	}
	return l.StorageKey
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	src := l.Source
	if src == "" {
		src = DefaultSource
	}

	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		data, err := os.ReadFile(src)
		return data, eris.Wrapf(err, "directory: read %s", src)
	}

	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, eris.Wrap(err, "directory: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "directory: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("directory: fetch %s: status %d", src, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	return data, eris.Wrap(err, "directory: read body")
}

func compact(records []*models.LocationRecord) []*models.LocationRecord {
	out := records[:0]
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
