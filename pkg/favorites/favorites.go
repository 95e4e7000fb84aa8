// Package favorites keeps the user's favorite stores. The list is ordered,
// keyed by record key and written back to storage in full on every change.
package favorites

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/models"
	"github.com/kass/go-store-map/pkg/storage"
)

// DefaultKey is the storage key the list is saved under
const DefaultKey = "favorite_stores"

// ErrIndexOutOfRange is returned by Remove for an index outside the list
var ErrIndexOutOfRange = eris.New("favorites: index out of range")

// Set is the persisted favorites list. It is safe for concurrent use.
//
// Two records with the same key are the same favorite, even when they come
// from different directory entries.
type Set struct {
	mu    sync.Mutex
	kv    storage.KV
	key   string
	items []*models.LocationRecord
}

// Open loads the list stored under key. A missing or malformed value starts
// an empty list.
func Open(ctx context.Context, kv storage.KV, key string) (*Set, error) {
	if key == "" {
		key = DefaultKey
	}
	s := &Set{kv: kv, key: key, items: []*models.LocationRecord{}}

	var stored []*models.LocationRecord
	found, err := storage.GetJSON(ctx, kv, key, &stored)
	switch {
	case err != nil && found:
		zap.L().Warn("favorites: discarding malformed list", zap.String("key", key), zap.Error(err))
	case err != nil:
		return nil, eris.Wrap(err, "favorites: load")
	case found:
		s.items = lo.Filter(stored, func(r *models.LocationRecord, _ int) bool { return r != nil })
	}

	return s, nil
}

// Add appends rec unless a favorite with the same key exists. It reports
// whether the list changed.
func (s *Set) Add(ctx context.Context, rec *models.LocationRecord) (bool, error) {
	if rec == nil {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(rec.Key) >= 0 {
		return false, nil
	}

	fav := rec.Clone()
	fav.Callback = nil
	fav.Open = false

	prev := s.items
	s.items = append(append([]*models.LocationRecord{}, prev...), fav)
	if err := s.flush(ctx); err != nil {
		s.items = prev
		return false, err
	}
	return true, nil
}

// Remove deletes the favorite at index i
func (s *Set) Remove(ctx context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.items) {
		return eris.Wrapf(ErrIndexOutOfRange, "favorites: remove %d of %d", i, len(s.items))
	}

	prev := s.items
	s.items = append(append([]*models.LocationRecord{}, prev[:i]...), prev[i+1:]...)
	if err := s.flush(ctx); err != nil {
		s.items = prev
		return err
	}
	return nil
}

// Clear empties the list
func (s *Set) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.items
	s.items = []*models.LocationRecord{}
	if err := s.flush(ctx); err != nil {
		s.items = prev
		return err
	}
	return nil
}

// List returns a copy of the favorites in order
func (s *Set) List() []*models.LocationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.Map(s.items, func(r *models.LocationRecord, _ int) *models.LocationRecord {
		return r.Clone()
	})
}

// Contains reports whether a favorite with key exists
func (s *Set) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(key) >= 0
}

// Len returns the number of favorites
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// MarkActive sets icon on every record that is already a favorite and
// returns how many were marked.
func (s *Set) MarkActive(records []*models.LocationRecord, icon string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	for _, rec := range records {
		if rec != nil && s.indexOf(rec.Key) >= 0 {
			rec.Icon = icon
			marked++
		}
	}
	return marked
}

// ClickHandler returns a pin click callback that adds the clicked record and
// switches the pin to activeIcon when it was not a favorite yet.
func (s *Set) ClickHandler(activeIcon string) models.ClickFunc {
	return func(_ any, pin any, rec *models.LocationRecord) {
		added, err := s.Add(context.Background(), rec)
		if err != nil {
			zap.L().Error("favorites: add failed", zap.String("key", rec.Key), zap.Error(err))
			return
		}
		if !added {
			return
		}
		if p, ok := pin.(interface{ SetIcon(string) }); ok && activeIcon != "" {
			p.SetIcon(activeIcon)
		}
		zap.L().Info("favorites: added", zap.String("key", rec.Key))
	}
}

func (s *Set) indexOf(key string) int {
	_, idx, ok := lo.FindIndexOf(s.items, func(r *models.LocationRecord) bool { return r.Key == key })
	if !ok {
		return -1
	}
	return idx
}

func (s *Set) flush(ctx context.Context) error {
	return eris.Wrap(storage.SetJSON(ctx, s.kv, s.key, s.items), "favorites: save")
}
