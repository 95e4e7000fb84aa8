package favorites

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-store-map/pkg/models"
	"github.com/kass/go-store-map/pkg/storage"
)

func store(name string) *models.LocationRecord {
	return &models.LocationRecord{Key: name, Title: name, Content: name, Address: name + " street"}
}

func snapshot(t *testing.T, kv storage.KV) []string {
	t.Helper()
	data, err := kv.Get(context.Background(), DefaultKey)
	require.NoError(t, err)

	var recs []models.LocationRecord
	require.NoError(t, json.Unmarshal(data, &recs))
	keys := make([]string, len(recs))
	for i, r := range recs {
		keys[i] = r.Key
	}
	return keys
}

func TestOpenEmpty(t *testing.T) {
	s, err := Open(context.Background(), storage.NewMemory(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.List())
}

func TestOpenMalformed(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(ctx, DefaultKey, []byte("{not json")))

	s, err := Open(ctx, kv, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestAddDeduplicatesByKey(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s, err := Open(ctx, kv, DefaultKey)
	require.NoError(t, err)

	added, err := s.Add(ctx, store("A"))
	require.NoError(t, err)
	assert.True(t, added)

	twin := store("A")
	twin.Address = "another branch"
	added, err = s.Add(ctx, twin)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = s.Add(ctx, store("B"))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("A"))
	assert.False(t, s.Contains("C"))
	assert.Equal(t, []string{"A", "B"}, snapshot(t, kv))
	assert.Equal(t, "A street", s.List()[0].Address)
}

func TestAddStoresCopy(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, storage.NewMemory(), DefaultKey)
	require.NoError(t, err)

	rec := store("A")
	rec.Open = true
	rec.Callback = func(any, any, *models.LocationRecord) {}
	_, err = s.Add(ctx, rec)
	require.NoError(t, err)

	rec.Title = "changed"
	got := s.List()[0]
	assert.Equal(t, "A", got.Title)
	assert.False(t, got.Open)
	assert.Nil(t, got.Callback)
}

func TestRemoveAtIndex(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s, err := Open(ctx, kv, DefaultKey)
	require.NoError(t, err)
	for _, name := range []string{"A", "B", "C"} {
		_, err := s.Add(ctx, store(name))
		require.NoError(t, err)
	}

	require.NoError(t, s.Remove(ctx, 1))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"A", "C"}, snapshot(t, kv))

	err = s.Remove(ctx, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	err = s.Remove(ctx, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, []string{"A", "C"}, snapshot(t, kv))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s, err := Open(ctx, kv, DefaultKey)
	require.NoError(t, err)
	_, err = s.Add(ctx, store("A"))
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())

	data, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestReopenRestoresList(t *testing.T) {
	ctx := context.Background()
	kv, err := storage.NewBadger("")
	require.NoError(t, err)
	defer kv.Close()

	s, err := Open(ctx, kv, DefaultKey)
	require.NoError(t, err)
	_, err = s.Add(ctx, store("A"))
	require.NoError(t, err)
	_, err = s.Add(ctx, store("B"))
	require.NoError(t, err)

	reopened, err := Open(ctx, kv, DefaultKey)
	require.NoError(t, err)
	list := reopened.List()
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Key)
	assert.Equal(t, "B street", list[1].Address)
}

func TestMarkActive(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, storage.NewMemory(), DefaultKey)
	require.NoError(t, err)
	_, err = s.Add(ctx, store("B"))
	require.NoError(t, err)

	records := []*models.LocationRecord{store("A"), store("B")}
	records[0].Icon = "off.png"
	records[1].Icon = "off.png"

	assert.Equal(t, 1, s.MarkActive(records, "on.png"))
	assert.Equal(t, "off.png", records[0].Icon)
	assert.Equal(t, "on.png", records[1].Icon)
}

type iconPin struct{ icon string }

func (p *iconPin) SetIcon(icon string) { p.icon = icon }

func TestClickHandler(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s, err := Open(ctx, kv, DefaultKey)
	require.NoError(t, err)

	click := s.ClickHandler("on.png")
	pin := &iconPin{icon: "off.png"}

	click(nil, pin, store("A"))
	assert.Equal(t, "on.png", pin.icon)
	assert.Equal(t, []string{"A"}, snapshot(t, kv))

	again := &iconPin{icon: "off.png"}
	click(nil, again, store("A"))
	assert.Equal(t, "off.png", again.icon, "icon only changes when the store is added")
	assert.Equal(t, 1, s.Len())

	assert.NotPanics(t, func() { click(nil, "not a pin", store("B")) })
	assert.Equal(t, 2, s.Len())
}
