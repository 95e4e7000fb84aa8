package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAll(t *testing.T) map[string]KV {
	t.Helper()

	bdg, err := NewBadger("")
	require.NoError(t, err)

	lite, err := NewSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)

	stores := map[string]KV{
		DriverMemory: NewMemory(),
		DriverBadger: bdg,
		DriverSQLite: lite,
	}
	t.Cleanup(func() {
		for _, kv := range stores {
			kv.Close()
		}
	})
	return stores
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, kv := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, "missing")
			assert.True(t, IsNotFound(err))

			require.NoError(t, kv.Set(ctx, "favorite_stores", []byte(`[]`)))
			got, err := kv.Get(ctx, "favorite_stores")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))

			require.NoError(t, kv.Set(ctx, "favorite_stores", []byte(`[{"key":"a"}]`)))
			got, err = kv.Get(ctx, "favorite_stores")
			require.NoError(t, err)
			assert.Equal(t, `[{"key":"a"}]`, string(got))

			require.NoError(t, kv.Delete(ctx, "favorite_stores"))
			_, err = kv.Get(ctx, "favorite_stores")
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	var out []string
	found, err := GetJSON(ctx, kv, "stores", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, kv, "stores", []string{"a", "b"}))
	found, err = GetJSON(ctx, kv, "stores", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, out)

	require.NoError(t, kv.Set(ctx, "broken", []byte("{")))
	found, err = GetJSON(ctx, kv, "broken", &out)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")

	kv, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	require.NoError(t, kv.Close())

	kv, err = NewSQLite(path)
	require.NoError(t, err)
	defer kv.Close()

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("etcd", "")
	assert.Error(t, err)

	kv, err := Open(DriverMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)
}
