package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/storage"
)

const cachePrefix = "geocode:"

// cacheKey returns the storage key for the normalized address.
func cacheKey(address string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%s%x", cachePrefix, h)
}

// CachingProvider remembers definitive answers (OK and ZERO_RESULTS) from the
// wrapped provider. Throttles and errors are never cached.
type CachingProvider struct {
	inner Provider
	kv    storage.KV
}

// NewCachingProvider wraps inner with a cache stored in kv.
func NewCachingProvider(inner Provider, kv storage.KV) *CachingProvider {
	return &CachingProvider{inner: inner, kv: kv}
}

// Geocode implements Provider.
func (c *CachingProvider) Geocode(ctx context.Context, address string) (Response, error) {
	key := cacheKey(address)

	var cached Response
	found, err := storage.GetJSON(ctx, c.kv, key, &cached)
	if err != nil {
		zap.L().Debug("geocode cache read failed", zap.String("address", address), zap.Error(err))
	}
	if found && err == nil {
		zap.L().Debug("geocode cache hit", zap.String("key", key[:len(cachePrefix)+12]), zap.String("status", string(cached.Status)))
		return cached, nil
	}

	resp, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return resp, err
	}

	if resp.Status == StatusOK || resp.Status == StatusZeroResults {
		if err := storage.SetJSON(ctx, c.kv, key, resp); err != nil {
			zap.L().Warn("geocode cache write failed", zap.String("address", address), zap.Error(err))
		}
	}
	return resp, nil
}
