// Package geocode resolves store addresses into coordinates. Providers issue
// single lookups; the Sequencer walks a directory one record at a time and
// retries throttled lookups after a fixed backoff.
package geocode

import (
	"context"
)

// Status is the provider's verdict for a lookup.
type Status string

// Statuses follow the Google Geocoding API.
const (
	StatusOK             Status = "OK"
	StatusZeroResults    Status = "ZERO_RESULTS"
	StatusOverQueryLimit Status = "OVER_QUERY_LIMIT"
	StatusRequestDenied  Status = "REQUEST_DENIED"
	StatusInvalidRequest Status = "INVALID_REQUEST"
	StatusUnknownError   Status = "UNKNOWN_ERROR"
)

// Result is a single candidate location for an address.
type Result struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	LocationType     string  `json:"location_type,omitempty"`
}

// Response is the outcome of a lookup. Results is only meaningful when
// Status is StatusOK.
type Response struct {
	Status  Status   `json:"status"`
	Results []Result `json:"results,omitempty"`
}

// Provider geocodes a single address. A non-nil error means the request
// itself failed (transport, decoding); provider-level failures are reported
// through Response.Status.
type Provider interface {
	Geocode(ctx context.Context, address string) (Response, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, address string) (Response, error)

// Geocode implements Provider.
func (f ProviderFunc) Geocode(ctx context.Context, address string) (Response, error) {
	return f(ctx, address)
}
