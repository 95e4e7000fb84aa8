package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultGoogleURL is the Google Geocoding API endpoint.
const DefaultGoogleURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithAPIKey sets the API key sent with every request.
func WithAPIKey(key string) GoogleOption {
	return func(g *GoogleProvider) {
		g.apiKey = key
	}
}

// WithBaseURL points the provider at a different endpoint.
func WithBaseURL(u string) GoogleOption {
	return func(g *GoogleProvider) {
		if u != "" {
			g.baseURL = u
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) GoogleOption {
	return func(g *GoogleProvider) {
		g.httpClient = hc
	}
}

// WithRateLimit paces requests client-side. Zero or negative disables pacing.
func WithRateLimit(rps float64) GoogleOption {
	return func(g *GoogleProvider) {
		if rps <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// GoogleProvider geocodes addresses with the Google Geocoding API.
type GoogleProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// NewGoogleProvider creates a provider with a 30 s timeout and 10 req/s pacing.
func NewGoogleProvider(opts ...GoogleOption) *GoogleProvider {
	g := &GoogleProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultGoogleURL,
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode implements Provider.
func (g *GoogleProvider) Geocode(ctx context.Context, address string) (Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Response{}, eris.Wrap(err, "geocode: google rate limit")
	}

	params := url.Values{"address": {address}}
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Response{}, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Response{}, eris.Wrap(err, "geocode: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{Status: StatusOverQueryLimit}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, eris.Errorf("geocode: google returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, eris.Wrap(err, "geocode: google read body")
	}

	var googleResp googleGeocodeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return Response{}, eris.Wrap(err, "geocode: google parse response")
	}

	out := Response{Status: Status(googleResp.Status)}
	if out.Status == "" {
		out.Status = StatusUnknownError
	}
	for _, r := range googleResp.Results {
		out.Results = append(out.Results, Result{
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
			FormattedAddress: r.FormattedAddress,
			LocationType:     r.Geometry.LocationType,
		})
	}
	return out, nil
}
