package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleGeocode_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Av. Juarez 1, CDMX", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"status": "OK",
			"results": [{
				"geometry": {
					"location": {"lat": 19.4352, "lng": -99.1412},
					"location_type": "ROOFTOP"
				},
				"formatted_address": "Av. Juárez 1, Centro, CDMX"
			}]
		}`)
	}))
	defer srv.Close()

	g := NewGoogleProvider(WithBaseURL(srv.URL), WithAPIKey("test-key"), WithRateLimit(0))
	resp, err := g.Geocode(context.Background(), "Av. Juarez 1, CDMX")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	require.Len(t, resp.Results, 1)
	assert.InDelta(t, 19.4352, resp.Results[0].Lat, 1e-9)
	assert.InDelta(t, -99.1412, resp.Results[0].Lng, 1e-9)
	assert.Equal(t, "ROOFTOP", resp.Results[0].LocationType)
}

func TestGoogleGeocode_OverQueryLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status": "OVER_QUERY_LIMIT", "results": []}`)
	}))
	defer srv.Close()

	g := NewGoogleProvider(WithBaseURL(srv.URL), WithRateLimit(0))
	resp, err := g.Geocode(context.Background(), "anywhere")
	require.NoError(t, err)
	assert.Equal(t, StatusOverQueryLimit, resp.Status)
	assert.Empty(t, resp.Results)
}

func TestGoogleGeocode_TooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGoogleProvider(WithBaseURL(srv.URL), WithRateLimit(0))
	resp, err := g.Geocode(context.Background(), "anywhere")
	require.NoError(t, err)
	assert.Equal(t, StatusOverQueryLimit, resp.Status)
}

func TestGoogleGeocode_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGoogleProvider(WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := g.Geocode(context.Background(), "anywhere")
	assert.Error(t, err)
}

func TestGoogleGeocode_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	g := NewGoogleProvider(WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := g.Geocode(context.Background(), "anywhere")
	assert.Error(t, err)
}

func TestGoogleGeocode_CanceledContext(t *testing.T) {
	g := NewGoogleProvider(WithBaseURL("http://127.0.0.1:1"), WithRateLimit(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Geocode(ctx, "anywhere")
	assert.Error(t, err)
}
