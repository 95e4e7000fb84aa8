package mapview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-store-map/pkg/geocode"
	"github.com/kass/go-store-map/pkg/models"
)

var mexicoCity = models.Location{Lat: 19.4326077, Lng: -99.133208}

// table provider answering from a fixed address book
func tableProvider(book map[string]models.Location) geocode.Provider {
	return geocode.ProviderFunc(func(_ context.Context, address string) (geocode.Response, error) {
		loc, ok := book[address]
		if !ok {
			return geocode.Response{Status: geocode.StatusZeroResults}, nil
		}
		return geocode.Response{
			Status:  geocode.StatusOK,
			Results: []geocode.Result{{Lat: loc.Lat, Lng: loc.Lng}},
		}, nil
	})
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func newTestView(t *testing.T, provider geocode.Provider, opts ...geocode.SequencerOption) (*View, *HeadlessHost) {
	t.Helper()
	host := NewHeadlessHost(1024, 768)
	v := New(host.Loader(), geocode.NewSequencer(provider, opts...), Options{
		MapOptions: MapOptions{Center: mexicoCity, Zoom: 12},
	})
	t.Cleanup(v.Close)
	return v, host
}

func TestViewMountsResolvedRecords(t *testing.T) {
	provider := tableProvider(map[string]models.Location{
		"Zocalo":       {Lat: 19.4326, Lng: -99.1332},
		"Bellas Artes": {Lat: 19.4352, Lng: -99.1412},
		"Monterrey":    {Lat: 25.6866, Lng: -100.3161},
	})
	v, host := newTestView(t, provider)

	pre := at("Pre", 19.43, -99.13)
	records := []*models.LocationRecord{
		{Key: "Zocalo", Address: "Zocalo"},
		pre,
		{Key: "Nowhere", Address: "Nowhere"},
		{Key: "Bellas Artes", Address: "Bellas Artes"},
		{Key: "Monterrey", Address: "Monterrey"},
	}

	v.Start(context.Background(), records)
	waitClosed(t, v.Ready())
	require.NoError(t, v.Err())
	waitClosed(t, v.Resolved())

	sum := v.Summary()
	assert.Equal(t, 4, sum.Resolved)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 4, sum.Requests)

	resolved, err := v.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Zocalo", "Pre", "Bellas Artes", "Monterrey"}, keysOf(resolved))

	markers, err := v.Markers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Zocalo", "Pre", "Bellas Artes"}, markerKeys(markers))
	assert.Len(t, host.Pins(), 3)
}

func TestViewReconcilesOnIdle(t *testing.T) {
	provider := tableProvider(map[string]models.Location{
		"Zocalo":    {Lat: 19.4326, Lng: -99.1332},
		"Monterrey": {Lat: 25.6866, Lng: -100.3161},
	})
	v, host := newTestView(t, provider)

	v.Start(context.Background(), []*models.LocationRecord{
		{Key: "Zocalo", Address: "Zocalo"},
		{Key: "Monterrey", Address: "Monterrey"},
	})
	waitClosed(t, v.Resolved())

	host.SetCenter(models.Location{Lat: 25.6866, Lng: -100.3161})
	markers, err := v.Markers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Monterrey"}, markerKeys(markers))

	host.ZoomBy(-8)
	markers, err = v.Markers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Zocalo", "Monterrey"}, markerKeys(markers))
}

func TestViewResizeRecenters(t *testing.T) {
	v, host := newTestView(t, tableProvider(nil))
	v.Start(context.Background(), nil)
	waitClosed(t, v.Resolved())

	host.PanTo(models.Location{Lat: 40, Lng: -3})
	host.Resize(800, 600)

	require.NoError(t, v.Do(context.Background(), func() {}))
	assert.Equal(t, mexicoCity, host.Center())
}

func TestViewClicksRunOnLoop(t *testing.T) {
	v, host := newTestView(t, tableProvider(nil))

	clicked := make(chan *models.LocationRecord, 1)
	rec := at("Pre", 19.43, -99.13)
	rec.Content = "<b>Pre</b>"
	rec.Callback = func(_ any, _ any, r *models.LocationRecord) { clicked <- r }

	v.Start(context.Background(), []*models.LocationRecord{rec})
	waitClosed(t, v.Resolved())
	require.NoError(t, v.Do(context.Background(), func() {}))

	pins := host.Pins()
	require.Len(t, pins, 1)
	require.True(t, host.Click(pins[0].ID))

	select {
	case got := <-clicked:
		assert.Same(t, rec, got)
	case <-time.After(5 * time.Second):
		t.Fatal("callback not called")
	}

	require.NoError(t, v.Do(context.Background(), func() {}))
	state, windows := host.InfoWindowState()
	assert.Equal(t, 1, windows)
	assert.Equal(t, "<b>Pre</b>", state.Content)
}

func TestViewOnUpdate(t *testing.T) {
	host := NewHeadlessHost(1024, 768)

	var mu sync.Mutex
	var updates [][]string
	v := New(host.Loader(), geocode.NewSequencer(tableProvider(nil)), Options{
		MapOptions: MapOptions{Center: mexicoCity, Zoom: 12},
		OnUpdate: func(records []*models.LocationRecord) {
			mu.Lock()
			updates = append(updates, keysOf(records))
			mu.Unlock()
		},
	})
	t.Cleanup(v.Close)

	v.Start(context.Background(), []*models.LocationRecord{
		at("a", 19.43, -99.13),
		{Key: "b", Address: "unknown"},
		at("c", 19.44, -99.14),
	})
	waitClosed(t, v.Resolved())
	require.NoError(t, v.Do(context.Background(), func() {}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"a"}, {"a"}, {"a", "c"}}, updates)
}

func TestViewCloseDuringBackoff(t *testing.T) {
	calls := make(chan struct{}, 10)
	throttled := geocode.ProviderFunc(func(context.Context, string) (geocode.Response, error) {
		calls <- struct{}{}
		return geocode.Response{Status: geocode.StatusOverQueryLimit}, nil
	})
	v, host := newTestView(t, throttled, geocode.WithBackoff(time.Hour))

	v.Start(context.Background(), []*models.LocationRecord{
		at("Pre", 19.43, -99.13),
		{Key: "slow", Address: "slow"},
	})

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("provider not called")
	}

	done := make(chan struct{})
	go func() {
		v.Close()
		close(done)
	}()
	waitClosed(t, done)
	waitClosed(t, v.Resolved())

	assert.Empty(t, host.Pins())
	assert.Len(t, calls, 0)
	assert.ErrorIs(t, v.Do(context.Background(), func() {}), ErrClosed)
}

func TestViewLoadFailure(t *testing.T) {
	boom := eris.New("sdk unavailable")
	v := New(func(context.Context, MapOptions) (Host, error) { return nil, boom },
		geocode.NewSequencer(tableProvider(nil)), Options{})
	t.Cleanup(v.Close)

	v.Start(context.Background(), nil)
	waitClosed(t, v.Ready())
	assert.ErrorIs(t, v.Err(), boom)
	waitClosed(t, v.Done())
	waitClosed(t, v.Resolved())
}

func TestViewCloseBeforeStart(t *testing.T) {
	v := New(NewHeadlessHost(10, 10).Loader(), geocode.NewSequencer(tableProvider(nil)), Options{})
	v.Close()

	waitClosed(t, v.Ready())
	waitClosed(t, v.Done())

	v.Start(context.Background(), nil)
	assert.ErrorIs(t, v.Do(context.Background(), func() {}), ErrClosed)
}

func keysOf(records []*models.LocationRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key
	}
	return out
}
