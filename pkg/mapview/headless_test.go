package mapview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-store-map/pkg/models"
)

func TestMercatorBoundsWholeWorld(t *testing.T) {
	b := mercatorBounds(models.Location{}, 0, 256, 256)

	assert.InDelta(t, 85.0511, b.NorthEastLat, 1e-3)
	assert.InDelta(t, -85.0511, b.SouthWestLat, 1e-3)
	assert.Equal(t, 180.0, b.NorthEastLng)
	assert.Equal(t, -180.0, b.SouthWestLng)
}

func TestMercatorBoundsCity(t *testing.T) {
	center := models.Location{Lat: 19.4326077, Lng: -99.133208}
	b := mercatorBounds(center, 12, 1024, 768)

	assert.False(t, b.CrossesAntimeridian())
	assert.True(t, b.Contains(center.Lat, center.Lng))
	// 512px at zoom 12 is 512/2^20 of the world
	assert.InDelta(t, -99.133208+0.17578, b.NorthEastLng, 1e-4)
	assert.InDelta(t, -99.133208-0.17578, b.SouthWestLng, 1e-4)
	assert.Greater(t, b.NorthEastLat, center.Lat)
	assert.Less(t, b.SouthWestLat, center.Lat)
}

func TestMercatorBoundsWrapAntimeridian(t *testing.T) {
	center := models.Location{Lat: 0, Lng: 179.9}
	b := mercatorBounds(center, 10, 1024, 768)

	require.True(t, b.CrossesAntimeridian())
	assert.True(t, b.Contains(0, 179.95))
	assert.True(t, b.Contains(0, -179.9))
	assert.False(t, b.Contains(0, 0))
}

func TestHeadlessLoaderAppliesOptions(t *testing.T) {
	h := NewHeadlessHost(640, 480)
	styles := BuildStyles(DefaultColors)

	host, err := h.Loader()(context.Background(), MapOptions{
		Center: models.Location{Lat: 1, Lng: 2},
		Zoom:   99,
		Styles: styles,
	})
	require.NoError(t, err)
	assert.Same(t, h, host)
	assert.Equal(t, models.Location{Lat: 1, Lng: 2}, h.Center())
	assert.Equal(t, maxZoom, h.Zoom())
	assert.Equal(t, styles, h.Styles())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Loader()(ctx, MapOptions{})
	assert.Error(t, err)
}

func TestHeadlessNotifications(t *testing.T) {
	h := NewHeadlessHost(640, 480)

	var events []string
	h.OnIdle(func() { events = append(events, "idle") })
	h.OnResize(func() { events = append(events, "resize") })

	h.SetCenter(models.Location{Lat: 3, Lng: 4})
	h.ZoomBy(-5)
	h.Resize(320, 240)
	h.PanTo(models.Location{})

	assert.Equal(t, []string{"idle", "idle", "resize", "idle"}, events)
	assert.Equal(t, minZoom, h.Zoom())
	assert.Equal(t, models.Location{}, h.Center())
}

func TestHeadlessPinRemoveIdempotent(t *testing.T) {
	h := NewHeadlessHost(640, 480)
	a := h.NewPin(models.Location{Lat: 1, Lng: 1}, "a")
	b := h.NewPin(models.Location{Lat: 2, Lng: 2}, "b")

	a.Remove()
	a.Remove()

	pins := h.Pins()
	require.Len(t, pins, 1)
	assert.Equal(t, "b", pins[0].Icon)

	b.SetIcon("b2")
	assert.Equal(t, "b2", h.Pins()[0].Icon)
	assert.Equal(t, "b2", b.Icon())
}

func TestHeadlessInfoWindowClosesWithPin(t *testing.T) {
	h := NewHeadlessHost(640, 480)
	pin := h.NewPin(models.Location{Lat: 1, Lng: 1}, "a")
	w := h.NewInfoWindow()

	w.Open(pin)
	w.SetContent("hi")
	state, _ := h.InfoWindowState()
	assert.True(t, state.Open)

	pin.Remove()
	state, _ = h.InfoWindowState()
	assert.False(t, state.Open)
	assert.Equal(t, "hi", state.Content)
}
