package mapview

import (
	"context"
	"math"
	"sync"

	"github.com/samber/lo"

	"github.com/kass/go-store-map/pkg/models"
)

const (
	tileSize = 256
	minZoom  = 0
	maxZoom  = 21
)

// PinState is a snapshot of a headless pin
type PinState struct {
	ID       int
	Position models.Location
	Icon     string
}

// InfoWindowState is a snapshot of the headless info window
type InfoWindowState struct {
	Content string
	PinID   int
	Open    bool
	// Opens counts every Open call
	Opens int
}

// HeadlessHost is an in-memory Host. Viewport bounds follow the Web Mercator
// projection for the current center, zoom and pixel size, like a tiled web
// map would report them. Notifications run synchronously on the caller's
// goroutine, outside the host's lock.
type HeadlessHost struct {
	mu          sync.Mutex
	center      models.Location
	zoom        int
	width       int
	height      int
	styles      []models.StyleRule
	pins        []*headlessPin
	nextID      int
	info        *headlessInfoWindow
	infoWindows int
	idle        []func()
	resize      []func()
}

// NewHeadlessHost creates a host with a viewport of width x height pixels
func NewHeadlessHost(width, height int) *HeadlessHost {
	return &HeadlessHost{
		width:  max(width, 1),
		height: max(height, 1),
	}
}

// Loader returns a Loader that configures and hands out h
func (h *HeadlessHost) Loader() Loader {
	return func(ctx context.Context, opts MapOptions) (Host, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.center = opts.Center
		h.zoom = clampZoom(opts.Zoom)
		h.styles = opts.Styles
		h.mu.Unlock()
		return h, nil
	}
}

func (h *HeadlessHost) NewPin(pos models.Location, icon string) Pin {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	p := &headlessPin{host: h, id: h.nextID, pos: pos, icon: icon}
	h.pins = append(h.pins, p)
	return p
}

func (h *HeadlessHost) NewInfoWindow() InfoWindow {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.infoWindows++
	h.info = &headlessInfoWindow{host: h}
	return h.info
}

func (h *HeadlessHost) Bounds() models.ViewportBounds {
	h.mu.Lock()
	defer h.mu.Unlock()
	return mercatorBounds(h.center, h.zoom, h.width, h.height)
}

// PanTo moves the center without emitting an idle notification
func (h *HeadlessHost) PanTo(center models.Location) {
	h.mu.Lock()
	h.center = center
	h.mu.Unlock()
}

func (h *HeadlessHost) OnIdle(fn func()) {
	h.mu.Lock()
	h.idle = append(h.idle, fn)
	h.mu.Unlock()
}

func (h *HeadlessHost) OnResize(fn func()) {
	h.mu.Lock()
	h.resize = append(h.resize, fn)
	h.mu.Unlock()
}

// SetCenter moves the map and emits an idle notification
func (h *HeadlessHost) SetCenter(center models.Location) {
	h.mu.Lock()
	h.center = center
	h.mu.Unlock()
	h.fire(&h.idle)
}

// ZoomBy changes the zoom level by delta and emits an idle notification
func (h *HeadlessHost) ZoomBy(delta int) {
	h.mu.Lock()
	h.zoom = clampZoom(h.zoom + delta)
	h.mu.Unlock()
	h.fire(&h.idle)
}

// Resize changes the viewport size, then emits resize and idle notifications
func (h *HeadlessHost) Resize(width, height int) {
	h.mu.Lock()
	h.width, h.height = max(width, 1), max(height, 1)
	h.mu.Unlock()
	h.fire(&h.resize)
	h.fire(&h.idle)
}

// Center returns the current map center
func (h *HeadlessHost) Center() models.Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.center
}

// Zoom returns the current zoom level
func (h *HeadlessHost) Zoom() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.zoom
}

// Styles returns the style rules the map was built with
func (h *HeadlessHost) Styles() []models.StyleRule {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.styles
}

// Click simulates a click on the pin with the given id. It reports whether
// such a pin is on the map.
func (h *HeadlessHost) Click(id int) bool {
	h.mu.Lock()
	p, ok := lo.Find(h.pins, func(p *headlessPin) bool { return p.id == id })
	var fn func()
	if ok {
		fn = p.click
	}
	h.mu.Unlock()

	if !ok {
		return false
	}
	if fn != nil {
		fn()
	}
	return true
}

// Pins returns the pins currently on the map in creation order
func (h *HeadlessHost) Pins() []PinState {
	h.mu.Lock()
	defer h.mu.Unlock()

	return lo.Map(h.pins, func(p *headlessPin, _ int) PinState {
		return PinState{ID: p.id, Position: p.pos, Icon: p.icon}
	})
}

// InfoWindowState returns the shared info window state and the number of
// info windows ever created.
func (h *HeadlessHost) InfoWindowState() (InfoWindowState, int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.info == nil {
		return InfoWindowState{}, h.infoWindows
	}
	return h.info.state, h.infoWindows
}

func (h *HeadlessHost) fire(handlers *[]func()) {
	h.mu.Lock()
	fns := append([]func(){}, *handlers...)
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

type headlessPin struct {
	host  *HeadlessHost
	id    int
	pos   models.Location
	icon  string
	click func()
}

func (p *headlessPin) Position() models.Location {
	return p.pos
}

func (p *headlessPin) Icon() string {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return p.icon
}

func (p *headlessPin) SetIcon(icon string) {
	p.host.mu.Lock()
	p.icon = icon
	p.host.mu.Unlock()
}

func (p *headlessPin) OnClick(fn func()) {
	p.host.mu.Lock()
	p.click = fn
	p.host.mu.Unlock()
}

func (p *headlessPin) Remove() {
	h := p.host
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pins = lo.Reject(h.pins, func(other *headlessPin, _ int) bool { return other == p })
	if h.info != nil && h.info.state.PinID == p.id {
		h.info.state.Open = false
	}
}

type headlessInfoWindow struct {
	host  *HeadlessHost
	state InfoWindowState
}

func (w *headlessInfoWindow) Open(pin Pin) {
	w.host.mu.Lock()
	defer w.host.mu.Unlock()

	w.state.Open = true
	w.state.Opens++
	if hp, ok := pin.(*headlessPin); ok {
		w.state.PinID = hp.id
	}
}

func (w *headlessInfoWindow) SetContent(content string) {
	w.host.mu.Lock()
	w.state.Content = content
	w.host.mu.Unlock()
}

func clampZoom(z int) int {
	return min(max(z, minZoom), maxZoom)
}

// mercatorBounds computes the visible region of a width x height pixel
// viewport centered on center. The longitude span wraps at the antimeridian;
// a viewport wider than the world shows every longitude.
func mercatorBounds(center models.Location, zoom, width, height int) models.ViewportBounds {
	worldSize := tileSize * math.Pow(2, float64(zoom))
	cx, cy := project(center, worldSize)
	halfW, halfH := float64(width)/2, float64(height)/2

	north := unprojectLat(math.Max(cy-halfH, 0), worldSize)
	south := unprojectLat(math.Min(cy+halfH, worldSize), worldSize)

	west, east := -180.0, 180.0
	if float64(width) < worldSize {
		west = wrapLng((cx-halfW)/worldSize*360 - 180)
		east = wrapLng((cx+halfW)/worldSize*360 - 180)
	}

	return models.ViewportBounds{
		NorthEastLat: north,
		NorthEastLng: east,
		SouthWestLat: south,
		SouthWestLng: west,
	}
}

func project(loc models.Location, worldSize float64) (float64, float64) {
	siny := math.Sin(loc.Lat * math.Pi / 180)
	siny = math.Min(math.Max(siny, -0.9999), 0.9999)

	x := (loc.Lng + 180) / 360 * worldSize
	y := (0.5 - math.Log((1+siny)/(1-siny))/(4*math.Pi)) * worldSize
	return x, y
}

func unprojectLat(y, worldSize float64) float64 {
	n := math.Pi * (1 - 2*y/worldSize)
	return math.Atan(math.Sinh(n)) * 180 / math.Pi
}

func wrapLng(lng float64) float64 {
	w := math.Mod(lng+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}
