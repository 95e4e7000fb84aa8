package mapview

import (
	"strings"

	"github.com/kass/go-store-map/pkg/models"
)

// DefaultIcon is used for records without an icon of their own
const DefaultIcon = "default"

// Marker is a resolved record and its pin. Pin is nil while unmounted.
type Marker struct {
	Record *models.LocationRecord
	Pin    Pin
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithDispatch routes pin clicks through dispatch, typically to run them on
// the goroutine that owns the reconciler.
func WithDispatch(dispatch func(func())) ReconcilerOption {
	return func(r *Reconciler) {
		if dispatch != nil {
			r.dispatch = dispatch
		}
	}
}

// Reconciler mounts pins for the records inside the viewport. It rebuilds
// the whole pin set on every Reconcile. It is not safe for concurrent use.
type Reconciler struct {
	host     Host
	info     InfoWindow
	mounted  []Marker
	dispatch func(func())
}

// NewReconciler creates a reconciler drawing on host
func NewReconciler(host Host, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		host:     host,
		dispatch: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile unmounts every pin and mounts one for each record strictly inside
// bounds. It returns the mounted markers in record order.
func (r *Reconciler) Reconcile(records []*models.LocationRecord, bounds models.ViewportBounds) []Marker {
	r.Clear()
	for _, rec := range records {
		r.Mount(rec, bounds)
	}
	return r.Markers()
}

// Mount adds a pin for a single record if it is resolved and inside bounds.
// A record with Open set is clicked right away.
func (r *Reconciler) Mount(rec *models.LocationRecord, bounds models.ViewportBounds) (Marker, bool) {
	pos, ok := rec.Position()
	if !ok || !bounds.Contains(pos.Lat, pos.Lng) {
		return Marker{Record: rec}, false
	}

	icon := rec.Icon
	if icon == "" {
		icon = DefaultIcon
	}

	m := Marker{Record: rec, Pin: r.host.NewPin(pos, icon)}
	m.Pin.OnClick(func() {
		r.dispatch(func() {
			if r.isMounted(m.Pin) {
				r.click(m, icon)
			}
		})
	})
	r.mounted = append(r.mounted, m)

	if rec.Open {
		r.click(m, icon)
	}
	return m, true
}

// Clear removes every mounted pin
func (r *Reconciler) Clear() {
	for _, m := range r.mounted {
		m.Pin.Remove()
	}
	r.mounted = nil
}

// Markers returns the currently mounted markers
func (r *Reconciler) Markers() []Marker {
	out := make([]Marker, len(r.mounted))
	copy(out, r.mounted)
	return out
}

func (r *Reconciler) click(m Marker, mountedIcon string) {
	rec := m.Record

	if strings.TrimSpace(rec.Content) != "" {
		if r.info == nil {
			r.info = r.host.NewInfoWindow()
		}
		r.info.Open(m.Pin)
		r.info.SetContent(rec.Content)
	}

	if rec.Callback != nil {
		rec.Callback(r.host, m.Pin, rec)
		// keep an icon swap made by the callback across the next rebuild
		if icon := m.Pin.Icon(); icon != mountedIcon {
			rec.Icon = icon
		}
	}
}

func (r *Reconciler) isMounted(pin Pin) bool {
	for _, m := range r.mounted {
		if m.Pin == pin {
			return true
		}
	}
	return false
}
