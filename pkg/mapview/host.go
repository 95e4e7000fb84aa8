// Package mapview places store pins on a host map. It keeps only the pins
// whose records fall inside the current viewport and wires their click
// behavior: a single shared info window plus an optional per-record callback.
package mapview

import (
	"context"

	"github.com/kass/go-store-map/pkg/models"
)

// Host is the map SDK the pins are drawn on.
type Host interface {
	NewPin(pos models.Location, icon string) Pin
	NewInfoWindow() InfoWindow
	Bounds() models.ViewportBounds
	PanTo(center models.Location)
	// OnIdle registers fn for every "viewport settled" notification.
	OnIdle(fn func())
	OnResize(fn func())
}

// Pin is an on-map marker. Remove must be safe to call more than once.
type Pin interface {
	Position() models.Location
	Icon() string
	SetIcon(icon string)
	OnClick(fn func())
	Remove()
}

// InfoWindow is a popup anchored to a pin.
type InfoWindow interface {
	Open(pin Pin)
	SetContent(content string)
}

// MapOptions is what the host needs to construct the map
type MapOptions struct {
	Center models.Location
	Zoom   int
	Styles []models.StyleRule
}

// Loader builds the host once the map SDK is ready. It must return promptly
// when ctx is canceled.
type Loader func(ctx context.Context, opts MapOptions) (Host, error)
