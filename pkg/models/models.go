package models

import "math"

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BoundingBox represents a rectangular area defined by two corners.
// It never crosses the antimeridian: BottomLeft.Lng <= TopRight.Lng.
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// ViewportBounds is the visible map region reported by the host map.
// When NorthEastLng < SouthWestLng the viewport crosses the antimeridian.
type ViewportBounds struct {
	NorthEastLat float64 `json:"ne_lat"`
	NorthEastLng float64 `json:"ne_lng"`
	SouthWestLat float64 `json:"sw_lat"`
	SouthWestLng float64 `json:"sw_lng"`
}

// CrossesAntimeridian reports whether the viewport wraps past longitude 180.
func (b ViewportBounds) CrossesAntimeridian() bool {
	return b.NorthEastLng < b.SouthWestLng
}

// Contains reports whether (lat, lng) lies strictly inside the viewport.
func (b ViewportBounds) Contains(lat, lng float64) bool {
	inLat := lat > b.SouthWestLat && lat < b.NorthEastLat

	eastBound := lng < b.NorthEastLng
	westBound := lng > b.SouthWestLng

	var inLng bool
	if b.CrossesAntimeridian() {
		inLng = eastBound || westBound
	} else {
		inLng = eastBound && westBound
	}

	return inLat && inLng
}

// Boxes splits the viewport into non-crossing bounding boxes. A viewport that
// crosses the antimeridian yields two boxes, one on each side.
func (b ViewportBounds) Boxes() []BoundingBox {
	if !b.CrossesAntimeridian() {
		return []BoundingBox{{
			BottomLeft: Location{Lat: b.SouthWestLat, Lng: b.SouthWestLng},
			TopRight:   Location{Lat: b.NorthEastLat, Lng: b.NorthEastLng},
		}}
	}

	return []BoundingBox{
		{
			BottomLeft: Location{Lat: b.SouthWestLat, Lng: b.SouthWestLng},
			TopRight:   Location{Lat: b.NorthEastLat, Lng: 180},
		},
		{
			BottomLeft: Location{Lat: b.SouthWestLat, Lng: -180},
			TopRight:   Location{Lat: b.NorthEastLat, Lng: b.NorthEastLng},
		},
	}
}

// DirectoryEntry is one element of the static store directory JSON array
type DirectoryEntry struct {
	Name    string `json:"Name"`
	Address string `json:"Address"`
}

// LocationRecord is a store location shown on the map. Lat and Lng are nil
// until the record has been resolved.
type LocationRecord struct {
	Key      string   `json:"key"`
	Address  string   `json:"address,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Icon     string   `json:"icon,omitempty"`
	Title    string   `json:"title,omitempty"`
	Content  string   `json:"content,omitempty"`
	Open     bool     `json:"open,omitempty"`

	// Callback runs when the record's pin is clicked. It is not persisted.
	Callback ClickFunc `json:"-"`
}

// ClickFunc is invoked with the host map, the clicked pin and the record.
// The map and pin are passed as opaque handles so that models does not
// depend on the map package.
type ClickFunc func(host any, pin any, rec *LocationRecord)

// Resolved reports whether both coordinates are present and finite
func (r *LocationRecord) Resolved() bool {
	if r == nil || r.Lat == nil || r.Lng == nil {
		return false
	}
	return isFinite(*r.Lat) && isFinite(*r.Lng)
}

// Position returns the record's coordinates when resolved
func (r *LocationRecord) Position() (Location, bool) {
	if !r.Resolved() {
		return Location{}, false
	}
	return Location{Lat: *r.Lat, Lng: *r.Lng}, true
}

// SetPosition writes the resolved coordinates in place
func (r *LocationRecord) SetPosition(lat, lng float64) {
	r.Lat = &lat
	r.Lng = &lng
}

// Clone returns a copy that shares no coordinate pointers with r
func (r *LocationRecord) Clone() *LocationRecord {
	c := *r
	if r.Lat != nil {
		lat := *r.Lat
		c.Lat = &lat
	}
	if r.Lng != nil {
		lng := *r.Lng
		c.Lng = &lng
	}
	return &c
}

// StyleRule is a single map style rule
type StyleRule struct {
	FeatureType string           `json:"featureType,omitempty"`
	ElementType string           `json:"elementType,omitempty"`
	Stylers     []map[string]any `json:"stylers"`
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
