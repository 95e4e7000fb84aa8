package postgis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/kass/go-store-map/pkg/models"
)

func TestEnvelopeArgs(t *testing.T) {
	box := models.BoundingBox{
		BottomLeft: models.Location{Lat: 19.3, Lng: -99.3},
		TopRight:   models.Location{Lat: 19.5, Lng: -99.0},
	}
	assert.Equal(t, []any{-99.3, 19.3, -99.0, 19.5}, envelopeArgs(box))
}

func TestEnvelopeArgsAntimeridian(t *testing.T) {
	bounds := models.ViewportBounds{NorthEastLat: 10, NorthEastLng: -170, SouthWestLat: 0, SouthWestLng: 170}
	boxes := bounds.Boxes()
	require.Len(t, boxes, 2)

	assert.Equal(t, []any{170.0, 0.0, 180.0, 10.0}, envelopeArgs(boxes[0]))
	assert.Equal(t, []any{-180.0, 0.0, -170.0, 10.0}, envelopeArgs(boxes[1]))
}

func TestPointEWKB(t *testing.T) {
	data, err := pointEWKB(models.Location{Lat: 19.4326, Lng: -99.1332})
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)

	p, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, srid, p.SRID())
	assert.InDelta(t, -99.1332, p.X(), 1e-9)
	assert.InDelta(t, 19.4326, p.Y(), 1e-9)
}
