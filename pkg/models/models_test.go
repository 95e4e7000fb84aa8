package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewportContains(t *testing.T) {
	box := ViewportBounds{NorthEastLat: 10, NorthEastLng: 10, SouthWestLat: 0, SouthWestLng: 0}

	assert.True(t, box.Contains(5, 5))
	assert.False(t, box.Contains(10, 10), "north-east corner is outside")
	assert.False(t, box.Contains(0, 5), "southern edge is outside")
	assert.False(t, box.Contains(5, 0), "western edge is outside")
	assert.False(t, box.Contains(11, 5))
	assert.False(t, box.Contains(5, -1))
}

func TestViewportContainsAntimeridian(t *testing.T) {
	box := ViewportBounds{NorthEastLat: 10, NorthEastLng: -170, SouthWestLat: 0, SouthWestLng: 170}
	require.True(t, box.CrossesAntimeridian())

	assert.True(t, box.Contains(5, 175))
	assert.True(t, box.Contains(5, -175))
	assert.False(t, box.Contains(5, 0))
	assert.False(t, box.Contains(5, 170))
	assert.False(t, box.Contains(5, -170))
}

func TestViewportContainsDegenerate(t *testing.T) {
	box := ViewportBounds{NorthEastLat: 5, NorthEastLng: 10, SouthWestLat: 5, SouthWestLng: 0}
	assert.False(t, box.Contains(5, 5))
}

func TestViewportBoxes(t *testing.T) {
	plain := ViewportBounds{NorthEastLat: 10, NorthEastLng: 20, SouthWestLat: 0, SouthWestLng: 5}
	boxes := plain.Boxes()
	require.Len(t, boxes, 1)
	assert.Equal(t, Location{Lat: 0, Lng: 5}, boxes[0].BottomLeft)
	assert.Equal(t, Location{Lat: 10, Lng: 20}, boxes[0].TopRight)

	wrapped := ViewportBounds{NorthEastLat: 10, NorthEastLng: -170, SouthWestLat: 0, SouthWestLng: 170}
	boxes = wrapped.Boxes()
	require.Len(t, boxes, 2)
	assert.Equal(t, 170.0, boxes[0].BottomLeft.Lng)
	assert.Equal(t, 180.0, boxes[0].TopRight.Lng)
	assert.Equal(t, -180.0, boxes[1].BottomLeft.Lng)
	assert.Equal(t, -170.0, boxes[1].TopRight.Lng)
}

func TestRecordResolved(t *testing.T) {
	rec := &LocationRecord{Key: "a", Address: "somewhere"}
	assert.False(t, rec.Resolved())

	rec.SetPosition(19.43, -99.13)
	assert.True(t, rec.Resolved())

	pos, ok := rec.Position()
	require.True(t, ok)
	assert.InDelta(t, 19.43, pos.Lat, 1e-9)
	assert.InDelta(t, -99.13, pos.Lng, 1e-9)

	rec.SetPosition(math.NaN(), 1)
	assert.False(t, rec.Resolved())

	var nilRec *LocationRecord
	assert.False(t, nilRec.Resolved())
}

func TestRecordCloneIsIndependent(t *testing.T) {
	rec := &LocationRecord{Key: "a"}
	rec.SetPosition(1, 2)

	c := rec.Clone()
	c.SetPosition(3, 4)
	*c.Lat = 9

	assert.Equal(t, 1.0, *rec.Lat)
	assert.Equal(t, 2.0, *rec.Lng)
}

func TestRecordJSONOmitsCallback(t *testing.T) {
	rec := &LocationRecord{
		Key:      "Store 1",
		Title:    "Store 1",
		Callback: func(any, any, *LocationRecord) {},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"Store 1","title":"Store 1"}`, string(data))
}
