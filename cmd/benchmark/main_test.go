package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomViewport(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		b := randomViewport(r, 2, false)
		assert.False(t, b.CrossesAntimeridian())
		assert.InDelta(t, 2, b.NorthEastLat-b.SouthWestLat, 1e-9)
		assert.InDelta(t, 2, b.NorthEastLng-b.SouthWestLng, 1e-9)
	}

	for i := 0; i < 100; i++ {
		b := randomViewport(r, 2, true)
		if b.SouthWestLng == 180 {
			continue
		}
		assert.True(t, b.CrossesAntimeridian(), "sw=%v ne=%v", b.SouthWestLng, b.NorthEastLng)
		assert.InDelta(t, 2, b.NorthEastLng+360-b.SouthWestLng, 1e-9)
	}
}
