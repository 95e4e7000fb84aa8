package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampIndex(t *testing.T) {
	assert.Equal(t, 0, clampIndex(3, 0))
	assert.Equal(t, 0, clampIndex(-1, 4))
	assert.Equal(t, 2, clampIndex(2, 4))
	assert.Equal(t, 3, clampIndex(9, 4))
}

func TestGridStringHighlightsSelection(t *testing.T) {
	grid := [][]rune{[]rune("··●"), []rune("···")}

	plain := gridString(grid, -1, -1)
	assert.Equal(t, "··●\n···", plain)

	selected := gridString(grid, 0, 2)
	assert.Contains(t, selected, "··")
	assert.Contains(t, selected, "●")
	assert.Contains(t, selected, "\n···")
}
