package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewportZoomClamped(t *testing.T) {
	v := NewViewport(0.25, 8)
	assert.Equal(t, 1.0, v.Zoom())

	v.ZoomBy(2)
	assert.Equal(t, 2.0, v.Zoom())

	v.ZoomBy(100)
	assert.Equal(t, 8.0, v.Zoom())

	v.ZoomBy(0.0001)
	assert.Equal(t, 0.25, v.Zoom())
}

func TestViewportPanAndReset(t *testing.T) {
	v := NewViewport(0.25, 8)
	v.PanBy(12, -7)
	v.PanBy(3, 2)
	x, y := v.Pan()
	assert.Equal(t, 15.0, x)
	assert.Equal(t, -5.0, y)

	v.ZoomBy(3)
	v.Reset()
	assert.Equal(t, 1.0, v.Zoom())
	x, y = v.Pan()
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
}

func TestToCanvasInvertsDisplayScaleOnly(t *testing.T) {
	v := NewViewport(0.25, 8)

	// surface shown at 320x320 for a 640x640 canvas: client coords double
	x, y := v.ToCanvas(100, 50, 320, 320, 640, 640)
	assert.Equal(t, 200.0, x)
	assert.Equal(t, 100.0, y)

	// zoom and pan are visual transforms and must not affect capture
	v.ZoomBy(4)
	v.PanBy(999, 999)
	x, y = v.ToCanvas(100, 50, 320, 320, 640, 640)
	assert.Equal(t, 200.0, x)
	assert.Equal(t, 100.0, y)
}
