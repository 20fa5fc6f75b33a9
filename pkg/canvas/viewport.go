package canvas

// Viewport tracks the visual zoom and pan of the rendered surface. Zoom
// and pan are applied after coordinate capture, so mapping a pointer
// position into canvas space only has to invert the on-screen scaling of
// the fixed-resolution surface.
type Viewport struct {
	zoom       float64
	panX, panY float64
	minZoom    float64
	maxZoom    float64
}

func NewViewport(minZoom, maxZoom float64) *Viewport {
	return &Viewport{zoom: 1, minZoom: minZoom, maxZoom: maxZoom}
}

func (v *Viewport) Zoom() float64 {
	return v.zoom
}

// ZoomBy scales the zoom factor, clamped to the configured range.
func (v *Viewport) ZoomBy(factor float64) {
	v.zoom *= factor
	if v.zoom < v.minZoom {
		v.zoom = v.minZoom
	}
	if v.zoom > v.maxZoom {
		v.zoom = v.maxZoom
	}
}

func (v *Viewport) PanBy(dx, dy float64) {
	v.panX += dx
	v.panY += dy
}

func (v *Viewport) Pan() (x, y float64) {
	return v.panX, v.panY
}

// Reset restores zoom 1 and a zero pan offset.
func (v *Viewport) Reset() {
	v.zoom = 1
	v.panX = 0
	v.panY = 0
}

// ToCanvas maps a pointer position in client space onto the logical
// canvas, inverting only the display scaling of the surface. displayW/H
// are the on-screen dimensions the surface is shown at.
func (v *Viewport) ToCanvas(clientX, clientY, displayW, displayH, canvasW, canvasH float64) (x, y float64) {
	return clientX * canvasW / displayW, clientY * canvasH / displayH
}
