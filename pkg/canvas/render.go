package canvas

import (
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"risuem.me/model"
)

// RenderOptions controls the composite. The PNG export surface renders
// with the grid and attribution suppressed; the live client keeps both
// on by default.
type RenderOptions struct {
	// Size is the output edge in pixels; zero means the logical
	// canvas size.
	Size            int
	ShowGrid        bool
	ShowAttribution bool
	Background      gg.RGBA
	LocalUserID     string

	// Face is used for attribution initials; markers degrade to plain
	// badges when nil.
	Face text.Face
}

var gridLine = gg.RGBA{R: 0, G: 0, B: 0, A: 0.08}

// Render composites a room snapshot into a raster. The committed stroke
// list is walked in z-order: pixel strokes fill their grid cells, eraser
// strokes punch the covered cells back to transparent, freehand strokes
// draw a rounded joined polyline. Strokes whose layer is hidden, or
// whose layer id matches no layer at all, are skipped. Strokes are
// rasterized on their own transparent surface and composited over the
// background so erasing removes paint, not the grid.
func Render(snap *model.Snapshot, canvasSize float64, opts RenderOptions) *gg.Context {
	size := opts.Size
	if size <= 0 {
		size = int(canvasSize)
	}
	scale := float64(size) / canvasSize

	background := opts.Background
	if background == (gg.RGBA{}) {
		background = gg.White
	}

	base := gg.NewContext(size, size)
	base.ClearWithColor(background)

	if opts.ShowGrid && snap.Type == model.ProjectPixel && snap.Resolution > 0 {
		drawGrid(base, size, snap.Resolution)
	}

	visible := make(map[string]bool, len(snap.Layers))
	for _, l := range snap.Layers {
		if l.Visible {
			visible[l.ID] = true
		}
	}

	paint := gg.NewContext(size, size)
	paint.Clear()
	cell := model.CellSize(float64(size), max(snap.Resolution, 1))

	for _, s := range snap.Strokes {
		if !visible[s.LayerID] {
			continue
		}
		switch s.Mode {
		case model.ModePixel:
			paint.SetColor(gg.Hex(s.Color).Color())
			for _, p := range s.Points {
				paint.DrawRectangle(p.X*cell, p.Y*cell, cell, cell)
			}
			paint.Fill()
		case model.ModeEraser:
			for _, p := range s.Points {
				punchCell(paint, p, cell)
			}
		case model.ModeFreehand:
			drawFreehand(paint, s, scale)
		}
	}

	base.DrawImage(gg.ImageBufFromImage(paint.Image()), 0, 0)

	if opts.ShowAttribution {
		drawAttribution(base, snap, visible, cell, scale, opts)
	}
	return base
}

func drawGrid(dc *gg.Context, size, resolution int) {
	cell := model.CellSize(float64(size), resolution)
	dc.SetColor(gridLine.Color())
	dc.SetLineWidth(1)
	for i := 0; i <= resolution; i++ {
		offset := float64(i) * cell
		dc.DrawLine(offset, 0, offset, float64(size))
		dc.DrawLine(0, offset, float64(size), offset)
	}
	dc.Stroke()
}

// punchCell clears every pixel of one grid cell back to transparent, the
// raster equivalent of a destination-out composite.
func punchCell(dc *gg.Context, p model.Point, cell float64) {
	x0, y0 := int(p.X*cell), int(p.Y*cell)
	x1, y1 := int((p.X+1)*cell), int((p.Y+1)*cell)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			dc.SetPixel(x, y, gg.Transparent)
		}
	}
}

func drawFreehand(dc *gg.Context, s model.Stroke, scale float64) {
	if len(s.Points) == 0 {
		return
	}

	width := s.Size * scale
	if width < 1 {
		width = 1
	}
	dc.SetColor(gg.Hex(s.Color).Color())

	if len(s.Points) == 1 {
		dc.DrawCircle(s.Points[0].X*scale, s.Points[0].Y*scale, width/2)
		dc.Fill()
		return
	}

	dc.SetLineWidth(width)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.MoveTo(s.Points[0].X*scale, s.Points[0].Y*scale)
	for _, p := range s.Points[1:] {
		dc.LineTo(p.X*scale, p.Y*scale)
	}
	dc.Stroke()
}

// drawAttribution drops a small badge with the author's initial next to
// the first point of every visible stroke not drawn by the local user.
func drawAttribution(dc *gg.Context, snap *model.Snapshot, visible map[string]bool, cell, scale float64, opts RenderOptions) {
	if opts.Face != nil {
		dc.SetFont(opts.Face)
	}
	for _, s := range snap.Strokes {
		if s.UserID == opts.LocalUserID || !visible[s.LayerID] || len(s.Points) == 0 {
			continue
		}

		x, y := s.Points[0].X*scale, s.Points[0].Y*scale
		if s.Mode != model.ModeFreehand {
			x, y = (s.Points[0].X+0.5)*cell, s.Points[0].Y*cell
		}

		dc.SetColor(gg.RGBA{R: 0.07, G: 0.09, B: 0.15, A: 0.85}.Color())
		dc.DrawCircle(x+8, y-8, 7)
		dc.Fill()
		if initial := authorInitial(s.UserName); initial != "" {
			dc.SetColor(gg.White.Color())
			dc.DrawStringAnchored(initial, x+8, y-8, 0.5, 0.5)
		}
	}
}

func authorInitial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.ToUpper(string([]rune(name)[0]))
}
