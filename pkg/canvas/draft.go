package canvas

import (
	"risuem.me/model"
)

// Draft is the one in-progress stroke owned by the local author during a
// drag gesture. It is mutable until Freeze, after which the result joins
// the shared committed list and is never touched again.
type Draft struct {
	stroke     model.Stroke
	canvasSize float64
	resolution int
}

func newDraft(mode model.StrokeMode, color string, size float64, layerID string, canvasSize float64, resolution int) *Draft {
	return &Draft{
		stroke: model.Stroke{
			Mode:    mode,
			Color:   color,
			Size:    size,
			LayerID: layerID,
			Points:  []model.Point{},
		},
		canvasSize: canvasSize,
		resolution: resolution,
	}
}

// Append feeds one sampled canvas coordinate into the draft. Pixel and
// eraser strokes snap to grid cells and fill the gap to the previous cell
// so fast pointer movement cannot tear the path; freehand strokes record
// the raw sample verbatim.
func (d *Draft) Append(x, y float64) {
	if d.stroke.Mode == model.ModeFreehand {
		d.stroke.Points = append(d.stroke.Points, model.Point{X: x, Y: y})
		return
	}

	cell := model.Point{
		X: float64(model.SnapToGrid(x, d.canvasSize, d.resolution)),
		Y: float64(model.SnapToGrid(y, d.canvasSize, d.resolution)),
	}

	if len(d.stroke.Points) == 0 {
		d.stroke.Points = append(d.stroke.Points, cell)
		return
	}

	last := d.stroke.Points[len(d.stroke.Points)-1]
	if cell == last {
		return
	}
	d.stroke.Points = append(d.stroke.Points, model.InterpolateCells(last, cell)...)
}

// Freeze stamps identity and authorship onto the draft and returns the
// now-immutable stroke.
func (d *Draft) Freeze(id, userID, userName string) model.Stroke {
	s := d.stroke
	s.ID = id
	s.UserID = userID
	s.UserName = userName
	return s
}

// Stroke exposes the current draft contents for optimistic rendering.
func (d *Draft) Stroke() model.Stroke {
	return d.stroke
}
