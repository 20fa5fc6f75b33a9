package model

import "math"

// CellSize returns the edge of one grid cell for a canvas of the given
// logical size split into resolution cells per axis.
func CellSize(canvasSize float64, resolution int) float64 {
	return canvasSize / float64(resolution)
}

// SnapToGrid maps a continuous canvas coordinate to its grid cell index,
// clamped to [0, resolution-1].
func SnapToGrid(coord, canvasSize float64, resolution int) int {
	cell := int(math.Floor(coord / CellSize(canvasSize, resolution)))
	if cell < 0 {
		cell = 0
	}
	if cell >= resolution {
		cell = resolution - 1
	}
	return cell
}

// InterpolateCells returns the unit-step cell path from a to b, excluding
// a itself. The step count is the larger absolute axis delta, each
// intermediate coordinate is rounded to the nearest integer, and steps
// that repeat the previously produced cell are skipped. Pointer sampling
// gaps inside one gesture therefore never leave holes in the path.
func InterpolateCells(a, b Point) []Point {
	dx := b.X - a.X
	dy := b.Y - a.Y
	steps := math.Max(math.Abs(dx), math.Abs(dy))
	if steps == 0 {
		return nil
	}

	cells := make([]Point, 0, int(steps))
	prev := a
	for i := 1.0; i <= steps; i++ {
		p := Point{
			X: math.Round(a.X + dx*i/steps),
			Y: math.Round(a.Y + dy*i/steps),
		}
		if p == prev {
			continue
		}
		cells = append(cells, p)
		prev = p
	}
	return cells
}
