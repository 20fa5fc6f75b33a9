package model

import (
	"time"

	"risuem.me/pkg/utils"
)

// ProjectType selects the drawing surface of a room and is immutable
// after creation.
type ProjectType string

const (
	ProjectPixel    ProjectType = "pixel"
	ProjectFreehand ProjectType = "freehand"
)

// StrokeMode is the tool a stroke was drawn with.
type StrokeMode string

const (
	ModePixel    StrokeMode = "pixel"
	ModeFreehand StrokeMode = "freehand"
	ModeEraser   StrokeMode = "eraser"
)

type (
	// Point is a single stroke coordinate. Pixel and eraser strokes hold
	// integer grid cells, freehand strokes hold raw canvas coordinates.
	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// Stroke is one committed drawing operation. Committed strokes are
	// never mutated; list position inside Room.Strokes is their z-order.
	Stroke struct {
		ID       string     `json:"id"`
		UserID   string     `json:"userId"`
		UserName string     `json:"userName"`
		Mode     StrokeMode `json:"mode"`
		Color    string     `json:"color"`
		Size     float64    `json:"size,omitempty"`
		LayerID  string     `json:"layerId"`
		Points   []Point    `json:"points"`
	}

	Layer struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Visible bool   `json:"visible"`
		Locked  bool   `json:"locked"`
	}

	// Room is the full durable state of one shared canvas.
	Room struct {
		ID         string      `json:"id"`
		Type       ProjectType `json:"type"`
		Resolution int         `json:"resolution"`
		Strokes    []Stroke    `json:"strokes"`
		Layers     []Layer     `json:"layers"`
		CreatedAt  time.Time   `json:"createdAt"`
	}

	// Snapshot is the serializable room state sent on join and import.
	Snapshot struct {
		Type       ProjectType `json:"projectType"`
		Resolution int         `json:"resolution"`
		Strokes    []Stroke    `json:"strokes"`
		Layers     []Layer     `json:"layers"`
	}
)

func (t ProjectType) Valid() bool {
	return t == ProjectPixel || t == ProjectFreehand
}

func (m StrokeMode) Valid() bool {
	return m == ModePixel || m == ModeFreehand || m == ModeEraser
}

// Valid checks the basic shape of a stroke. Geometry is not validated
// beyond that; an empty freehand point list is legal and renders nothing.
func (s *Stroke) Valid() bool {
	if s.ID == "" || s.LayerID == "" || !s.Mode.Valid() {
		return false
	}
	if s.Mode != ModeEraser && !utils.IsHexColor(s.Color) {
		return false
	}
	return true
}

// Snapshot copies the shared room fields into a Snapshot. Slices are
// cloned so the caller can hand them off without racing later mutations.
func (r *Room) Snapshot() *Snapshot {
	return &Snapshot{
		Type:       r.Type,
		Resolution: r.Resolution,
		Strokes:    append([]Stroke{}, r.Strokes...),
		Layers:     append([]Layer{}, r.Layers...),
	}
}

// LayerByID returns the layer with the given id, or nil.
func (r *Room) LayerByID(id string) *Layer {
	for i := range r.Layers {
		if r.Layers[i].ID == id {
			return &r.Layers[i]
		}
	}
	return nil
}
