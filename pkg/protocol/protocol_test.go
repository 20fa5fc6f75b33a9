package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"risuem.me/model"
)

func TestDecodeJoin(t *testing.T) {
	m, err := Decode([]byte(`{"type":"join","roomId":"R1","userId":"u1","userName":"ann"}`))
	assert.NoError(t, err)
	assert.Equal(t, TypeJoin, m.Type)
	assert.Equal(t, "R1", m.RoomID)
	assert.Equal(t, "u1", m.UserID)
	assert.Equal(t, "ann", m.UserName)
}

func TestDecodeDraw(t *testing.T) {
	raw := `{"type":"draw","stroke":{"id":"s1","userId":"u1","userName":"ann",` +
		`"mode":"pixel","color":"#ef4444","layerId":"l1","points":[{"x":2,"y":2}]}}`
	m, err := Decode([]byte(raw))
	assert.NoError(t, err)
	assert.Equal(t, TypeDraw, m.Type)
	assert.Equal(t, model.ModePixel, m.Stroke.Mode)
	assert.Equal(t, []model.Point{{X: 2, Y: 2}}, m.Stroke.Points)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"teleport"}`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		ok   bool
	}{
		{"join without room", Message{Type: TypeJoin, UserID: "u1", UserName: "ann"}, false},
		{"join without user", Message{Type: TypeJoin, RoomID: "R1", UserName: "ann"}, false},
		{"join without name", Message{Type: TypeJoin, RoomID: "R1", UserID: "u1"}, false},
		{"join with one-letter name", Message{Type: TypeJoin, RoomID: "R1", UserID: "u1", UserName: "a"}, false},
		{"join with junk name", Message{Type: TypeJoin, RoomID: "R1", UserID: "u1", UserName: "<ann>"}, false},
		{"join ok", Message{Type: TypeJoin, RoomID: "R1", UserID: "u1", UserName: "ann b"}, true},
		{"draw without stroke", Message{Type: TypeDraw}, false},
		{"undo without id", Message{Type: TypeUndo}, false},
		{"clear", Message{Type: TypeClear}, true},
		{"resolution zero", Message{Type: TypeChangeResolution}, false},
		{"resolution ok", Message{Type: TypeChangeResolution, Resolution: 32}, true},
		{"layers empty", Message{Type: TypeUpdateLayers}, false},
		{"import without layers", Message{Type: TypeImportProject, Resolution: 16}, false},
		{
			"import ok",
			Message{Type: TypeImportProject, Resolution: 16, Layers: []model.Layer{{ID: "l1"}}},
			true,
		},
	}

	for _, tc := range cases {
		err := tc.msg.Validate()
		if tc.ok {
			assert.NoError(t, err, tc.name)
		} else {
			assert.Error(t, err, tc.name)
		}
	}
}

func TestInitRoundTrip(t *testing.T) {
	snap := &model.Snapshot{
		Type:       model.ProjectPixel,
		Resolution: 16,
		Strokes:    []model.Stroke{{ID: "s1", UserID: "u1", Mode: model.ModePixel, Color: "#fff", LayerID: "l1"}},
		Layers:     []model.Layer{{ID: "l1", Name: "Layer 1", Visible: true}},
	}

	b, err := Init(snap).Encode()
	assert.NoError(t, err)

	m, err := Decode(b)
	assert.NoError(t, err)
	assert.Equal(t, TypeInit, m.Type)
	assert.Equal(t, snap.Type, m.ProjectType)
	assert.Equal(t, snap.Resolution, m.Resolution)
	assert.Equal(t, snap.Strokes, m.Strokes)
	assert.Equal(t, snap.Layers, m.Layers)
}

func TestErrorMessage(t *testing.T) {
	b, err := Error(CodeRoomNotFound, "room 'R9' does not exist").Encode()
	assert.NoError(t, err)

	m, err := Decode(b)
	assert.NoError(t, err)
	assert.Equal(t, TypeError, m.Type)
	assert.Equal(t, CodeRoomNotFound, m.Code)
}
