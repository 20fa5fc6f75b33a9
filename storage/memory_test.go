package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"risuem.me/model"
)

func TestMemoryCreateRoom(t *testing.T) {
	s := NewMemory()

	room, err := s.CreateRoom(model.ProjectPixel, 16)
	assert.NoError(t, err)
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, model.ProjectPixel, room.Type)
	assert.Equal(t, 16, room.Resolution)
	assert.Empty(t, room.Strokes)
	assert.Len(t, room.Layers, 1)
	assert.True(t, room.Layers[0].Visible)
	assert.True(t, s.RoomExist(room.ID))
}

func TestMemorySaveAndGet(t *testing.T) {
	s := NewMemory()
	room, err := s.CreateRoom(model.ProjectFreehand, 1)
	assert.NoError(t, err)

	room.Strokes = append(room.Strokes, model.Stroke{
		ID:      "s1",
		UserID:  "u1",
		Mode:    model.ModeFreehand,
		Color:   "#0ea5e9",
		Size:    4,
		LayerID: room.Layers[0].ID,
		Points:  []model.Point{{X: 1.5, Y: 2.5}},
	})
	assert.NoError(t, s.SaveRoom(room))

	got, err := s.GetRoom(room.ID)
	assert.NoError(t, err)
	assert.Equal(t, room.Strokes, got.Strokes)
	assert.Equal(t, room.Layers, got.Layers)

	// records are detached from caller slices
	room.Strokes[0].Color = "#000000"
	again, err := s.GetRoom(room.ID)
	assert.NoError(t, err)
	assert.Equal(t, "#0ea5e9", again.Strokes[0].Color)
}

func TestMemoryGetMissing(t *testing.T) {
	s := NewMemory()
	_, err := s.GetRoom("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestMemoryListRooms(t *testing.T) {
	s := NewMemory()
	a, _ := s.CreateRoom(model.ProjectPixel, 16)
	b, _ := s.CreateRoom(model.ProjectFreehand, 1)

	rooms, err := s.ListRooms()
	assert.NoError(t, err)
	assert.Len(t, rooms, 2)

	ids := []string{rooms[0].ID, rooms[1].ID}
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
}
