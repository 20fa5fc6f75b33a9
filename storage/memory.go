package storage

import (
	"errors"
	"sync"
	"time"

	"risuem.me/model"
	"risuem.me/pkg/utils"
)

// memory is a Storage kept entirely in process memory. It backs tests
// and redis-less development runs; records are deep-copied on the way in
// and out so callers never share slices with the store.
type memory struct {
	mu    sync.RWMutex
	rooms map[string]*model.Room
}

func NewMemory() Storage {
	return &memory{rooms: make(map[string]*model.Room)}
}

func (m *memory) CreateRoom(t model.ProjectType, resolution int) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ID string
	for i := 5; i <= 15; i++ {
		newID := utils.RandString(i)
		if _, exists := m.rooms[newID]; !exists {
			ID = newID
			break
		}
	}
	if ID == "" {
		return nil, errors.New("unable to generate an unique ID")
	}

	room := &model.Room{
		ID:         ID,
		Type:       t,
		Resolution: resolution,
		Strokes:    []model.Stroke{},
		Layers: []model.Layer{
			{ID: utils.RandString(8), Name: "Layer 1", Visible: true},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	m.rooms[ID] = copyRoom(room)
	return room, nil
}

func (m *memory) SaveRoom(room *model.Room) error {
	if room.ID == "" {
		return errors.New("invalid room id")
	}
	m.mu.Lock()
	m.rooms[room.ID] = copyRoom(room)
	m.mu.Unlock()
	return nil
}

func (m *memory) GetRoom(roomID string) (*model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, exists := m.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return copyRoom(room), nil
}

func (m *memory) ListRooms() ([]*model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms := make([]*model.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, copyRoom(room))
	}
	return rooms, nil
}

func (m *memory) RoomExist(roomID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.rooms[roomID]
	return exists
}

func copyRoom(r *model.Room) *model.Room {
	c := *r
	c.Strokes = append([]model.Stroke{}, r.Strokes...)
	c.Layers = append([]model.Layer{}, r.Layers...)
	return &c
}
