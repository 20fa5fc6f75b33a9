// Package hub holds the room authority: the warm in-memory copy of every
// room with connected members, loaded lazily from storage and evicted
// when the last member leaves.
package hub

import (
	"sync"

	"github.com/labstack/gommon/log"
	"risuem.me/model"
	"risuem.me/storage"
)

type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Room
	store storage.Storage
}

func New(store storage.Storage) *Hub {
	return &Hub{
		rooms: make(map[string]*Room),
		store: store,
	}
}

// Join attaches the session to the room, cold-loading it from storage on
// first access. It returns storage.ErrRoomNotFound for rooms that were
// never created.
func (h *Hub) Join(roomID string, sess *Session) (*model.Snapshot, error) {
	for {
		room, err := h.roomFor(roomID)
		if err != nil {
			return nil, err
		}
		if snap, ok := room.Join(sess); ok {
			sess.RoomID = roomID
			return snap, nil
		}
		// the room was evicted between lookup and join; load it again
	}
}

// Leave detaches the session; the warm copy is dropped once the room has
// no members left. The durable record stays.
func (h *Hub) Leave(sess *Session) {
	if sess.RoomID == "" {
		return
	}

	h.mu.Lock()
	room, exists := h.rooms[sess.RoomID]
	h.mu.Unlock()
	if !exists {
		return
	}

	if room.Leave(sess) > 0 {
		return
	}

	h.mu.Lock()
	if room.MemberCount() == 0 {
		delete(h.rooms, sess.RoomID)
		room.stop()
		log.Infof("room %s evicted", sess.RoomID)
	}
	h.mu.Unlock()
}

// Room returns the warm room a session is attached to.
func (h *Hub) Room(roomID string) (*Room, bool) {
	h.mu.Lock()
	room, exists := h.rooms[roomID]
	h.mu.Unlock()
	return room, exists
}

// Snapshot reads room state for the export surfaces, from the warm copy
// when there is one and from storage otherwise.
func (h *Hub) Snapshot(roomID string) (*model.Snapshot, error) {
	if room, exists := h.Room(roomID); exists {
		if snap, ok := room.Snapshot(); ok {
			return snap, nil
		}
	}
	state, err := h.store.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	return state.Snapshot(), nil
}

func (h *Hub) roomFor(roomID string) (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		return room, nil
	}

	state, err := h.store.GetRoom(roomID)
	if err != nil {
		return nil, err
	}

	room := newRoom(state, h.store)
	h.rooms[roomID] = room
	log.Infof("room %s loaded", roomID)
	return room, nil
}
