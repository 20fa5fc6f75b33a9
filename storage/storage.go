package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
	"risuem.me/model"
	"risuem.me/pkg/utils"
)

// ErrRoomNotFound is returned on reads of rooms that were never created.
var ErrRoomNotFound = errors.New("room not found")

// Storage is the durable store behind the room authority. The in-memory
// working copy of a room is the source of truth while the room is warm;
// the store is read only on cold loads and written through on every
// mutating operation.
type Storage interface {
	RoomExist(roomID string) bool
	CreateRoom(t model.ProjectType, resolution int) (*model.Room, error)
	GetRoom(roomID string) (*model.Room, error)
	SaveRoom(room *model.Room) error
	ListRooms() ([]*model.Room, error)
}

type storage struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) Storage {
	return &storage{rdb: rdb}
}

func (s *storage) CreateRoom(t model.ProjectType, resolution int) (*model.Room, error) {
	var ID string
	for i := 5; i <= 15; i++ {
		newID := utils.RandString(i)
		if !s.RoomExist(newID) {
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

	if err := s.SaveRoom(room); err != nil {
		return nil, err
	}
	err := s.rdb.ZAdd("rooms", &redis.Z{
		Score:  float64(room.CreatedAt.Unix()),
		Member: ID,
	}).Err()
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (s *storage) SaveRoom(room *model.Room) error {
	if room.ID == "" {
		return fmt.Errorf("invalid room id: %s", room.ID)
	}

	strokesJSON, err := json.Marshal(room.Strokes)
	if err != nil {
		return err
	}
	layersJSON, err := json.Marshal(room.Layers)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"id":         room.ID,
		"type":       string(room.Type),
		"resolution": room.Resolution,
		"strokes":    string(strokesJSON),
		"layers":     string(layersJSON),
		"created_at": room.CreatedAt.Format(time.RFC3339),
	}
	return s.rdb.HSet("room:"+room.ID, data).Err()
}

func (s *storage) GetRoom(roomID string) (*model.Room, error) {
	data := s.rdb.HGetAll("room:" + roomID).Val()
	if len(data) == 0 {
		return nil, ErrRoomNotFound
	}
	return roomFromRecord(data)
}

func (s *storage) ListRooms() ([]*model.Room, error) {
	ids, err := s.rdb.ZRange("rooms", 0, -1).Result()
	if err != nil {
		return nil, err
	}

	rooms := make([]*model.Room, 0, len(ids))
	for _, id := range ids {
		room, err := s.GetRoom(id)
		if err != nil {
			// index entries may outlive their record, skip them
			continue
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *storage) RoomExist(roomID string) bool {
	return s.rdb.Exists("room:"+roomID).Val() == 1
}

func roomFromRecord(data map[string]string) (*model.Room, error) {
	var r model.Room
	r.ID = data["id"]
	r.Type = model.ProjectType(data["type"])
	r.Resolution = utils.ParseInt(data["resolution"], 16, 1, 1<<16)

	if err := json.Unmarshal([]byte(data["strokes"]), &r.Strokes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data["layers"]), &r.Layers); err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339, data["created_at"])
	if err != nil {
		return nil, err
	}
	r.CreatedAt = createdAt
	return &r, nil
}
