// Package protocol defines the message envelope exchanged between clients
// and the room authority over the websocket transport.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"risuem.me/model"
	"risuem.me/pkg/utils"
)

// Type discriminates messages on the wire.
type Type string

const (
	TypeJoin             Type = "join"
	TypeInit             Type = "init"
	TypeDraw             Type = "draw"
	TypeUndo             Type = "undo"
	TypeClear            Type = "clear"
	TypeChangeResolution Type = "change_resolution"
	TypeUserCount        Type = "user_count"
	TypeUpdateLayers     Type = "update_layers"
	TypeImportProject    Type = "import_project"
	TypeError            Type = "error"
)

// Error codes carried by TypeError messages.
const (
	CodeRoomNotFound = "room_not_found"
	CodeLayerLocked  = "layer_locked"
	CodeBadMessage   = "bad_message"
	CodeSaveFailed   = "save_failed"
)

// Message is the self-describing envelope; only the fields relevant to
// its Type are set.
type Message struct {
	Type Type `json:"type"`

	// join
	RoomID   string `json:"roomId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`

	// draw
	Stroke *model.Stroke `json:"stroke,omitempty"`

	// undo
	StrokeID string `json:"strokeId,omitempty"`

	// init / change_resolution / import_project
	ProjectType model.ProjectType `json:"projectType,omitempty"`
	Resolution  int               `json:"resolution,omitempty"`
	Strokes     []model.Stroke    `json:"strokes,omitempty"`

	// init / update_layers / import_project
	Layers []model.Layer `json:"layers,omitempty"`

	// user_count
	Count int `json:"count,omitempty"`

	// error
	Code   string `json:"code,omitempty"`
	Reason string `json:"message,omitempty"`
}

// Decode parses and validates a raw incoming message.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the payload shape required by the message type.
func (m *Message) Validate() error {
	switch m.Type {
	case TypeJoin:
		if strings.TrimSpace(m.RoomID) == "" {
			return fmt.Errorf("invalid '%s' request, 'roomId' is required", m.Type)
		}
		if strings.TrimSpace(m.UserID) == "" {
			return fmt.Errorf("invalid '%s' request, 'userId' is required", m.Type)
		}
		if !utils.IsNameValid(m.UserName) {
			return fmt.Errorf("invalid '%s' request, a valid 'userName' is required", m.Type)
		}
	case TypeDraw:
		if m.Stroke == nil || !m.Stroke.Valid() {
			return fmt.Errorf("invalid '%s' request, a well-formed 'stroke' is required", m.Type)
		}
	case TypeUndo:
		if strings.TrimSpace(m.StrokeID) == "" {
			return fmt.Errorf("invalid '%s' request, 'strokeId' is required", m.Type)
		}
	case TypeClear:
	case TypeChangeResolution:
		if m.Resolution < 1 {
			return fmt.Errorf("invalid '%s' request, 'resolution' must be positive", m.Type)
		}
	case TypeUpdateLayers:
		if len(m.Layers) == 0 {
			return fmt.Errorf("invalid '%s' request, 'layers' must not be empty", m.Type)
		}
	case TypeImportProject:
		if m.Resolution < 1 {
			return fmt.Errorf("invalid '%s' request, 'resolution' must be positive", m.Type)
		}
		if len(m.Layers) == 0 {
			return fmt.Errorf("invalid '%s' request, 'layers' must not be empty", m.Type)
		}
	case TypeInit, TypeUserCount, TypeError:
		// server-originated, accepted as-is on the client side
	default:
		return fmt.Errorf("invalid request type: '%s'", m.Type)
	}
	return nil
}

// Init builds the full-state snapshot message sent on join and import.
func Init(s *model.Snapshot) *Message {
	return &Message{
		Type:        TypeInit,
		ProjectType: s.Type,
		Resolution:  s.Resolution,
		Strokes:     s.Strokes,
		Layers:      s.Layers,
	}
}

// Error builds a client-facing failure notice.
func Error(code, reason string) *Message {
	return &Message{Type: TypeError, Code: code, Reason: reason}
}

// Encode marshals m; the envelope contains no unmarshalable values, so
// failures are programming errors surfaced to the caller.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
