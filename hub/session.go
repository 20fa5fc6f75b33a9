package hub

import (
	"risuem.me/pkg/protocol"
)

// Sender delivers one encoded message to a connected client. The api
// layer backs it with a websocket connection; tests back it with a
// recorder. Broadcast fan-out depends only on this interface, not on the
// transport.
type Sender interface {
	Send(b []byte) error
}

// Session binds one user to one transport connection for the lifetime of
// that connection. Sessions are never persisted.
type Session struct {
	UserID   string
	UserName string
	RoomID   string
	sender   Sender
}

func NewSession(userID, userName string, sender Sender) *Session {
	return &Session{UserID: userID, UserName: userName, sender: sender}
}

func (s *Session) Send(msg *protocol.Message) error {
	b, err := msg.Encode()
	if err != nil {
		return err
	}
	return s.sender.Send(b)
}

func (s *Session) sendRaw(b []byte) error {
	return s.sender.Send(b)
}
