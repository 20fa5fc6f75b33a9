package canvas

import (
	"context"
	"net"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/labstack/gommon/log"
	"risuem.me/pkg/protocol"
)

// Conn is the websocket transport between an Engine and the authority.
type Conn struct {
	raw net.Conn
}

// Dial opens the websocket connection; the caller still has to send a
// join via Engine.Join before the authority will talk to it.
func Dial(ctx context.Context, url string) (*Conn, error) {
	conn, _, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Conn{raw: conn}, nil
}

func (c *Conn) Send(msg *protocol.Message) error {
	b, err := msg.Encode()
	if err != nil {
		return err
	}
	return wsutil.WriteClientText(c.raw, b)
}

// Serve pumps server messages into the engine until the connection
// breaks. Undecodable frames are logged and dropped, mirroring the
// authority's tolerance for malformed input.
func (c *Conn) Serve(e *Engine) error {
	defer e.Disconnect()
	for {
		b, err := wsutil.ReadServerText(c.raw)
		if err != nil {
			return err
		}

		msg, err := protocol.Decode(b)
		if err != nil {
			log.Warn(err)
			continue
		}
		if err := e.Handle(msg); err != nil {
			log.Warn(err)
		}
	}
}

func (c *Conn) Close() error {
	return c.raw.Close()
}
