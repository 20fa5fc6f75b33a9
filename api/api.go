package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/gogpu/gg/text"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"risuem.me/config"
	"risuem.me/hub"
	"risuem.me/model"
	"risuem.me/pkg/canvas"
	"risuem.me/pkg/protocol"
	"risuem.me/storage"
)

type API struct {
	echo       *echo.Echo
	config     *config.Config
	storage    storage.Storage
	hub        *hub.Hub
	workerPool *workerpool.WorkerPool
	face       text.Face
}

func New(c *config.Config, s storage.Storage, h *hub.Hub) *API {
	api := &API{
		echo:       echo.New(),
		config:     c,
		storage:    s,
		hub:        h,
		workerPool: workerpool.New(c.MaxWorkers),
	}

	if c.FontPath != "" {
		face, err := canvas.LoadFace(c.FontPath, 9)
		if err != nil {
			log.Warnf("font %s not loaded, attribution badges stay letterless: %v", c.FontPath, err)
		} else {
			api.face = face
		}
	}

	api.echo.HideBanner = true
	api.echo.Use(middleware.CORS())

	api.echo.GET("/", api.ping)
	api.echo.GET("/config", api.clientConfig)
	api.echo.GET("/rooms", api.listRooms)
	api.echo.POST("/room", api.createRoom)
	api.echo.GET("/room/:roomID", api.getRoom)
	api.echo.GET("/room/:roomID/export.png", api.exportPNG)
	api.echo.GET("/room/:roomID/project", api.exportProject)
	api.echo.Any("/ws", api.websocket)

	return api
}

func (api *API) Start() error {
	return api.echo.Start(":" + strconv.Itoa(api.config.HttpPort))
}

func (api *API) Close(ctx context.Context) error {
	api.workerPool.StopWait()
	return api.echo.Shutdown(ctx)
}

// Ping handler
func (api *API) ping(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Client bootstrap parameters: the logical surface size and the
// pan/zoom limits every client should honor
func (api *API) clientConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"canvasSize":        api.config.CanvasSize,
		"defaultResolution": api.config.DefaultResolution,
		"minZoom":           api.config.MinZoom,
		"maxZoom":           api.config.MaxZoom,
	})
}

type roomSummary struct {
	ID         string            `json:"id"`
	Type       model.ProjectType `json:"type"`
	Resolution int               `json:"resolution"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Lists all rooms ever created
func (api *API) listRooms(c echo.Context) error {
	rooms, err := api.storage.ListRooms()
	if err != nil {
		log.Error(err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	summaries := make([]roomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, roomSummary{
			ID:         r.ID,
			Type:       r.Type,
			Resolution: r.Resolution,
			CreatedAt:  r.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, summaries)
}

// Room creation endpoint
func (api *API) createRoom(c echo.Context) error {
	var req struct {
		Type       model.ProjectType `json:"type"`
		Resolution int               `json:"resolution"`
	}
	if err := c.Bind(&req); err != nil || !req.Type.Valid() {
		if err != nil {
			log.Warn(err)
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity)
	}

	if req.Resolution < 1 {
		req.Resolution = api.config.DefaultResolution
	}
	if req.Type == model.ProjectFreehand {
		req.Resolution = 1
	}

	room, err := api.storage.CreateRoom(req.Type, req.Resolution)
	if err != nil {
		log.Error(err)
		return echo.NewHTTPError(http.StatusConflict)
	}
	return c.JSON(http.StatusOK, room)
}

// Returns room data by roomID
func (api *API) getRoom(c echo.Context) error {
	room, err := api.storage.GetRoom(c.Param("roomID"))
	if err != nil {
		log.Info(err)
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, room)
}

// Endpoint to establish websocket connection
func (api *API) websocket(c echo.Context) error {
	conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
	if err != nil {
		log.Warn(err)
		return c.NoContent(http.StatusBadRequest)
	}
	api.serveConn(conn)
	return nil
}

// wsSender serializes frame writes to one connection; the read loop and
// any number of room dispatchers may send concurrently.
type wsSender struct {
	mu   sync.Mutex
	conn net.Conn
}

func (s *wsSender) Send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wsutil.WriteServerText(s.conn, b)
}

func (s *wsSender) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wsutil.WriteServerMessage(s.conn, ws.OpPing, []byte("ping"))
}

// serveConn runs the per-connection read loop. The first accepted
// message must be a join; afterwards room operations are dispatched
// until the connection breaks. Malformed messages are logged and
// dropped, they never terminate the connection.
func (api *API) serveConn(conn net.Conn) {
	sender := &wsSender{conn: conn}
	done := make(chan bool)

	go func() {
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := sender.ping(); err != nil {
					log.Warn(err)
				}
			}
		}
	}()

	var sess *hub.Session
	defer func() {
		done <- true
		_ = conn.Close()
		if sess != nil {
			api.hub.Leave(sess)
			log.Infof("user %s disconnected from room %s", sess.UserName, sess.RoomID)
		}
	}()

	sendError := func(code, reason string) {
		b, err := protocol.Error(code, reason).Encode()
		if err != nil {
			log.Error(err)
			return
		}
		if err = sender.Send(b); err != nil {
			log.Error(err)
		}
	}

	for {
		b, err := wsutil.ReadClientText(conn)
		if err != nil {
			break
		}

		msg, err := protocol.Decode(b)
		if err != nil {
			log.Warn(err)
			sendError(protocol.CodeBadMessage, err.Error())
			continue
		}

		if sess == nil {
			if msg.Type != protocol.TypeJoin {
				sendError(protocol.CodeBadMessage, "expected a join message first")
				continue
			}
			sess = api.join(msg, sender, sendError)
			continue
		}

		api.dispatch(sess, msg, sendError)
	}
}

// join attaches the connection to a room. The room answers with the
// full state snapshot from its own dispatcher, before any broadcast
// that follows the registration. A join against an unknown room leaves
// the connection open and unattached.
func (api *API) join(msg *protocol.Message, sender *wsSender, sendError func(code, reason string)) *hub.Session {
	sess := hub.NewSession(msg.UserID, msg.UserName, sender)
	if _, err := api.hub.Join(msg.RoomID, sess); err != nil {
		log.Infof("join to room %s refused: %v", msg.RoomID, err)
		sendError(protocol.CodeRoomNotFound, "room '"+msg.RoomID+"' does not exist")
		return nil
	}

	log.Infof("user %s joined room %s", msg.UserName, msg.RoomID)
	return sess
}

func (api *API) dispatch(sess *hub.Session, msg *protocol.Message, sendError func(code, reason string)) {
	room, warm := api.hub.Room(sess.RoomID)
	if !warm {
		sendError(protocol.CodeRoomNotFound, "room '"+sess.RoomID+"' is gone")
		return
	}

	switch msg.Type {
	case protocol.TypeDraw:
		// authorship comes from the session, never from the payload
		msg.Stroke.UserID = sess.UserID
		msg.Stroke.UserName = sess.UserName
		if err := room.ApplyDraw(sess, *msg.Stroke); err != nil {
			sendError(protocol.CodeLayerLocked, err.Error())
		}
	case protocol.TypeUndo:
		room.ApplyUndo(sess, msg.StrokeID)
	case protocol.TypeClear:
		room.ApplyClear(sess)
	case protocol.TypeChangeResolution:
		room.ChangeResolution(sess, msg.Resolution)
	case protocol.TypeUpdateLayers:
		if err := room.UpdateLayers(sess, msg.Layers); err != nil {
			sendError(protocol.CodeBadMessage, err.Error())
		}
	case protocol.TypeImportProject:
		if err := room.ImportProject(sess, msg.Strokes, msg.Layers, msg.Resolution); err != nil {
			sendError(protocol.CodeBadMessage, err.Error())
		}
	default:
		log.Warnf("user %s sent unexpected '%s' message", sess.UserID, msg.Type)
	}
}
