// Package canvas implements the client side of a shared canvas room: the
// local state machine that captures strokes optimistically, reconciles
// them with broadcasts from the authority, and composites the result.
package canvas

import (
	"errors"
	"sync"

	"github.com/gogpu/gg"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"risuem.me/model"
	"risuem.me/pkg/protocol"
)

// State is the connection/gesture state of the engine.
type State int

const (
	StateDisconnected State = iota
	StateJoining
	StateSynced
	StateDrawing
	StatePanning
)

var (
	ErrNotSynced        = errors.New("engine is not synced to a room")
	ErrGestureActive    = errors.New("another gesture is already active")
	ErrLayerUnavailable = errors.New("active layer is hidden or locked")
)

// Transport carries client messages to the authority.
type Transport interface {
	Send(msg *protocol.Message) error
}

// Engine is the per-room client state machine. One goroutine (the UI)
// drives gestures while another (the transport read loop) feeds remote
// messages into Handle, so all state is guarded by one mutex.
type Engine struct {
	mu sync.Mutex

	state     State
	transport Transport
	viewport  *Viewport

	userID   string
	userName string
	roomID   string

	canvasSize  float64
	projectType model.ProjectType
	resolution  int
	strokes     []model.Stroke
	layers      []model.Layer
	userCount   int

	activeLayer string
	tool        model.StrokeMode
	color       string
	brushSize   float64

	draft *Draft

	// redoStack holds locally undone strokes; it only ever tracks local
	// authorship and is wiped by any new committed action.
	redoStack []model.Stroke
}

func NewEngine(userID, userName string, canvasSize float64, t Transport, vp *Viewport) *Engine {
	return &Engine{
		state:      StateDisconnected,
		transport:  t,
		viewport:   vp,
		userID:     userID,
		userName:   userName,
		canvasSize: canvasSize,
		tool:       model.ModeFreehand,
		color:      "#111827",
		brushSize:  4,
	}
}

// Join sends the join request; the engine reaches StateSynced once the
// authority answers with an init snapshot.
func (e *Engine) Join(roomID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = StateJoining
	e.roomID = roomID
	return e.transport.Send(&protocol.Message{
		Type:     protocol.TypeJoin,
		RoomID:   roomID,
		UserID:   e.userID,
		UserName: e.userName,
	})
}

// Handle applies one message from the authority. Remote operations never
// touch the local undo/redo bookkeeping except where noted.
func (e *Engine) Handle(msg *protocol.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch msg.Type {
	case protocol.TypeInit:
		// full authoritative state replaces everything local
		e.projectType = msg.ProjectType
		e.resolution = msg.Resolution
		e.strokes = append([]model.Stroke{}, msg.Strokes...)
		e.layers = append([]model.Layer{}, msg.Layers...)
		e.redoStack = nil
		e.draft = nil
		if e.activeLayer == "" && len(e.layers) > 0 {
			e.activeLayer = e.layers[0].ID
		}
		if e.state == StateJoining || e.state == StateDrawing {
			e.state = StateSynced
		}
	case protocol.TypeDraw:
		if msg.Stroke != nil {
			e.strokes = append(e.strokes, *msg.Stroke)
		}
	case protocol.TypeUndo:
		e.removeStroke(msg.StrokeID)
	case protocol.TypeClear:
		e.strokes = nil
		e.redoStack = nil
	case protocol.TypeChangeResolution:
		e.resolution = msg.Resolution
		e.strokes = nil
		e.redoStack = nil
	case protocol.TypeUserCount:
		e.userCount = msg.Count
	case protocol.TypeUpdateLayers:
		e.layers = append([]model.Layer{}, msg.Layers...)
	case protocol.TypeError:
		log.Warnf("server error %s: %s", msg.Code, msg.Reason)
	default:
		return errors.New("unexpected message type: " + string(msg.Type))
	}
	return nil
}

// SetTool selects pixel, freehand or eraser for the next stroke.
func (e *Engine) SetTool(tool model.StrokeMode) {
	e.mu.Lock()
	e.tool = tool
	e.mu.Unlock()
}

func (e *Engine) SetColor(color string) {
	e.mu.Lock()
	e.color = color
	e.mu.Unlock()
}

func (e *Engine) SetBrushSize(size float64) {
	e.mu.Lock()
	e.brushSize = size
	e.mu.Unlock()
}

func (e *Engine) SetActiveLayer(layerID string) {
	e.mu.Lock()
	e.activeLayer = layerID
	e.mu.Unlock()
}

// BeginStroke opens a draft at the given canvas coordinate. It refuses
// when the engine is not synced, a pan is in progress, or the active
// layer is hidden or locked.
func (e *Engine) BeginStroke(x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateSynced:
	case StatePanning, StateDrawing:
		return ErrGestureActive
	default:
		return ErrNotSynced
	}

	for _, l := range e.layers {
		if l.ID == e.activeLayer && (l.Locked || !l.Visible) {
			return ErrLayerUnavailable
		}
	}

	e.draft = newDraft(e.tool, e.color, e.brushSize, e.activeLayer, e.canvasSize, e.resolution)
	e.draft.Append(x, y)
	e.state = StateDrawing
	return nil
}

// ExtendStroke feeds another pointer sample into the open draft.
func (e *Engine) ExtendStroke(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDrawing || e.draft == nil {
		return
	}
	e.draft.Append(x, y)
}

// EndStroke freezes the draft, commits it locally, clears the redo stack
// (a new action invalidates forward history) and sends it to the
// authority.
func (e *Engine) EndStroke() (*model.Stroke, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateDrawing || e.draft == nil {
		return nil, errors.New("no stroke in progress")
	}

	stroke := e.draft.Freeze(uuid.NewString(), e.userID, e.userName)
	e.draft = nil
	e.state = StateSynced
	e.strokes = append(e.strokes, stroke)
	e.redoStack = nil

	err := e.transport.Send(&protocol.Message{Type: protocol.TypeDraw, Stroke: &stroke})
	return &stroke, err
}

// CancelStroke drops the draft with no commit, e.g. when the connection
// closes mid-gesture.
func (e *Engine) CancelStroke() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDrawing {
		e.state = StateSynced
	}
	e.draft = nil
}

// BeginPan enters the modal pan gesture; drawing and panning are
// mutually exclusive.
func (e *Engine) BeginPan() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateSynced:
		e.state = StatePanning
		return nil
	case StateDrawing, StatePanning:
		return ErrGestureActive
	default:
		return ErrNotSynced
	}
}

func (e *Engine) PanBy(dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePanning && e.viewport != nil {
		e.viewport.PanBy(dx, dy)
	}
}

func (e *Engine) EndPan() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePanning {
		e.state = StateSynced
	}
}

// Undo removes the most recent stroke authored by the local user,
// leaving other users' later strokes in place, and notifies the
// authority. The undone stroke becomes redoable.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateSynced && e.state != StateDrawing {
		return ErrNotSynced
	}

	for i := len(e.strokes) - 1; i >= 0; i-- {
		if e.strokes[i].UserID != e.userID {
			continue
		}
		undone := e.strokes[i]
		e.strokes = append(e.strokes[:i], e.strokes[i+1:]...)
		e.redoStack = append(e.redoStack, undone)
		return e.transport.Send(&protocol.Message{Type: protocol.TypeUndo, StrokeID: undone.ID})
	}
	return nil
}

// Redo re-commits the most recently undone stroke. It is appended to the
// end of the list and re-sent as a fresh draw, so its z-order moves
// above anything drawn since the undo.
func (e *Engine) Redo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.redoStack) == 0 {
		return nil
	}

	stroke := e.redoStack[len(e.redoStack)-1]
	e.redoStack = e.redoStack[:len(e.redoStack)-1]
	e.strokes = append(e.strokes, stroke)
	return e.transport.Send(&protocol.Message{Type: protocol.TypeDraw, Stroke: &stroke})
}

// Clear wipes the local list optimistically and asks the authority to
// clear the room.
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateSynced {
		return ErrNotSynced
	}
	e.strokes = nil
	e.redoStack = nil
	return e.transport.Send(&protocol.Message{Type: protocol.TypeClear})
}

// UpdateLayers replaces the layer list optimistically and proposes it
// to the authority, last writer wins. The final layer cannot be removed.
func (e *Engine) UpdateLayers(layers []model.Layer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateSynced {
		return ErrNotSynced
	}
	if len(layers) == 0 {
		return errors.New("a room must keep at least one layer")
	}
	e.layers = append([]model.Layer{}, layers...)
	return e.transport.Send(&protocol.Message{Type: protocol.TypeUpdateLayers, Layers: e.layers})
}

// ChangeResolution switches the grid optimistically and asks the
// authority to follow. Cell coordinates do not carry over, so the
// committed list and the forward history are wiped.
func (e *Engine) ChangeResolution(resolution int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateSynced {
		return ErrNotSynced
	}
	if resolution < 1 {
		return errors.New("resolution must be positive")
	}
	e.resolution = resolution
	e.strokes = nil
	e.redoStack = nil
	return e.transport.Send(&protocol.Message{Type: protocol.TypeChangeResolution, Resolution: resolution})
}

// ImportProject pushes a whole document into the room. Local state is
// left alone here: the authority answers with a full init snapshot that
// reconciles the importer along with everyone else.
func (e *Engine) ImportProject(snap *model.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateSynced {
		return ErrNotSynced
	}
	if snap == nil || len(snap.Layers) == 0 {
		return errors.New("a project must hold at least one layer")
	}
	return e.transport.Send(&protocol.Message{
		Type:       protocol.TypeImportProject,
		Resolution: snap.Resolution,
		Strokes:    snap.Strokes,
		Layers:     snap.Layers,
	})
}

// Disconnect drops the transport state; an in-progress draft is
// discarded with no partial commit.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateDisconnected
	e.draft = nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) UserCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userCount
}

func (e *Engine) Resolution() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolution
}

func (e *Engine) Viewport() *Viewport {
	return e.viewport
}

// Strokes returns the committed list; the caller must not mutate it.
func (e *Engine) Strokes() []model.Stroke {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Stroke{}, e.strokes...)
}

func (e *Engine) Layers() []model.Layer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Layer{}, e.layers...)
}

// Render composites the current state, the open draft appended virtually
// at the end.
func (e *Engine) Render(opts RenderOptions) *gg.Context {
	e.mu.Lock()
	snap := &model.Snapshot{
		Type:       e.projectType,
		Resolution: e.resolution,
		Strokes:    append([]model.Stroke{}, e.strokes...),
		Layers:     append([]model.Layer{}, e.layers...),
	}
	if e.draft != nil {
		snap.Strokes = append(snap.Strokes, e.draft.Stroke())
	}
	opts.LocalUserID = e.userID
	canvasSize := e.canvasSize
	e.mu.Unlock()

	return Render(snap, canvasSize, opts)
}

func (e *Engine) removeStroke(strokeID string) {
	for i := range e.strokes {
		if e.strokes[i].ID == strokeID {
			e.strokes = append(e.strokes[:i], e.strokes[i+1:]...)
			return
		}
	}
}
