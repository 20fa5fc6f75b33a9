package hub

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/labstack/gommon/log"
	"risuem.me/model"
	"risuem.me/pkg/protocol"
	"risuem.me/storage"
)

const (
	saveAttempts = 3
	saveBackoff  = 50 * time.Millisecond
)

// Room is the warm, authoritative copy of one shared canvas. All state
// access runs on a single dispatcher goroutine, so operations for a room
// are applied strictly in arrival order and need no locking.
type Room struct {
	state   *model.Room
	members map[*Session]struct{}
	count   int32

	store storage.Storage
	tasks chan func()
	done  chan struct{}
}

func newRoom(state *model.Room, store storage.Storage) *Room {
	r := &Room{
		state:   state,
		members: make(map[*Session]struct{}),
		store:   store,
		tasks:   make(chan func(), 64),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Room) run() {
	for {
		select {
		case f := <-r.tasks:
			f()
		case <-r.done:
			return
		}
	}
}

// do runs f on the dispatcher and waits for it. It reports false when
// the room has been evicted, in which case f never ran.
func (r *Room) do(f func()) bool {
	ran := make(chan struct{})
	task := func() {
		f()
		close(ran)
	}

	select {
	case r.tasks <- task:
	case <-r.done:
		return false
	}

	select {
	case <-ran:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) stop() {
	close(r.done)
}

// MemberCount is safe to call from any goroutine.
func (r *Room) MemberCount() int {
	return int(atomic.LoadInt32(&r.count))
}

// Join registers the session, delivers the full state snapshot to the
// joiner and then announces the new member count to every member, the
// joiner included. The init is written from the dispatcher so the
// joiner's stream is totally ordered: the snapshot always arrives
// before any operation applied after registration. It reports false
// when the room was evicted before the join could run.
func (r *Room) Join(sess *Session) (*model.Snapshot, bool) {
	var snap *model.Snapshot
	ok := r.do(func() {
		r.members[sess] = struct{}{}
		atomic.StoreInt32(&r.count, int32(len(r.members)))
		snap = r.state.Snapshot()
		if err := sess.Send(protocol.Init(snap)); err != nil {
			log.Warnf("init to user %s failed: %v", sess.UserID, err)
		}
		r.broadcast(&protocol.Message{Type: protocol.TypeUserCount, Count: len(r.members)}, nil)
	})
	return snap, ok
}

// Leave deregisters the session and returns the remaining member count.
func (r *Room) Leave(sess *Session) int {
	remaining := 0
	r.do(func() {
		delete(r.members, sess)
		atomic.StoreInt32(&r.count, int32(len(r.members)))
		remaining = len(r.members)
		r.broadcast(&protocol.Message{Type: protocol.TypeUserCount, Count: remaining}, nil)
	})
	return remaining
}

// ApplyDraw appends the stroke and fans it out to everyone except the
// author, who already rendered it optimistically. Drawing against a
// locked or hidden layer is refused; a stroke whose layer id matches no
// layer at all is accepted and simply renders nothing on the clients.
func (r *Room) ApplyDraw(sess *Session, stroke model.Stroke) error {
	var err error
	r.do(func() {
		if layer := r.state.LayerByID(stroke.LayerID); layer != nil && (layer.Locked || !layer.Visible) {
			err = fmt.Errorf("layer %q is locked or hidden", stroke.LayerID)
			return
		}
		r.state.Strokes = append(r.state.Strokes, stroke)
		r.persist()
		r.broadcast(&protocol.Message{Type: protocol.TypeDraw, Stroke: &stroke}, sess)
	})
	return err
}

// ApplyUndo removes the first stroke with the given id. A miss is a
// no-op for the stroke list but is still persisted and announced, which
// keeps every client converging on the same state.
func (r *Room) ApplyUndo(sess *Session, strokeID string) {
	r.do(func() {
		for i := range r.state.Strokes {
			if r.state.Strokes[i].ID == strokeID {
				r.state.Strokes = append(r.state.Strokes[:i], r.state.Strokes[i+1:]...)
				break
			}
		}
		r.persist()
		r.broadcast(&protocol.Message{Type: protocol.TypeUndo, StrokeID: strokeID}, sess)
	})
}

// ApplyClear empties the stroke list.
func (r *Room) ApplyClear(sess *Session) {
	r.do(func() {
		r.state.Strokes = []model.Stroke{}
		r.persist()
		r.broadcast(&protocol.Message{Type: protocol.TypeClear}, sess)
	})
}

// ChangeResolution sets a new grid resolution. Cell coordinates do not
// carry over between grids, so the stroke list is wiped unconditionally.
func (r *Room) ChangeResolution(sess *Session, resolution int) {
	r.do(func() {
		r.state.Resolution = resolution
		r.state.Strokes = []model.Stroke{}
		r.persist()
		r.broadcast(&protocol.Message{Type: protocol.TypeChangeResolution, Resolution: resolution}, sess)
	})
}

// UpdateLayers replaces the layer list wholesale, last writer wins.
// An empty list would delete the final layer and is refused.
func (r *Room) UpdateLayers(sess *Session, layers []model.Layer) error {
	var err error
	r.do(func() {
		if len(layers) == 0 {
			err = fmt.Errorf("a room must keep at least one layer")
			return
		}
		r.state.Layers = append([]model.Layer{}, layers...)
		r.persist()
		r.broadcast(&protocol.Message{Type: protocol.TypeUpdateLayers, Layers: r.state.Layers}, sess)
	})
	return err
}

// ImportProject replaces strokes, layers and resolution wholesale and
// pushes a full init snapshot to every member, the importer included, so
// all optimistic local state is reconciled to the imported document.
func (r *Room) ImportProject(sess *Session, strokes []model.Stroke, layers []model.Layer, resolution int) error {
	var err error
	r.do(func() {
		if len(layers) == 0 {
			err = fmt.Errorf("a project must hold at least one layer")
			return
		}
		r.state.Strokes = append([]model.Stroke{}, strokes...)
		r.state.Layers = append([]model.Layer{}, layers...)
		r.state.Resolution = resolution
		r.persist()
		r.broadcast(protocol.Init(r.state.Snapshot()), nil)
	})
	return err
}

// Snapshot returns the current state; used by the export endpoints.
func (r *Room) Snapshot() (*model.Snapshot, bool) {
	var snap *model.Snapshot
	ok := r.do(func() {
		snap = r.state.Snapshot()
	})
	return snap, ok
}

// persist writes the room through to the durable store. The write is
// synchronous on the dispatcher and retried with a short backoff; when
// all attempts fail the in-memory state stays applied and members are
// told their work is not saved.
func (r *Room) persist() {
	var err error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(saveBackoff << uint(attempt-1))
		}
		if err = r.store.SaveRoom(r.state); err == nil {
			return
		}
	}

	log.Errorf("room %s not persisted: %v", r.state.ID, err)
	r.broadcast(protocol.Error(protocol.CodeSaveFailed, "room state could not be saved"), nil)
}

// broadcast sends msg to every member except exclude. Send failures are
// logged and skipped; a dying connection cleans itself up on its own
// read loop.
func (r *Room) broadcast(msg *protocol.Message, exclude *Session) {
	b, err := msg.Encode()
	if err != nil {
		log.Error(err)
		return
	}
	for sess := range r.members {
		if sess == exclude {
			continue
		}
		if err := sess.sendRaw(b); err != nil {
			log.Warnf("send to user %s failed: %v", sess.UserID, err)
		}
	}
}
