package broadcast

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/pokedraft/pokedraft-backend/pkg/types"
)

type roomMsg interface{ isRoomMsg() }

type join struct {
	ClientID string
	Outbox   chan types.ServerMessage
}

type leave struct{ ClientID string }

type publish struct{}

type shutdown struct{}

// RoomView is a test-only reflection of room internals.
type roomView struct {
	NumClients int
}

type getRoomState struct {
	Reply chan roomView
}

func (join) isRoomMsg()         {}
func (leave) isRoomMsg()        {}
func (publish) isRoomMsg()      {}
func (shutdown) isRoomMsg()     {}
func (getRoomState) isRoomMsg() {}

// room serializes all subscriber bookkeeping for one contest on a single
// goroutine. Deltas are deduplicated against the last published one and
// throttled to one per window; a trailing publish flushes whatever arrived
// during the window.
type room struct {
	contestID string
	inbox     chan roomMsg
	clients   map[string]chan types.ServerMessage
	snap      SnapshotFunc
	log       *zap.Logger
	opts      Options
	hubInbox  chan<- HubMsg

	lastDelta *types.Delta
	lastSent  time.Time
	pending   bool

	ctx    context.Context
	cancel context.CancelFunc
}

func newRoom(parent context.Context, contestID string, snap SnapshotFunc, log *zap.Logger, opts Options, hubInbox chan<- HubMsg) *room {
	ctx, cancel := context.WithCancel(parent)
	r := &room{
		contestID: contestID,
		inbox:     make(chan roomMsg, 64),
		clients:   make(map[string]chan types.ServerMessage),
		snap:      snap,
		log:       log,
		opts:      opts,
		hubInbox:  hubInbox,
		ctx:       ctx,
		cancel:    cancel,
	}
	go r.loop()
	return r
}

func (r *room) loop() {
	heartbeat := time.NewTicker(r.opts.Heartbeat)
	defer heartbeat.Stop()

	// flush fires once per throttle window when a publish arrived inside
	// the window; stopped whenever nothing is pending.
	flush := time.NewTimer(r.opts.Throttle)
	if !flush.Stop() {
		<-flush.C
	}

	for {
		select {
		case <-r.ctx.Done():
			r.close()
			return

		case <-heartbeat.C:
			msg := types.ServerMessage{Type: types.MsgHeartbeat}
			for id, ch := range r.clients {
				select {
				case ch <- msg:
				default:
					r.drop(id, ch)
				}
			}

		case <-flush.C:
			if r.pending {
				r.pending = false
				r.doPublish()
			}

		case m := <-r.inbox:
			switch msg := m.(type) {
			case join:
				r.admit(msg)

			case leave:
				if ch, ok := r.clients[msg.ClientID]; ok {
					close(ch)
					delete(r.clients, msg.ClientID)
				}
				if len(r.clients) == 0 {
					// A join racing the last leave may already sit in the
					// inbox; it keeps the room alive.
					if r.drainJoins() {
						continue
					}
					r.hubInbox <- roomClosed{ContestID: r.contestID, room: r}
					r.close()
					return
				}

			case publish:
				since := time.Since(r.lastSent)
				if since < r.opts.Throttle {
					if !r.pending {
						r.pending = true
						flush.Reset(r.opts.Throttle - since)
					}
					break
				}
				r.doPublish()

			case getRoomState:
				msg.Reply <- roomView{NumClients: len(r.clients)}

			case shutdown:
				r.close()
				return
			}
		}
	}
}

// doPublish loads a fresh snapshot, skips the send when nothing dynamic
// changed, and pushes the delta to every live sink.
func (r *room) doPublish() {
	snap, err := r.snap(r.ctx, r.contestID)
	if err != nil {
		r.log.Error("snapshot for publish failed",
			zap.String("contest", r.contestID), zap.Error(err))
		return
	}
	delta := types.DeltaOf(snap)
	if r.lastDelta != nil && reflect.DeepEqual(delta, r.lastDelta) {
		return
	}
	r.lastDelta = delta
	r.lastSent = time.Now()

	msg := types.ServerMessage{Type: types.MsgDelta, Delta: delta}
	for id, ch := range r.clients {
		select {
		case ch <- msg:
		default:
			// Slow or dead sink: prune it rather than stall the room.
			r.drop(id, ch)
		}
	}
}

// drainJoins pulls any queued messages and admits pending joins. Returns
// true when a join was admitted, meaning the room must stay up.
func (r *room) drainJoins() bool {
	admitted := false
	for {
		select {
		case m := <-r.inbox:
			if msg, ok := m.(join); ok {
				r.admit(msg)
				if len(r.clients) > 0 {
					admitted = true
				}
			}
		default:
			return admitted
		}
	}
}

func (r *room) admit(msg join) {
	snap, err := r.snap(r.ctx, r.contestID)
	if err != nil {
		r.log.Error("snapshot for subscriber failed",
			zap.String("contest", r.contestID), zap.Error(err))
		msg.Outbox <- types.ServerMessage{Type: types.MsgError, Error: "contest unavailable"}
		close(msg.Outbox)
		return
	}
	r.clients[msg.ClientID] = msg.Outbox
	msg.Outbox <- types.ServerMessage{Type: types.MsgFullSnapshot, Snapshot: snap}
}

func (r *room) drop(id string, ch chan types.ServerMessage) {
	close(ch)
	delete(r.clients, id)
}

func (r *room) closed() bool {
	select {
	case <-r.ctx.Done():
		return true
	default:
		return false
	}
}

func (r *room) close() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}
