// Package broadcast fans contest state out to observers. A hub owns one
// room per contest; rooms are created on first subscribe and torn down on
// last unsubscribe. Publishing is fire-and-forget: a mutation never blocks
// on, or fails because of, the broadcast path.
package broadcast

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pokedraft/pokedraft-backend/pkg/types"
)

// SnapshotFunc loads the current full view of a contest. The hub calls it
// on subscribe and after every publish signal.
type SnapshotFunc func(ctx context.Context, contestID string) (*types.Snapshot, error)

type HubMsg interface{ isHubMsg() }

type Subscribe struct {
	ContestID string
	ClientID  string
	Outbox    chan types.ServerMessage
}

type Unsubscribe struct {
	ContestID string
	ClientID  string
}

type publishSignal struct{ ContestID string }

type roomClosed struct {
	ContestID string
	room      *room
}

type ShutdownHub struct{}

// HubView is a test-only reflection of hub internals.
type HubView struct {
	NumRooms int
}

type GetHubState struct {
	Reply chan HubView
}

func (Subscribe) isHubMsg()     {}
func (Unsubscribe) isHubMsg()   {}
func (publishSignal) isHubMsg() {}
func (roomClosed) isHubMsg()    {}
func (ShutdownHub) isHubMsg()   {}
func (GetHubState) isHubMsg()   {}

type Options struct {
	Throttle  time.Duration // min gap between delta publishes per contest
	Heartbeat time.Duration // dead-connection probe interval
}

func (o *Options) defaults() {
	if o.Throttle <= 0 {
		o.Throttle = 200 * time.Millisecond
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 30 * time.Second
	}
}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room
	snap   SnapshotFunc
	log    *zap.Logger
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, snap SnapshotFunc, log *zap.Logger, opts Options) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	opts.defaults()
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 256),
		rooms:  make(map[string]*room),
		snap:   snap,
		log:    log,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Publish signals that a contest changed. Never blocks: if the hub inbox
// is full the signal is dropped, and the next successful one catches the
// observers up (deltas are snapshots, not increments).
func (h *Hub) Publish(contestID string) {
	select {
	case h.inbox <- publishSignal{ContestID: contestID}:
	default:
		h.log.Warn("broadcast inbox full, publish dropped", zap.String("contest", contestID))
	}
}

func (h *Hub) subscribe(contestID string, j join) {
	r := h.rooms[contestID]
	if r == nil || r.closed() {
		r = newRoom(h.ctx, contestID, h.snap, h.log, h.opts, h.inbox)
		h.rooms[contestID] = r
	}
	r.inbox <- j
}

// rescueJoins re-homes joins still queued in a dead room's inbox. A
// subscribe the hub routed to the room after its final leave but before its
// close notice landed would otherwise never receive a snapshot and leave
// its sink open forever.
func (h *Hub) rescueJoins(contestID string, dead *room) {
	for {
		select {
		case m := <-dead.inbox:
			if j, ok := m.(join); ok {
				h.subscribe(contestID, j)
			}
		default:
			return
		}
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Subscribe:
				h.subscribe(msg.ContestID, join{ClientID: msg.ClientID, Outbox: msg.Outbox})

			case Unsubscribe:
				if r := h.rooms[msg.ContestID]; r != nil {
					r.inbox <- leave{ClientID: msg.ClientID}
				}

			case publishSignal:
				// No room means no observers; nothing to do.
				if r := h.rooms[msg.ContestID]; r != nil {
					select {
					case r.inbox <- publish{}:
					default:
					}
				}

			case roomClosed:
				// A new room may already have replaced the closed one.
				if h.rooms[msg.ContestID] == msg.room {
					delete(h.rooms, msg.ContestID)
				}
				h.rescueJoins(msg.ContestID, msg.room)

			case GetHubState:
				msg.Reply <- HubView{NumRooms: len(h.rooms)}

			case ShutdownHub:
				for _, r := range h.rooms {
					r.inbox <- shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}
