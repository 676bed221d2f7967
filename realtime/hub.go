package realtime

import (
	"sync"
	"time"

	"watchparty/core"
	"watchparty/metrics"

	"github.com/sirupsen/logrus"
)

// Conn is one participant's outbound channel. The hub owns the mapping from
// connections to rooms; callers never hold room state themselves.
type Conn interface {
	ID() string
	Emit(event string, payload any)
}

// Hub owns the set of open connections keyed by room and provides ordered
// per-room fan-out. All join, leave and publish calls for a given room are
// serialized, which is what gives each room a single total order; operations
// on different rooms proceed in parallel.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	byConn   map[string]string // conn id -> room id
	presence *Tracker
	met      *metrics.Metrics
}

// room is one ordering domain. Its mutex serializes every operation that
// touches it; seq is shared by playback events, chat and system notices so
// the whole room timeline has one order.
type room struct {
	mu    sync.Mutex
	id    string
	seq   uint64
	conns map[string]Conn
	state core.PlaybackState
}

func NewHub(presence *Tracker, met *metrics.Metrics) *Hub {
	if presence == nil {
		presence = NewTracker()
	}
	return &Hub{
		rooms:    make(map[string]*room),
		byConn:   make(map[string]string),
		presence: presence,
		met:      met,
	}
}

// Presence exposes the tracker, for gauges and handlers.
func (h *Hub) Presence() *Tracker {
	return h.presence
}

func (h *Hub) getRoom(roomID string, create bool) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[roomID]
	if !ok && create {
		rm = &room{id: roomID, conns: make(map[string]Conn)}
		h.rooms[roomID] = rm
	}
	return rm
}

// Join registers the connection under the room, sends it the room's current
// playback state, notifies the other members and broadcasts the updated
// participant count to everyone including the joiner. A connection is bound
// to exactly one room: joining while already joined leaves the previous room
// first, with the usual user-left notices there.
func (h *Hub) Join(conn Conn, roomID string) {
	h.Leave(conn)

	rm := h.getRoom(roomID, true)

	h.mu.Lock()
	h.byConn[conn.ID()] = roomID
	h.mu.Unlock()

	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.conns[conn.ID()] = conn
	conn.Emit(EventSyncState, rm.state)

	for id, c := range rm.conns {
		if id != conn.ID() {
			c.Emit(EventUserJoined, IDPayload{ID: conn.ID()})
		}
	}
	count := h.presence.Joined(roomID)
	for _, c := range rm.conns {
		c.Emit(EventParticipants, CountPayload{Count: count})
	}

	h.met.IncJoins()
	logrus.WithFields(logrus.Fields{
		"conn_id":      conn.ID(),
		"room_id":      roomID,
		"participants": count,
	}).Info("Connection joined room")
}

// Leave removes the connection from its room, for any disconnect reason. It
// is idempotent: leaving a connection that never joined is a no-op.
func (h *Hub) Leave(conn Conn) {
	h.mu.Lock()
	roomID, ok := h.byConn[conn.ID()]
	if ok {
		delete(h.byConn, conn.ID())
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	rm := h.getRoom(roomID, false)
	if rm == nil {
		return
	}

	rm.mu.Lock()
	delete(rm.conns, conn.ID())
	count := h.presence.Left(roomID)
	for _, c := range rm.conns {
		c.Emit(EventUserLeft, IDPayload{ID: conn.ID()})
		c.Emit(EventParticipants, CountPayload{Count: count})
	}
	empty := len(rm.conns) == 0
	rm.mu.Unlock()

	// Room state is session-scoped; once the last participant leaves, the
	// ordering domain and its playback state are gone.
	if empty {
		h.mu.Lock()
		if cur, ok := h.rooms[roomID]; ok && cur == rm {
			delete(h.rooms, roomID)
		}
		h.mu.Unlock()
	}

	h.met.IncLeaves()
	logrus.WithFields(logrus.Fields{
		"conn_id":      conn.ID(),
		"room_id":      roomID,
		"participants": count,
	}).Info("Connection left room")
}

// RoomOf returns the room a connection is currently joined to, if any.
func (h *Hub) RoomOf(connID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	roomID, ok := h.byConn[connID]
	return roomID, ok
}

// Publish stamps the event with the room's next sequence number, folds it
// into the room's playback state and delivers it to every member except the
// origin. A publish to a room with no members is accepted and has no effect.
func (h *Hub) Publish(roomID string, kind core.EventKind, position float64, origin string) (uint64, bool) {
	rm := h.getRoom(roomID, false)
	if rm == nil {
		return 0, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.seq++
	ev := core.PlaybackEvent{Kind: kind, Position: position, Origin: origin, Seq: rm.seq}
	rm.state.Apply(ev, time.Now())

	for id, c := range rm.conns {
		if id != origin {
			c.Emit(string(kind), TimePayload{Time: position, Seq: ev.Seq})
		}
	}

	h.met.IncPlaybackEvents(string(kind))
	logrus.WithFields(logrus.Fields{
		"room_id":  roomID,
		"kind":     kind,
		"position": position,
		"seq":      ev.Seq,
		"origin":   origin,
	}).Debug("Playback event published")
	return ev.Seq, true
}

// PublishChat stamps a chat message from the room's shared sequence domain
// and fans it out, optionally excluding the sender's own connection.
func (h *Hub) PublishChat(roomID, author, body, exclude string) (core.ChatMessage, bool) {
	rm := h.getRoom(roomID, false)
	if rm == nil {
		return core.ChatMessage{}, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.seq++
	msg := core.ChatMessage{RoomID: roomID, Author: author, Body: body, Seq: rm.seq}
	for id, c := range rm.conns {
		if id != exclude {
			c.Emit(EventChat, msg)
		}
	}
	return msg, true
}

// State returns a copy of the room's current playback state.
func (h *Hub) State(roomID string) (core.PlaybackState, bool) {
	rm := h.getRoom(roomID, false)
	if rm == nil {
		return core.PlaybackState{}, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.state, true
}

// OpenConnections returns the number of connections currently joined to any
// room, for the participants gauge.
func (h *Hub) OpenConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byConn)
}
