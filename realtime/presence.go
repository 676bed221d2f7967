package realtime

import "sync"

// Tracker keeps the live participant count per room. It is a pure function of
// the hub's join/leave notifications: incremented on join, decremented on
// leave, floored at zero, and never adjusted by anything else.
type Tracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewTracker() *Tracker {
	return &Tracker{counts: make(map[string]int)}
}

// Joined records a join and returns the updated count for the room.
func (t *Tracker) Joined(roomID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[roomID]++
	return t.counts[roomID]
}

// Left records a leave and returns the updated count. A leave on an empty
// room stays at zero.
func (t *Tracker) Left(roomID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts[roomID] <= 1 {
		delete(t.counts, roomID)
		return 0
	}
	t.counts[roomID]--
	return t.counts[roomID]
}

// Count returns the current count without mutating it.
func (t *Tracker) Count(roomID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[roomID]
}

// ActiveRooms returns the number of rooms with at least one participant.
func (t *Tracker) ActiveRooms() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}
