package core

import "time"

// EventKind is the type of a playback intent.
type EventKind string

const (
	EventPlay  EventKind = "play"
	EventPause EventKind = "pause"
	EventSeek  EventKind = "seek"
)

// IntentSource tags where a playback transition originated. The distinction
// is what keeps a remotely-applied change from being re-published as if it
// were new local intent.
type IntentSource int

const (
	SourceLocal IntentSource = iota
	SourceRemote
)

func (s IntentSource) String() string {
	if s == SourceRemote {
		return "remote"
	}
	return "local"
}

type (
	// PlaybackEvent is a single play/pause/seek intent. Seq is stamped by the
	// hub on receipt, never by the client, so every room has one total order.
	PlaybackEvent struct {
		Kind     EventKind `json:"kind"`
		Position float64   `json:"position"`
		Origin   string    `json:"origin"`
		Seq      uint64    `json:"seq"`
	}

	// PlaybackState is the hub's in-memory view of a room's timeline. It is
	// mutated only by applying stamped PlaybackEvents and is not persisted
	// beyond the session.
	PlaybackState struct {
		Position  float64   `json:"position"`
		Playing   bool      `json:"playing"`
		LastSeq   uint64    `json:"lastSeq"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// ChatMessage is one entry of a room's unified timeline. Join/leave
	// notices are ChatMessages with the reserved SystemAuthor so chat and
	// presence interleave in a single sequenced stream.
	ChatMessage struct {
		RoomID string `json:"roomId"`
		Author string `json:"user"`
		Body   string `json:"message"`
		Seq    uint64 `json:"seq"`
	}
)

// SystemAuthor is the reserved author used for join/leave notices.
const SystemAuthor = "System"

// Apply folds a stamped event into the state. Events at or below LastSeq are
// stale redeliveries and leave the state unchanged.
func (s *PlaybackState) Apply(ev PlaybackEvent, now time.Time) bool {
	if ev.Seq <= s.LastSeq {
		return false
	}
	s.Position = ev.Position
	switch ev.Kind {
	case EventPlay:
		s.Playing = true
	case EventPause:
		s.Playing = false
	}
	s.LastSeq = ev.Seq
	s.UpdatedAt = now
	return true
}
