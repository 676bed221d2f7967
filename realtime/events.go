package realtime

// Wire event names shared by the hub and its socket bindings.
const (
	EventJoinRoom     = "join-room"
	EventParticipants = "participants"
	EventPlay         = "play"
	EventPause        = "pause"
	EventSeek         = "seek"
	EventChat         = "chat"
	EventUserJoined   = "user-joined"
	EventUserLeft     = "user-left"
	EventSyncState    = "sync-state"
)

type (
	// TimePayload is the hub→client body of play/pause/seek events. Seq is
	// the room-scoped sequence stamped at fan-out.
	TimePayload struct {
		Time float64 `json:"time"`
		Seq  uint64  `json:"seq"`
	}

	// CountPayload is the body of a participants broadcast.
	CountPayload struct {
		Count int `json:"count"`
	}

	// IDPayload is the body of user-joined/user-left notices.
	IDPayload struct {
		ID string `json:"id"`
	}
)
