package realtime

import (
	"strings"

	"watchparty/core"
	"watchparty/metrics"

	"github.com/sirupsen/logrus"
)

// ChatRelay orders and fans out chat messages and system notices per room.
// It shares the hub's per-room sequence domain, so join/leave notices
// interleave correctly with chat in display order.
type ChatRelay struct {
	hub *Hub
	met *metrics.Metrics
}

func NewChatRelay(hub *Hub, met *metrics.Metrics) *ChatRelay {
	return &ChatRelay{hub: hub, met: met}
}

// Send validates and relays a chat message. Empty or whitespace-only bodies
// are rejected with ErrInvalidMessage and never published. The sender's own
// connection is excluded from fan-out; the client renders its message
// locally, as the original UI does.
func (r *ChatRelay) Send(roomID, author, body, senderConnID string) (core.ChatMessage, error) {
	if strings.TrimSpace(body) == "" {
		return core.ChatMessage{}, core.ErrInvalidMessage
	}
	msg, ok := r.hub.PublishChat(roomID, author, body, senderConnID)
	if !ok {
		return core.ChatMessage{}, core.ErrChannelDisconnected
	}
	r.met.IncChatMessages()
	logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"author":  author,
		"seq":     msg.Seq,
	}).Debug("Chat message relayed")
	return msg, nil
}

// SystemNotice publishes a reserved-author entry into the room timeline.
// Used for join/leave notices so clients render one ordered stream.
func (r *ChatRelay) SystemNotice(roomID, body string) (core.ChatMessage, bool) {
	return r.hub.PublishChat(roomID, core.SystemAuthor, body, "")
}
