package realtime

import (
	"testing"

	"watchparty/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRejectsBlankMessages(t *testing.T) {
	hub := newTestHub()
	relay := NewChatRelay(hub, nil)
	hub.Join(newFakeConn("alice"), "room1")

	for _, body := range []string{"", "   ", "\n\t "} {
		_, err := relay.Send("room1", "Alice", body, "alice")
		assert.ErrorIs(t, err, core.ErrInvalidMessage, "%q", body)
	}
}

func TestSendDeliversToOthersOnly(t *testing.T) {
	hub := newTestHub()
	relay := NewChatRelay(hub, nil)
	alice := newFakeConn("alice")
	bob := newFakeConn("bob")
	hub.Join(alice, "room1")
	hub.Join(bob, "room1")

	msg, err := relay.Send("room1", "Alice", "movie night!", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", msg.Author)
	assert.Equal(t, "movie night!", msg.Body)

	assert.Empty(t, alice.received(EventChat), "sender renders its own message locally")
	got := bob.received(EventChat)
	require.Len(t, got, 1)
	assert.Equal(t, msg, got[0])
}

func TestSendToUnknownRoomFails(t *testing.T) {
	relay := NewChatRelay(newTestHub(), nil)
	_, err := relay.Send("ghost", "Alice", "anyone here?", "alice")
	assert.ErrorIs(t, err, core.ErrChannelDisconnected)
}

func TestSystemNoticeReachesEveryone(t *testing.T) {
	hub := newTestHub()
	relay := NewChatRelay(hub, nil)
	alice := newFakeConn("alice")
	bob := newFakeConn("bob")
	hub.Join(alice, "room1")
	hub.Join(bob, "room1")

	msg, ok := relay.SystemNotice("room1", "User bob joined")
	require.True(t, ok)
	assert.Equal(t, core.SystemAuthor, msg.Author)

	for _, member := range []*fakeConn{alice, bob} {
		got := member.received(EventChat)
		require.Len(t, got, 1, member.id)
		assert.Equal(t, msg, got[0], member.id)
	}
}

func TestNoticesInterleaveWithChatInOneOrder(t *testing.T) {
	hub := newTestHub()
	relay := NewChatRelay(hub, nil)
	observer := newFakeConn("observer")
	hub.Join(observer, "room1")

	first, _ := relay.SystemNotice("room1", "User alice joined")
	second, err := relay.Send("room1", "Alice", "hi", "alice")
	require.NoError(t, err)
	third, _ := relay.SystemNotice("room1", "User alice left")

	assert.Less(t, first.Seq, second.Seq)
	assert.Less(t, second.Seq, third.Seq)
}
