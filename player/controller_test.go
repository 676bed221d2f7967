package player

import (
	"sync"
	"testing"
	"time"

	"watchparty/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMedia behaves like a DOM video element: every applied change raises
// the element's own notification back into the controller, regardless of
// who initiated the change.
type fakeMedia struct {
	ctrl     *Controller
	playing  bool
	position float64
	silent   bool // never confirm, to exercise the suppression timeout
}

func (m *fakeMedia) Play() {
	if m.playing {
		return
	}
	m.playing = true
	if !m.silent {
		m.ctrl.OnLocalPlay()
	}
}

func (m *fakeMedia) Pause() {
	if !m.playing {
		return
	}
	m.playing = false
	if !m.silent {
		m.ctrl.OnLocalPause()
	}
}

func (m *fakeMedia) SetPosition(seconds float64) {
	m.position = seconds
	if !m.silent {
		m.ctrl.OnLocalSeeked()
	}
}

func (m *fakeMedia) Position() float64 {
	return m.position
}

type recordedEvent struct {
	kind     core.EventKind
	position float64
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(kind core.EventKind, position float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: kind, position: position})
}

func (r *recorder) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func newAttached(t *testing.T, opts ...Option) (*Controller, *fakeMedia, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]Option{WithSeekCoalescing(0)}, opts...)
	c := NewController(rec, opts...)
	m := &fakeMedia{ctrl: c}
	c.AttachMedia(m)
	t.Cleanup(c.Close)
	return c, m, rec
}

func TestRemoteEventsAreNeverRepublished(t *testing.T) {
	c, m, rec := newAttached(t)

	events := []core.PlaybackEvent{
		{Kind: core.EventPlay, Position: 10, Seq: 1},
		{Kind: core.EventSeek, Position: 55, Seq: 2},
		{Kind: core.EventPause, Position: 60, Seq: 3},
		{Kind: core.EventPlay, Position: 61, Seq: 4},
	}
	for _, ev := range events {
		require.True(t, c.HandleRemote(ev))
	}

	assert.Empty(t, rec.all(), "remote applications must not be re-published")
	assert.True(t, m.playing)
	assert.Equal(t, 61.0, m.position)

	// A genuine local intent afterwards is still published.
	m.Pause()
	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, core.EventPause, got[0].kind)
	assert.Equal(t, 61.0, got[0].position)
}

func TestStaleSequenceIsDiscarded(t *testing.T) {
	c, m, _ := newAttached(t)

	require.True(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventSeek, Position: 120, Seq: 3}))
	assert.False(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventSeek, Position: 40, Seq: 2}))
	assert.False(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventSeek, Position: 50, Seq: 3}), "redelivery of an applied sequence is a no-op")

	_, pos, seq := c.Snapshot()
	assert.Equal(t, 120.0, pos)
	assert.Equal(t, uint64(3), seq)
	assert.Equal(t, 120.0, m.position)
}

func TestIdleRetainsRemoteStateUntilMediaAttaches(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec, WithSeekCoalescing(0))
	defer c.Close()

	require.True(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventPlay, Position: 33, Seq: 7}))

	m := &fakeMedia{ctrl: c}
	c.AttachMedia(m)

	assert.True(t, m.playing, "retained state applied once media is ready")
	assert.Equal(t, 33.0, m.position)
	assert.Empty(t, rec.all(), "catching up is a remote application, not local intent")

	state, pos, seq := c.Snapshot()
	assert.Equal(t, StatePlaying, state)
	assert.Equal(t, 33.0, pos)
	assert.Equal(t, uint64(7), seq)
}

func TestIdleRetainsLatestAcrossMultipleEvents(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec, WithSeekCoalescing(0))
	defer c.Close()

	// The play flag from the first retained event must survive later
	// retained events that do not carry one.
	require.True(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventPlay, Position: 10, Seq: 1}))
	require.True(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventSeek, Position: 50, Seq: 2}))

	m := &fakeMedia{ctrl: c}
	c.AttachMedia(m)

	assert.True(t, m.playing, "remote play before the seek survives retention")
	assert.Equal(t, 50.0, m.position)
	assert.Empty(t, rec.all())

	state, pos, seq := c.Snapshot()
	assert.Equal(t, StatePlaying, state)
	assert.Equal(t, 50.0, pos)
	assert.Equal(t, uint64(2), seq)
}

func TestUnsyncedRetainsLatestAcrossMultipleEvents(t *testing.T) {
	c, m, rec := newAttached(t)

	c.SetSynced(false)
	require.True(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventPlay, Position: 10, Seq: 1}))
	require.True(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventSeek, Position: 50, Seq: 2}))
	require.False(t, m.playing, "nothing applied while unsynced")

	c.SetSynced(true)
	assert.True(t, m.playing)
	assert.Equal(t, 50.0, m.position)
	assert.Empty(t, rec.all())
}

func TestSyncToggle(t *testing.T) {
	c, m, rec := newAttached(t)

	require.True(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventPlay, Position: 5, Seq: 1}))
	require.True(t, m.playing)

	c.SetSynced(false)
	require.True(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventPause, Position: 90, Seq: 2}))
	assert.True(t, m.playing, "remote events are not applied while unsynced")
	assert.Equal(t, 5.0, m.position)

	// Local intent still goes out while unsynced.
	m.Pause()
	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, core.EventPause, got[0].kind)

	// Re-enabling sync reconciles against the retained remote state.
	c.SetSynced(true)
	assert.False(t, m.playing)
	assert.Equal(t, 90.0, m.position)
	assert.Len(t, rec.all(), 1, "reconciliation is not republished")
}

func TestSeekCoalescing(t *testing.T) {
	c, m, rec := newAttached(t, WithSeekCoalescing(30*time.Millisecond))
	_ = c

	// Scrubbing: a burst of seeks, only the final position goes out.
	m.SetPosition(10)
	m.SetPosition(20)
	m.SetPosition(35)

	assert.Empty(t, rec.all(), "nothing published inside the coalesce window")
	require.Eventually(t, func() bool {
		return len(rec.all()) == 1
	}, time.Second, 5*time.Millisecond)

	got := rec.all()
	assert.Equal(t, core.EventSeek, got[0].kind)
	assert.Equal(t, 35.0, got[0].position)
}

func TestSuppressionTimeoutUnsticks(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec, WithSeekCoalescing(0), WithSuppressTimeout(20*time.Millisecond))
	defer c.Close()
	m := &fakeMedia{ctrl: c, silent: true}
	c.AttachMedia(m)

	// The silent element never confirms, so the echo window must clear on
	// its own instead of swallowing future local intent forever.
	require.True(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventPlay, Position: 1, Seq: 1}))
	time.Sleep(60 * time.Millisecond)

	m.silent = false
	m.Pause()
	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, core.EventPause, got[0].kind)
}

func TestDisconnectStopsPublishingUntilSyncState(t *testing.T) {
	c, m, rec := newAttached(t)

	c.HandleDisconnect()
	m.Play()
	assert.Empty(t, rec.all(), "nothing published while the channel is down")

	// Fresh state after rejoin reconciles and resumes publication.
	c.HandleSyncState(core.PlaybackState{Position: 200, Playing: false, LastSeq: 9})
	assert.False(t, m.playing)
	assert.Equal(t, 200.0, m.position)
	assert.Empty(t, rec.all())

	m.Play()
	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, core.EventPlay, got[0].kind)

	_, _, seq := c.Snapshot()
	assert.Equal(t, uint64(9), seq)
}

func TestCloseDiscardsLateNotifications(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec, WithSeekCoalescing(0))
	m := &fakeMedia{ctrl: c}
	c.AttachMedia(m)

	c.Close()
	m.Play()
	m.SetPosition(5)
	assert.Empty(t, rec.all())
	assert.False(t, c.HandleRemote(core.PlaybackEvent{Kind: core.EventPlay, Position: 1, Seq: 1}))
}

func TestLocalIntentCarriesCurrentPosition(t *testing.T) {
	_, m, rec := newAttached(t)

	m.position = 47.5
	m.Play()

	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, core.EventPlay, got[0].kind)
	assert.Equal(t, 47.5, got[0].position)
}
