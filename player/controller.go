package player

import (
	"sync"
	"time"

	"watchparty/core"

	"github.com/sirupsen/logrus"
)

// State is the controller's view of the local timeline.
type State int

const (
	// StateIdle means no media is attached; remote events are retained and
	// applied once media becomes ready.
	StateIdle State = iota
	StatePaused
	StatePlaying
	StateSeeking
)

func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateSeeking:
		return "seeking"
	default:
		return "idle"
	}
}

const (
	defaultSuppressTimeout = 500 * time.Millisecond
	defaultSeekCoalesce    = 250 * time.Millisecond
)

// Controller reconciles local media-element intent with remote playback
// events. The two sources are kept apart at all times: remote events are
// applied to the media element under an echo-suppression window so the
// element's own resulting notifications are never re-published, while
// genuine local intent flows out through the Publisher.
type Controller struct {
	mu  sync.Mutex
	out Publisher

	media    MediaElement
	state    State
	position float64
	playing  bool // paused/playing before an in-flight seek settles

	lastSeq uint64
	pending *core.PlaybackState // latest known remote state while idle or unsynced

	// Echo suppression. suppress counts the media notifications still
	// expected as side effects of the last remote application; any OnLocal*
	// observed while it is positive is swallowed. The timer clears a stuck
	// window if the element never fires its confirmation.
	suppress        int
	suppressTimer   *time.Timer
	suppressTimeout time.Duration

	// Seek coalescing: while the user scrubs, only the final position is
	// published, after seekCoalesce of quiet.
	pendingSeek  *float64
	seekTimer    *time.Timer
	seekCoalesce time.Duration

	synced    bool
	connected bool
	closed    bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSuppressTimeout bounds how long the echo-suppression window may stay
// open without confirmation from the media element.
func WithSuppressTimeout(d time.Duration) Option {
	return func(c *Controller) { c.suppressTimeout = d }
}

// WithSeekCoalescing sets the quiet period after which a scrubbed seek is
// published. Zero publishes every seek immediately.
func WithSeekCoalescing(d time.Duration) Option {
	return func(c *Controller) { c.seekCoalesce = d }
}

func NewController(out Publisher, opts ...Option) *Controller {
	c := &Controller{
		out:             out,
		state:           StateIdle,
		suppressTimeout: defaultSuppressTimeout,
		seekCoalesce:    defaultSeekCoalesce,
		synced:          true,
		connected:       true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AttachMedia binds the local media element. Any remote state retained while
// idle is applied immediately, under suppression.
func (c *Controller) AttachMedia(m MediaElement) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.media = m
	pending := c.pending
	c.pending = nil
	if pending == nil {
		c.transition(StatePaused, m.Position(), core.SourceLocal)
		c.mu.Unlock()
		return
	}
	c.beginSuppressionLocked(stateEchoes(pending.Playing, c.playing))
	c.applyStateLocked(*pending)
	c.mu.Unlock()

	c.driveMedia(m, pending.Position, pending.Playing)
}

// DetachMedia returns the controller to Idle. Remote events arriving while
// detached are retained, not dropped.
func (c *Controller) DetachMedia() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.media = nil
	c.state = StateIdle
	c.suppress = 0
	c.stopTimersLocked()
}

// OnLocalPlay handles the media element's play notification. If it is the
// echo of a remote application it is swallowed; otherwise it is genuine
// local intent and is published.
func (c *Controller) OnLocalPlay() {
	c.onLocal(core.EventPlay)
}

// OnLocalPause handles the media element's pause notification.
func (c *Controller) OnLocalPause() {
	c.onLocal(core.EventPause)
}

// OnLocalSeeked handles the media element's seeked notification. Genuine
// local seeks are coalesced: rapid scrubbing publishes only the final
// position once the element has been quiet for the coalesce window.
func (c *Controller) OnLocalSeeked() {
	c.mu.Lock()
	if c.closed || c.media == nil {
		c.mu.Unlock()
		return
	}
	if c.consumeEchoLocked(core.EventSeek) {
		c.mu.Unlock()
		return
	}

	pos := c.media.Position()
	c.transition(StateSeeking, pos, core.SourceLocal)

	if c.seekCoalesce <= 0 {
		c.settleSeekLocked()
		connected := c.connected
		c.mu.Unlock()
		if connected {
			c.out.Publish(core.EventSeek, pos)
		}
		return
	}

	c.pendingSeek = &pos
	if c.seekTimer != nil {
		c.seekTimer.Stop()
	}
	c.seekTimer = time.AfterFunc(c.seekCoalesce, c.flushSeek)
	c.mu.Unlock()
}

func (c *Controller) onLocal(kind core.EventKind) {
	c.mu.Lock()
	if c.closed || c.media == nil {
		c.mu.Unlock()
		return
	}
	if c.consumeEchoLocked(kind) {
		c.mu.Unlock()
		return
	}

	pos := c.media.Position()
	switch kind {
	case core.EventPlay:
		c.transition(StatePlaying, pos, core.SourceLocal)
	case core.EventPause:
		c.transition(StatePaused, pos, core.SourceLocal)
	}
	connected := c.connected
	c.mu.Unlock()

	if connected {
		c.out.Publish(kind, pos)
	}
}

// flushSeek publishes the last scrubbed position after the coalesce window.
func (c *Controller) flushSeek() {
	c.mu.Lock()
	if c.closed || c.pendingSeek == nil {
		c.mu.Unlock()
		return
	}
	pos := *c.pendingSeek
	c.pendingSeek = nil
	c.settleSeekLocked()
	connected := c.connected
	c.mu.Unlock()

	if connected {
		c.out.Publish(core.EventSeek, pos)
	}
}

// HandleRemote applies a remote-originated playback event. Events at or
// below the last applied sequence are stale redeliveries and are discarded.
// Returns whether the event was accepted.
func (c *Controller) HandleRemote(ev core.PlaybackEvent) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if ev.Seq != 0 && ev.Seq <= c.lastSeq {
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"seq":      ev.Seq,
			"last_seq": c.lastSeq,
		}).Debug("Discarded stale playback event")
		return false
	}
	if ev.Seq != 0 {
		c.lastSeq = ev.Seq
	}

	playing := c.playing
	if (c.media == nil || !c.synced) && c.pending != nil {
		// The retained state, not the local element, is the latest known
		// remote truth while detached or unsynced.
		playing = c.pending.Playing
	}
	switch ev.Kind {
	case core.EventPlay:
		playing = true
	case core.EventPause:
		playing = false
	}

	if c.media == nil || !c.synced {
		// Retained, not dropped: applied when media attaches or sync is
		// turned back on.
		c.pending = &core.PlaybackState{
			Position:  ev.Position,
			Playing:   playing,
			LastSeq:   c.lastSeq,
			UpdatedAt: time.Now(),
		}
		c.mu.Unlock()
		return true
	}

	media := c.media
	c.beginSuppressionLocked(expectedEchoes(ev.Kind, c.playing))
	switch ev.Kind {
	case core.EventPlay:
		c.transition(StatePlaying, ev.Position, core.SourceRemote)
	case core.EventPause:
		c.transition(StatePaused, ev.Position, core.SourceRemote)
	case core.EventSeek:
		c.transition(c.state, ev.Position, core.SourceRemote)
	}
	c.mu.Unlock()

	c.driveMedia(media, ev.Position, playing)
	return true
}

// HandleSyncState reconciles against a full room state, as received on join
// or after a reconnect.
func (c *Controller) HandleSyncState(state core.PlaybackState) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.connected = true
	c.lastSeq = state.LastSeq

	if c.media == nil || !c.synced {
		s := state
		c.pending = &s
		c.mu.Unlock()
		return
	}
	media := c.media
	c.beginSuppressionLocked(stateEchoes(state.Playing, c.playing))
	c.applyStateLocked(state)
	c.mu.Unlock()

	c.driveMedia(media, state.Position, state.Playing)
}

// HandleDisconnect marks the channel as down. Local playback continues; no
// events are published until a fresh state arrives via HandleSyncState.
func (c *Controller) HandleDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.pendingSeek = nil
	if c.seekTimer != nil {
		c.seekTimer.Stop()
		c.seekTimer = nil
	}
}

// SetSynced toggles applying remote events. While off, local playback runs
// independently but local intent is still published. Turning it back on
// reconciles against the latest retained remote state.
func (c *Controller) SetSynced(on bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.synced = on
	if !on || c.pending == nil || c.media == nil {
		c.mu.Unlock()
		return
	}
	pending := *c.pending
	c.pending = nil
	media := c.media
	c.beginSuppressionLocked(stateEchoes(pending.Playing, c.playing))
	c.applyStateLocked(pending)
	c.mu.Unlock()

	c.driveMedia(media, pending.Position, pending.Playing)
}

// Synced reports whether remote events are being applied.
func (c *Controller) Synced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synced
}

// Snapshot returns the controller's current state, position and last applied
// sequence.
func (c *Controller) Snapshot() (State, float64, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.position, c.lastSeq
}

// Close tears the controller down. Timer callbacks and any late media
// notifications after Close are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.media = nil
	c.state = StateIdle
	c.stopTimersLocked()
}

// transition moves the state machine, tagged with the intent source.
func (c *Controller) transition(to State, position float64, src core.IntentSource) {
	from := c.state
	c.state = to
	c.position = position
	switch to {
	case StatePlaying:
		c.playing = true
	case StatePaused:
		c.playing = false
	}
	logrus.WithFields(logrus.Fields{
		"from":     from.String(),
		"to":       to.String(),
		"position": position,
		"source":   src.String(),
	}).Trace("Playback transition")
}

func (c *Controller) applyStateLocked(state core.PlaybackState) {
	if state.Playing {
		c.transition(StatePlaying, state.Position, core.SourceRemote)
	} else {
		c.transition(StatePaused, state.Position, core.SourceRemote)
	}
}

// settleSeekLocked returns from Seeking to the playing/paused state that was
// in effect before the scrub.
func (c *Controller) settleSeekLocked() {
	if c.playing {
		c.state = StatePlaying
	} else {
		c.state = StatePaused
	}
}

// beginSuppressionLocked opens the echo window for n expected notifications.
// The timeout guards against a media element that never confirms.
func (c *Controller) beginSuppressionLocked(n int) {
	c.suppress += n
	if c.suppressTimer != nil {
		c.suppressTimer.Stop()
	}
	c.suppressTimer = time.AfterFunc(c.suppressTimeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		c.suppress = 0
	})
}

// consumeEchoLocked swallows one expected notification, reporting whether
// the caller should treat it as an echo rather than local intent.
func (c *Controller) consumeEchoLocked(kind core.EventKind) bool {
	if c.suppress <= 0 {
		return false
	}
	c.suppress--
	if c.suppress == 0 && c.suppressTimer != nil {
		c.suppressTimer.Stop()
		c.suppressTimer = nil
	}
	logrus.WithField("kind", kind).Trace("Swallowed echo of remote application")
	return true
}

func (c *Controller) stopTimersLocked() {
	if c.suppressTimer != nil {
		c.suppressTimer.Stop()
		c.suppressTimer = nil
	}
	if c.seekTimer != nil {
		c.seekTimer.Stop()
		c.seekTimer = nil
	}
	c.pendingSeek = nil
}

// driveMedia pushes a remote change into the element, outside the lock so
// the element's synchronous notifications can re-enter the controller.
func (c *Controller) driveMedia(media MediaElement, position float64, playing bool) {
	media.SetPosition(position)
	if playing {
		media.Play()
	} else {
		media.Pause()
	}
}

// expectedEchoes is how many notifications the element will raise for one
// remote application: SetPosition always fires seeked; Play/Pause fire their
// own event only when the play state actually flips.
func expectedEchoes(kind core.EventKind, playing bool) int {
	switch kind {
	case core.EventPlay:
		if playing {
			return 1
		}
		return 2
	case core.EventPause:
		if !playing {
			return 1
		}
		return 2
	default:
		return 1
	}
}

// stateEchoes is the same accounting for applying a full PlaybackState.
func stateEchoes(target, current bool) int {
	if target == current {
		return 1
	}
	return 2
}
