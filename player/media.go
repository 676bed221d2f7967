package player

import "watchparty/core"

// MediaElement abstracts the local playback surface (a <video> element in
// the original UI). Calling Play, Pause or SetPosition makes the element
// raise its own notification back into the controller's OnLocal* entry
// points, exactly like DOM media events; the notification itself carries no
// origin, which is why the controller tags every transition with an
// IntentSource instead of inferring origin from timing.
type MediaElement interface {
	Play()
	Pause()
	SetPosition(seconds float64)
	Position() float64
}

// Publisher is the controller's outbound side, backed by the realtime
// channel. Implementations must not block.
type Publisher interface {
	Publish(kind core.EventKind, position float64)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(kind core.EventKind, position float64)

func (f PublisherFunc) Publish(kind core.EventKind, position float64) {
	f(kind, position)
}
