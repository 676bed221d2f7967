package player

import (
	"sync"

	"watchparty/core"
)

// Track is one live capture track (camera or microphone).
type Track interface {
	Stop()
}

// CaptureDevice abstracts the browser's media-capture permission flow. A
// request resolves asynchronously: the device calls back exactly once with
// either a live track or an error. Implementations must not call back while
// holding their own locks.
type CaptureDevice interface {
	RequestVideo(done func(Track, error))
	RequestAudio(done func(Track, error))
}

// Capture holds the local-only camera/microphone toggles. These are capture
// controls, not a media transport: a denied permission disables the feature
// inline and leaves the rest of the session untouched.
type Capture struct {
	mu            sync.Mutex
	dev           CaptureDevice
	camera        Track
	mic           Track
	cameraPending bool
	micPending    bool
	closed        bool
}

func NewCapture(dev CaptureDevice) *Capture {
	return &Capture{dev: dev}
}

// CameraEnabled reports whether a camera track is live.
func (c *Capture) CameraEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.camera != nil
}

// MicEnabled reports whether a microphone track is live.
func (c *Capture) MicEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mic != nil
}

// ToggleCamera flips the camera. Enabling requests permission and resumes
// via done; a denial surfaces ErrMediaPermissionDenied. While a permission
// request is in flight further toggles are ignored, so two prompts can never
// race for the same slot. A grant that resolves after Close is discarded and
// its track stopped, never applied to a torn-down session.
func (c *Capture) ToggleCamera(done func(enabled bool, err error)) {
	c.toggle(&c.camera, &c.cameraPending, c.dev.RequestVideo, done)
}

// ToggleMic flips the microphone, with the same permission semantics.
func (c *Capture) ToggleMic(done func(enabled bool, err error)) {
	c.toggle(&c.mic, &c.micPending, c.dev.RequestAudio, done)
}

func (c *Capture) toggle(slot *Track, pending *bool, request func(func(Track, error)), done func(bool, error)) {
	c.mu.Lock()
	if c.closed || *pending {
		c.mu.Unlock()
		return
	}
	if *slot != nil {
		track := *slot
		*slot = nil
		c.mu.Unlock()
		track.Stop()
		if done != nil {
			done(false, nil)
		}
		return
	}
	*pending = true
	c.mu.Unlock()

	request(func(track Track, err error) {
		c.mu.Lock()
		*pending = false
		if c.closed {
			c.mu.Unlock()
			if track != nil {
				track.Stop()
			}
			return
		}
		if err != nil {
			c.mu.Unlock()
			if done != nil {
				done(false, core.ErrMediaPermissionDenied)
			}
			return
		}
		*slot = track
		c.mu.Unlock()
		if done != nil {
			done(true, nil)
		}
	})
}

// Close stops all live tracks and invalidates any permission request still
// in flight.
func (c *Capture) Close() {
	c.mu.Lock()
	camera, mic := c.camera, c.mic
	c.camera, c.mic = nil, nil
	c.closed = true
	c.mu.Unlock()

	if camera != nil {
		camera.Stop()
	}
	if mic != nil {
		mic.Stop()
	}
}
