// Package playback drives the client-side hand-off from a single cached
// chunk to full adaptive streaming. It owns no decoding; any media engine
// satisfying the Engine capability set is substitutable.
package playback

import (
	"errors"
	"time"
)

// ErrMediaEngine marks a playback failure that survived every fallback the
// session has.
var ErrMediaEngine = errors.New("media engine failure")

type EventType string

const (
	EventBuffering EventType = "buffering"
	EventReady     EventType = "ready"
	EventEnded     EventType = "ended"
	EventError     EventType = "error"
)

// Event is one media engine notification, delivered in engine order.
type Event struct {
	Type EventType
	Err  error
}

// Engine is the capability surface a playback session needs. Release must
// close the Events channel so the session's event loop terminates.
// Implementations deliver events on a single channel so ordering is
// preserved.
type Engine interface {
	// SetFileSource points the engine at a local file.
	SetFileSource(path string)
	// SetManifestSource points the engine at an adaptive-streaming manifest.
	SetManifestSource(url string)
	// SetDirectSource points the engine at a raw progressive URL, the
	// last-resort fallback when both local and adaptive playback failed.
	SetDirectSource(url string)

	Play()
	Pause()
	Playing() bool
	Position() time.Duration
	SeekTo(position time.Duration)

	Release()
	Events() <-chan Event
}
