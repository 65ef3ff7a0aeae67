package codplayer

import "context"

// Source is the transport's abstraction over "where packets come
// from": a ripped disc file (possibly still growing) or a live radio
// stream. The transport holds at most one active Source at a time.
type Source interface {
	// Pausable reports whether this source's playback can be
	// suspended without losing content.
	Pausable() bool

	// InitialState returns the PlayerState to publish the moment this
	// source is installed, derived from prev (e.g. to preserve fields
	// that don't change across a source swap).
	InitialState(prev PlayerState) PlayerState

	// NextSource returns the Source to install for a `next` command
	// issued while in the given state, or (nil, false) if playback
	// should simply stop.
	NextSource(state PlayerState) (Source, bool)

	// PrevSource is the `prev` command's counterpart to NextSource.
	PrevSource(state PlayerState) (Source, bool)

	// Packets returns a channel of ready packets (Data already
	// filled in). The channel closes when the source reaches
	// end-of-stream or ctx is cancelled. A source error is reported
	// through Err once the channel closes.
	Packets(ctx context.Context) <-chan *AudioPacket

	// Err returns any error that ended the most recent Packets
	// channel, or nil on a clean end-of-stream / cancellation.
	Err() error

	// Stopped notifies the source that playback has stopped.
	// DiscSource and RadioSource take no action on it; DiscSource
	// records its resume track from within Packets instead.
	Stopped()

	// Stalled is called by an external watchdog to promote a
	// perceived stall into a forced restart. Most sources ignore it;
	// RadioSource acts on it.
	Stalled()
}
