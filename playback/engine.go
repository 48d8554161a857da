// Package playback implements the player session core: the session state
// machine, seek reconciliation, resume negotiation and history write-through.
package playback

import "context"

// Engine is the command surface of a native playback engine. Every call is an
// awaited asynchronous operation that may resolve out of call-order relative
// to newer state; the session controller is the single caller.
type Engine interface {
	// Load prepares the engine with a stream URL. The engine reports
	// readiness through a Status event with Loaded set.
	Load(ctx context.Context, streamURL, title string) error

	Play(ctx context.Context) error
	Pause(ctx context.Context) error

	// Seek transitions playback to an absolute position in seconds.
	Seek(ctx context.Context, seconds float64) error

	// SetVolume sets the playback volume in the range [0, 1].
	SetVolume(ctx context.Context, level float64) error

	// SetRate sets the playback speed multiplier.
	SetRate(ctx context.Context, rate float64) error

	// Paused retrieves the engine-reported suspension state.
	Paused(ctx context.Context) (bool, error)

	// Position retrieves the current absolute playback position in seconds.
	Position(ctx context.Context) (float64, error)

	// Duration retrieves the total length of the loaded media in seconds.
	Duration(ctx context.Context) (float64, error)

	// Close terminates the engine and releases its resources.
	Close() error
}

// Status is one periodic report delivered by the engine. Reports arrive as
// independent asynchronous callbacks with no ordering guarantee relative to
// commands; the seek reconciler is what resolves apparent inversions.
type Status struct {
	Position  float64
	Duration  float64
	Buffered  float64
	Buffering bool
	Playing   bool

	// Loaded is set on the first report after the media becomes playable.
	Loaded bool

	// Ended is set when playback reaches the end of the media.
	Ended bool

	// Err carries a fatal engine error; the session transitions to Failed.
	Err error
}
