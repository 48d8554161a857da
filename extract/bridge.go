package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/movira-cli/movira/constant"
	"github.com/movira-cli/movira/hls"
	"github.com/movira-cli/movira/log"
	"github.com/movira-cli/movira/network"
	"github.com/movira-cli/movira/util"
)

// Extraction failure taxonomy. Both are terminal for the session; the
// controller surfaces a single "video unavailable" state and never retries.
var (
	ErrSandboxLoad   = errors.New("extraction sandbox failed to load")
	ErrNoStreamFound = errors.New("no stream url found within scan budget")
)

// Sandbox is an isolated, invisible page context with scripting enabled.
// Implementations surface the page's outbound requests and current video elements.
type Sandbox interface {
	// Load navigates the sandbox to a page and starts script execution.
	Load(ctx context.Context, pageURL string) error

	// Requests returns the stream of outbound request URLs observed by the
	// injected monitor. The channel is closed when the sandbox closes.
	Requests() <-chan string

	// VideoSources returns the src attributes of the video elements currently
	// present in the page DOM.
	VideoSources(ctx context.Context) ([]string, error)

	// Close tears down the page context.
	Close() error
}

const (
	defaultMaxPolls       = 15
	defaultPollInterval   = time.Second
	defaultPreparingDwell = 600 * time.Millisecond
	defaultReadyDwell     = 400 * time.Millisecond
)

// Bridge scans a sandboxed embed page for a playable stream URL.
// It emits Messages on a one-way channel; it never mutates session state.
type Bridge struct {
	sandbox  Sandbox
	messages chan Message

	maxPolls       int
	pollInterval   time.Duration
	preparingDwell time.Duration
	readyDwell     time.Duration

	upgradeMaster bool
	fetchPlaylist func(ctx context.Context, url string) (string, error)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithScanBudget overrides the DOM polling budget.
func WithScanBudget(polls int, interval time.Duration) Option {
	return func(b *Bridge) {
		b.maxPolls = polls
		b.pollInterval = interval
	}
}

// WithDwell overrides the fixed preparing/ready dwell times used to smooth
// the UI transition into real playback.
func WithDwell(preparing, ready time.Duration) Option {
	return func(b *Bridge) {
		b.preparingDwell = preparing
		b.readyDwell = ready
	}
}

// WithMasterUpgrade makes the bridge resolve a discovered master playlist to
// its highest-bandwidth variant before reporting it.
func WithMasterUpgrade() Option {
	return func(b *Bridge) { b.upgradeMaster = true }
}

// withPlaylistFetcher overrides playlist retrieval, used by tests.
func withPlaylistFetcher(fetch func(ctx context.Context, url string) (string, error)) Option {
	return func(b *Bridge) { b.fetchPlaylist = fetch }
}

// NewBridge builds a bridge over the given sandbox.
func NewBridge(sandbox Sandbox, opts ...Option) *Bridge {
	b := &Bridge{
		sandbox:        sandbox,
		messages:       make(chan Message, 8),
		maxPolls:       defaultMaxPolls,
		pollInterval:   defaultPollInterval,
		preparingDwell: defaultPreparingDwell,
		readyDwell:     defaultReadyDwell,
		fetchPlaylist: func(ctx context.Context, url string) (string, error) {
			body, _, err := network.FetchPage(ctx, url, nil)
			return body, err
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Messages returns the bridge-to-controller notification stream.
// The channel is closed when Run returns.
func (b *Bridge) Messages() <-chan Message {
	return b.messages
}

// Run loads the page and scans for a stream URL until discovery, scan budget
// exhaustion or context cancellation. It always closes the message channel.
func (b *Bridge) Run(ctx context.Context, pageURL string) error {
	defer close(b.messages)
	defer util.Ignore(b.sandbox.Close)

	b.emit(ctx, StepUpdate(StepConnecting))

	if err := b.sandbox.Load(ctx, pageURL); err != nil {
		return fmt.Errorf("%w: %v", ErrSandboxLoad, err)
	}

	b.emit(ctx, StepUpdate(StepExtracting))

	streamURL, err := b.scan(ctx)
	if err != nil {
		return err
	}

	streamURL = b.maybeUpgrade(ctx, streamURL)
	log.Infof("stream url discovered: %s", streamURL)

	b.emit(ctx, StreamFound(streamURL))

	// Fixed dwell times give the UI a smooth transition before the
	// controller swaps over to real playback.
	b.emit(ctx, StepUpdate(StepPreparing))
	if !sleep(ctx, b.preparingDwell) {
		return ctx.Err()
	}

	b.emit(ctx, StepUpdate(StepReady))
	if !sleep(ctx, b.readyDwell) {
		return ctx.Err()
	}

	return nil
}

// scan watches the request stream continuously and polls the DOM at a fixed
// interval. First match from either channel wins.
func (b *Bridge) scan(ctx context.Context) (string, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case url, ok := <-b.sandbox.Requests():
			if !ok {
				return "", ErrNoStreamFound
			}
			if IsStreamURL(url) {
				return url, nil
			}

		case <-ticker.C:
			sources, err := b.sandbox.VideoSources(ctx)
			if err != nil {
				log.Warnf("video element poll failed: %v", err)
			}
			for _, src := range sources {
				if IsStreamURL(src) {
					return src, nil
				}
			}

			polls++
			if polls >= b.maxPolls {
				return "", ErrNoStreamFound
			}
		}
	}
}

// maybeUpgrade resolves a master playlist to its best variant, best-effort.
func (b *Bridge) maybeUpgrade(ctx context.Context, streamURL string) string {
	if !b.upgradeMaster {
		return streamURL
	}

	body, err := b.fetchPlaylist(ctx, streamURL)
	if err != nil {
		log.Warnf("playlist fetch failed, keeping original url: %v", err)
		return streamURL
	}

	if !hls.IsMaster(body) {
		return streamURL
	}

	variants, err := hls.ParseMaster(body)
	if err != nil {
		log.Warnf("master playlist parse failed: %v", err)
		return streamURL
	}

	best, ok := hls.BestVariant(variants)
	if !ok {
		return streamURL
	}
	return hls.ResolveURL(streamURL, best.URI)
}

func (b *Bridge) emit(ctx context.Context, m Message) {
	select {
	case b.messages <- m:
	case <-ctx.Done():
	}
}

// IsStreamURL reports whether a URL contains the known stream-format marker.
func IsStreamURL(url string) bool {
	return strings.Contains(url, constant.StreamMarker)
}

// sleep waits for the duration unless the context is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
