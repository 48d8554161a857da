package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeSandbox is a scripted Sandbox for bridge tests.
type fakeSandbox struct {
	loadErr  error
	requests chan string
	sources  [][]string // consumed one slice per VideoSources call
	closed   bool
}

func newFakeSandbox() *fakeSandbox {
	return &fakeSandbox{requests: make(chan string, 16)}
}

func (f *fakeSandbox) Load(_ context.Context, _ string) error {
	return f.loadErr
}

func (f *fakeSandbox) Requests() <-chan string {
	return f.requests
}

func (f *fakeSandbox) VideoSources(_ context.Context) ([]string, error) {
	if len(f.sources) == 0 {
		return nil, nil
	}
	next := f.sources[0]
	f.sources = f.sources[1:]
	return next, nil
}

func (f *fakeSandbox) Close() error {
	f.closed = true
	return nil
}

func collect(messages <-chan Message) []Message {
	var out []Message
	for m := range messages {
		out = append(out, m)
	}
	return out
}

func fastOptions() []Option {
	return []Option{
		WithScanBudget(3, time.Millisecond),
		WithDwell(time.Millisecond, time.Millisecond),
	}
}

func TestBridge(t *testing.T) {
	Convey("Given an extraction bridge over a scripted sandbox", t, func() {
		ctx := context.Background()

		Convey("When an intercepted request carries the stream marker", func() {
			sandbox := newFakeSandbox()
			sandbox.requests <- "https://cdn.example.com/analytics.js"
			sandbox.requests <- "https://cdn.example.com/master.m3u8"

			bridge := NewBridge(sandbox, fastOptions()...)

			done := make(chan error, 1)
			go func() { done <- bridge.Run(ctx, "https://embed.example.com/v/1") }()
			messages := collect(bridge.Messages())

			So(<-done, ShouldBeNil)
			So(messages[0], ShouldResemble, StepUpdate(StepConnecting))
			So(messages[1], ShouldResemble, StepUpdate(StepExtracting))
			So(messages[2], ShouldResemble, StreamFound("https://cdn.example.com/master.m3u8"))
			So(messages[3], ShouldResemble, StepUpdate(StepPreparing))
			So(messages[4], ShouldResemble, StepUpdate(StepReady))
			So(sandbox.closed, ShouldBeTrue)
		})

		Convey("When only the DOM poll surfaces a video element", func() {
			sandbox := newFakeSandbox()
			sandbox.sources = [][]string{
				nil,
				{"blob:opaque"},
				{"https://cdn.example.com/ep1/index.m3u8"},
			}

			bridge := NewBridge(sandbox, fastOptions()...)

			done := make(chan error, 1)
			go func() { done <- bridge.Run(ctx, "https://embed.example.com/v/1") }()
			messages := collect(bridge.Messages())

			So(<-done, ShouldBeNil)
			last := messages[len(messages)-1]
			So(last, ShouldResemble, StepUpdate(StepReady))

			var found Message
			for _, m := range messages {
				if m.Type == TypeStreamFound {
					found = m
				}
			}
			So(found.URL, ShouldEqual, "https://cdn.example.com/ep1/index.m3u8")
		})

		Convey("When the scan budget is exhausted without a match", func() {
			sandbox := newFakeSandbox()
			bridge := NewBridge(sandbox, fastOptions()...)

			done := make(chan error, 1)
			go func() { done <- bridge.Run(ctx, "https://embed.example.com/v/1") }()
			collect(bridge.Messages())

			So(errors.Is(<-done, ErrNoStreamFound), ShouldBeTrue)
		})

		Convey("When the sandbox fails to load", func() {
			sandbox := newFakeSandbox()
			sandbox.loadErr = errors.New("net unreachable")
			bridge := NewBridge(sandbox, fastOptions()...)

			done := make(chan error, 1)
			go func() { done <- bridge.Run(ctx, "https://embed.example.com/v/1") }()
			messages := collect(bridge.Messages())

			So(errors.Is(<-done, ErrSandboxLoad), ShouldBeTrue)
			So(len(messages), ShouldEqual, 1)
			So(messages[0].Step, ShouldEqual, StepConnecting)
		})

		Convey("When master upgrade is enabled", func() {
			sandbox := newFakeSandbox()
			sandbox.requests <- "https://cdn.example.com/master.m3u8"

			master := "#EXTM3U\n" +
				"#EXT-X-STREAM-INF:BANDWIDTH=800000\n360p/index.m3u8\n" +
				"#EXT-X-STREAM-INF:BANDWIDTH=5000000\n1080p/index.m3u8\n"

			opts := append(fastOptions(), WithMasterUpgrade(),
				withPlaylistFetcher(func(_ context.Context, _ string) (string, error) {
					return master, nil
				}))
			bridge := NewBridge(sandbox, opts...)

			done := make(chan error, 1)
			go func() { done <- bridge.Run(ctx, "https://embed.example.com/v/1") }()
			messages := collect(bridge.Messages())

			So(<-done, ShouldBeNil)
			var found Message
			for _, m := range messages {
				if m.Type == TypeStreamFound {
					found = m
				}
			}
			So(found.URL, ShouldEqual, "https://cdn.example.com/1080p/index.m3u8")
		})
	})
}

func TestMessageCodec(t *testing.T) {
	Convey("Message wire format", t, func() {
		Convey("step_update", func() {
			m, err := Decode(StepUpdate(StepExtracting).Encode())
			So(err, ShouldBeNil)
			So(m.Type, ShouldEqual, TypeStepUpdate)
			So(m.Step, ShouldEqual, StepExtracting)
		})

		Convey("stream_found", func() {
			m, err := Decode(StreamFound("https://cdn/x.m3u8").Encode())
			So(err, ShouldBeNil)
			So(m.Type, ShouldEqual, TypeStreamFound)
			So(m.URL, ShouldEqual, "https://cdn/x.m3u8")
		})
	})
}
