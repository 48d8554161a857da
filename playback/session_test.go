package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/extract"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeEngine records every command issued by the session.
type fakeEngine struct {
	mu        sync.Mutex
	loadedURL string
	title     string
	paused    bool
	playCalls int
	pauseCall int
	volume    float64
	rate      float64
	seeks     []float64
	loadErr   error
}

func (e *fakeEngine) Load(_ context.Context, url, title string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadErr != nil {
		return e.loadErr
	}
	e.loadedURL, e.title = url, title
	return nil
}

func (e *fakeEngine) Play(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playCalls++
	e.paused = false
	return nil
}

func (e *fakeEngine) Pause(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseCall++
	e.paused = true
	return nil
}

func (e *fakeEngine) Seek(_ context.Context, seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seeks = append(e.seeks, seconds)
	return nil
}

func (e *fakeEngine) SetVolume(_ context.Context, level float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = level
	return nil
}

func (e *fakeEngine) SetRate(_ context.Context, rate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
	return nil
}

func (e *fakeEngine) Paused(_ context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused, nil
}

func (e *fakeEngine) Position(_ context.Context) (float64, error) { return 0, nil }
func (e *fakeEngine) Duration(_ context.Context) (float64, error) { return 0, nil }
func (e *fakeEngine) Close() error                                { return nil }

func (e *fakeEngine) lastSeek() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.seeks) == 0 {
		return 0, false
	}
	return e.seeks[len(e.seeks)-1], true
}

// fakeLedger is an in-memory history ledger.
type fakeLedger struct {
	mu        sync.Mutex
	positions map[string]float64
	records   []float64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{positions: make(map[string]float64)}
}

func (l *fakeLedger) Record(movie *catalog.Movie, position, _ float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions[movie.ID] = position
	l.records = append(l.records, position)
	return nil
}

func (l *fakeLedger) PositionFor(contentID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positions[contentID]
}

func (l *fakeLedger) recordCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// fakeExtractor replays a scripted message sequence.
type fakeExtractor struct {
	script []extract.Message
	err    error
	msgs   chan extract.Message
}

func newFakeExtractor(err error, script ...extract.Message) *fakeExtractor {
	return &fakeExtractor{script: script, err: err, msgs: make(chan extract.Message)}
}

func (f *fakeExtractor) Run(_ context.Context, _ string) error {
	for _, m := range f.script {
		f.msgs <- m
	}
	close(f.msgs)
	return f.err
}

func (f *fakeExtractor) Messages() <-chan extract.Message { return f.msgs }

func testConfig() Config {
	return Config{
		AutoPlay:       true,
		DefaultVolume:  0.8,
		DefaultRate:    1.0,
		SkipForward:    10,
		SkipBackward:   10,
		DoubleTapSkip:  10,
		SaveHistory:    true,
		AutoResume:     true,
		ResumeThresh:   30,
		ResumeCountdow: 8 * time.Second,
	}
}

func streamMovie() *catalog.Movie {
	return &catalog.Movie{
		ID:   "m1",
		Name: "Inception",
		Episodes: []catalog.Episode{{
			Servers: []catalog.EpisodeServer{{LinkM3U8: "https://cdn/inception.m3u8"}},
		}},
	}
}

func embedMovie() *catalog.Movie {
	return &catalog.Movie{
		ID:   "m2",
		Name: "Interstellar",
		Episodes: []catalog.Episode{{
			Servers: []catalog.EpisodeServer{{LinkEmbed: "https://embed/interstellar"}},
		}},
	}
}

func TestSessionStart(t *testing.T) {
	Convey("Given a new session", t, func() {
		ctx := context.Background()
		engine := &fakeEngine{}
		ledger := newFakeLedger()
		session := NewSession(engine, ledger, testConfig())

		Convey("A direct stream link bypasses the extraction bridge", func() {
			err := session.Start(ctx, streamMovie(), nil)
			So(err, ShouldBeNil)
			So(session.State(), ShouldEqual, StateReady)
			So(engine.loadedURL, ShouldEqual, "https://cdn/inception.m3u8")
			So(engine.title, ShouldEqual, "Inception")
		})

		Convey("An embed link drives the bridge through its steps", func() {
			extractor := newFakeExtractor(nil,
				extract.StepUpdate(extract.StepConnecting),
				extract.StepUpdate(extract.StepExtracting),
				extract.StreamFound("https://cdn/found.m3u8"),
				extract.StepUpdate(extract.StepPreparing),
				extract.StepUpdate(extract.StepReady),
			)

			err := session.Start(ctx, embedMovie(), extractor)
			So(err, ShouldBeNil)
			So(session.State(), ShouldEqual, StateReady)
			So(session.Snapshot().StreamURL, ShouldEqual, "https://cdn/found.m3u8")
			So(engine.loadedURL, ShouldEqual, "https://cdn/found.m3u8")
		})

		Convey("An extraction failure is terminal", func() {
			extractor := newFakeExtractor(extract.ErrNoStreamFound,
				extract.StepUpdate(extract.StepConnecting),
				extract.StepUpdate(extract.StepExtracting),
			)

			err := session.Start(ctx, embedMovie(), extractor)
			So(errors.Is(err, extract.ErrNoStreamFound), ShouldBeTrue)
			So(session.State(), ShouldEqual, StateFailed)
			So(session.Snapshot().Err, ShouldNotBeNil)
		})

		Convey("A record without any playable link is terminal", func() {
			err := session.Start(ctx, &catalog.Movie{ID: "x"}, nil)
			So(errors.Is(err, ErrNoPlayableLink), ShouldBeTrue)
			So(session.State(), ShouldEqual, StateFailed)
		})

		Convey("An engine load failure is terminal", func() {
			engine.loadErr = errors.New("unsupported codec")
			err := session.Start(ctx, streamMovie(), nil)
			So(err, ShouldNotBeNil)
			So(session.State(), ShouldEqual, StateFailed)
		})
	})
}

func TestSessionLoaded(t *testing.T) {
	Convey("Given a started session receiving its first loaded report", t, func() {
		ctx := context.Background()
		engine := &fakeEngine{}
		ledger := newFakeLedger()

		Convey("With no saved position it syncs defaults and autoplays", func() {
			session := NewSession(engine, ledger, testConfig())
			So(session.Start(ctx, streamMovie(), nil), ShouldBeNil)

			session.HandleStatus(ctx, Status{Loaded: true, Duration: 3600})

			So(engine.volume, ShouldEqual, 0.8)
			So(engine.rate, ShouldEqual, 1.0)
			So(engine.playCalls, ShouldEqual, 1)
			So(session.Offer(), ShouldBeNil)
		})

		Convey("With auto-play disabled it pauses instead", func() {
			cfg := testConfig()
			cfg.AutoPlay = false
			session := NewSession(engine, ledger, cfg)
			So(session.Start(ctx, streamMovie(), nil), ShouldBeNil)

			session.HandleStatus(ctx, Status{Loaded: true, Duration: 3600})

			So(engine.playCalls, ShouldEqual, 0)
			So(engine.pauseCall, ShouldBeGreaterThan, 0)
		})

		Convey("With a significant saved position it presents a resume offer", func() {
			ledger.positions["m1"] = 200
			session := NewSession(engine, ledger, testConfig())
			So(session.Start(ctx, streamMovie(), nil), ShouldBeNil)

			session.HandleStatus(ctx, Status{Loaded: true, Duration: 3600})

			offer := session.Offer()
			So(offer, ShouldNotBeNil)
			So(offer.SavedPosition, ShouldEqual, 200)
			So(engine.playCalls, ShouldEqual, 0)

			Convey("Explicit resume seeks to the saved position and plays", func() {
				session.ResolveResume(ctx, true)
				last, ok := engine.lastSeek()
				So(ok, ShouldBeTrue)
				So(last, ShouldEqual, 200)
				So(engine.playCalls, ShouldEqual, 1)
				So(session.Offer(), ShouldBeNil)
			})

			Convey("Start-over seeks to zero and plays", func() {
				session.ResolveResume(ctx, false)
				last, ok := engine.lastSeek()
				So(ok, ShouldBeTrue)
				So(last, ShouldEqual, 0)
				So(engine.playCalls, ShouldEqual, 1)
			})
		})

		Convey("An unanswered countdown resolves as resume", func() {
			ledger.positions["m1"] = 200
			cfg := testConfig()
			cfg.ResumeCountdow = 10 * time.Millisecond
			session := NewSession(engine, ledger, cfg)
			So(session.Start(ctx, streamMovie(), nil), ShouldBeNil)

			session.HandleStatus(ctx, Status{Loaded: true, Duration: 3600})
			So(session.Offer(), ShouldNotBeNil)

			deadline := time.Now().Add(time.Second)
			for time.Now().Before(deadline) {
				engine.mu.Lock()
				played := engine.playCalls > 0
				engine.mu.Unlock()
				if played {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}

			So(session.Offer(), ShouldBeNil)
			last, ok := engine.lastSeek()
			So(ok, ShouldBeTrue)
			So(last, ShouldEqual, 200)
			So(engine.playCalls, ShouldEqual, 1)
		})

		Convey("A nearly-finished saved position produces no offer", func() {
			ledger.positions["m1"] = 3492 // 0.97 of duration
			session := NewSession(engine, ledger, testConfig())
			So(session.Start(ctx, streamMovie(), nil), ShouldBeNil)

			session.HandleStatus(ctx, Status{Loaded: true, Duration: 3600})
			So(session.Offer(), ShouldBeNil)
			So(engine.playCalls, ShouldEqual, 1)
		})
	})
}

func TestSessionCommands(t *testing.T) {
	Convey("Given a playing session", t, func() {
		ctx := context.Background()
		engine := &fakeEngine{}
		ledger := newFakeLedger()
		session := NewSession(engine, ledger, testConfig())
		So(session.Start(ctx, streamMovie(), nil), ShouldBeNil)
		session.HandleStatus(ctx, Status{Loaded: true, Duration: 100, Playing: true})

		Convey("TogglePlayback follows the engine-reported state", func() {
			engine.paused = true
			So(session.TogglePlayback(ctx), ShouldBeNil)
			So(engine.playCalls, ShouldEqual, 2) // autoplay + toggle

			engine.paused = false
			So(session.TogglePlayback(ctx), ShouldBeNil)
			So(engine.pauseCall, ShouldEqual, 1)
		})

		Convey("Unmuting a zero-volume session restores the default volume", func() {
			So(session.SetVolume(ctx, 0), ShouldBeNil)
			So(session.ToggleMute(ctx), ShouldBeNil) // mute
			So(engine.volume, ShouldEqual, 0)

			So(session.ToggleMute(ctx), ShouldBeNil) // unmute
			So(engine.volume, ShouldEqual, 0.8)
			So(session.Snapshot().Muted, ShouldBeFalse)
		})

		Convey("Volume is clamped to [0, 1]", func() {
			So(session.SetVolume(ctx, 1.7), ShouldBeNil)
			So(engine.volume, ShouldEqual, 1)
			So(session.SetVolume(ctx, -0.3), ShouldBeNil)
			So(engine.volume, ShouldEqual, 0)
		})

		Convey("Long-press boost restores exactly the pre-press rate", func() {
			So(session.SetSpeed(ctx, 1.5), ShouldBeNil)
			So(engine.rate, ShouldEqual, 1.5)

			So(session.BeginBoost(ctx), ShouldBeNil)
			So(engine.rate, ShouldEqual, 2.0)

			// Speed-menu change mid-press is recorded but not applied.
			So(session.SetSpeed(ctx, 0.5), ShouldBeNil)
			So(engine.rate, ShouldEqual, 2.0)

			So(session.EndBoost(ctx), ShouldBeNil)
			So(engine.rate, ShouldEqual, 1.5)
			So(session.Snapshot().Rate, ShouldEqual, 1.5)
		})

		Convey("Unsupported rates are rejected", func() {
			So(session.SetSpeed(ctx, 3.0), ShouldNotBeNil)
		})

		Convey("Skip-forward clamps to the media duration", func() {
			session.HandleStatus(ctx, Status{Position: 95, Duration: 100, Playing: true})
			session.SkipForward(ctx)
			last, ok := engine.lastSeek()
			So(ok, ShouldBeTrue)
			So(last, ShouldEqual, 100)
		})

		Convey("Skip-backward clamps to zero", func() {
			session.HandleStatus(ctx, Status{Position: 3, Duration: 100, Playing: true})
			session.SkipBackward(ctx)
			last, ok := engine.lastSeek()
			So(ok, ShouldBeTrue)
			So(last, ShouldEqual, 0)
		})

		Convey("Double-taps in quick succession accumulate their skip total", func() {
			session.HandleStatus(ctx, Status{Position: 40, Duration: 100, Playing: true})
			So(session.DoubleTapRight(ctx), ShouldEqual, 10)
			So(session.DoubleTapRight(ctx), ShouldEqual, 20)
			// Direction change resets the accumulator.
			So(session.DoubleTapLeft(ctx), ShouldEqual, -10)
		})

		Convey("Drag suppression keeps the display on the gesture value", func() {
			session.HandleStatus(ctx, Status{Position: 40, Duration: 100, Playing: true})
			session.SeekStart()
			session.SeekUpdate(70)
			session.HandleStatus(ctx, Status{Position: 41, Duration: 100, Playing: true})
			So(session.Snapshot().Position, ShouldEqual, 70)

			session.SeekComplete(ctx, 70)
			last, ok := engine.lastSeek()
			So(ok, ShouldBeTrue)
			So(last, ShouldEqual, 70)
		})

		Convey("ToggleLock flips the lock flag", func() {
			So(session.ToggleLock(), ShouldBeTrue)
			So(session.ToggleLock(), ShouldBeFalse)
		})
	})
}

func TestSessionHistoryAndExit(t *testing.T) {
	Convey("Given a playing session with history enabled", t, func() {
		ctx := context.Background()
		engine := &fakeEngine{}
		ledger := newFakeLedger()
		session := NewSession(engine, ledger, testConfig())
		So(session.Start(ctx, streamMovie(), nil), ShouldBeNil)
		session.HandleStatus(ctx, Status{Loaded: true, Duration: 3600, Playing: true})

		Convey("Progress is persisted only after sufficient advancement", func() {
			before := ledger.recordCount()

			session.HandleStatus(ctx, Status{Position: 2, Duration: 3600, Playing: true})
			So(ledger.recordCount(), ShouldEqual, before)

			session.HandleStatus(ctx, Status{Position: 6, Duration: 3600, Playing: true})
			So(ledger.recordCount(), ShouldEqual, before+1)
			So(ledger.PositionFor("m1"), ShouldEqual, 6)

			session.HandleStatus(ctx, Status{Position: 8, Duration: 3600, Playing: true})
			So(ledger.recordCount(), ShouldEqual, before+1)
		})

		Convey("Exit flushes the final position, pauses and terminates", func() {
			session.HandleStatus(ctx, Status{Position: 42, Duration: 3600, Playing: true})
			session.Exit(ctx)

			So(session.State(), ShouldEqual, StateTerminated)
			So(ledger.PositionFor("m1"), ShouldEqual, 42)
			So(engine.pauseCall, ShouldBeGreaterThan, 0)

			Convey("Status reports after teardown are ignored", func() {
				session.HandleStatus(ctx, Status{Position: 99, Duration: 3600, Playing: true})
				So(session.Snapshot().Position, ShouldEqual, 42)
				So(session.State(), ShouldEqual, StateTerminated)
			})
		})

		Convey("A fatal engine report moves the session to Failed", func() {
			session.HandleStatus(ctx, Status{Err: errors.New("decode error")})
			So(session.State(), ShouldEqual, StateFailed)
			So(session.Snapshot().Err, ShouldNotBeNil)
		})
	})
}

func TestSessionPreview(t *testing.T) {
	Convey("Given a session with a silent preview engine", t, func() {
		ctx := context.Background()
		engine := &fakeEngine{}
		preview := &fakeEngine{}
		ledger := newFakeLedger()
		session := NewSession(engine, ledger, testConfig(), WithPreviewEngine(preview))
		So(session.Start(ctx, streamMovie(), nil), ShouldBeNil)
		session.HandleStatus(ctx, Status{Loaded: true, Duration: 100, Playing: true})

		Convey("Preview seeks go to the preview engine only", func() {
			session.PreviewSeek(ctx, 55)
			last, ok := preview.lastSeek()
			So(ok, ShouldBeTrue)
			So(last, ShouldEqual, 55)

			_, mainSeeked := engine.lastSeek()
			So(mainSeeked, ShouldBeFalse)
		})

		Convey("The preview guard is independent of the main guard", func() {
			session.PreviewSeek(ctx, 55)
			// Stale preview report is rejected against the preview guard.
			So(session.PreviewAccept(3), ShouldEqual, 55)
			// The main reconciler is unaffected.
			session.HandleStatus(ctx, Status{Position: 10, Duration: 100, Playing: true})
			So(session.Snapshot().Position, ShouldEqual, 10)
		})
	})
}
