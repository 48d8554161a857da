package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/constant"
	"github.com/movira-cli/movira/extract"
	"github.com/movira-cli/movira/key"
	"github.com/movira-cli/movira/log"
	"github.com/movira-cli/movira/util"
	"github.com/spf13/viper"
)

// State is a phase of the playback session lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateExtracting
	StatePreparing
	StateReady
	StatePlaying
	StatePaused
	StateSeeking
	StateBuffering
	StateExiting
	StateTerminated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateExtracting:
		return "extracting"
	case StatePreparing:
		return "preparing"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	case StateBuffering:
		return "buffering"
	case StateExiting:
		return "exiting"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrNoPlayableLink is returned when the catalog record carries no usable source.
var ErrNoPlayableLink = errors.New("no playable link in catalog record")

// persistThreshold is the minimum playback advancement, in seconds, between
// two watch history write-throughs.
const persistThreshold = 5.0

// doubleTapAccumWindow bounds how long consecutive double-taps keep
// accumulating into one displayed skip total.
const doubleTapAccumWindow = time.Second

// Ledger is the watch history persistence contract consumed by the session.
type Ledger interface {
	Record(movie *catalog.Movie, position, duration float64) error
	PositionFor(contentID string) float64
}

// Extractor is the one-way extraction event stream the session subscribes to.
type Extractor interface {
	Run(ctx context.Context, pageURL string) error
	Messages() <-chan extract.Message
}

// Config carries the player defaults consulted on every engine load.
type Config struct {
	AutoPlay       bool
	DefaultVolume  float64
	DefaultRate    float64
	SkipForward    float64
	SkipBackward   float64
	DoubleTapSkip  float64
	SaveHistory    bool
	AutoResume     bool
	ResumeThresh   float64
	ResumeCountdow time.Duration
}

// ConfigFromViper loads the player configuration from global settings.
func ConfigFromViper() Config {
	return Config{
		AutoPlay:       viper.GetBool(key.PlayerAutoPlay),
		DefaultVolume:  viper.GetFloat64(key.PlayerDefaultVolume),
		DefaultRate:    viper.GetFloat64(key.PlayerDefaultSpeed),
		SkipForward:    float64(viper.GetInt(key.PlayerSkipForward)),
		SkipBackward:   float64(viper.GetInt(key.PlayerSkipBackward)),
		DoubleTapSkip:  float64(viper.GetInt(key.PlayerDoubleTapSkip)),
		SaveHistory:    viper.GetBool(key.HistorySaveOnWatch),
		AutoResume:     viper.GetBool(key.ResumeAuto),
		ResumeThresh:   float64(viper.GetInt(key.ResumeThreshold)),
		ResumeCountdow: time.Duration(viper.GetInt(key.ResumeCountdown)) * time.Second,
	}
}

// Snapshot is a point-in-time copy of session state for rendering.
type Snapshot struct {
	State     State
	StreamURL string
	Position  float64
	Duration  float64
	Buffered  float64
	Buffering bool
	Playing   bool
	Volume    float64
	Muted     bool
	Rate      float64
	Locked    bool
	SkipAccum float64
	Err       error
}

// Session owns the playback state machine and mediates every command to the
// native engine. One session exists per player screen instance.
type Session struct {
	mu sync.Mutex

	engine  Engine
	preview Engine
	ledger  Ledger
	cfg     Config

	movie     *catalog.Movie
	streamURL string

	state     State
	alive     bool
	loadedYet bool

	position  float64
	duration  float64
	buffered  float64
	buffering bool
	playing   bool

	volume float64
	muted  bool
	rate   float64

	boosted      bool
	prePressRate float64

	locked bool

	skipAccum   float64
	skipAccumAt time.Time

	lastPersist float64

	offer *ResumeOffer

	videoErr error

	reconciler *Reconciler
	seeker     *serializer

	previewRecon  *Reconciler
	previewSeeker *serializer
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPreviewEngine attaches the silent preview engine used for scrub
// thumbnails. Its position reports are guarded independently of the main engine.
func WithPreviewEngine(preview Engine) SessionOption {
	return func(s *Session) {
		s.preview = preview
		s.previewSeeker = newSerializer(func(ctx context.Context, target float64) error {
			s.previewRecon.Install(target)
			return preview.Seek(ctx, target)
		})
	}
}

// NewSession builds a session over an engine and a history ledger.
func NewSession(engine Engine, ledger Ledger, cfg Config, opts ...SessionOption) *Session {
	s := &Session{
		engine:       engine,
		ledger:       ledger,
		cfg:          cfg,
		state:        StateIdle,
		alive:        true,
		volume:       cfg.DefaultVolume,
		rate:         cfg.DefaultRate,
		reconciler:   NewReconciler(),
		previewRecon: NewReconciler(),
	}
	s.seeker = newSerializer(func(ctx context.Context, target float64) error {
		s.reconciler.Install(target)
		return engine.Seek(ctx, target)
	})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resolves the stream URL for a movie, driving the extraction bridge
// when the catalog only supplies an embed page, and loads the engine.
// Extraction and engine load failures are terminal for the session.
func (s *Session) Start(ctx context.Context, movie *catalog.Movie, extractor Extractor) error {
	s.mu.Lock()
	s.movie = movie
	s.mu.Unlock()

	link, ok := movie.PlayableLink()
	if !ok {
		s.fail(ErrNoPlayableLink)
		return ErrNoPlayableLink
	}

	if catalog.IsStreamLink(link) {
		// Bypass rule: the catalog already supplied a direct stream.
		s.mu.Lock()
		s.streamURL = link
		s.state = StateReady
		s.mu.Unlock()
	} else {
		if err := s.extractStream(ctx, link, extractor); err != nil {
			s.fail(err)
			return err
		}
	}

	s.mu.Lock()
	streamURL := s.streamURL
	title := movie.Name
	s.mu.Unlock()

	if err := s.engine.Load(ctx, streamURL, title); err != nil {
		err = fmt.Errorf("engine load: %w", err)
		s.fail(err)
		return err
	}
	return nil
}

// extractStream runs the bridge and folds its message stream into session state.
func (s *Session) extractStream(ctx context.Context, pageURL string, extractor Extractor) error {
	if extractor == nil {
		return ErrNoPlayableLink
	}

	runErr := make(chan error, 1)
	go func() { runErr <- extractor.Run(ctx, pageURL) }()

	for msg := range extractor.Messages() {
		switch msg.Type {
		case extract.TypeStepUpdate:
			s.setExtractionState(msg.Step)
		case extract.TypeStreamFound:
			s.mu.Lock()
			s.streamURL = msg.URL
			s.mu.Unlock()
		}
	}

	if err := <-runErr; err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamURL == "" {
		return extract.ErrNoStreamFound
	}
	return nil
}

func (s *Session) setExtractionState(step extract.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return
	}
	switch step {
	case extract.StepConnecting:
		s.state = StateConnecting
	case extract.StepExtracting:
		s.state = StateExtracting
	case extract.StepPreparing:
		s.state = StatePreparing
	case extract.StepReady:
		s.state = StateReady
	}
}

// HandleStatus folds one engine status report into the session. Position
// acceptance is delegated to the seek reconciler before the displayed
// position is updated.
func (s *Session) HandleStatus(ctx context.Context, st Status) {
	s.mu.Lock()
	if !s.alive || s.state == StateExiting || s.state == StateTerminated || s.state == StateFailed {
		s.mu.Unlock()
		return
	}

	if st.Err != nil {
		s.state = StateFailed
		s.videoErr = st.Err
		s.mu.Unlock()
		return
	}

	firstLoad := st.Loaded && !s.loadedYet
	if firstLoad {
		s.loadedYet = true
	}

	if st.Duration > 0 {
		s.duration = st.Duration
	}
	s.buffered = st.Buffered
	s.buffering = st.Buffering
	s.playing = st.Playing

	s.position = s.reconciler.Accept(st.Position)

	if st.Ended {
		s.playing = false
		s.state = StatePaused
	} else if s.interactive() {
		switch {
		case st.Buffering:
			s.state = StateBuffering
		case st.Playing:
			s.state = StatePlaying
		default:
			s.state = StatePaused
		}
	}

	persist := s.cfg.SaveHistory && s.movie != nil &&
		(st.Ended || math.Abs(s.position-s.lastPersist) >= persistThreshold)
	if persist {
		s.lastPersist = s.position
	}
	movie, position, duration := s.movie, s.position, s.duration
	s.mu.Unlock()

	if persist {
		if err := s.ledger.Record(movie, position, duration); err != nil {
			// Best-effort: history degrades silently to in-memory for this session.
			log.Warnf("history write failed: %v", err)
		}
	}

	if firstLoad {
		s.onLoaded(ctx)
	}
}

// interactive reports whether the state machine has fanned out past Ready.
func (s *Session) interactive() bool {
	switch s.state {
	case StateReady, StatePlaying, StatePaused, StateSeeking, StateBuffering:
		return true
	}
	return false
}

// onLoaded synchronizes engine defaults and negotiates resume, then either
// starts playback or leaves the engine paused per configuration.
func (s *Session) onLoaded(ctx context.Context) {
	if err := s.engine.SetVolume(ctx, s.cfg.DefaultVolume); err != nil {
		log.Warnf("volume sync failed: %v", err)
	}
	if err := s.engine.SetRate(ctx, s.cfg.DefaultRate); err != nil {
		log.Warnf("rate sync failed: %v", err)
	}

	s.mu.Lock()
	contentID := ""
	if s.movie != nil {
		contentID = s.movie.ID
	}
	duration := s.duration
	s.mu.Unlock()

	saved := s.ledger.PositionFor(contentID)
	negotiator := Negotiator{
		Enabled:   s.cfg.AutoResume,
		Threshold: s.cfg.ResumeThresh,
		Countdown: s.cfg.ResumeCountdow,
	}

	if offer, ok := negotiator.Evaluate(saved, duration).Get(); ok {
		s.mu.Lock()
		s.offer = offer
		s.mu.Unlock()

		// Hold playback until the offer resolves; the countdown defaults
		// to the resume path.
		if err := s.engine.Pause(ctx); err != nil {
			log.Warnf("pause for resume offer failed: %v", err)
		}
		offer.start(func() {
			s.ResolveResume(context.Background(), true)
		})
		return
	}

	if s.cfg.AutoPlay {
		if err := s.engine.Play(ctx); err != nil {
			log.Warnf("autoplay failed: %v", err)
		}
	} else {
		if err := s.engine.Pause(ctx); err != nil {
			log.Warnf("initial pause failed: %v", err)
		}
	}
}

// Offer returns the visible resume offer, if any.
func (s *Session) Offer() *ResumeOffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offer
}

// ResolveResume answers the resume offer. Resume jumps to the saved position;
// start-over seeks to zero. Both paths clear the offer and start playback.
func (s *Session) ResolveResume(ctx context.Context, resume bool) {
	s.mu.Lock()
	offer := s.offer
	s.mu.Unlock()

	if offer == nil || !offer.resolve() {
		return
	}

	s.mu.Lock()
	s.offer = nil
	alive := s.alive
	s.mu.Unlock()
	if !alive {
		return
	}

	target := 0.0
	if resume {
		target = offer.SavedPosition
	}
	s.seeker.request(ctx, target)

	if err := s.engine.Play(ctx); err != nil {
		log.Warnf("play after resume resolution failed: %v", err)
	}
}

// TogglePlayback inverts playback based on the engine-reported state, not the
// optimistic local state.
func (s *Session) TogglePlayback(ctx context.Context) error {
	if !s.isAlive() {
		return nil
	}

	paused, err := s.engine.Paused(ctx)
	if err != nil {
		return fmt.Errorf("query paused state: %w", err)
	}
	if paused {
		return s.engine.Play(ctx)
	}
	return s.engine.Pause(ctx)
}

// SetVolume sets the playback volume, clamped to [0, 1]. A positive level
// clears the muted flag.
func (s *Session) SetVolume(ctx context.Context, level float64) error {
	level = util.Clamp(level, 0, 1)

	s.mu.Lock()
	s.volume = level
	if level > 0 {
		s.muted = false
	}
	s.mu.Unlock()

	return s.engine.SetVolume(ctx, level)
}

// ToggleMute flips the mute state. Unmuting a zero-volume session resets the
// volume to the configured default instead of restoring silence.
func (s *Session) ToggleMute(ctx context.Context) error {
	s.mu.Lock()
	if s.muted {
		s.muted = false
		if s.volume == 0 {
			s.volume = s.cfg.DefaultVolume
			if s.volume == 0 {
				s.volume = 1
			}
		}
	} else {
		s.muted = true
	}
	muted, level := s.muted, s.volume
	s.mu.Unlock()

	if muted {
		return s.engine.SetVolume(ctx, 0)
	}
	return s.engine.SetVolume(ctx, level)
}

// SetSpeed selects a playback rate from the fixed rate set. While a
// long-press boost is held the selection is recorded but not applied; the
// press is exclusive with speed-menu interaction.
func (s *Session) SetSpeed(ctx context.Context, rate float64) error {
	valid := false
	for _, r := range constant.PlaybackRates {
		if r == rate {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unsupported playback rate %v", rate)
	}

	s.mu.Lock()
	s.rate = rate
	boosted := s.boosted
	s.mu.Unlock()

	if boosted {
		return nil
	}
	return s.engine.SetRate(ctx, rate)
}

// BeginBoost forces 2x playback for the duration of a long-press.
func (s *Session) BeginBoost(ctx context.Context) error {
	s.mu.Lock()
	if s.boosted {
		s.mu.Unlock()
		return nil
	}
	s.boosted = true
	s.prePressRate = s.rate
	s.mu.Unlock()

	return s.engine.SetRate(ctx, constant.BoostRate)
}

// EndBoost restores exactly the rate that was active before the press began.
func (s *Session) EndBoost(ctx context.Context) error {
	s.mu.Lock()
	if !s.boosted {
		s.mu.Unlock()
		return nil
	}
	s.boosted = false
	restored := s.prePressRate
	s.rate = restored
	s.mu.Unlock()

	return s.engine.SetRate(ctx, restored)
}

// SkipForward seeks ahead by the configured delta, clamped to the media duration.
func (s *Session) SkipForward(ctx context.Context) {
	s.skipBy(ctx, s.cfg.SkipForward)
}

// SkipBackward seeks back by the configured delta, clamped to zero.
func (s *Session) SkipBackward(ctx context.Context) {
	s.skipBy(ctx, -s.cfg.SkipBackward)
}

// DoubleTapRight skips forward by the double-tap delta and returns the
// seconds accumulated across taps in quick succession.
func (s *Session) DoubleTapRight(ctx context.Context) float64 {
	return s.doubleTap(ctx, s.cfg.DoubleTapSkip)
}

// DoubleTapLeft skips backward by the double-tap delta and returns the
// seconds accumulated across taps in quick succession.
func (s *Session) DoubleTapLeft(ctx context.Context) float64 {
	return s.doubleTap(ctx, -s.cfg.DoubleTapSkip)
}

func (s *Session) doubleTap(ctx context.Context, delta float64) float64 {
	s.mu.Lock()
	now := time.Now()
	if now.Sub(s.skipAccumAt) > doubleTapAccumWindow || (s.skipAccum > 0) != (delta > 0) {
		s.skipAccum = 0
	}
	s.skipAccum += delta
	s.skipAccumAt = now
	accumulated := s.skipAccum
	s.mu.Unlock()

	s.skipBy(ctx, delta)
	return accumulated
}

func (s *Session) skipBy(ctx context.Context, delta float64) {
	if !s.isAlive() {
		return
	}

	s.mu.Lock()
	target := util.Clamp(s.position+delta, 0, math.Max(s.duration, 0))
	s.state = StateSeeking
	s.mu.Unlock()

	s.seeker.request(ctx, target)
}

// SeekStart begins a drag: engine reports are rejected unconditionally and
// the displayed position tracks only the gesture's local value.
func (s *Session) SeekStart() {
	s.reconciler.SetDragging(true)
}

// SeekUpdate moves the displayed position to the drag gesture's local value.
func (s *Session) SeekUpdate(position float64) {
	s.mu.Lock()
	s.position = util.Clamp(position, 0, math.Max(s.duration, 0))
	position = s.position
	s.mu.Unlock()

	s.reconciler.Track(position)
}

// SeekComplete ends the drag and issues the final seek through the
// serializer; near-duplicate completions are suppressed.
func (s *Session) SeekComplete(ctx context.Context, position float64) {
	s.reconciler.SetDragging(false)

	if !s.isAlive() {
		return
	}

	s.mu.Lock()
	target := util.Clamp(position, 0, math.Max(s.duration, 0))
	s.state = StateSeeking
	s.mu.Unlock()

	s.seeker.request(ctx, target)
}

// PreviewSeek positions the silent thumbnail preview engine. Its guard cycle
// is entirely independent of the main playback guard.
func (s *Session) PreviewSeek(ctx context.Context, position float64) {
	if s.preview == nil || !s.isAlive() {
		return
	}
	s.previewSeeker.request(ctx, position)
}

// PreviewAccept reconciles a position report from the preview engine.
func (s *Session) PreviewAccept(reported float64) float64 {
	return s.previewRecon.Accept(reported)
}

// ToggleLock flips the control-lock flag and returns the new value.
func (s *Session) ToggleLock() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = !s.locked
	return s.locked
}

// Exit flushes the final position to the ledger, pauses the engine and
// terminates the session. Pending asynchronous continuations observe the
// liveness flag and stop mutating state.
func (s *Session) Exit(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateTerminated || s.state == StateExiting {
		s.mu.Unlock()
		return
	}
	s.state = StateExiting
	if s.offer != nil {
		s.offer.resolve()
		s.offer = nil
	}
	movie, position, duration := s.movie, s.position, s.duration
	save := s.cfg.SaveHistory && movie != nil && s.loadedYet
	s.mu.Unlock()

	if save {
		if err := s.ledger.Record(movie, position, duration); err != nil {
			log.Warnf("final history flush failed: %v", err)
		}
	}

	if err := s.engine.Pause(ctx); err != nil {
		log.Warnf("pause on exit failed: %v", err)
	}

	s.mu.Lock()
	s.alive = false
	s.state = StateTerminated
	s.mu.Unlock()
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.videoErr = err
}

func (s *Session) isAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// State returns the current state machine phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a point-in-time copy of the session for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:     s.state,
		StreamURL: s.streamURL,
		Position:  s.position,
		Duration:  s.duration,
		Buffered:  s.buffered,
		Buffering: s.buffering,
		Playing:   s.playing,
		Volume:    s.volume,
		Muted:     s.muted,
		Rate:      s.rate,
		Locked:    s.locked,
		SkipAccum: s.skipAccum,
		Err:       s.videoErr,
	}
}
