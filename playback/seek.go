package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/movira-cli/movira/log"
)

const (
	// guardTTL bounds how long stale engine reports are rejected after a seek.
	guardTTL = 5 * time.Second
	// guardTolerance is the acceptance window around a seek target.
	guardTolerance = 1.5
	// debounceWindow and debounceDelta define when two seek completions are duplicates.
	debounceWindow = 100 * time.Millisecond
	debounceDelta  = 0.5
)

// seekGuard is a short-lived assertion that suppresses conflicting position
// reports after an explicit seek. At most one guard is active per reconciler;
// a new seek always supersedes the previous guard.
type seekGuard struct {
	target   float64
	expireAt time.Time
}

// Reconciler filters engine-reported positions against the active seek guard
// and the user's drag state. It is used once for the main engine and once,
// independently, for the silent thumbnail preview engine.
type Reconciler struct {
	mu        sync.Mutex
	guard     *seekGuard
	dragging  bool
	lastGood  float64
	tolerance float64
	ttl       time.Duration
	now       func() time.Time
}

// NewReconciler creates a reconciler with the standard tolerance and TTL.
func NewReconciler() *Reconciler {
	return &Reconciler{
		tolerance: guardTolerance,
		ttl:       guardTTL,
		now:       time.Now,
	}
}

// Install arms a guard for the given seek target, superseding any active guard.
func (r *Reconciler) Install(target float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guard = &seekGuard{target: target, expireAt: r.now().Add(r.ttl)}
	// The target is the best known position until the engine confirms it.
	r.lastGood = target
}

// SetDragging toggles unconditional rejection of engine reports while the
// user is actively dragging a seek control.
func (r *Reconciler) SetDragging(dragging bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dragging = dragging
}

// Dragging reports whether drag suppression is active.
func (r *Reconciler) Dragging() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dragging
}

// Track records a locally-known position (drag value or issued target) as the
// value returned while reports are being rejected.
func (r *Reconciler) Track(position float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastGood = position
}

// Accept reconciles one engine-reported position and returns the position to
// display. While a guard is active, a report is accepted only if it falls
// within tolerance of the target or the guard has expired; otherwise the last
// known good position is retained. Reports during a drag are always rejected.
func (r *Reconciler) Accept(reported float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dragging {
		return r.lastGood
	}

	if r.guard != nil {
		expired := r.now().After(r.guard.expireAt)
		within := math.Abs(reported-r.guard.target) < r.tolerance

		if !expired && !within {
			return r.lastGood
		}
		r.guard = nil
	}

	r.lastGood = reported
	return reported
}

// seekFunc issues one seek to the engine; it is the reconciler owner's only
// channel to the engine.
type seekFunc func(ctx context.Context, target float64) error

// serializer queues seek requests one at a time. A request arriving while one
// is in flight supersedes any previously pending target; intermediate values
// are never issued.
type serializer struct {
	mu       sync.Mutex
	inFlight bool
	pending  *float64

	lastTarget float64
	lastAt     time.Time

	issue seekFunc
	now   func() time.Time
}

func newSerializer(issue seekFunc) *serializer {
	return &serializer{issue: issue, now: time.Now}
}

// request issues a seek, suppressing near-duplicate completions and
// serializing against any in-flight seek. Seek errors are logged and
// swallowed; the next reconciliation tick self-corrects.
func (s *serializer) request(ctx context.Context, target float64) {
	s.mu.Lock()

	now := s.now()
	if !s.lastAt.IsZero() &&
		now.Sub(s.lastAt) < debounceWindow &&
		math.Abs(target-s.lastTarget) < debounceDelta {
		s.mu.Unlock()
		return
	}
	s.lastTarget, s.lastAt = target, now

	if s.inFlight {
		s.pending = &target
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	current := target
	for {
		if err := s.issue(ctx, current); err != nil {
			log.Warnf("seek to %.2fs failed: %v", current, err)
		}

		s.mu.Lock()
		if s.pending != nil {
			current = *s.pending
			s.pending = nil
			s.mu.Unlock()
			continue
		}
		s.inFlight = false
		s.mu.Unlock()
		return
	}
}
