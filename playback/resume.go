package playback

import (
	"sync"
	"time"

	"github.com/samber/mo"
)

// finishedFraction marks a saved position as "already watched" relative to
// total duration; no resume offer is made past it.
const finishedFraction = 0.95

// ResumeOffer is a timed prompt asking whether to continue from a previously
// saved position. With no explicit answer the countdown resolves as "resume".
type ResumeOffer struct {
	SavedPosition float64
	Countdown     time.Duration

	mu       sync.Mutex
	deadline time.Time
	timer    *time.Timer
	resolved bool
}

// Negotiator decides whether a resume offer should be presented after load.
type Negotiator struct {
	Enabled   bool
	Threshold float64
	Countdown time.Duration
}

// Evaluate applies the resume policy to a saved position. An offer is made
// only when auto-resume is enabled, the saved position exceeds the
// significance threshold and the media is not already effectively finished.
func (n Negotiator) Evaluate(saved, duration float64) mo.Option[*ResumeOffer] {
	if !n.Enabled || saved <= n.Threshold {
		return mo.None[*ResumeOffer]()
	}
	if duration > 0 && saved/duration >= finishedFraction {
		return mo.None[*ResumeOffer]()
	}
	return mo.Some(&ResumeOffer{
		SavedPosition: saved,
		Countdown:     n.Countdown,
	})
}

// start arms the auto-resume countdown; onExpire fires if no explicit answer
// arrives in time.
func (o *ResumeOffer) start(onExpire func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deadline = time.Now().Add(o.Countdown)
	o.timer = time.AfterFunc(o.Countdown, onExpire)
}

// resolve marks the offer answered and stops the countdown. It reports
// whether this call was the first resolution.
func (o *ResumeOffer) resolve() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.resolved {
		return false
	}
	o.resolved = true
	if o.timer != nil {
		o.timer.Stop()
	}
	return true
}

// Remaining returns the time left on the countdown, used to render the
// depleting countdown bar.
func (o *ResumeOffer) Remaining() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.resolved {
		return 0
	}
	left := time.Until(o.deadline)
	if left < 0 {
		return 0
	}
	return left
}
