package playback

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNegotiator(t *testing.T) {
	Convey("Given a resume negotiator", t, func() {
		n := Negotiator{Enabled: true, Threshold: 30, Countdown: 8 * time.Second}

		Convey("Should offer for a significant unfinished saved position", func() {
			offer, ok := n.Evaluate(200, 3600).Get()
			So(ok, ShouldBeTrue)
			So(offer.SavedPosition, ShouldEqual, 200)
			So(offer.Countdown, ShouldEqual, 8*time.Second)
		})

		Convey("Should not offer when disabled", func() {
			So(Negotiator{Enabled: false, Threshold: 30}.Evaluate(200, 3600).IsAbsent(), ShouldBeTrue)
		})

		Convey("Should not offer for a zero saved position", func() {
			So(n.Evaluate(0, 3600).IsAbsent(), ShouldBeTrue)
		})

		Convey("Should not offer below the significance threshold", func() {
			So(n.Evaluate(30, 3600).IsAbsent(), ShouldBeTrue)
			So(n.Evaluate(29, 3600).IsAbsent(), ShouldBeTrue)
		})

		Convey("Should not offer when effectively finished", func() {
			// 0.97 of total duration counts as already watched.
			So(n.Evaluate(3492, 3600).IsAbsent(), ShouldBeTrue)
		})

		Convey("Should offer just under the finished fraction", func() {
			So(n.Evaluate(3400, 3600).IsPresent(), ShouldBeTrue)
		})
	})
}

func TestResumeOffer(t *testing.T) {
	Convey("Given a resume offer", t, func() {
		Convey("The countdown fires when unanswered", func() {
			offer := &ResumeOffer{SavedPosition: 200, Countdown: 10 * time.Millisecond}
			expired := make(chan struct{})
			offer.start(func() { close(expired) })

			select {
			case <-expired:
			case <-time.After(time.Second):
				t.Fatal("countdown never fired")
			}
		})

		Convey("Resolving stops the countdown and is idempotent", func() {
			offer := &ResumeOffer{SavedPosition: 200, Countdown: time.Hour}
			offer.start(func() {})

			So(offer.resolve(), ShouldBeTrue)
			So(offer.resolve(), ShouldBeFalse)
			So(offer.Remaining(), ShouldEqual, 0)
		})

		Convey("Remaining depletes toward zero", func() {
			offer := &ResumeOffer{SavedPosition: 200, Countdown: time.Hour}
			offer.start(func() {})
			remaining := offer.Remaining()
			So(remaining, ShouldBeLessThanOrEqualTo, time.Hour)
			So(remaining, ShouldBeGreaterThan, 59*time.Minute)
		})
	})
}
