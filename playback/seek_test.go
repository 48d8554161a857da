package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReconciler(t *testing.T) {
	Convey("Given a reconciler with a controllable clock", t, func() {
		now := time.Unix(1000, 0)
		r := NewReconciler()
		r.now = func() time.Time { return now }

		Convey("Without a guard, reports are accepted as-is", func() {
			So(r.Accept(12.5), ShouldEqual, 12.5)
			So(r.Accept(13.5), ShouldEqual, 13.5)
		})

		Convey("With a guard installed for target 120", func() {
			r.Accept(30) // establish last good
			r.Install(120)

			Convey("Stale reports far from the target are rejected", func() {
				So(r.Accept(30.9), ShouldEqual, 120)
				So(r.Accept(31.9), ShouldEqual, 120)
			})

			Convey("A report within tolerance is accepted and clears the guard", func() {
				So(r.Accept(119.2), ShouldEqual, 119.2)
				// Guard cleared: an out-of-window report is now accepted.
				So(r.Accept(30), ShouldEqual, 30)
			})

			Convey("An expired guard stops rejecting", func() {
				now = now.Add(guardTTL + time.Second)
				So(r.Accept(31), ShouldEqual, 31)
			})

			Convey("The displayed position never regresses outside tolerance while guarded", func() {
				for _, stale := range []float64{30, 45, 60, 90, 110} {
					display := r.Accept(stale)
					So(display, ShouldEqual, 120)
				}
				So(r.Accept(120.8), ShouldEqual, 120.8)
			})

			Convey("A newer seek supersedes the previous guard", func() {
				r.Install(300)
				So(r.Accept(120), ShouldEqual, 300)
				So(r.Accept(299.5), ShouldEqual, 299.5)
			})
		})

		Convey("While dragging, engine reports are unconditionally rejected", func() {
			r.Accept(50)
			r.SetDragging(true)
			r.Track(75)
			So(r.Accept(51), ShouldEqual, 75)
			So(r.Accept(300), ShouldEqual, 75)

			r.SetDragging(false)
			So(r.Accept(51), ShouldEqual, 51)
		})
	})
}

func TestSerializer(t *testing.T) {
	Convey("Given a seek serializer", t, func() {
		ctx := context.Background()

		Convey("Near-duplicate completions inside the debounce window are suppressed", func() {
			var issued []float64
			s := newSerializer(func(_ context.Context, target float64) error {
				issued = append(issued, target)
				return nil
			})

			now := time.Unix(1000, 0)
			s.now = func() time.Time { return now }

			s.request(ctx, 120.2)
			now = now.Add(50 * time.Millisecond)
			s.request(ctx, 120.4)

			So(issued, ShouldResemble, []float64{120.2})
		})

		Convey("Distant targets inside the window are not suppressed", func() {
			var issued []float64
			s := newSerializer(func(_ context.Context, target float64) error {
				issued = append(issued, target)
				return nil
			})

			now := time.Unix(1000, 0)
			s.now = func() time.Time { return now }

			s.request(ctx, 120.2)
			now = now.Add(50 * time.Millisecond)
			s.request(ctx, 240)

			So(issued, ShouldResemble, []float64{120.2, 240})
		})

		Convey("Requests arriving mid-flight are superseded to the latest target only", func() {
			var mu sync.Mutex
			var issued []float64
			firstStarted := make(chan struct{})
			release := make(chan struct{})

			s := newSerializer(func(_ context.Context, target float64) error {
				mu.Lock()
				issued = append(issued, target)
				first := len(issued) == 1
				mu.Unlock()
				if first {
					close(firstStarted)
					<-release
				}
				return nil
			})

			done := make(chan struct{})
			go func() {
				s.request(ctx, 10)
				close(done)
			}()

			<-firstStarted
			s.request(ctx, 20)
			s.request(ctx, 30)
			s.request(ctx, 40)
			close(release)
			<-done

			mu.Lock()
			defer mu.Unlock()
			// Intermediate targets 20 and 30 were never issued.
			So(issued, ShouldResemble, []float64{10, 40})
		})
	})
}
