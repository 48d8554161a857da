package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/filesystem"
	"github.com/movira-cli/movira/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func testMovie(id string) *catalog.Movie {
	return &catalog.Movie{
		ID:   id,
		Name: "Movie " + id,
		Slug: "movie-" + id,
	}
}

func TestHistory(t *testing.T) {
	Convey("Given an empty ledger", t, func() {
		So(Clear(), ShouldBeNil)

		Convey("When recording a watch", func() {
			err := Record(testMovie("a"), 120, 3600)
			So(err, ShouldBeNil)

			Convey("Then the record is retrievable", func() {
				entries, err := All()
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].ContentID, ShouldEqual, "a")
				So(entries[0].Position, ShouldEqual, 120)
				So(PositionFor("a"), ShouldEqual, 120)
			})
		})

		Convey("When re-watching an already recorded item", func() {
			So(Record(testMovie("a"), 120, 3600), ShouldBeNil)
			So(Record(testMovie("b"), 40, 3600), ShouldBeNil)
			So(Record(testMovie("a"), 300, 3600), ShouldBeNil)

			Convey("Then its single record moves to the front", func() {
				entries, err := All()
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].ContentID, ShouldEqual, "a")
				So(entries[0].Position, ShouldEqual, 300)
				So(entries[1].ContentID, ShouldEqual, "b")
			})
		})

		Convey("When recording past the configured maximum", func() {
			viper.Set(key.HistoryMaxEntries, 20)
			for i := 0; i < 25; i++ {
				So(Record(testMovie(fmt.Sprintf("m%02d", i)), 10, 100), ShouldBeNil)
			}

			Convey("Then the oldest records are evicted", func() {
				entries, err := All()
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 20)
				So(entries[0].ContentID, ShouldEqual, "m24")
				So(entries[len(entries)-1].ContentID, ShouldEqual, "m05")
			})
		})

		Convey("When removing a record", func() {
			So(Record(testMovie("a"), 120, 3600), ShouldBeNil)
			So(Record(testMovie("b"), 40, 3600), ShouldBeNil)
			So(Remove("a"), ShouldBeNil)

			entries, err := All()
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].ContentID, ShouldEqual, "b")
			So(PositionFor("a"), ShouldEqual, 0)
		})
	})
}

func TestProgress(t *testing.T) {
	Convey("Progress is the clamped watched fraction", t, func() {
		So((&Entry{Position: 900, Duration: 3600}).Progress(), ShouldEqual, 0.25)
		So((&Entry{Position: 50, Duration: 0}).Progress(), ShouldEqual, 0)
		So((&Entry{Position: 5000, Duration: 3600}).Progress(), ShouldEqual, 1)
	})
}

func TestGroup(t *testing.T) {
	Convey("Given records spread across several days", t, func() {
		now := time.Date(2024, time.March, 15, 18, 30, 0, 0, time.UTC)
		nowFunc = func() time.Time { return now }
		defer func() { nowFunc = time.Now }()

		at := func(daysAgo int) time.Time { return now.AddDate(0, 0, -daysAgo) }
		entries := []*Entry{
			{ContentID: "a", WatchedAt: at(0)},
			{ContentID: "b", WatchedAt: at(0)},
			{ContentID: "c", WatchedAt: at(1)},
			{ContentID: "d", WatchedAt: at(3)},
			{ContentID: "e", WatchedAt: at(10)},
		}

		Convey("They bucket by day with human labels", func() {
			buckets := Group(entries)
			So(buckets, ShouldHaveLength, 4)
			So(buckets[0].Label, ShouldEqual, "Today")
			So(buckets[0].Entries, ShouldHaveLength, 2)
			So(buckets[1].Label, ShouldEqual, "Yesterday")
			So(buckets[2].Label, ShouldEqual, "3 days ago")
			So(buckets[3].Label, ShouldEqual, "Mar 5, 2024")
		})

		Convey("A watch earlier the same day still lands in Today", func() {
			morning := time.Date(2024, time.March, 15, 2, 0, 0, 0, time.UTC)
			So(dayLabel(morning, now), ShouldEqual, "Today")
		})
	})
}
