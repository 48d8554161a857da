package favorites

import (
	"testing"

	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestFavorites(t *testing.T) {
	Convey("Given a movie", t, func() {
		movie := &catalog.Movie{ID: "m1", Name: "Inception", Slug: "inception"}

		Convey("When bookmarking it", func() {
			So(Add(movie), ShouldBeNil)

			Convey("Then it is reported as bookmarked", func() {
				So(Has("m1"), ShouldBeTrue)

				bookmarks, err := All()
				So(err, ShouldBeNil)
				So(len(bookmarks), ShouldBeGreaterThan, 0)
			})

			Convey("And bookmarking it again is a no-op", func() {
				So(Add(movie), ShouldBeNil)

				bookmarks, err := All()
				So(err, ShouldBeNil)

				found := 0
				for _, b := range bookmarks {
					if b.ContentID == "m1" {
						found++
					}
				}
				So(found, ShouldEqual, 1)
			})

			Convey("And removing it clears the bookmark", func() {
				So(Remove("m1"), ShouldBeNil)
				So(Has("m1"), ShouldBeFalse)
			})
		})
	})
}
