package filesystem

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBackendSwitch(t *testing.T) {
	Convey("Filesystem backend", t, func() {
		Convey("Uses the OS filesystem by default", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Can be swapped to an in-memory filesystem", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")

			So(API().WriteFile("/probe", []byte("x"), 0644), ShouldBeNil)
			data, err := API().ReadFile("/probe")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "x")
		})
	})
}
