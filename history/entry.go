package history

import (
	"fmt"
	"time"

	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/util"
)

// Entry is a single watch history record: a display snapshot of the catalog
// item plus the last known playback progress.
type Entry struct {
	ContentID string  `json:"content_id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	PosterURL string  `json:"poster_url"`
	ThumbURL  string  `json:"thumb_url"`
	Runtime   string  `json:"runtime"`
	Quality   string  `json:"quality"`
	Position  float64 `json:"position"`
	Duration  float64 `json:"duration"`

	WatchedAt time.Time `json:"watched_at"`
}

func newEntry(movie *catalog.Movie, position, duration float64) *Entry {
	return &Entry{
		ContentID: movie.ID,
		Name:      movie.Name,
		Slug:      movie.Slug,
		PosterURL: movie.Poster,
		ThumbURL:  movie.Thumbnail,
		Runtime:   movie.Duration,
		Quality:   movie.Quality,
		Position:  position,
		Duration:  duration,
	}
}

// Progress returns the watched fraction in [0, 1], or 0 when the duration is
// unknown.
func (e *Entry) Progress() float64 {
	if e.Duration <= 0 {
		return 0
	}
	return util.Clamp(e.Position/e.Duration, 0, 1)
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s : %s / %s", e.Name, util.FormatClock(e.Position), util.FormatClock(e.Duration))
}
