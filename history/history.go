// Package history tracks and persists the user's watch progress as an
// ordered, capped ledger of catalog items.
package history

import (
	"time"

	"github.com/metafates/gache"
	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/filesystem"
	"github.com/movira-cli/movira/key"
	"github.com/movira-cli/movira/where"
	"github.com/spf13/viper"
)

// cacher provides an abstracted, disk-backed registry for watch records,
// stored most-recent-first.
var cacher = gache.New[[]*Entry](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// nowFunc is swapped in tests to pin bucket boundaries.
var nowFunc = time.Now

// All returns every watch record, most recent first.
func All() ([]*Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return nil, nil
	}
	return cached, nil
}

// Record upserts a watch record to the front of the ledger. Re-watching an
// item moves its single record forward instead of duplicating it, and the
// ledger is trimmed to the configured maximum.
func Record(movie *catalog.Movie, position, duration float64) error {
	entries, err := All()
	if err != nil {
		return err
	}

	entry := newEntry(movie, position, duration)
	entry.WatchedAt = nowFunc()

	updated := make([]*Entry, 0, len(entries)+1)
	updated = append(updated, entry)
	for _, e := range entries {
		if e.ContentID == entry.ContentID {
			continue
		}
		updated = append(updated, e)
	}

	if max := maxEntries(); len(updated) > max {
		updated = updated[:max]
	}

	return cacher.Set(updated)
}

// PositionFor returns the saved playback position for a catalog item, or zero
// when the item has never been watched.
func PositionFor(contentID string) float64 {
	entries, err := All()
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if e.ContentID == contentID {
			return e.Position
		}
	}
	return 0
}

// Remove permanently deletes one watch record.
func Remove(contentID string) error {
	entries, err := All()
	if err != nil {
		return err
	}

	updated := entries[:0]
	for _, e := range entries {
		if e.ContentID != contentID {
			updated = append(updated, e)
		}
	}
	return cacher.Set(updated)
}

// Clear erases the entire ledger.
func Clear() error {
	return cacher.Set(nil)
}

func maxEntries() int {
	max := viper.GetInt(key.HistoryMaxEntries)
	if max <= 0 {
		max = 20
	}
	return max
}

// Ledger adapts the package to the playback session's persistence contract.
type Ledger struct{}

func (Ledger) Record(movie *catalog.Movie, position, duration float64) error {
	return Record(movie, position, duration)
}

func (Ledger) PositionFor(contentID string) float64 {
	return PositionFor(contentID)
}
