package history

import (
	"fmt"
	"time"
)

// Bucket is one day's worth of watch records under a human label.
type Bucket struct {
	Label   string
	Entries []*Entry
}

// Group partitions records into day buckets, preserving the most-recent-first
// order both across and inside buckets.
func Group(entries []*Entry) []Bucket {
	var buckets []Bucket
	for _, e := range entries {
		label := dayLabel(e.WatchedAt, nowFunc())
		if n := len(buckets); n > 0 && buckets[n-1].Label == label {
			buckets[n-1].Entries = append(buckets[n-1].Entries, e)
			continue
		}
		buckets = append(buckets, Bucket{Label: label, Entries: []*Entry{e}})
	}
	return buckets
}

func dayLabel(watched, now time.Time) string {
	midnight := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}

	days := int(midnight(now).Sub(midnight(watched.In(now.Location()))).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return watched.Format("Jan 2, 2006")
	}
}
