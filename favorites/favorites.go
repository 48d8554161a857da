// Package favorites persists the user's bookmarked catalog items.
package favorites

import (
	"time"

	"github.com/metafates/gache"
	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/filesystem"
	"github.com/movira-cli/movira/where"
)

// Bookmark is a display snapshot of a favorited catalog item.
type Bookmark struct {
	ContentID string    `json:"content_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	PosterURL string    `json:"poster_url"`
	AddedAt   time.Time `json:"added_at"`
}

var cacher = gache.New[map[string]*Bookmark](
	&gache.Options{
		Path:       where.Favorites(),
		FileSystem: &filesystem.GacheFs{},
	},
)

func get() (map[string]*Bookmark, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Bookmark), nil
	}
	return cached, nil
}

// All returns every bookmark, newest first.
func All() ([]*Bookmark, error) {
	saved, err := get()
	if err != nil {
		return nil, err
	}

	bookmarks := make([]*Bookmark, 0, len(saved))
	for _, b := range saved {
		bookmarks = append(bookmarks, b)
	}
	for i := 1; i < len(bookmarks); i++ {
		for j := i; j > 0 && bookmarks[j].AddedAt.After(bookmarks[j-1].AddedAt); j-- {
			bookmarks[j], bookmarks[j-1] = bookmarks[j-1], bookmarks[j]
		}
	}
	return bookmarks, nil
}

// Has reports whether the catalog item is bookmarked.
func Has(contentID string) bool {
	saved, err := get()
	if err != nil {
		return false
	}
	_, ok := saved[contentID]
	return ok
}

// Add bookmarks a catalog item. Adding an existing bookmark is a no-op.
func Add(movie *catalog.Movie) error {
	saved, err := get()
	if err != nil {
		return err
	}
	if _, ok := saved[movie.ID]; ok {
		return nil
	}

	saved[movie.ID] = &Bookmark{
		ContentID: movie.ID,
		Name:      movie.Name,
		Slug:      movie.Slug,
		PosterURL: movie.Poster,
		AddedAt:   time.Now(),
	}
	return cacher.Set(saved)
}

// Remove deletes a bookmark.
func Remove(contentID string) error {
	saved, err := get()
	if err != nil {
		return err
	}
	delete(saved, contentID)
	return cacher.Set(saved)
}
