// Package catalog implements the client for the remote movie catalog API and its domain models.
package catalog

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/movira-cli/movira/constant"
)

// Taxonomy is a named classification attached to a movie (category or country).
type Taxonomy struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// EpisodeServer is a single hosting server entry carrying the playable links for an episode.
type EpisodeServer struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Filename  string `json:"filename"`
	LinkEmbed string `json:"link_embed"`
	LinkM3U8  string `json:"link_m3u8"`
}

// Episode groups the server entries published by one hosting provider.
type Episode struct {
	ServerName string          `json:"server_name"`
	Servers    []EpisodeServer `json:"server_data"`
}

// Movie is a catalog entry. List endpoints return it partially populated;
// GetDetail fills the description, cast, taxonomy and episode list.
type Movie struct {
	ID         string     `json:"_id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	Content    string     `json:"content"`
	Status     string     `json:"status"`
	Thumbnail  string     `json:"thumb_url"`
	Poster     string     `json:"poster_url"`
	Duration   string     `json:"time"`
	Quality    string     `json:"quality"`
	Actors     []string   `json:"actor"`
	Categories []Taxonomy `json:"category"`
	Country    []Taxonomy `json:"country"`
	Episodes   []Episode  `json:"episodes,omitempty"`
}

func (m *Movie) String() string {
	return m.Name
}

// PlainContent returns the movie description with its HTML markup stripped.
func (m *Movie) PlainContent() string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(m.Content))
	if err != nil {
		return m.Content
	}
	return strings.TrimSpace(doc.Text())
}

// PlayableLink selects the link fed to the player for this movie.
//
// Shape heuristic: older catalog payloads ship a placeholder first episode, so
// when more than one episode exists the second episode's first server is
// preferred; current payloads carry the real link in the first episode. This
// is a compatibility shim with no versioning signal from the API.
// A direct stream link is preferred over an embed page link when both exist.
func (m *Movie) PlayableLink() (string, bool) {
	if len(m.Episodes) == 0 {
		return "", false
	}

	episode := m.Episodes[0]
	if len(m.Episodes) > 1 {
		episode = m.Episodes[1]
	}

	if len(episode.Servers) == 0 {
		return "", false
	}

	server := episode.Servers[0]
	if server.LinkM3U8 != "" {
		return server.LinkM3U8, true
	}
	if server.LinkEmbed != "" {
		return server.LinkEmbed, true
	}
	return "", false
}

// IsStreamLink reports whether a URL already points at a playable stream,
// allowing the extraction bridge to be bypassed entirely.
func IsStreamLink(url string) bool {
	return strings.Contains(url, constant.StreamMarker)
}

// SharesActor reports whether the two movies credit at least one common cast member.
func (m *Movie) SharesActor(other *Movie) bool {
	for _, a := range m.Actors {
		for _, b := range other.Actors {
			if a != "" && strings.EqualFold(a, b) {
				return true
			}
		}
	}
	return false
}

// SharesCategory reports whether the two movies share at least one category slug.
func (m *Movie) SharesCategory(other *Movie) bool {
	for _, a := range m.Categories {
		for _, b := range other.Categories {
			if a.Slug != "" && a.Slug == b.Slug {
				return true
			}
		}
	}
	return false
}
