// Package catalog implements the client for the remote movie catalog API and its domain models.
package catalog

import (
	"context"
	"fmt"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/movira-cli/movira/log"
)

// normalizedName returns a lowercased, trimmed string for consistent comparison.
func normalizedName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FindClosest resolves a movie by approximate name. It runs a catalog search,
// narrows the results with a fuzzy match and levenshtein-compares the query
// against the remainder, returning the full detail record of the best match.
func (c *Client) FindClosest(ctx context.Context, name string) (*Movie, error) {
	query := normalizedName(name)

	page, err := c.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}

	if len(page.Items) == 0 {
		err := fmt.Errorf("no catalog results found for %q", name)
		log.Error(err)
		return nil, err
	}

	// Fuzzy subsequence matches rank ahead of everything else; the edit
	// distance only breaks ties within the narrowed set.
	candidates := page.Items
	if fuzzed := filterFuzzy(query, page.Items); len(fuzzed) > 0 {
		candidates = fuzzed
	}

	best := candidates[0]
	bestDistance := levenshtein.Distance(query, normalizedName(best.Name))

	for _, movie := range candidates[1:] {
		distance := levenshtein.Distance(query, normalizedName(movie.Name))
		if distance < bestDistance {
			best = movie
			bestDistance = distance
		}
	}

	log.Infof("closest catalog match for %q is %q (distance %d)", name, best.Name, bestDistance)
	return c.GetDetail(ctx, best.Slug)
}

func filterFuzzy(query string, movies []*Movie) []*Movie {
	var matched []*Movie
	for _, movie := range movies {
		if fuzzy.MatchNormalizedFold(query, movie.Name) {
			matched = append(matched, movie)
		}
	}
	return matched
}
