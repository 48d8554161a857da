// Package related ranks catalog items by affinity to the content being
// watched. The ranking is a pure function of the catalog and the current
// item, so repeated renders within one session always agree.
package related

import (
	"hash/fnv"

	"github.com/movira-cli/movira/catalog"
)

const (
	// maxRelated bounds the final ranked sequence.
	maxRelated = 35
	// castCap and categoryCap bound the two affinity tiers so the shuffled
	// tail always gets representation.
	castCap     = 12
	categoryCap = 12
)

// SelectFor ranks catalog items against the current content: items sharing a
// cast member first, items sharing a category second, then a deterministically
// shuffled remainder. The shuffle is seeded from the content id, so a fixed
// (catalog, content) pair always produces the same sequence.
func SelectFor(current *catalog.Movie, pool []*catalog.Movie) []*catalog.Movie {
	var (
		byCast     []*catalog.Movie
		byCategory []*catalog.Movie
		rest       []*catalog.Movie
	)

	for _, candidate := range pool {
		if candidate.ID == current.ID {
			continue
		}
		switch {
		case current.SharesActor(candidate) && len(byCast) < castCap:
			byCast = append(byCast, candidate)
		case current.SharesCategory(candidate) && len(byCategory) < categoryCap:
			byCategory = append(byCategory, candidate)
		default:
			rest = append(rest, candidate)
		}
	}

	shuffle(rest, seedFor(current.ID))

	ranked := make([]*catalog.Movie, 0, maxRelated)
	seen := make(map[string]struct{}, maxRelated)
	for _, tier := range [][]*catalog.Movie{byCast, byCategory, rest} {
		for _, m := range tier {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			ranked = append(ranked, m)
			if len(ranked) == maxRelated {
				return ranked
			}
		}
	}
	return ranked
}

// seedFor derives a stable integer seed from a content id.
func seedFor(contentID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(contentID))
	return h.Sum32()
}

// lcg is a linear congruential generator (Numerical Recipes parameters).
// Determinism is a correctness requirement here, so the generator is explicit
// rather than delegated to math/rand.
type lcg struct {
	state uint32
}

func (g *lcg) next() uint32 {
	g.state = g.state*1664525 + 1013904223
	return g.state
}

// intn returns a value in [0, n).
func (g *lcg) intn(n int) int {
	return int(g.next() % uint32(n))
}

// shuffle performs a seeded Fisher-Yates pass over the slice.
func shuffle(items []*catalog.Movie, seed uint32) {
	g := &lcg{state: seed}
	for i := len(items) - 1; i > 0; i-- {
		j := g.intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
