// Package engine assembles the search artefacts of a catalog into an
// immutable Snapshot, loading each one from the checkpoint store when
// possible.
package engine

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/graph"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/library"
)

// Snapshot holds every artefact the query layer reads. Nothing in it is
// modified after Build returns, so it is shared by all requests without
// locking.
type Snapshot struct {
	Library   library.Library
	Keywords  *index.KeywordDictionary
	Titles    index.WordIndex
	Authors   index.WordIndex
	Jaccard   *graph.Matrix
	Closeness graph.Ranking
	BuiltAt   time.Time

	positions map[int]int
}

// NewSnapshot wraps already-built artefacts.
func NewSnapshot(lib library.Library, kw *index.KeywordDictionary, titles, authors index.WordIndex, jaccard *graph.Matrix, ranking graph.Ranking) *Snapshot {
	return &Snapshot{
		Library:   lib,
		Keywords:  kw,
		Titles:    titles,
		Authors:   authors,
		Jaccard:   jaccard,
		Closeness: ranking,
		BuiltAt:   time.Now().UTC(),
		positions: ranking.Positions(),
	}
}

// RankPosition returns the index of id in the closeness ranking.
func (s *Snapshot) RankPosition(id int) (int, bool) {
	p, ok := s.positions[id]
	return p, ok
}
