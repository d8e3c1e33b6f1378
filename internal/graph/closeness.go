package graph

import (
	"errors"
	"math"
	"sort"
)

// ErrEmptyMatrix is returned by Closeness when there is no book to rank.
var ErrEmptyMatrix = errors.New("graph: empty distance matrix")

type Score struct {
	ID    int
	Score float64
}

// Ranking is ordered by descending score, then ascending id. NaN scores come
// last.
type Ranking []Score

// Positions maps each ranked id to its index in r.
func (r Ranking) Positions() map[int]int {
	pos := make(map[int]int, len(r))
	for i, s := range r {
		pos[s.ID] = i
	}
	return pos
}

// Closeness scores each book as 1 / Σ of its row, the distances to every
// book including itself. A book at distance 0 from all others scores +Inf.
func Closeness(m *Matrix) (Ranking, error) {
	n := m.Len()
	if n == 0 {
		return nil, ErrEmptyMatrix
	}
	r := make(Ranking, n)
	for i, id := range m.IDs {
		var sum float64
		for _, d := range m.Dist[i*n : (i+1)*n] {
			sum += d
		}
		r[i] = Score{ID: id, Score: 1 / sum}
	}
	sort.SliceStable(r, func(i, j int) bool {
		a, b := r[i].Score, r[j].Score
		switch {
		case math.IsNaN(a) || math.IsNaN(b):
			if math.IsNaN(a) && math.IsNaN(b) {
				return r[i].ID < r[j].ID
			}
			return !math.IsNaN(a)
		case a != b:
			return a > b
		}
		return r[i].ID < r[j].ID
	})
	return r, nil
}
