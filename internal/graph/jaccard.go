// Package graph builds the book similarity graph: a weighted Jaccard
// distance between every pair of keyword profiles, and the closeness
// centrality ranking derived from it.
//
// Profiles are compared position by position after sorting by stem, up to
// the length of the shorter profile. Two books whose stems differ are
// therefore compared on whatever stems happen to share a position. The
// rankings served to clients depend on this exact measure, so it is kept.
package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/workpool"
)

// Matrix is a dense distance matrix over IDs. Dist holds row i at
// Dist[i*n : (i+1)*n] where n = len(IDs).
type Matrix struct {
	IDs  []int
	Dist []float64

	once sync.Once
	pos  map[int]int
}

func (m *Matrix) Len() int { return len(m.IDs) }

func (m *Matrix) index(id int) (int, bool) {
	m.once.Do(func() {
		m.pos = make(map[int]int, len(m.IDs))
		for i, id := range m.IDs {
			m.pos[id] = i
		}
	})
	i, ok := m.pos[id]
	return i, ok
}

// Distance returns d(a, b); ok is false when either id is absent.
func (m *Matrix) Distance(a, b int) (d float64, ok bool) {
	i, ok1 := m.index(a)
	j, ok2 := m.index(b)
	if !ok1 || !ok2 {
		return 0, false
	}
	return m.Dist[i*len(m.IDs)+j], true
}

// Row returns the distances from id to every book in IDs order. The slice
// aliases the matrix and must not be modified.
func (m *Matrix) Row(id int) ([]float64, bool) {
	i, ok := m.index(id)
	if !ok {
		return nil, false
	}
	n := len(m.IDs)
	return m.Dist[i*n : (i+1)*n], true
}

// Distance is the aligned weighted Jaccard distance between two profiles
// sorted by stem. It is NaN when the shorter profile is empty.
func Distance(p1, p2 []index.StemWeight) float64 {
	n := min(len(p1), len(p2))
	var num, den float64
	for i := 0; i < n; i++ {
		hi := math.Max(p1[i].Relevance, p2[i].Relevance)
		lo := math.Min(p1[i].Relevance, p2[i].Relevance)
		num += hi - lo
		den += hi
	}
	return num / den
}

// JaccardMatrix computes the distance between every ordered pair of books
// present in dict, including each book with itself. Rows are spread over
// pool.
func JaccardMatrix(ctx context.Context, dict *index.KeywordDictionary, pool *workpool.Pool) (*Matrix, error) {
	profiles := dict.Profiles()
	ids := make([]int, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	n := len(ids)
	m := &Matrix{IDs: ids, Dist: make([]float64, n*n)}
	err := pool.Run(ctx, n, func(i int) {
		pi := profiles[ids[i]]
		for j := i; j < n; j++ {
			d := Distance(pi, profiles[ids[j]])
			m.Dist[i*n+j] = d
			m.Dist[j*n+i] = d
		}
	})
	if err != nil {
		return nil, fmt.Errorf("computing jaccard matrix: %w", err)
	}
	return m, nil
}
