package service

import (
	"container/heap"
	"fmt"
	"math"
	"sort"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
)

// Suggestion is a book close to at least one of the books it was suggested
// for. Distance is the smallest Jaccard distance to any of them.
type Suggestion struct {
	ID       int     `json:"id"`
	Distance float64 `json:"distance"`
}

// Suggestions returns up to limit books near the given ones, nearest first
// with ties broken by id. Each input book contributes its closest
// suggestionsPerBook neighbours; the input books themselves are never
// suggested. Books without keywords contribute nothing.
func (s *Service) Suggestions(ids []int, limit int) ([]Suggestion, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 10
	}
	exclude := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.snap.Library[id]; !ok {
			err := fmt.Errorf("%w: %d", apperrors.ErrBookNotFound, id)
			s.observe("suggestions", start, 0, err)
			return nil, err
		}
		exclude[id] = struct{}{}
	}

	best := make(map[int]float64)
	for _, id := range ids {
		for _, n := range s.neighbours(id, exclude) {
			if d, ok := best[n.ID]; !ok || n.Distance < d {
				best[n.ID] = n.Distance
			}
		}
	}

	h := &suggestionHeap{}
	for id, d := range best {
		heap.Push(h, Suggestion{ID: id, Distance: d})
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	out := make([]Suggestion, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Suggestion)
	}
	s.observe("suggestions", start, len(out), nil)
	return out, nil
}

// neighbours returns the suggestionsPerBook nearest books to id that are not
// excluded. NaN distances are ignored.
func (s *Service) neighbours(id int, exclude map[int]struct{}) []Suggestion {
	row, ok := s.snap.Jaccard.Row(id)
	if !ok {
		return nil
	}
	cands := make([]Suggestion, 0, len(row))
	for j, d := range row {
		other := s.snap.Jaccard.IDs[j]
		if _, skip := exclude[other]; skip || math.IsNaN(d) {
			continue
		}
		cands = append(cands, Suggestion{ID: other, Distance: d})
	}
	sort.Slice(cands, func(i, j int) bool { return closer(cands[i], cands[j]) })
	if len(cands) > s.suggestionsPerBook {
		cands = cands[:s.suggestionsPerBook]
	}
	return cands
}

func closer(a, b Suggestion) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// suggestionHeap keeps the farthest suggestion on top so the nearest limit
// survive.
type suggestionHeap []Suggestion

func (h suggestionHeap) Len() int { return len(h) }

func (h suggestionHeap) Less(i, j int) bool { return closer(h[j], h[i]) }

func (h suggestionHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *suggestionHeap) Push(x interface{}) {
	*h = append(*h, x.(Suggestion))
}

func (h *suggestionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
