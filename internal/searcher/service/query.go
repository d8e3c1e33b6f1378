package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Plan is a multi-word query split into terms.
type Plan struct {
	Terms    []string
	RawQuery string
}

// ParsePlan lowercases query and splits it on whitespace.
func ParsePlan(query string) Plan {
	plan := Plan{RawQuery: query}
	for _, w := range strings.Fields(query) {
		plan.Terms = append(plan.Terms, strings.ToLower(w))
	}
	return plan
}

// Search returns the books matching every word of query through the keyword
// index, in the relevance order of the first word that matches anything.
func (s *Service) Search(ctx context.Context, query string) ([]int, error) {
	return s.multiWord(ctx, "search", query, s.booksByWord)
}

// SearchTitles intersects the title lookups of every word of query and
// orders the result by closeness.
func (s *Service) SearchTitles(ctx context.Context, query string) ([]int, error) {
	ids, err := s.multiWord(ctx, "search_title", query, s.snap.Titles.Lookup)
	if err != nil {
		return nil, err
	}
	return s.OrderByCloseness(ids), nil
}

// SearchAuthors is SearchTitles over author names.
func (s *Service) SearchAuthors(ctx context.Context, query string) ([]int, error) {
	ids, err := s.multiWord(ctx, "search_author", query, s.snap.Authors.Lookup)
	if err != nil {
		return nil, err
	}
	return s.OrderByCloseness(ids), nil
}

func (s *Service) multiWord(ctx context.Context, kind, query string, lookup func(string) []int) ([]int, error) {
	start := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	plan := ParsePlan(query)
	perTerm := make([][]int, len(plan.Terms))
	g, gctx := errgroup.WithContext(ctx)
	for i, term := range plan.Terms {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perTerm[i] = lookup(term)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		err = timeoutErr(err)
		s.observe(kind, start, 0, err)
		return nil, err
	}

	ids := intersectInOrder(perTerm)
	s.logger.Debug("query executed", "kind", kind, "query", plan.RawQuery, "terms", len(plan.Terms), "hits", len(ids))
	s.observe(kind, start, len(ids), nil)
	return ids, nil
}

// intersectInOrder drops empty lists, then keeps the ids of the first
// remaining list that appear in every other one. The order of the first
// list is preserved.
func intersectInOrder(lists [][]int) []int {
	var acc []int
	started := false
	for _, l := range lists {
		if len(l) == 0 {
			continue
		}
		if !started {
			acc = append([]int(nil), l...)
			started = true
			continue
		}
		in := make(map[int]struct{}, len(l))
		for _, id := range l {
			in[id] = struct{}{}
		}
		kept := acc[:0]
		for _, id := range acc {
			if _, ok := in[id]; ok {
				kept = append(kept, id)
			}
		}
		acc = kept
	}
	if acc == nil {
		return []int{}
	}
	return acc
}
