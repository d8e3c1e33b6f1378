package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/regex"
	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
)

// Field selects the vocabulary a pattern is matched against.
type Field string

const (
	FieldKeywords Field = "keywords"
	FieldTitles   Field = "titles"
	FieldAuthors  Field = "authors"
)

// ParseField accepts the Field names.
func ParseField(name string) (Field, error) {
	switch f := Field(name); f {
	case FieldKeywords, FieldTitles, FieldAuthors:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown field %q", apperrors.ErrInvalidInput, name)
}

// BooksMatchingRegex compiles pattern once and returns, in ascending order,
// the books indexed under any word of field that contains a match.
func (s *Service) BooksMatchingRegex(ctx context.Context, pattern string, field Field) ([]int, error) {
	start := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	dfa, err := s.compile(pattern)
	if err != nil {
		s.observe("regex", start, 0, err)
		return nil, err
	}
	ids, err := s.matchField(ctx, dfa, field)
	if err != nil {
		s.observe("regex", start, 0, err)
		return nil, err
	}
	s.logger.Debug("regex executed", "pattern", pattern, "field", string(field), "dfa_states", dfa.NumStates(), "hits", len(ids))
	s.observe("regex", start, len(ids), nil)
	return ids, nil
}

// SearchRegex matches pattern against titles, then authors, then keywords,
// and returns every hit once in that order. With byCloseness the combined
// result is ordered by the closeness ranking instead.
func (s *Service) SearchRegex(ctx context.Context, pattern string, byCloseness bool) ([]int, error) {
	start := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	dfa, err := s.compile(pattern)
	if err != nil {
		s.observe("regex_all", start, 0, err)
		return nil, err
	}
	seen := make(map[int]struct{})
	var ids []int
	for _, field := range []Field{FieldTitles, FieldAuthors, FieldKeywords} {
		hits, err := s.matchField(ctx, dfa, field)
		if err != nil {
			s.observe("regex_all", start, 0, err)
			return nil, err
		}
		for _, id := range hits {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if ids == nil {
		ids = []int{}
	}
	if byCloseness {
		ids = s.OrderByCloseness(ids)
	}
	s.observe("regex_all", start, len(ids), nil)
	return ids, nil
}

func (s *Service) compile(pattern string) (*regex.DFA, error) {
	dfa, err := regex.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling %q: %w", pattern, err)
	}
	if s.metrics != nil {
		s.metrics.RegexDFAStates.Observe(float64(dfa.NumStates()))
	}
	return dfa, nil
}

func (s *Service) matchField(ctx context.Context, dfa *regex.DFA, field Field) ([]int, error) {
	var (
		words  []string
		lookup func(string) []int
	)
	switch field {
	case FieldKeywords:
		words, lookup = s.snap.Keywords.Words(), s.booksByWord
	case FieldTitles:
		words, lookup = s.snap.Titles.Words(), s.snap.Titles.Lookup
	case FieldAuthors:
		words, lookup = s.snap.Authors.Words(), s.snap.Authors.Lookup
	default:
		return nil, fmt.Errorf("%w: unknown field %q", apperrors.ErrInvalidInput, field)
	}

	matched := make([]bool, len(words))
	if err := s.pool.Run(ctx, len(words), func(i int) {
		matched[i] = dfa.MatchString(words[i])
	}); err != nil {
		return nil, timeoutErr(fmt.Errorf("matching %s: %w", field, err))
	}

	set := make(map[int]struct{})
	for i, ok := range matched {
		if !ok {
			continue
		}
		for _, id := range lookup(words[i]) {
			set[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}
