// Package service answers book queries against an engine.Snapshot: keyword,
// title and author lookups, regular expression search, Jaccard distances,
// closeness ordering and suggestions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/library"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/workpool"
	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/metrics"
)

// Service is safe for concurrent use. It never modifies the snapshot.
type Service struct {
	snap               *engine.Snapshot
	pool               *workpool.Pool
	metrics            *metrics.Metrics
	timeout            time.Duration
	suggestionsPerBook int
	logger             *slog.Logger
}

type Option func(*Service)

// WithPool matches regex candidates on pool instead of inline.
func WithPool(pool *workpool.Pool) Option {
	return func(s *Service) { s.pool = pool }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTimeout bounds regex and multi-word searches.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithSuggestionsPerBook sets how many neighbours of each input book are
// considered by Suggestions.
func WithSuggestionsPerBook(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.suggestionsPerBook = n
		}
	}
}

func New(snap *engine.Snapshot, opts ...Option) *Service {
	s := &Service{
		snap:               snap,
		suggestionsPerBook: 5,
		logger:             slog.Default().With("component", "book-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the artefacts the service reads.
func (s *Service) Snapshot() *engine.Snapshot {
	return s.snap
}

// Book returns the catalog entry of id.
func (s *Service) Book(id int) (library.Book, error) {
	b, ok := s.snap.Library[id]
	if !ok {
		return library.Book{}, fmt.Errorf("%w: %d", apperrors.ErrBookNotFound, id)
	}
	return b, nil
}

// Books resolves ids in order, skipping ids missing from the catalog.
func (s *Service) Books(ids []int) []library.Book {
	books := make([]library.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.snap.Library[id]; ok {
			books = append(books, b)
		}
	}
	return books
}

// BooksByWord returns the books whose text contains a word with the same
// stem as word, by descending relevance and then ascending id. Unknown words
// yield an empty result.
func (s *Service) BooksByWord(word string) []int {
	start := time.Now()
	ids := s.booksByWord(normalize(word))
	s.observe("word", start, len(ids), nil)
	return ids
}

func (s *Service) booksByWord(word string) []int {
	stem, ok := s.snap.Keywords.WordToStem[word]
	if !ok {
		return []int{}
	}
	books := s.snap.Keywords.StemToBooks[stem]
	ids := make([]int, 0, len(books))
	for id := range books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ri, rj := books[ids[i]], books[ids[j]]
		if ri != rj {
			return ri > rj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// BooksByTitle returns the ascending ids of books whose title contains word.
func (s *Service) BooksByTitle(word string) []int {
	start := time.Now()
	ids := s.snap.Titles.Lookup(normalize(word))
	s.observe("title", start, len(ids), nil)
	return ids
}

// BooksByAuthor returns the ascending ids of books with an author name
// containing word.
func (s *Service) BooksByAuthor(word string) []int {
	start := time.Now()
	ids := s.snap.Authors.Lookup(normalize(word))
	s.observe("author", start, len(ids), nil)
	return ids
}

// JaccardDistance returns the distance between two books of the similarity
// graph. Books without keywords are not part of the graph.
func (s *Service) JaccardDistance(id1, id2 int) (float64, error) {
	d, ok := s.snap.Jaccard.Distance(id1, id2)
	if !ok {
		return 0, fmt.Errorf("%w: no distance between %d and %d", apperrors.ErrBookNotFound, id1, id2)
	}
	return d, nil
}

// OrderByCloseness returns ids sorted by their position in the closeness
// ranking. Ids that are not ranked keep their relative order at the end.
func (s *Service) OrderByCloseness(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, oki := s.snap.RankPosition(out[i])
		pj, okj := s.snap.RankPosition(out[j])
		switch {
		case oki && okj:
			return pi < pj
		case oki != okj:
			return oki
		}
		return false
	})
	return out
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// timeoutErr converts a deadline into ErrTimeout so the HTTP layer can map
// it.
func timeoutErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	return err
}

func (s *Service) observe(kind string, start time.Time, n int, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case n == 0:
		outcome = "empty"
	}
	s.metrics.QueriesTotal.WithLabelValues(kind, outcome).Inc()
	s.metrics.QueryLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err == nil {
		s.metrics.QueryResultsCount.WithLabelValues(kind).Observe(float64(n))
	}
}

func normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
