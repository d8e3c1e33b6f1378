package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/engine/enginetest"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/workpool"
	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/metrics"
)

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	pool, err := workpool.New(2)
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return New(enginetest.Snapshot(t), append([]Option{WithPool(pool)}, opts...)...)
}

func TestBook(t *testing.T) {
	s := newService(t)

	b, err := s.Book(3)
	require.NoError(t, err)
	assert.Equal(t, "White Fang", b.Title)

	_, err = s.Book(404)
	assert.ErrorIs(t, err, apperrors.ErrBookNotFound)
}

func TestBooksByWord(t *testing.T) {
	s := newService(t)

	t.Run("descending relevance", func(t *testing.T) {
		assert.Equal(t, []int{3, 2}, s.BooksByWord("wolf"))
	})
	t.Run("case and surface form", func(t *testing.T) {
		assert.Equal(t, []int{1, 4}, s.BooksByWord("WHALE"))
	})
	t.Run("unknown word", func(t *testing.T) {
		ids := s.BooksByWord("zeppelin")
		assert.NotNil(t, ids)
		assert.Empty(t, ids)
	})
}

func TestBooksByTitleAndAuthor(t *testing.T) {
	s := newService(t)

	assert.Equal(t, []int{2, 4}, s.BooksByTitle("Sea"))
	assert.Equal(t, []int{2, 3}, s.BooksByAuthor("london"))
	assert.Empty(t, s.BooksByTitle("schimmelreiter"))
	assert.Empty(t, s.BooksByAuthor("tolstoy"))
}

func TestIntersectInOrder(t *testing.T) {
	tests := []struct {
		name  string
		lists [][]int
		want  []int
	}{
		{"two lists", [][]int{{1, 2, 3}, {2, 3, 4}}, []int{2, 3}},
		{"empty lists dropped", [][]int{{}, {3, 1, 2}, nil, {2, 3}}, []int{3, 2}},
		{"disjoint", [][]int{{1}, {2}}, []int{}},
		{"nothing", nil, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, intersectInOrder(tt.lists))
		})
	}
}

func TestSearch(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	ids, err := s.Search(ctx, "sea wolf")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids)

	ids, err = s.Search(ctx, "zeppelin wolf")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, ids)

	ids, err = s.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearchTitlesAndAuthors(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	ids, err := s.SearchTitles(ctx, "the sea")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 4}, ids)
	assert.Equal(t, s.OrderByCloseness(ids), ids)

	ids, err = s.SearchAuthors(ctx, "Jack London")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 3}, ids)
}

func TestSearchTimeout(t *testing.T) {
	s := newService(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := s.Search(ctx, "sea wolf")
	assert.ErrorIs(t, err, apperrors.ErrTimeout)

	_, err = s.BooksMatchingRegex(ctx, "wolf", FieldKeywords)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestBooksMatchingRegex(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	tests := []struct {
		pattern string
		field   Field
		want    []int
	}{
		{"wh.*", FieldTitles, []int{1, 3}},
		{"lond", FieldAuthors, []int{2, 3}},
		{"wol(f|ves)", FieldKeywords, []int{2, 3}},
		{"verne|storm", FieldAuthors, []int{4, 5}},
		{"qqq+", FieldKeywords, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := s.BooksMatchingRegex(ctx, tt.pattern, tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := s.BooksMatchingRegex(ctx, "(wolf", FieldTitles)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPattern)

	_, err = s.BooksMatchingRegex(ctx, "wolf", Field("subjects"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSearchRegex(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	ids, err := s.SearchRegex(ctx, "wolf", false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, ids)

	ids, err = s.SearchRegex(ctx, "whale|london", false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, ids)

	ordered, err := s.SearchRegex(ctx, "whale|london", true)
	require.NoError(t, err)
	assert.Equal(t, s.OrderByCloseness(ids), ordered)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("authors")
	require.NoError(t, err)
	assert.Equal(t, FieldAuthors, f)

	_, err = ParseField("isbn")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestJaccardDistance(t *testing.T) {
	s := newService(t)

	d, err := s.JaccardDistance(2, 2)
	require.NoError(t, err)
	assert.Zero(t, d)

	d12, err := s.JaccardDistance(1, 2)
	require.NoError(t, err)
	d21, err := s.JaccardDistance(2, 1)
	require.NoError(t, err)
	assert.Equal(t, d12, d21)

	_, err = s.JaccardDistance(1, 6)
	assert.ErrorIs(t, err, apperrors.ErrBookNotFound)
}

func TestOrderByCloseness(t *testing.T) {
	s := newService(t)
	ranking := s.Snapshot().Closeness
	require.GreaterOrEqual(t, len(ranking), 2)
	first, second := ranking[0].ID, ranking[1].ID

	got := s.OrderByCloseness([]int{6, second, 99, first})
	assert.Equal(t, []int{first, second, 6, 99}, got)
}

func TestSuggestions(t *testing.T) {
	s := newService(t, WithSuggestionsPerBook(3))

	got, err := s.Suggestions([]int{2, 3}, 2)
	require.NoError(t, err)
	require.LessOrEqual(t, len(got), 2)
	require.NotEmpty(t, got)
	for i, sg := range got {
		assert.NotContains(t, []int{2, 3, 6}, sg.ID)
		if i > 0 {
			assert.LessOrEqual(t, got[i-1].Distance, sg.Distance)
		}
	}

	got, err = s.Suggestions([]int{6}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.Suggestions([]int{2, 404}, 5)
	assert.ErrorIs(t, err, apperrors.ErrBookNotFound)
}

func TestQueryMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s := newService(t, WithMetrics(m))

	s.BooksByWord("wolf")
	s.BooksByWord("zeppelin")
	_, _ = s.BooksMatchingRegex(context.Background(), "wh.*", FieldTitles)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("word", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("word", "empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("regex", "ok")))
}
