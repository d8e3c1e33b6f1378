package graph

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/workpool"
)

func testDictionary() *index.KeywordDictionary {
	d := index.NewKeywordDictionary()
	d.StemToBooks["whale"] = map[int]float64{1: 0.5, 2: 0.25, 3: 0.1}
	d.StemToBooks["ship"] = map[int]float64{1: 0.5, 2: 0.75}
	d.StemToBooks["sea"] = map[int]float64{3: 0.9}
	d.StemToBooks["moon"] = map[int]float64{4: 1}
	return d
}

func TestDistance(t *testing.T) {
	p1 := []index.StemWeight{{"a", 0.5}, {"b", 0.5}}
	p2 := []index.StemWeight{{"a", 0.25}, {"b", 0.75}}

	// |0.5-0.25| + |0.5-0.75| over 0.5 + 0.75
	assert.InDelta(t, 0.5/1.25, Distance(p1, p2), 1e-12)
	assert.Equal(t, 0.0, Distance(p1, p1))

	t.Run("aligned by position, not by stem", func(t *testing.T) {
		p3 := []index.StemWeight{{"x", 0.5}, {"y", 0.5}}
		assert.Equal(t, 0.0, Distance(p1, p3))
	})

	t.Run("shorter profile bounds the comparison", func(t *testing.T) {
		p4 := []index.StemWeight{{"a", 0.5}}
		assert.Equal(t, 0.0, Distance(p1, p4))
	})

	t.Run("empty profiles are NaN", func(t *testing.T) {
		assert.True(t, math.IsNaN(Distance(nil, nil)))
		assert.True(t, math.IsNaN(Distance(nil, p1)))
	})
}

func TestJaccardMatrix(t *testing.T) {
	pool, err := workpool.New(3)
	require.NoError(t, err)
	defer pool.Release()

	m, err := JaccardMatrix(context.Background(), testDictionary(), pool)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, m.IDs)

	for _, i := range m.IDs {
		d, ok := m.Distance(i, i)
		require.True(t, ok)
		assert.Equal(t, 0.0, d)
		for _, j := range m.IDs {
			dij, _ := m.Distance(i, j)
			dji, _ := m.Distance(j, i)
			assert.InDelta(t, dij, dji, 1e-12)
			assert.GreaterOrEqual(t, dij, 0.0)
			assert.LessOrEqual(t, dij, 1.0)
		}
	}

	d, ok := m.Distance(1, 2)
	require.True(t, ok)
	assert.InDelta(t, 0.4, d, 1e-12)

	_, ok = m.Distance(1, 99)
	assert.False(t, ok)

	row, ok := m.Row(1)
	require.True(t, ok)
	assert.Len(t, row, 4)
}

func TestJaccardMatrixSequentialMatchesPooled(t *testing.T) {
	pool, err := workpool.New(4)
	require.NoError(t, err)
	defer pool.Release()

	a, err := JaccardMatrix(context.Background(), testDictionary(), nil)
	require.NoError(t, err)
	b, err := JaccardMatrix(context.Background(), testDictionary(), pool)
	require.NoError(t, err)
	assert.Equal(t, a.IDs, b.IDs)
	assert.Equal(t, a.Dist, b.Dist)
}

func TestCloseness(t *testing.T) {
	m, err := JaccardMatrix(context.Background(), testDictionary(), nil)
	require.NoError(t, err)

	r1, err := Closeness(m)
	require.NoError(t, err)
	r2, err := Closeness(m)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
	require.Len(t, r1, 4)

	for i := 1; i < len(r1); i++ {
		if r1[i-1].Score == r1[i].Score {
			assert.Less(t, r1[i-1].ID, r1[i].ID)
		} else {
			assert.Greater(t, r1[i-1].Score, r1[i].Score)
		}
	}

	row, _ := m.Row(r1[0].ID)
	sum := 0.0
	for _, d := range row {
		sum += d
	}
	assert.InDelta(t, 1/sum, r1[0].Score, 1e-12)

	pos := r1.Positions()
	assert.Equal(t, 0, pos[r1[0].ID])
}

func TestClosenessTiesAndNaN(t *testing.T) {
	m := &Matrix{
		IDs: []int{7, 3, 5},
		Dist: []float64{
			0, 0.5, math.NaN(),
			0.5, 0, 0.5,
			math.NaN(), 0.5, 0,
		},
	}
	r, err := Closeness(m)
	require.NoError(t, err)
	assert.Equal(t, 3, r[0].ID)
	assert.InDelta(t, 1.0, r[0].Score, 1e-12)
	assert.Equal(t, []int{5, 7}, []int{r[1].ID, r[2].ID})
	assert.True(t, math.IsNaN(r[1].Score))
}

func TestClosenessSingleBook(t *testing.T) {
	r, err := Closeness(&Matrix{IDs: []int{1}, Dist: []float64{0}})
	require.NoError(t, err)
	assert.True(t, math.IsInf(r[0].Score, 1))
}

func TestClosenessEmpty(t *testing.T) {
	m, err := JaccardMatrix(context.Background(), index.NewKeywordDictionary(), nil)
	require.NoError(t, err)
	_, err = Closeness(m)
	assert.ErrorIs(t, err, ErrEmptyMatrix)
}
