package index

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/keyword"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/language"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/library"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/workpool"
	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
)

type mapTexts map[int]string

func (m mapTexts) Text(ctx context.Context, id int) (string, error) {
	t, ok := m[id]
	if !ok {
		return "", fmt.Errorf("%w: book %d", apperrors.ErrCorpusIO, id)
	}
	return t, nil
}

func testLibrary() library.Library {
	return library.Library{
		1: {ID: 1, Title: "Moby Dick; Or, The Whale", Authors: []library.Person{{Name: "Melville, Herman"}}, Languages: []string{"en"}},
		2: {ID: 2, Title: "The Whale Road", Authors: []library.Person{{Name: "Low, Robert"}}, Languages: []string{"en"}},
		3: {ID: 3, Title: "Vingt mille lieues sous les mers", Authors: []library.Person{{Name: "Verne, Jules"}}, Languages: []string{"fr"}},
		4: {ID: 4, Title: "Der Schimmelreiter", Authors: []library.Person{{Name: "Storm, Theodor"}}, Languages: []string{"de"}},
		5: {ID: 5, Title: "Missing Text", Authors: []library.Person{{Name: "Nobody"}}, Languages: []string{"en"}},
	}
}

func testTexts() mapTexts {
	return mapTexts{
		1: "Call me Ishmael. The whale, the whales, whaling ships.",
		2: "Ships sailing the whale road. Whales everywhere.",
		3: "Le Nautilus et les baleines du capitaine Nemo.",
		4: "Es war einmal ein Reiter.",
	}
}

func newBuilder(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	reg, err := language.NewRegistry(nil, "")
	require.NoError(t, err)
	return NewBuilder(reg, testTexts(), opts...)
}

func TestSplitWords(t *testing.T) {
	reg, err := language.NewRegistry(nil, "")
	require.NoError(t, err)
	en, _ := reg.Lookup("en")

	assert.Empty(t, SplitWords("", en))
	assert.Empty(t, SplitWords("-", en))
	assert.Equal(t, []string{"a"}, SplitWords("A", en))
	assert.Equal(t, []string{"dick", "moby", "or", "the", "whale"}, SplitWords("Moby Dick; Or, The Whale", en))
	assert.Equal(t, []string{"the"}, SplitWords("the THE The", en))
}

func TestSplitWordsIsIdempotent(t *testing.T) {
	reg, err := language.NewRegistry(nil, "")
	require.NoError(t, err)
	en, _ := reg.Lookup("en")

	words := []string{"alpha", "beta", "gamma"}
	joined := "alpha beta gamma"
	assert.Equal(t, words, SplitWords(joined, en))
	assert.Equal(t, words, SplitWords(fmt.Sprint(SplitWords(joined, en)), en))
}

func TestBuildKeywordIndex(t *testing.T) {
	var mu sync.Mutex
	skipped := map[SkipReason]int{}
	pool, err := workpool.New(2)
	require.NoError(t, err)
	defer pool.Release()

	b := newBuilder(t, WithPool(pool), WithSkipHook(func(r SkipReason) {
		mu.Lock()
		skipped[r]++
		mu.Unlock()
	}))
	lib := testLibrary()
	dict, err := b.BuildKeywordIndex(context.Background(), lib)
	require.NoError(t, err)

	assert.Equal(t, 1, skipped[SkipUnsupportedLanguage])
	assert.Equal(t, 1, skipped[SkipCorpusIO])

	stem := dict.WordToStem["whales"]
	require.NotEmpty(t, stem)
	assert.Equal(t, stem, dict.WordToStem["whale"])
	assert.Contains(t, dict.StemToBooks[stem], 1)
	assert.Contains(t, dict.StemToBooks[stem], 2)

	assert.Contains(t, dict.WordToStem, "baleines")
	assert.NotContains(t, dict.WordToStem, "reiter")
	assert.NotContains(t, dict.WordToStem, "the")

	for w, s := range dict.WordToStem {
		_, ok := dict.StemToBooks[s]
		assert.True(t, ok, "word %q maps to unindexed stem %q", w, s)
	}
}

func TestKeywordIndexMatchesExtractor(t *testing.T) {
	b := newBuilder(t)
	lib := testLibrary()
	dict, err := b.BuildKeywordIndex(context.Background(), lib)
	require.NoError(t, err)

	reg, _ := language.NewRegistry(nil, "")
	texts := testTexts()
	for id, text := range texts {
		res, err := reg.Select(lib[id].Languages)
		if err != nil {
			continue
		}
		for _, kw := range keyword.ExtractWith(text, res) {
			for _, w := range kw.Words {
				assert.Equal(t, kw.Stem, dict.WordToStem[w])
			}
			assert.InDelta(t, kw.Relevance, dict.StemToBooks[kw.Stem][id], 1e-12)
		}
	}
}

func TestBuildKeywordIndexCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newBuilder(t).BuildKeywordIndex(ctx, testLibrary())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildTitleAndAuthorIndex(t *testing.T) {
	b := newBuilder(t)
	lib := testLibrary()

	titles := b.BuildTitleIndex(lib)
	assert.Equal(t, []int{1, 2}, titles.Lookup("whale"))
	assert.Equal(t, []int{1, 2}, titles.Lookup("the"))
	assert.Equal(t, []int{3}, titles.Lookup("lieues"))
	assert.Empty(t, titles.Lookup("schimmelreiter"))
	assert.Empty(t, titles.Lookup("nothing"))

	authors := b.BuildAuthorIndex(lib)
	assert.Equal(t, []int{1}, authors.Lookup("melville"))
	assert.Equal(t, []int{3}, authors.Lookup("jules"))
	assert.Equal(t, []int{5}, authors.Lookup("nobody"))
	assert.Empty(t, authors.Lookup("storm"))

	reg, err := language.NewRegistry(nil, "")
	require.NoError(t, err)
	for _, w := range titles.Words() {
		for _, id := range titles[w] {
			res, err := reg.Select(lib[id].Languages)
			require.NoError(t, err)
			assert.Contains(t, SplitWords(lib[id].Title, res), w)
		}
	}
}

func TestWordIndexSkipsUnsupportedLanguage(t *testing.T) {
	skipped := map[SkipReason]int{}
	b := newBuilder(t, WithSkipHook(func(r SkipReason) { skipped[r]++ }))
	lib := library.Library{
		4: {ID: 4, Title: "Der Schimmelreiter", Authors: []library.Person{{Name: "Storm, Theodor"}}, Languages: []string{"de"}},
	}

	assert.Empty(t, b.BuildTitleIndex(lib))
	assert.Empty(t, b.BuildAuthorIndex(lib))
	assert.Equal(t, 2, skipped[SkipUnsupportedLanguage])
}

func TestWordIndexLookupReturnsCopy(t *testing.T) {
	idx := WordIndex{}
	idx.add("w", 3)
	idx.add("w", 1)
	idx.add("w", 3)
	got := idx.Lookup("w")
	assert.Equal(t, []int{1, 3}, got)
	got[0] = 99
	assert.Equal(t, []int{1, 3}, idx["w"])
}

func TestProfiles(t *testing.T) {
	dict := NewKeywordDictionary()
	dict.StemToBooks["b"] = map[int]float64{1: 0.5}
	dict.StemToBooks["a"] = map[int]float64{1: 0.5, 2: 1}
	p := dict.Profiles()
	assert.Equal(t, []StemWeight{{"a", 0.5}, {"b", 0.5}}, p[1])
	assert.Equal(t, []StemWeight{{"a", 1}}, p[2])
}
