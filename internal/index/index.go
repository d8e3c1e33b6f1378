// Package index builds the inverted indexes of the catalog: stems of the
// book text with per-book relevance, and plain words of titles and author
// names.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/language"
)

// KeywordDictionary maps surface words to stems and stems to the relevance
// they carry in each book. Every WordToStem value is a key of StemToBooks.
type KeywordDictionary struct {
	WordToStem  map[string]string
	StemToBooks map[string]map[int]float64
}

func NewKeywordDictionary() *KeywordDictionary {
	return &KeywordDictionary{
		WordToStem:  make(map[string]string),
		StemToBooks: make(map[string]map[int]float64),
	}
}

// StemWeight is one entry of a book's keyword profile.
type StemWeight struct {
	Stem      string
	Relevance float64
}

// Profiles inverts StemToBooks into per-book keyword profiles sorted by
// stem.
func (d *KeywordDictionary) Profiles() map[int][]StemWeight {
	profiles := make(map[int][]StemWeight)
	for stem, books := range d.StemToBooks {
		for id, rel := range books {
			profiles[id] = append(profiles[id], StemWeight{Stem: stem, Relevance: rel})
		}
	}
	for _, p := range profiles {
		sort.Slice(p, func(i, j int) bool { return p[i].Stem < p[j].Stem })
	}
	return profiles
}

// Words returns the indexed surface words in ascending order.
func (d *KeywordDictionary) Words() []string {
	words := make([]string, 0, len(d.WordToStem))
	for w := range d.WordToStem {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// WordIndex maps a lowercased word to the ascending ids of the books that
// contain it.
type WordIndex map[string][]int

// Lookup returns a copy of the ids for word.
func (w WordIndex) Lookup(word string) []int {
	return append([]int(nil), w[word]...)
}

func (w WordIndex) Words() []string {
	words := make([]string, 0, len(w))
	for word := range w {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

func (w WordIndex) add(word string, id int) {
	ids := w[word]
	i := sort.SearchInts(ids, id)
	if i < len(ids) && ids[i] == id {
		return
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	w[word] = ids
}

// SplitWords returns the distinct tokens of a short text such as a title or
// an author name.
func SplitWords(text string, alphabet *language.Resource) []string {
	tokens := alphabet.Tokens(text)
	seen := make(map[string]struct{}, len(tokens))
	words := tokens[:0]
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		words = append(words, t)
	}
	sort.Strings(words)
	return words
}
