// Package keyword turns document text into weighted stems.
//
// Relevance is the normalised term frequency of a stem: the number of kept
// tokens reducing to it divided by the total number of kept tokens in the
// document. Stop words are not kept.
package keyword

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/language"
)

// Keyword is one distinct stem of a document with the surface forms that
// produced it.
type Keyword struct {
	Stem      string
	Words     []string
	Relevance float64
}

// Extractor resolves language tags through a Registry.
type Extractor struct {
	languages *language.Registry
}

func NewExtractor(languages *language.Registry) *Extractor {
	return &Extractor{languages: languages}
}

// Extract returns the keywords of text for the language code, sorted by stem.
// It fails with ErrUnsupportedLanguage when no stemmer is configured for code.
func (e *Extractor) Extract(text, code string) ([]Keyword, error) {
	res, err := e.languages.Lookup(code)
	if err != nil {
		return nil, err
	}
	return ExtractWith(text, res), nil
}

// ExtractWith is Extract with an already-resolved language resource.
func ExtractWith(text string, res *language.Resource) []Keyword {
	type acc struct {
		count int
		words map[string]struct{}
	}
	stems := make(map[string]*acc)
	total := 0
	for _, tok := range res.Tokens(text) {
		if res.IsStopWord(tok) {
			continue
		}
		stem := res.Stem(tok)
		if stem == "" {
			continue
		}
		a, ok := stems[stem]
		if !ok {
			a = &acc{words: make(map[string]struct{}, 1)}
			stems[stem] = a
		}
		a.count++
		a.words[tok] = struct{}{}
		total++
	}
	if total == 0 {
		return nil
	}

	keywords := make([]Keyword, 0, len(stems))
	for stem, a := range stems {
		words := make([]string, 0, len(a.words))
		for w := range a.words {
			words = append(words, w)
		}
		sort.Strings(words)
		keywords = append(keywords, Keyword{
			Stem:      stem,
			Words:     words,
			Relevance: float64(a.count) / float64(total),
		})
	}
	sort.Slice(keywords, func(i, j int) bool { return keywords[i].Stem < keywords[j].Stem })
	return keywords
}
