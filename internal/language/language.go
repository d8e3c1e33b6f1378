// Package language holds the per-language resources used by tokenization and
// keyword extraction: the alphabet of token characters, a stop-word list and
// a Snowball stemmer.
package language

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/french"

	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
)

// DefaultPrecedence is the order in which a book's language tags are tried.
var DefaultPrecedence = []string{"en", "fr"}

// Resource is the immutable tokenization profile of one language.
type Resource struct {
	Code      string
	alphabet  map[rune]struct{}
	stopWords map[string]struct{}
	stem      func(string) string
}

// InAlphabet reports whether r is a token character. r must already be
// case-folded.
func (r *Resource) InAlphabet(c rune) bool {
	_, ok := r.alphabet[c]
	return ok
}

func (r *Resource) IsStopWord(word string) bool {
	_, ok := r.stopWords[word]
	return ok
}

// Stem reduces a lowercased word to its stem.
func (r *Resource) Stem(word string) string {
	return r.stem(word)
}

func (r *Resource) AlphabetSize() int {
	return len(r.alphabet)
}

// Registry resolves language tags to resources in a fixed precedence.
type Registry struct {
	precedence []string
	byCode     map[string]*Resource
}

// NewRegistry builds a registry for the given language codes. When
// resourceDir is set, <resourceDir>/<code>/alphabet.txt replaces the built-in
// alphabet; the file holds one character per line.
func NewRegistry(precedence []string, resourceDir string) (*Registry, error) {
	if len(precedence) == 0 {
		precedence = DefaultPrecedence
	}
	reg := &Registry{byCode: make(map[string]*Resource, len(precedence))}
	for _, code := range precedence {
		code = strings.ToLower(strings.TrimSpace(code))
		if _, dup := reg.byCode[code]; dup {
			continue
		}
		res, err := builtin(code)
		if err != nil {
			return nil, err
		}
		if resourceDir != "" {
			alphabet, err := loadAlphabet(filepath.Join(resourceDir, code, "alphabet.txt"))
			switch {
			case err == nil:
				res.alphabet = alphabet
			case !errors.Is(err, os.ErrNotExist):
				return nil, fmt.Errorf("loading alphabet for %s: %w", code, err)
			}
		}
		reg.byCode[code] = res
		reg.precedence = append(reg.precedence, code)
	}
	return reg, nil
}

// Lookup returns the resource for code or ErrUnsupportedLanguage.
func (r *Registry) Lookup(code string) (*Resource, error) {
	res, ok := r.byCode[strings.ToLower(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedLanguage, code)
	}
	return res, nil
}

// Select picks the first language in precedence order that appears among a
// book's tags.
func (r *Registry) Select(tags []string) (*Resource, error) {
	for _, code := range r.precedence {
		for _, tag := range tags {
			if strings.EqualFold(tag, code) {
				return r.byCode[code], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", apperrors.ErrUnsupportedLanguage, tags)
}

func (r *Registry) Precedence() []string {
	return append([]string(nil), r.precedence...)
}

func builtin(code string) (*Resource, error) {
	switch code {
	case "en":
		return &Resource{
			Code:      code,
			alphabet:  runeSet(latinLetters + "0123456789"),
			stopWords: wordSet(englishStopWords),
			stem:      func(w string) string { return english.Stem(w, false) },
		}, nil
	case "fr":
		return &Resource{
			Code:      code,
			alphabet:  runeSet(latinLetters + frenchLetters + "0123456789"),
			stopWords: wordSet(frenchStopWords),
			stem:      func(w string) string { return french.Stem(w, false) },
		}, nil
	}
	return nil, fmt.Errorf("%w: no stemmer for %q", apperrors.ErrUnsupportedLanguage, code)
}

func loadAlphabet(path string) (map[rune]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	set := make(map[rune]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		c, _ := utf8.DecodeRuneInString(line)
		set[c] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%s: empty alphabet", path)
	}
	return set, nil
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, utf8.RuneCountInString(s))
	for _, c := range s {
		set[c] = struct{}{}
	}
	return set
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Tokens splits text into case-folded runs of alphabet characters, in order
// and with repetitions. Everything outside the alphabet is a separator.
func (r *Resource) Tokens(text string) []string {
	var (
		tokens []string
		cur    strings.Builder
	)
	for _, c := range text {
		c = unicode.ToLower(c)
		if r.InAlphabet(c) {
			cur.WriteRune(c)
			continue
		}
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}
