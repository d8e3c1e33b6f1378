package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/keyword"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/language"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/library"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/workpool"
	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
)

// SkipReason labels why a book did not contribute to an index.
type SkipReason string

const (
	SkipUnsupportedLanguage SkipReason = "unsupported_language"
	SkipCorpusIO            SkipReason = "corpus_io"
)

// Builder builds the three indexes of a library. Its zero value is not
// usable; see NewBuilder.
type Builder struct {
	languages *language.Registry
	texts     library.TextStore
	pool      *workpool.Pool
	onSkip    func(SkipReason)
	logger    *slog.Logger
}

type Option func(*Builder)

// WithPool extracts keywords on pool instead of sequentially.
func WithPool(pool *workpool.Pool) Option {
	return func(b *Builder) { b.pool = pool }
}

// WithSkipHook is called once per skipped book. It may be called from
// several goroutines at once.
func WithSkipHook(fn func(SkipReason)) Option {
	return func(b *Builder) { b.onSkip = fn }
}

func NewBuilder(languages *language.Registry, texts library.TextStore, opts ...Option) *Builder {
	b := &Builder{
		languages: languages,
		texts:     texts,
		onSkip:    func(SkipReason) {},
		logger:    slog.Default().With("component", "index-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildKeywordIndex extracts the keywords of every readable book with a
// supported language. Unreadable texts and unsupported languages are logged
// and skipped; only ctx cancellation aborts the build.
func (b *Builder) BuildKeywordIndex(ctx context.Context, lib library.Library) (*KeywordDictionary, error) {
	ids := lib.IDs()
	results := make([][]keyword.Keyword, len(ids))

	err := b.pool.Run(ctx, len(ids), func(i int) {
		book := lib[ids[i]]
		res, err := b.languages.Select(book.Languages)
		if err != nil {
			b.skip(SkipUnsupportedLanguage, book.ID, "keywords", err)
			return
		}
		text, err := b.texts.Text(ctx, book.ID)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			b.skip(SkipCorpusIO, book.ID, "keywords", err)
			return
		}
		results[i] = keyword.ExtractWith(text, res)
	})
	if err != nil {
		return nil, fmt.Errorf("extracting keywords: %w", err)
	}

	dict := NewKeywordDictionary()
	for i, kws := range results {
		id := ids[i]
		for _, kw := range kws {
			for _, w := range kw.Words {
				dict.WordToStem[w] = kw.Stem
			}
			books, ok := dict.StemToBooks[kw.Stem]
			if !ok {
				books = make(map[int]float64)
				dict.StemToBooks[kw.Stem] = books
			}
			books[id] = kw.Relevance
		}
	}
	b.logger.Info("keyword index built", "books", len(ids), "stems", len(dict.StemToBooks), "words", len(dict.WordToStem))
	return dict, nil
}

// BuildTitleIndex indexes the words of every title. Books without a
// supported language are skipped.
func (b *Builder) BuildTitleIndex(lib library.Library) WordIndex {
	return b.buildWordIndex(lib, "titles", func(book library.Book) string { return book.Title })
}

// BuildAuthorIndex indexes the words of every author name of a book.
func (b *Builder) BuildAuthorIndex(lib library.Library) WordIndex {
	return b.buildWordIndex(lib, "authors", func(book library.Book) string {
		return strings.Join(book.AuthorNames(), " ")
	})
}

func (b *Builder) buildWordIndex(lib library.Library, name string, field func(library.Book) string) WordIndex {
	idx := make(WordIndex)
	for _, id := range lib.IDs() {
		book := lib[id]
		res, err := b.languages.Select(book.Languages)
		if err != nil {
			b.skip(SkipUnsupportedLanguage, id, name, err)
			continue
		}
		for _, w := range SplitWords(field(book), res) {
			idx.add(w, id)
		}
	}
	b.logger.Info("word index built", "index", name, "words", len(idx))
	return idx
}

func (b *Builder) skip(reason SkipReason, id int, index string, err error) {
	level := slog.LevelWarn
	if errors.Is(err, apperrors.ErrUnsupportedLanguage) {
		level = slog.LevelDebug
	}
	b.logger.Log(context.Background(), level, "book skipped", "book_id", id, "index", index, "reason", string(reason), "error", err)
	b.onSkip(reason)
}
