// Package enginetest provides a small in-memory catalog and a Snapshot built
// from it for tests of packages that sit on top of the engine.
package enginetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/language"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/library"
	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
)

// Source is a library.Source over a fixed catalog that counts loads.
type Source struct {
	Books library.Library
	Loads int
}

func (s *Source) Load(ctx context.Context) (library.Library, error) {
	s.Loads++
	return s.Books, nil
}

// Texts is a library.TextStore over a map.
type Texts map[int]string

func (t Texts) Text(ctx context.Context, id int) (string, error) {
	text, ok := t[id]
	if !ok {
		return "", fmt.Errorf("%w: book %d", apperrors.ErrCorpusIO, id)
	}
	return text, nil
}

// Catalog returns six books: four English, one French, one German.
func Catalog() library.Library {
	return library.Library{
		1: {ID: 1, Title: "Moby Dick; Or, The Whale", Authors: []library.Person{{Name: "Herman Melville"}}, Languages: []string{"en"}},
		2: {ID: 2, Title: "The Sea Wolf", Authors: []library.Person{{Name: "Jack London"}}, Languages: []string{"en"}},
		3: {ID: 3, Title: "White Fang", Authors: []library.Person{{Name: "Jack London"}}, Languages: []string{"en"}},
		4: {ID: 4, Title: "Twenty Thousand Leagues under the Sea", Authors: []library.Person{{Name: "Jules Verne"}}, Languages: []string{"en", "fr"}},
		5: {ID: 5, Title: "Vingt mille lieues sous les mers", Authors: []library.Person{{Name: "Jules Verne"}}, Languages: []string{"fr"}},
		6: {ID: 6, Title: "Der Schimmelreiter", Authors: []library.Person{{Name: "Theodor Storm"}}, Languages: []string{"de"}},
	}
}

// CatalogTexts returns the book texts of Catalog.
func CatalogTexts() Texts {
	return Texts{
		1: "Call me Ishmael. The whale! The white whale. Whales and whaling ships on the sea.",
		2: "The sea wolf sailed the cold sea. A ship, a wolf, a captain and the sea.",
		3: "The wolf ran through the white snow. The wolf and the dog.",
		4: "The submarine sailed under the sea. Whales and sharks around the ship.",
		5: "Le sous-marin navigue sous la mer. Les baleines et les requins.",
		6: "Es war einmal ein Reiter.",
	}
}

// Snapshot builds the catalog without checkpoints.
func Snapshot(t testing.TB) *engine.Snapshot {
	t.Helper()
	reg, err := language.NewRegistry(nil, "")
	if err != nil {
		t.Fatalf("language registry: %v", err)
	}
	b := engine.NewBuilder(&Source{Books: Catalog()}, CatalogTexts(), reg)
	snap, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("building snapshot: %v", err)
	}
	return snap
}
