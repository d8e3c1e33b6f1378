// Package library models the book catalog and the stores that supply it:
// book metadata from a JSON export or PostgreSQL, and book text from disk.
package library

import (
	"context"
	"sort"
)

// Person is a book author.
type Person struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year,omitempty"`
	DeathYear *int   `json:"death_year,omitempty"`
}

type Book struct {
	ID            int               `json:"id"`
	Title         string            `json:"title"`
	Authors       []Person          `json:"authors"`
	Subjects      []string          `json:"subjects,omitempty"`
	Languages     []string          `json:"languages"`
	Formats       map[string]string `json:"formats,omitempty"`
	DownloadCount int               `json:"download_count"`
}

// AuthorNames returns the author names in catalog order.
func (b Book) AuthorNames() []string {
	names := make([]string, len(b.Authors))
	for i, a := range b.Authors {
		names[i] = a.Name
	}
	return names
}

// Library is the full catalog keyed by book id. It is never mutated after
// loading.
type Library map[int]Book

// IDs returns every book id in ascending order.
func (l Library) IDs() []int {
	ids := make([]int, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Source loads a catalog.
type Source interface {
	Load(ctx context.Context) (Library, error)
}

// TextStore returns the full text of a book.
type TextStore interface {
	Text(ctx context.Context, id int) (string, error)
}

func fromSlice(books []Book) Library {
	lib := make(Library, len(books))
	for _, b := range books {
		lib[b.ID] = b
	}
	return lib
}
