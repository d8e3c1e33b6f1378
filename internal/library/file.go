package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/errors"
)

// FileSource reads a catalog exported as JSON. Both a plain array of books
// and a Gutendex page ({"results": [...]}) are accepted.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) (Library, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading catalog %s: %v", apperrors.ErrCorpusIO, s.Path, err)
	}
	books, err := decodeCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("decoding catalog %s: %w", s.Path, err)
	}
	lib := fromSlice(books)
	slog.Default().With("component", "library").Info("catalog loaded", "path", s.Path, "books", len(lib))
	return lib, nil
}

func decodeCatalog(data []byte) ([]Book, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var books []Book
		if err := json.Unmarshal(data, &books); err != nil {
			return nil, err
		}
		return books, nil
	}
	var page struct {
		Results []Book `json:"results"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// DirTextStore serves <Dir>/<id>.txt.
type DirTextStore struct {
	Dir string
}

func (s DirTextStore) Text(ctx context.Context, id int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, strconv.Itoa(id)+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: book %d: %v", apperrors.ErrCorpusIO, id, err)
	}
	return string(data), nil
}
