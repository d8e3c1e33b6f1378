package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

// Schema creates the catalog tables used by PostgresSource.
const Schema = `
CREATE TABLE IF NOT EXISTS books (
	id             INTEGER PRIMARY KEY,
	title          TEXT NOT NULL,
	subjects       TEXT[] NOT NULL DEFAULT '{}',
	languages      TEXT[] NOT NULL DEFAULT '{}',
	formats        JSONB NOT NULL DEFAULT '{}',
	download_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS book_authors (
	book_id    INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	birth_year INTEGER,
	death_year INTEGER,
	PRIMARY KEY (book_id, position)
);`

// PostgresSource loads the catalog from the books and book_authors tables.
type PostgresSource struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{
		db:     db,
		logger: slog.Default().With("component", "library-postgres"),
	}
}

func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating catalog schema: %w", err)
	}
	return nil
}

func (s *PostgresSource) Load(ctx context.Context) (Library, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, subjects, languages, formats, download_count FROM books`)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	lib := make(Library)
	for rows.Next() {
		var (
			b       Book
			formats []byte
		)
		if err := rows.Scan(&b.ID, &b.Title, pq.Array(&b.Subjects), pq.Array(&b.Languages), &formats, &b.DownloadCount); err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		if len(formats) > 0 {
			if err := json.Unmarshal(formats, &b.Formats); err != nil {
				return nil, fmt.Errorf("decoding formats of book %d: %w", b.ID, err)
			}
		}
		lib[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating books: %w", err)
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT book_id, name, birth_year, death_year FROM book_authors ORDER BY book_id, position`)
	if err != nil {
		return nil, fmt.Errorf("querying authors: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var (
			id           int
			p            Person
			birth, death sql.NullInt32
		)
		if err := arows.Scan(&id, &p.Name, &birth, &death); err != nil {
			return nil, fmt.Errorf("scanning author: %w", err)
		}
		p.BirthYear = nullableYear(birth)
		p.DeathYear = nullableYear(death)
		b, ok := lib[id]
		if !ok {
			continue
		}
		b.Authors = append(b.Authors, p)
		lib[id] = b
	}
	if err := arows.Err(); err != nil {
		return nil, fmt.Errorf("iterating authors: %w", err)
	}
	s.logger.Info("catalog loaded", "books", len(lib))
	return lib, nil
}

// Import upserts every book of lib in a single transaction.
func (s *PostgresSource) Import(ctx context.Context, lib Library) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	for _, id := range lib.IDs() {
		b := lib[id]
		formats, err := json.Marshal(b.Formats)
		if err != nil {
			return fmt.Errorf("encoding formats of book %d: %w", id, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO books (id, title, subjects, languages, formats, download_count)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, subjects = EXCLUDED.subjects,
				languages = EXCLUDED.languages, formats = EXCLUDED.formats,
				download_count = EXCLUDED.download_count`,
			b.ID, b.Title, pq.Array(b.Subjects), pq.Array(b.Languages), formats, b.DownloadCount)
		if err != nil {
			return fmt.Errorf("upserting book %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM book_authors WHERE book_id = $1`, b.ID); err != nil {
			return fmt.Errorf("clearing authors of book %d: %w", id, err)
		}
		for pos, a := range b.Authors {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO book_authors (book_id, position, name, birth_year, death_year) VALUES ($1, $2, $3, $4, $5)`,
				b.ID, pos, a.Name, a.BirthYear, a.DeathYear)
			if err != nil {
				return fmt.Errorf("inserting author of book %d: %w", id, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	s.logger.Info("catalog imported", "books", len(lib))
	return nil
}

func nullableYear(v sql.NullInt32) *int {
	if !v.Valid {
		return nil
	}
	y := int(v.Int32)
	return &y
}
