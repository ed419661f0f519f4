package library

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Schema is the library table.
const Schema = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	catalog_id TEXT NOT NULL DEFAULT '',
	isbn10 TEXT NOT NULL DEFAULT '',
	isbn13 TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	authors TEXT NOT NULL DEFAULT '[]',
	publisher TEXT NOT NULL DEFAULT '',
	publish_date TEXT NOT NULL DEFAULT '',
	page_count INTEGER NOT NULL DEFAULT 0,
	provider TEXT NOT NULL DEFAULT '',
	added_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_books_isbn13 ON books(isbn13);
CREATE INDEX IF NOT EXISTS idx_books_isbn10 ON books(isbn10);
`

// Store persists library records in SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open connects to the database at dbPath and creates the books table.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		closeErr := db.Close()
		return nil, stdErrors.Join(fmt.Errorf("failed to create table: %w", err), closeErr)
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load returns every record, oldest first.
func (s *Store) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, catalog_id, isbn10, isbn13, title, authors, publisher, publish_date, page_count, provider, added_at
		FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var r Record
		var authors string
		var addedAt int64
		if err := rows.Scan(&r.ID, &r.CatalogID, &r.ISBN10, &r.ISBN13, &r.Title, &authors,
			&r.Publisher, &r.PublishDate, &r.PageCount, &r.Provider, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		if err := json.Unmarshal([]byte(authors), &r.Authors); err != nil {
			slog.Warn("Ignoring malformed author list", "id", r.ID, "error", err)
		}
		r.AddedAt = time.Unix(0, addedAt).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

// Save inserts records in one transaction.
func (s *Store) Save(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback if we don't commit - ignore errors as they're expected if transaction was committed
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO books (catalog_id, isbn10, isbn13, title, authors, publisher, publish_date, page_count, provider, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, r := range records {
		authors, err := json.Marshal(nonNil(r.Authors))
		if err != nil {
			return fmt.Errorf("failed to encode authors: %w", err)
		}
		addedAt := r.AddedAt
		if addedAt.IsZero() {
			addedAt = now
		}
		if _, err := stmt.ExecContext(ctx, r.CatalogID, r.ISBN10, r.ISBN13, r.Title, string(authors),
			r.Publisher, r.PublishDate, r.PageCount, r.Provider, addedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
