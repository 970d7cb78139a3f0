package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-signpdf/internal/document"
	"go-signpdf/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	filename   TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_filename ON documents (filename, seq);`

type documentStore struct {
	db *sql.DB
}

func NewDocumentStore(dataSourceName string) (document.Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &documentStore{db: db}, nil
}

func (s *documentStore) Get(ctx context.Context, filename string) (*document.Document, error) {
	var doc document.Document
	err := s.db.QueryRowContext(ctx,
		"SELECT id, filename, content, created_at FROM documents WHERE filename = ? ORDER BY seq LIMIT 1",
		filename,
	).Scan(&doc.ID, &doc.Filename, &doc.Content, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	if err != nil {
		logging.Error("Failed to retrieve document", "filename", filename, "error", err)
		return nil, err
	}
	return &doc, nil
}

func (s *documentStore) Insert(ctx context.Context, doc *document.Document) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (id, filename, content, created_at) VALUES (?, ?, ?, ?)",
		doc.ID, doc.Filename, doc.Content, doc.CreatedAt,
	)
	if err != nil {
		logging.Error("Failed to create document", "filename", doc.Filename, "error", err)
	}
	return err
}

func (s *documentStore) Put(ctx context.Context, filename, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET content = ?
		 WHERE seq = (SELECT seq FROM documents WHERE filename = ? ORDER BY seq LIMIT 1)`,
		content, filename,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	return nil
}

func (s *documentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *documentStore) Close() error {
	return s.db.Close()
}
