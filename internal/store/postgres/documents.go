package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-signpdf/internal/document"
	"go-signpdf/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	filename   TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_filename ON documents (filename, seq);`

type documentStore struct {
	pool *pgxpool.Pool

	schemaMu    sync.Mutex
	schemaReady bool
}

// NewDocumentStore creates the pool lazily: pgxpool does not dial until the
// first query, so an unreachable server surfaces on use, not here.
func NewDocumentStore(ctx context.Context, dsn string) (document.Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &documentStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		logging.Warn("Postgres schema not applied yet", "error", err)
	}
	return s, nil
}

// ensureSchema creates the table on first successful contact with the server.
func (s *documentStore) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

func (s *documentStore) Get(ctx context.Context, filename string) (*document.Document, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var doc document.Document
	err := s.pool.QueryRow(ctx,
		"SELECT id, filename, content, created_at FROM documents WHERE filename = $1 ORDER BY seq LIMIT 1",
		filename,
	).Scan(&doc.ID, &doc.Filename, &doc.Content, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *documentStore) Insert(ctx context.Context, doc *document.Document) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		"INSERT INTO documents (id, filename, content, created_at) VALUES ($1, $2, $3, $4)",
		doc.ID, doc.Filename, doc.Content, doc.CreatedAt,
	)
	return err
}

func (s *documentStore) Put(ctx context.Context, filename, content string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET content = $1
		 WHERE seq = (SELECT seq FROM documents WHERE filename = $2 ORDER BY seq LIMIT 1)`,
		content, filename,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	return nil
}

func (s *documentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *documentStore) Close() error {
	s.pool.Close()
	return nil
}
