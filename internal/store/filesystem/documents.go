package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go-signpdf/internal/document"
	"go-signpdf/internal/logging"
)

// documentStore keeps one directory per filename (named by the SHA-256 of
// the filename, so any name maps to a short, safe path) holding one JSON
// file per record. Record files are
// named by insertion time so the earliest sorts first.
type documentStore struct {
	basePath string
}

func NewDocumentStore(basePath string) (document.Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &documentStore{basePath: basePath}, nil
}

func (s *documentStore) dir(filename string) string {
	sum := sha256.Sum256([]byte(filename))
	return filepath.Join(s.basePath, hex.EncodeToString(sum[:]))
}

func (s *documentStore) firstRecord(filename string) (string, error) {
	entries, err := os.ReadDir(s.dir(filename))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	if err != nil {
		return "", err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	sort.Strings(names)
	return filepath.Join(s.dir(filename), names[0]), nil
}

func (s *documentStore) Get(ctx context.Context, filename string) (*document.Document, error) {
	path, err := s.firstRecord(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Error("Failed to read document", "filename", filename, "file_path", path, "error", err)
		return nil, err
	}
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt record %s: %w", path, err)
	}
	return &doc, nil
}

func (s *documentStore) Insert(ctx context.Context, doc *document.Document) error {
	dir := s.dir(doc.Filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	name := fmt.Sprintf("%020d-%s.json", doc.CreatedAt.UnixNano(), doc.ID)
	path := filepath.Join(dir, name)
	logging.Debug("Creating new document", "filename", doc.Filename, "file_path", path)
	return writeJSON(path, doc)
}

func (s *documentStore) Put(ctx context.Context, filename, content string) error {
	path, err := s.firstRecord(filename)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("corrupt record %s: %w", path, err)
	}
	doc.Content = content
	return writeJSON(path, &doc)
}

func (s *documentStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.basePath)
	return err
}

func (s *documentStore) Close() error { return nil }

// writeJSON replaces path atomically so readers never see a partial record.
func writeJSON(path string, doc *document.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
