package memory

import (
	"context"
	"fmt"
	"sync"

	"go-signpdf/internal/document"
)

type documentStore struct {
	mu      sync.RWMutex
	records map[string][]document.Document
}

func NewDocumentStore() document.Store {
	return &documentStore{records: make(map[string][]document.Document)}
}

func (s *documentStore) Get(ctx context.Context, filename string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.records[filename]
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	doc := docs[0]
	return &doc, nil
}

func (s *documentStore) Insert(ctx context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[doc.Filename] = append(s.records[doc.Filename], *doc)
	return nil
}

func (s *documentStore) Put(ctx context.Context, filename, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.records[filename]
	if len(docs) == 0 {
		return fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	docs[0].Content = content
	return nil
}

func (s *documentStore) Ping(ctx context.Context) error { return nil }

func (s *documentStore) Close() error { return nil }

