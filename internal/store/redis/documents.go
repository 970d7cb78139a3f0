package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-signpdf/internal/document"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "documents:"

// documentStore keeps every filename as a list of JSON records in insertion
// order; index 0 is the record Get and Put address.
type documentStore struct {
	client *redis.Client
}

func NewDocumentStore(url string) (document.Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &documentStore{client: redis.NewClient(opts)}, nil
}

// NewDocumentStoreFromClient wraps an existing client.
func NewDocumentStoreFromClient(client *redis.Client) document.Store {
	return &documentStore{client: client}
}

func key(filename string) string {
	return keyPrefix + filename
}

func (s *documentStore) Get(ctx context.Context, filename string) (*document.Document, error) {
	raw, err := s.client.LIndex(ctx, key(filename), 0).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	if err != nil {
		return nil, err
	}
	var doc document.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("corrupt record for %s: %w", filename, err)
	}
	return &doc, nil
}

func (s *documentStore) Insert(ctx context.Context, doc *document.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, key(doc.Filename), data).Err()
}

func (s *documentStore) Put(ctx context.Context, filename, content string) error {
	doc, err := s.Get(ctx, filename)
	if err != nil {
		return err
	}
	doc.Content = content
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.client.LSet(ctx, key(filename), 0, data).Err()
}

func (s *documentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *documentStore) Close() error {
	return s.client.Close()
}
