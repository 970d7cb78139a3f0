// Package store opens the document store named by a connection string.
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go-signpdf/internal/document"
	"go-signpdf/internal/logging"
	"go-signpdf/internal/store/filesystem"
	"go-signpdf/internal/store/memory"
	"go-signpdf/internal/store/mongo"
	"go-signpdf/internal/store/postgres"
	"go-signpdf/internal/store/redis"
	"go-signpdf/internal/store/sqlite"
)

const pingTimeout = 5 * time.Second

// Open picks a backend by the scheme of rawURL. An empty URL gives an
// in-memory store. Connectivity is checked once; a failed check is logged
// and the store is returned anyway.
func Open(ctx context.Context, rawURL, database string) (document.Store, error) {
	store, kind, err := open(ctx, rawURL, database)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logging.Error("Store connection check failed", "storageType", kind, "error", err)
	} else {
		logging.Info("Use storage", "storageType", kind)
	}
	return store, nil
}

func open(ctx context.Context, rawURL, database string) (document.Store, string, error) {
	if rawURL == "" {
		return memory.NewDocumentStore(), "in-memory", nil
	}
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return nil, "", fmt.Errorf("store url %q has no scheme", rawURL)
	}

	switch strings.ToLower(scheme) {
	case "memory":
		return memory.NewDocumentStore(), "in-memory", nil
	case "file":
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, "", fmt.Errorf("invalid file url: %w", err)
		}
		s, err := filesystem.NewDocumentStore(u.Host + u.Path)
		return s, "filesystem", err
	case "sqlite", "sqlite3":
		s, err := sqlite.NewDocumentStore(rest)
		return s, "sqlite", err
	case "postgres", "postgresql":
		s, err := postgres.NewDocumentStore(ctx, rawURL)
		return s, "postgres", err
	case "redis", "rediss":
		s, err := redis.NewDocumentStore(rawURL)
		return s, "redis", err
	case "mongodb", "mongodb+srv":
		s, err := mongo.NewDocumentStore(ctx, rawURL, database)
		return s, "mongodb", err
	default:
		return nil, "", fmt.Errorf("unsupported store scheme %q", scheme)
	}
}
