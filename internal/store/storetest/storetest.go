// Package storetest checks a document.Store implementation against the
// behavior the signing workflow relies on.
package storetest

import (
	"context"
	"errors"
	"testing"

	"go-signpdf/internal/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) document.Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing.pdf")
		assert.True(t, errors.Is(err, document.ErrNotFound), "got %v", err)
	})

	t.Run("put missing", func(t *testing.T) {
		s := newStore(t)
		err := s.Put(ctx, "missing.pdf", "AAAA")
		assert.True(t, errors.Is(err, document.ErrNotFound), "got %v", err)
	})

	t.Run("insert then get", func(t *testing.T) {
		s := newStore(t)
		doc := document.NewDocument("doc.pdf", []byte("%PDF-1.4 body"))
		require.NoError(t, s.Insert(ctx, doc))

		got, err := s.Get(ctx, "doc.pdf")
		require.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
		assert.Equal(t, "doc.pdf", got.Filename)
		assert.Equal(t, doc.Content, got.Content)
	})

	t.Run("put overwrites content", func(t *testing.T) {
		s := newStore(t)
		doc := document.NewDocument("doc.pdf", []byte("v1"))
		require.NoError(t, s.Insert(ctx, doc))
		require.NoError(t, s.Put(ctx, "doc.pdf", document.Encode([]byte("v2"))))

		got, err := s.Get(ctx, "doc.pdf")
		require.NoError(t, err)
		raw, err := got.Bytes()
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), raw)
		assert.Equal(t, doc.ID, got.ID)
	})

	t.Run("duplicates address the first record", func(t *testing.T) {
		s := newStore(t)
		first := document.NewDocument("dup.pdf", []byte("first"))
		second := document.NewDocument("dup.pdf", []byte("second"))
		second.CreatedAt = first.CreatedAt.Add(1)
		require.NoError(t, s.Insert(ctx, first))
		require.NoError(t, s.Insert(ctx, second))

		got, err := s.Get(ctx, "dup.pdf")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		require.NoError(t, s.Put(ctx, "dup.pdf", document.Encode([]byte("signed"))))
		got, err = s.Get(ctx, "dup.pdf")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, document.Encode([]byte("signed")), got.Content)
	})

	t.Run("filenames are independent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, document.NewDocument("a.pdf", []byte("a"))))
		require.NoError(t, s.Insert(ctx, document.NewDocument("b.pdf", []byte("b"))))
		require.NoError(t, s.Put(ctx, "a.pdf", document.Encode([]byte("a2"))))

		got, err := s.Get(ctx, "b.pdf")
		require.NoError(t, err)
		assert.Equal(t, document.Encode([]byte("b")), got.Content)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
