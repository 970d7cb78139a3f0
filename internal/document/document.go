// Package document defines the stored PDF record, the sign request and the
// Store contract shared by the signing workflow and the storage backends.
package document

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document is a stored PDF keyed by filename. Content holds the Base64
// encoding of the file, which is also the persisted layout.
type Document struct {
	ID        string    `json:"id" bson:"id"`
	Filename  string    `json:"filename" bson:"filename"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// NewDocument encodes raw and assigns a fresh record ID.
func NewDocument(filename string, raw []byte) *Document {
	return &Document{
		ID:        uuid.New().String(),
		Filename:  filename,
		Content:   Encode(raw),
		CreatedAt: time.Now().UTC(),
	}
}

// Encode returns the persisted form of raw PDF bytes.
func Encode(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// Bytes decodes the stored content.
func (d *Document) Bytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(d.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: content is not base64: %v", ErrInvalidDocument, err)
	}
	return raw, nil
}

// Store persists documents keyed by filename.
//
// Insert never enforces uniqueness: uploading the same filename twice keeps
// two records. Get and Put always address the earliest inserted one.
type Store interface {
	Get(ctx context.Context, filename string) (*Document, error)
	Insert(ctx context.Context, doc *Document) error
	Put(ctx context.Context, filename, content string) error
	Ping(ctx context.Context) error
	Close() error
}
