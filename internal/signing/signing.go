// Package signing implements the document workflow behind the HTTP API:
// upload, fetch, download and signing of stored PDFs.
//
// Sign is a read-modify-write on one record. Service serializes it per
// filename so two concurrent signatures on the same document are both kept;
// WithoutLocking turns this off.
package signing

import (
	"context"
	"fmt"
	"image"

	"go-signpdf/internal/document"
	"go-signpdf/internal/keylock"
	"go-signpdf/internal/logging"
)

const (
	MsgUploaded = "PDF uploaded successfully"
	MsgSigned   = "Signature added successfully"
)

// Codec is the PDF side of the workflow, implemented by pdf.Codec.
type Codec interface {
	PageCount(pdf []byte) (int, error)
	DecodeImage(sig []byte) (image.Image, error)
	Composite(pdf []byte, img image.Image, page int, rect document.Rect) ([]byte, error)
}

type Result struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

type Service struct {
	store document.Store
	codec Codec
	locks *keylock.Manager
}

type Option func(*Service)

// WithoutLocking lets concurrent signs on one filename interleave. The last
// writer wins and earlier signatures may be lost.
func WithoutLocking() Option {
	return func(s *Service) { s.locks = nil }
}

func NewService(store document.Store, codec Codec, opts ...Option) *Service {
	s := &Service{
		store: store,
		codec: codec,
		locks: keylock.NewManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload stores raw as a new record. An existing record with the same
// filename is not replaced.
func (s *Service) Upload(ctx context.Context, filename string, raw []byte) (*Result, error) {
	doc := document.NewDocument(filename, raw)
	if err := s.store.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store %q: %w", filename, err)
	}
	logging.Info("Document uploaded", "filename", filename, "id", doc.ID, "bytes", len(raw))
	return &Result{Message: MsgUploaded, Filename: filename}, nil
}

// Fetch returns the stored record with its Base64 content.
func (s *Service) Fetch(ctx context.Context, filename string) (*document.Document, error) {
	return s.store.Get(ctx, filename)
}

// Download returns the decoded PDF bytes.
func (s *Service) Download(ctx context.Context, filename string) ([]byte, error) {
	doc, err := s.store.Get(ctx, filename)
	if err != nil {
		return nil, err
	}
	return doc.Bytes()
}

// Sign draws req.Signature on the requested page and overwrites the stored
// document. Checks run in order: document exists, document decodes, page is
// in range, signature decodes. Nothing is written unless all of them pass.
func (s *Service) Sign(ctx context.Context, req document.SignRequest) (*Result, error) {
	if s.locks != nil {
		unlock := s.locks.Lock(req.Filename)
		defer unlock()
	}

	doc, err := s.store.Get(ctx, req.Filename)
	if err != nil {
		return nil, err
	}

	raw, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	pageCount, err := s.codec.PageCount(raw)
	if err != nil {
		return nil, err
	}

	if req.Page < 0 || req.Page >= pageCount {
		return nil, fmt.Errorf("%w: page %d not in [0, %d)", document.ErrInvalidPageIndex, req.Page, pageCount)
	}

	img, err := s.codec.DecodeImage(req.Signature)
	if err != nil {
		return nil, err
	}

	if req.Width <= 0 || req.Height <= 0 {
		return nil, fmt.Errorf("%w: width and height must be positive", document.ErrInvalidPlacement)
	}

	rect := req.Rect()
	signed, err := s.codec.Composite(raw, img, req.Page, rect)
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, req.Filename, document.Encode(signed)); err != nil {
		return nil, fmt.Errorf("failed to save signed %q: %w", req.Filename, err)
	}

	logging.Info("Signature applied",
		"filename", req.Filename,
		"page", req.Page,
		"rect", rect.String(),
		"bytes", len(signed),
	)
	return &Result{Message: MsgSigned, Filename: req.Filename}, nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
