package signing

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"go-signpdf/internal/document"
	"go-signpdf/internal/pdf"
	"go-signpdf/internal/store/memory"
	"go-signpdf/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how often the workflow touches the store.
type countingStore struct {
	document.Store
	mu   sync.Mutex
	gets int
	puts int
}

func (s *countingStore) Get(ctx context.Context, filename string) (*document.Document, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Store.Get(ctx, filename)
}

func (s *countingStore) Put(ctx context.Context, filename, content string) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.Store.Put(ctx, filename, content)
}

func newTestService(t *testing.T, opts ...Option) (*Service, *countingStore) {
	store := &countingStore{Store: memory.NewDocumentStore()}
	return NewService(store, pdf.NewCodec(t.TempDir()), opts...), store
}

func signRequest(filename string) document.SignRequest {
	return document.SignRequest{
		Filename:  filename,
		Signature: testutil.SignaturePNG(60, 30),
		X:         100,
		Y:         100,
		Width:     document.DefaultWidth,
		Height:    document.DefaultHeight,
		Page:      document.DefaultPage,
	}
}

func storedBytes(t *testing.T, svc *Service, filename string) []byte {
	t.Helper()
	raw, err := svc.Download(context.Background(), filename)
	require.NoError(t, err)
	return raw
}

func TestUploadFetchDownloadRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	src := testutil.BlankPDF(1)

	res, err := svc.Upload(ctx, "doc.pdf", src)
	require.NoError(t, err)
	assert.Equal(t, MsgUploaded, res.Message)
	assert.Equal(t, "doc.pdf", res.Filename)

	doc, err := svc.Fetch(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, document.Encode(src), doc.Content)

	assert.Equal(t, src, storedBytes(t, svc, "doc.pdf"))
}

func TestSign(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	src := testutil.BlankPDF(1)
	_, err := svc.Upload(ctx, "doc.pdf", src)
	require.NoError(t, err)

	res, err := svc.Sign(ctx, signRequest("doc.pdf"))
	require.NoError(t, err)
	assert.Equal(t, MsgSigned, res.Message)
	assert.Equal(t, "doc.pdf", res.Filename)
	assert.Equal(t, 1, store.gets)
	assert.Equal(t, 1, store.puts)

	signed := storedBytes(t, svc, "doc.pdf")
	assert.NotEqual(t, src, signed)

	n, err := pdf.NewCodec(t.TempDir()).PageCount(signed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSignLastPageOfMany(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Upload(ctx, "multi.pdf", testutil.BlankPDF(3))
	require.NoError(t, err)

	req := signRequest("multi.pdf")
	req.Page = 2
	_, err = svc.Sign(ctx, req)
	require.NoError(t, err)

	n, err := pdf.NewCodec(t.TempDir()).PageCount(storedBytes(t, svc, "multi.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSignRejections(t *testing.T) {
	ctx := context.Background()
	src := testutil.BlankPDF(2)

	tests := []struct {
		name   string
		upload []byte
		mutate func(*document.SignRequest)
		want   error
	}{
		{"missing document", nil, func(r *document.SignRequest) { r.Filename = "other.pdf" }, document.ErrNotFound},
		{"page equal to count", src, func(r *document.SignRequest) { r.Page = 2 }, document.ErrInvalidPageIndex},
		{"negative page", src, func(r *document.SignRequest) { r.Page = -1 }, document.ErrInvalidPageIndex},
		{"invalid document", []byte("not a pdf"), nil, document.ErrInvalidDocument},
		{"invalid signature", src, func(r *document.SignRequest) { r.Signature = []byte("not an image") }, document.ErrInvalidSignatureImage},
		{"empty signature", src, func(r *document.SignRequest) { r.Signature = nil }, document.ErrInvalidSignatureImage},
		{"zero width", src, func(r *document.SignRequest) { r.Width = 0 }, document.ErrInvalidPlacement},
		// The page check comes before the signature check.
		{"bad page and bad signature", src, func(r *document.SignRequest) {
			r.Page = 5
			r.Signature = nil
		}, document.ErrInvalidPageIndex},
		// The document check comes before the page check.
		{"bad document and bad page", []byte("not a pdf"), func(r *document.SignRequest) { r.Page = 5 }, document.ErrInvalidDocument},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newTestService(t)
			if tc.upload != nil {
				_, err := svc.Upload(ctx, "doc.pdf", tc.upload)
				require.NoError(t, err)
			}
			var before []byte
			if tc.upload != nil {
				before = storedBytes(t, svc, "doc.pdf")
			}

			req := signRequest("doc.pdf")
			if tc.mutate != nil {
				tc.mutate(&req)
			}
			_, err := svc.Sign(ctx, req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, 0, store.puts)

			if tc.upload != nil {
				assert.Equal(t, before, storedBytes(t, svc, "doc.pdf"))
			}
		})
	}
}

func TestFetchAndDownloadMissing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Fetch(ctx, "never.pdf")
	assert.True(t, errors.Is(err, document.ErrNotFound))

	_, err = svc.Download(ctx, "never.pdf")
	assert.True(t, errors.Is(err, document.ErrNotFound))
}

// slowCodec counts composites and yields between read and write so that
// unserialized signs interleave.
type slowCodec struct {
	Codec
	mu    sync.Mutex
	calls int
	gate  chan struct{}
}

func (c *slowCodec) Composite(raw []byte, img image.Image, page int, rect document.Rect) ([]byte, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	<-c.gate
	// Append a marker so each signature leaves a visible trace.
	return append(append([]byte{}, raw...), '#'), nil
}

func (c *slowCodec) PageCount([]byte) (int, error) { return 1, nil }

func TestConcurrentSignsAreSerialized(t *testing.T) {
	codec := &slowCodec{Codec: pdf.NewCodec(t.TempDir()), gate: make(chan struct{})}
	store := memory.NewDocumentStore()
	svc := NewService(store, codec)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "doc.pdf", []byte("base"))
	require.NoError(t, err)

	const signers = 5
	var wg sync.WaitGroup
	for i := 0; i < signers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Sign(ctx, signRequest("doc.pdf"))
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < signers; i++ {
		codec.gate <- struct{}{}
	}
	wg.Wait()

	raw := storedBytes(t, svc, "doc.pdf")
	assert.Equal(t, "base#####", string(raw))
}
