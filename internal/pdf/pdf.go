// Package pdf provides the PDF operations used by the signing workflow.
//
// Methods of Codec:
//   - PageCount: Reads and validates a PDF, returns its number of pages.
//     Input: PDF bytes.
//     Output: page count, or an error wrapping document.ErrInvalidDocument.
//   - DecodeImage: Decodes a signature image (PNG, JPEG, GIF, BMP, TIFF, WebP).
//     Input: image bytes.
//     Output: image, or an error wrapping document.ErrInvalidSignatureImage.
//   - Composite: Draws an image into a rectangle of one page.
//     Inputs: PDF bytes, image, zero-based page index, placement rectangle.
//     Output: the re-serialized PDF.
//
// Rectangles use a top-left origin with y growing downwards; Composite maps
// them to PDF user space using the height of the target page's visible box.
package pdf

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"go-signpdf/internal/document"
	"go-signpdf/internal/utils"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type Codec struct {
	// TempDir holds the normalized signature image while pdfcpu embeds it.
	TempDir string
}

func NewCodec(tempDir string) *Codec {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Codec{TempDir: tempDir}
}

func (c *Codec) PageCount(pdf []byte) (int, error) {
	config := model.NewDefaultConfiguration()
	n, err := pdfapi.PageCount(bytes.NewReader(pdf), config)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", document.ErrInvalidDocument, err)
	}
	return n, nil
}

// MaxSignatureSide bounds each side of a signature image, checked from the
// image header before any pixels are decoded.
const MaxSignatureSide = 4096

func (c *Codec) DecodeImage(sig []byte) (image.Image, error) {
	if len(sig) == 0 {
		return nil, fmt.Errorf("%w: empty payload", document.ErrInvalidSignatureImage)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(sig))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrInvalidSignatureImage, err)
	}
	if cfg.Width > MaxSignatureSide || cfg.Height > MaxSignatureSide {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels per side",
			document.ErrInvalidSignatureImage, cfg.Width, cfg.Height, MaxSignatureSide)
	}
	img, _, err := image.Decode(bytes.NewReader(sig))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrInvalidSignatureImage, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", document.ErrInvalidSignatureImage)
	}
	return img, nil
}

// Composite fits img into rect on the given page, keeping the image's aspect
// ratio and centering it inside rect, like a signature box would.
// rect is measured from the top-left corner of the visible page (CropBox,
// or MediaBox when there is none), after applying the page rotation.
// rect is not checked against the page bounds.
func (c *Codec) Composite(pdf []byte, img image.Image, page int, rect document.Rect) ([]byte, error) {
	if rect.Width() <= 0 || rect.Height() <= 0 {
		return nil, fmt.Errorf("%w: rectangle %s is empty", document.ErrInvalidPlacement, rect)
	}

	pageHeight, err := visibleHeight(pdf, page)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	imgW, imgH := float64(bounds.Dx()), float64(bounds.Dy())
	scale := math.Min(rect.Width()/imgW, rect.Height()/imgH)
	drawW, drawH := imgW*scale, imgH*scale

	// pdfcpu offsets from the lower-left corner of the visible box, y growing upwards.
	dx := rect.X0 + (rect.Width()-drawW)/2
	dy := pageHeight - rect.Y1 + (rect.Height()-drawH)/2

	sigPath, err := c.writePNG(img)
	if err != nil {
		return nil, err
	}
	defer os.Remove(sigPath)

	// pos:bl anchors at the lower-left corner, abs scales relative to the image size.
	desc := fmt.Sprintf("pos:bl, scalefactor:%.6f abs, rot:0, op:1", scale)

	wm, err := pdfcpu.ParseImageWatermarkDetails(sigPath, desc, true, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare signature: %w", err)
	}

	// Manually override positioning
	wm.Dx = dx
	wm.Dy = dy

	// Apply watermark on a specific page
	config := model.NewDefaultConfiguration()
	pages := []string{strconv.Itoa(page + 1)}
	var out bytes.Buffer
	if err := pdfapi.AddWatermarks(bytes.NewReader(pdf), &out, pages, wm, config); err != nil {
		return nil, fmt.Errorf("failed to apply signature: %w", err)
	}
	return out.Bytes(), nil
}

// visibleHeight returns the height of the box pdfcpu anchors stamps on for
// the zero-based page: the CropBox if present, else the MediaBox, with width
// and height swapped for pages rotated by a quarter turn.
func visibleHeight(pdf []byte, page int) (float64, error) {
	ctx, err := pdfapi.ReadAndValidate(bytes.NewReader(pdf), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", document.ErrInvalidDocument, err)
	}
	if page < 0 || page >= ctx.PageCount {
		return 0, fmt.Errorf("%w: page %d of %d", document.ErrInvalidPageIndex, page, ctx.PageCount)
	}

	_, _, attrs, err := ctx.PageDict(page+1, false)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", document.ErrInvalidDocument, err)
	}
	box := attrs.MediaBox
	if attrs.CropBox != nil {
		box = attrs.CropBox
	}
	if box == nil {
		return 0, fmt.Errorf("%w: page %d has no media box", document.ErrInvalidDocument, page)
	}
	switch attrs.Rotate {
	case 90, -90, 270, -270:
		return box.Width(), nil
	}
	return box.Height(), nil
}

// writePNG stores img as a PNG file, the one format pdfcpu always embeds.
func (c *Codec) writePNG(img image.Image) (string, error) {
	path := filepath.Join(c.TempDir, fmt.Sprintf("sig-%s.png", utils.GenerateUUID()))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create signature file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode signature: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write signature: %w", err)
	}
	return path, nil
}
