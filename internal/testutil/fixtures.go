// Package testutil builds the PDF and image fixtures shared by tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
)

// Letter page size in points.
const (
	PageWidth  = 612
	PageHeight = 792
)

// BlankPDF returns a valid PDF with the given number of empty letter pages.
func BlankPDF(pages int) []byte {
	return buildPDF(pages, "")
}

// CroppedPDF is like BlankPDF but every page also carries the given CropBox.
func CroppedPDF(pages int, llx, lly, urx, ury int) []byte {
	return buildPDF(pages, fmt.Sprintf(" /CropBox [%d %d %d %d]", llx, lly, urx, ury))
}

func buildPDF(pages int, pageAttrs string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", i+3))
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d]%s /Resources << >> >>", PageWidth, PageHeight, pageAttrs))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func signatureImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// A diagonal stroke on a white background.
			c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
			if x*h/w == y || x*h/w == y+1 {
				c = color.RGBA{A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// SignaturePNG returns a w×h PNG.
func SignaturePNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, signatureImage(w, h)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// LargePNG returns a PNG whose header declares w×h pixels. The pixel data is
// a single stored row, so the payload stays tiny whatever the declared size.
func LargePNG(w, h int) []byte {
	img := image.NewGray(image.Rect(0, 0, w, 1))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	b := buf.Bytes()
	// IHDR data starts after the 8-byte signature, 4-byte length and 4-byte type.
	binary.BigEndian.PutUint32(b[20:24], uint32(h))
	crc := crc32.NewIEEE()
	crc.Write(b[12:29])
	binary.BigEndian.PutUint32(b[29:33], crc.Sum32())
	return b
}

// SignatureJPEG returns a w×h JPEG.
func SignatureJPEG(w, h int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, signatureImage(w, h), nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
