// Package pdfdoc is the document-reader collaborator: page counts, per-page
// dimensions in points, text layer access and raster previews, backed by
// go-fitz with pdfcpu for counting.
package pdfdoc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolbox/internal/placement"
)

// Document wraps an open PDF for reading.
type Document struct {
	doc  *fitz.Document
	path string
}

// Open opens the PDF at path.
func Open(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &Document{doc: doc, path: path}, nil
}

// Close releases the underlying document.
func (d *Document) Close() error { return d.doc.Close() }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.doc.NumPage() }

// Dimensions returns each page's media box in points, in page order.
// go-fitz bounds are reported at 72 DPI, so pixels map 1:1 to points.
func (d *Document) Dimensions() ([]placement.PageDim, error) {
	n := d.doc.NumPage()
	dims := make([]placement.PageDim, 0, n)
	for i := 0; i < n; i++ {
		b, err := d.doc.Bound(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read bounds of page %d: %w", i+1, err)
		}
		dims = append(dims, placement.PageDim{Width: float64(b.Dx()), Height: float64(b.Dy())})
	}
	return dims, nil
}

// PageText extracts the text layer of a 0-based page index.
func (d *Document) PageText(i int) (string, error) {
	if i < 0 || i >= d.doc.NumPage() {
		return "", fmt.Errorf("page %d out of range (document has %d pages)", i+1, d.doc.NumPage())
	}
	text, err := d.doc.Text(i)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", i+1, err)
	}
	return text, nil
}

// RenderPageJPEG rasterizes a 1-based page at the given DPI and encodes it as
// JPEG, used by the sign tool's placement picker.
func (d *Document) RenderPageJPEG(pageNum, dpi, quality int) ([]byte, int, int, error) {
	if pageNum < 1 || pageNum > d.doc.NumPage() {
		return nil, 0, 0, fmt.Errorf("page %d out of range (document has %d pages)", pageNum, d.doc.NumPage())
	}
	img, err := d.doc.ImageDPI(pageNum-1, float64(dpi))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to render page %d: %w", pageNum, err)
	}
	bounds := img.Bounds()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.Image(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	log.Debug().
		Int("page", pageNum).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("jpeg_size", buf.Len()).
		Int("dpi", dpi).
		Msg("rendered page preview")

	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// PageCountFile returns the page count without keeping a document open.
// pdfcpu is authoritative; go-fitz is the fallback for files pdfcpu rejects.
func PageCountFile(path string) (int, error) {
	if n, err := api.PageCountFile(path); err == nil {
		return n, nil
	} else {
		log.Debug().Err(err).Str("file", path).Msg("pdfcpu page count failed, trying go-fitz")
	}
	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
