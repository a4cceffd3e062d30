package extract

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
)

// RasterizePDF renders up to maxPages pages of path to PNG files under
// destination, named page_N.png, for the OCR fallback path (§4.H: PDFs
// with little or no extractable text get rasterized and OCR'd).
// Grounded on original_source/ingestion/pdf_utils.py's render_pdf_to_images;
// go-fitz is the MuPDF binding the Go ecosystem uses for this (PyMuPDF's
// counterpart), since neither the teacher nor the rest of the pack renders
// PDF pages to images.
func RasterizePDF(path, destination string, maxPages int) ([]string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s for rasterization: %w", path, err)
	}
	defer doc.Close()

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return nil, err
	}

	pages := doc.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	paths := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		img, err := doc.Image(i)
		if err != nil {
			continue
		}
		target := filepath.Join(destination, fmt.Sprintf("page_%d.png", i+1))
		f, err := os.Create(target)
		if err != nil {
			return paths, err
		}
		err = png.Encode(f, img)
		f.Close()
		if err != nil {
			return paths, err
		}
		paths = append(paths, target)
	}
	return paths, nil
}
