package pdfrenderer

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

// FitzRenderer implements PDF rendering using go-fitz (requires CGo and MuPDF)
type FitzRenderer struct {
}

// NewFitzRenderer creates a new Fitz-based PDF renderer
func NewFitzRenderer() (*FitzRenderer, error) {
	return &FitzRenderer{}, nil
}

// RenderPDF converts all pages of a PDF file to images using go-fitz
func (r *FitzRenderer) RenderPDF(filename string, opts RenderOptions) ([]image.Image, error) {
	doc, err := fitz.New(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer doc.Close()

	// go-fitz discovers the page count from the document
	numPages := doc.NumPage()

	images := make([]image.Image, 0, numPages)

	for pageNum := 0; pageNum < numPages; pageNum++ {
		img, err := doc.ImageDPI(pageNum, float64(opts.DPI))
		if err != nil {
			return nil, fmt.Errorf("unable to render page %d: %w", pageNum, err)
		}
		images = append(images, boundImage(img, opts))
	}

	return images, nil
}

// Close cleans up resources (no-op for Fitz renderer as doc is closed per-render)
func (r *FitzRenderer) Close() error {
	return nil
}

// boundImage scales a rendered page down to fit within the configured
// pixel bounds, preserving aspect ratio. Pages already within bounds
// pass through unchanged.
func boundImage(img image.Image, opts RenderOptions) image.Image {
	if opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		return img
	}
	bounds := img.Bounds()
	if bounds.Dx() <= opts.MaxWidth && bounds.Dy() <= opts.MaxHeight {
		return img
	}
	return imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
}
