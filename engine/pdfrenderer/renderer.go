package pdfrenderer

import (
	"fmt"
	"image"
)

// RenderOptions control how each page is rasterized.
type RenderOptions struct {
	DPI       int // render density
	MaxWidth  int // pixel bound, aspect ratio preserved
	MaxHeight int // pixel bound, aspect ratio preserved
}

// Renderer defines the interface for PDF to image conversion
type Renderer interface {
	// RenderPDF converts all pages of a PDF file to images
	// Returns a slice of images, one per page, in page order
	RenderPDF(filename string, opts RenderOptions) ([]image.Image, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// NewRenderer creates a renderer for the named backend. "fitz" uses
// go-fitz (CGo and MuPDF), "pdfium" uses go-pdfium over WebAssembly
// (pure Go, no CGo).
func NewRenderer(backend string) (Renderer, error) {
	switch backend {
	case "", "fitz":
		return NewFitzRenderer()
	case "pdfium":
		return NewPDFiumRenderer()
	default:
		return nil, fmt.Errorf("unknown renderer backend %q", backend)
	}
}
