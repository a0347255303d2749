package engine

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"

	"github.com/rasterdoc/rasterdoc/engine/pdfrenderer"
)

// ConversionOptions are the per-request knobs as they arrive on the
// wire. Zero values mean "not supplied"; Optimize is a pointer so an
// explicit false survives JSON decoding.
type ConversionOptions struct {
	Density  int   `json:"density"`
	Width    int   `json:"width"`
	Height   int   `json:"height"`
	Quality  int   `json:"quality"`
	Optimize *bool `json:"optimize"`
}

// resolvedOptions are ConversionOptions after defaults and clamping
type resolvedOptions struct {
	Density  int
	Width    int
	Height   int
	Quality  int
	Optimize bool
}

// PageImage is one converted page. Size is the JPEG byte length before
// base64 encoding.
type PageImage struct {
	Page int
	Data []byte
	Size int
}

// ConversionResult is the terminal artifact of one request
type ConversionResult struct {
	Pages   []PageImage
	Elapsed time.Duration
}

// resolveOptions applies configured defaults to omitted options and
// clamps out-of-range values back to the defaults. Clamping (rather
// than rejecting) keeps sloppy clients working; the behavior is pinned
// by tests.
func (serverHandler *ServerHandler) resolveOptions(opts ConversionOptions) resolvedOptions {
	defaults := serverHandler.ServerConfig.ConversionDefaults
	resolved := resolvedOptions{
		Density:  opts.Density,
		Width:    opts.Width,
		Height:   opts.Height,
		Quality:  opts.Quality,
		Optimize: true,
	}
	if resolved.Density <= 0 {
		resolved.Density = defaults.Density
	}
	if resolved.Width <= 0 {
		resolved.Width = defaults.Width
	}
	if resolved.Height <= 0 {
		resolved.Height = defaults.Height
	}
	if resolved.Quality < 1 || resolved.Quality > 100 {
		resolved.Quality = defaults.Quality
	}
	if opts.Optimize != nil {
		resolved.Optimize = *opts.Optimize
	}
	return resolved
}

// Convert runs the whole pipeline for one request: scratch write,
// rasterize, per-page post-process, assemble. Every scratch file the
// request creates is removed before return, on success and on every
// failure path.
func (serverHandler *ServerHandler) Convert(sourceBytes []byte, opts ConversionOptions) (*ConversionResult, error) {
	start := time.Now()
	resolved := serverHandler.resolveOptions(opts)

	scope := serverHandler.Scratch.NewScope()
	defer scope.Cleanup()

	pdfPath, err := scope.WritePDF(sourceBytes)
	if err != nil {
		return nil, err
	}

	// Diagnostic only, the renderer is authoritative on page count
	if expected, err := probePageCount(sourceBytes); err == nil {
		Logger.Debug("PDF probe", "expectedPages", expected)
	}

	pageFiles, err := serverHandler.rasterizeToScratch(scope, pdfPath, resolved)
	if err != nil {
		return nil, err
	}

	pages := make([]PageImage, 0, len(pageFiles))
	for i, pageFile := range pageFiles {
		buf, err := scope.Read(pageFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read rendered page %d: %w", i+1, err)
		}
		if resolved.Optimize {
			buf, err = reencodeJPEG(buf, resolved.Quality)
			if err != nil {
				return nil, err
			}
		}
		pages = append(pages, PageImage{Page: i + 1, Data: buf, Size: len(buf)})
	}

	result := &ConversionResult{Pages: pages, Elapsed: time.Since(start)}
	Logger.Info("Conversion complete",
		"pages", len(pages),
		"density", resolved.Density,
		"quality", resolved.Quality,
		"elapsed", result.Elapsed)
	return result, nil
}

// rasterizeToScratch renders every page and writes each one to a scope
// scratch file, returning the files in page order. A failure on any
// page aborts the conversion; pages already written stay tracked in the
// scope so cleanup still removes them.
func (serverHandler *ServerHandler) rasterizeToScratch(scope *ScratchScope, pdfPath string, resolved resolvedOptions) ([]string, error) {
	renderOpts := pdfrenderer.RenderOptions{
		DPI:       resolved.Density,
		MaxWidth:  resolved.Width,
		MaxHeight: resolved.Height,
	}
	images, err := serverHandler.Renderer.RenderPDF(pdfPath, renderOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterization, err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrRasterization)
	}

	for pageNum, img := range images {
		pagePath := scope.PageFilePath(pageNum + 1)
		scope.Track(pagePath)
		if err := imaging.Save(img, pagePath, imaging.JPEGQuality(resolved.Quality)); err != nil {
			return nil, fmt.Errorf("%w: unable to write page %d: %v", ErrRasterization, pageNum+1, err)
		}
	}

	return scope.PageFiles()
}

// reencodeJPEG re-encodes a rendered page at the requested quality.
// Go's JPEG encoder emits baseline JPEG only, so quality is honored but
// progressive output is not available.
func reencodeJPEG(rasterBuf []byte, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(rasterBuf))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed raster data: %v", ErrEncoding, err)
	}
	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return out.Bytes(), nil
}

// EncodePageDataURI wraps a page's JPEG bytes in the transport form
func EncodePageDataURI(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}

// probePageCount asks ledongthuc/pdf for the document's page count
// without rasterizing. Some valid PDFs fail this parse, so callers must
// treat errors as non-fatal.
func probePageCount(data []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}
