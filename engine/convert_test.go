package engine

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"os"
	"testing"

	"github.com/rasterdoc/rasterdoc/config"
	"github.com/rasterdoc/rasterdoc/engine/pdfrenderer"
)

// fakeRenderer is a deterministic stand-in for the real PDF renderers
// so pipeline tests never need MuPDF or PDFium
type fakeRenderer struct {
	pages    int
	lastOpts pdfrenderer.RenderOptions
}

func (f *fakeRenderer) RenderPDF(filename string, opts pdfrenderer.RenderOptions) ([]image.Image, error) {
	f.lastOpts = opts
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, errors.New("not a valid PDF document")
	}
	images := make([]image.Image, 0, f.pages)
	for i := 0; i < f.pages; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 40, 60))
		for y := 0; y < 60; y++ {
			for x := 0; x < 40; x++ {
				img.Set(x, y, color.RGBA{R: uint8(40 * i), G: 120, B: 200, A: 255})
			}
		}
		images = append(images, img)
	}
	return images, nil
}

func (f *fakeRenderer) Close() error { return nil }

func newTestHandler(t *testing.T, renderer pdfrenderer.Renderer) *ServerHandler {
	t.Helper()
	Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	store, err := NewScratchStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create scratch store: %v", err)
	}
	return &ServerHandler{
		ServerConfig: config.ServerConfig{
			ConversionDefaults: config.ConversionDefaults{
				Density: 300,
				Width:   2000,
				Height:  2000,
				Quality: 85,
			},
		},
		Renderer: renderer,
		Scratch:  store,
	}
}

func TestResolveOptionsDefaults(t *testing.T) {
	serverHandler := newTestHandler(t, &fakeRenderer{pages: 1})

	resolved := serverHandler.resolveOptions(ConversionOptions{})
	if resolved.Density != 300 || resolved.Width != 2000 || resolved.Height != 2000 || resolved.Quality != 85 {
		t.Errorf("Defaults not applied: %+v", resolved)
	}
	if !resolved.Optimize {
		t.Error("Optimize should default to true")
	}
}

func TestResolveOptionsClamping(t *testing.T) {
	serverHandler := newTestHandler(t, &fakeRenderer{pages: 1})
	optimizeOff := false

	resolved := serverHandler.resolveOptions(ConversionOptions{
		Density:  -5,
		Width:    -1,
		Height:   0,
		Quality:  101,
		Optimize: &optimizeOff,
	})
	if resolved.Density != 300 {
		t.Errorf("density <= 0 should clamp to default, got %d", resolved.Density)
	}
	if resolved.Width != 2000 || resolved.Height != 2000 {
		t.Errorf("non-positive bounds should clamp to defaults, got %dx%d", resolved.Width, resolved.Height)
	}
	if resolved.Quality != 85 {
		t.Errorf("quality outside [1,100] should clamp to default, got %d", resolved.Quality)
	}
	if resolved.Optimize {
		t.Error("Explicit optimize=false was lost")
	}

	resolved = serverHandler.resolveOptions(ConversionOptions{Quality: 0})
	if resolved.Quality != 85 {
		t.Errorf("quality 0 should clamp to default, got %d", resolved.Quality)
	}

	resolved = serverHandler.resolveOptions(ConversionOptions{Density: 150, Quality: 40, Width: 800, Height: 600})
	if resolved.Density != 150 || resolved.Quality != 40 || resolved.Width != 800 || resolved.Height != 600 {
		t.Errorf("In-range options should pass through, got %+v", resolved)
	}
}

func TestConvertMultiPage(t *testing.T) {
	renderer := &fakeRenderer{pages: 3}
	serverHandler := newTestHandler(t, renderer)

	result, err := serverHandler.Convert([]byte("%PDF-1.4 three pages"), ConversionOptions{})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if len(result.Pages) != 3 {
		t.Fatalf("Expected 3 pages, got %d", len(result.Pages))
	}
	for i, page := range result.Pages {
		if page.Page != i+1 {
			t.Errorf("Page %d has number %d, expected %d", i, page.Page, i+1)
		}
		if page.Size != len(page.Data) {
			t.Errorf("Page %d Size %d does not match data length %d", page.Page, page.Size, len(page.Data))
		}
		if len(page.Data) < 2 || page.Data[0] != 0xFF || page.Data[1] != 0xD8 {
			t.Errorf("Page %d data is not JPEG", page.Page)
		}
	}
	if renderer.lastOpts.DPI != 300 {
		t.Errorf("Renderer saw DPI %d, expected default 300", renderer.lastOpts.DPI)
	}

	// No scratch files may outlive the request
	leftover, _ := os.ReadDir(serverHandler.Scratch.Root)
	if len(leftover) != 0 {
		t.Errorf("Expected empty scratch dir after conversion, found %d files", len(leftover))
	}
}

func TestConvertStableAcrossRuns(t *testing.T) {
	serverHandler := newTestHandler(t, &fakeRenderer{pages: 2})
	source := []byte("%PDF-1.4 stable")

	first, err := serverHandler.Convert(source, ConversionOptions{})
	if err != nil {
		t.Fatalf("First conversion failed: %v", err)
	}
	second, err := serverHandler.Convert(source, ConversionOptions{})
	if err != nil {
		t.Fatalf("Second conversion failed: %v", err)
	}

	if len(first.Pages) != len(second.Pages) {
		t.Fatalf("Page counts differ between runs: %d vs %d", len(first.Pages), len(second.Pages))
	}
	for i := range first.Pages {
		if first.Pages[i].Size != second.Pages[i].Size {
			t.Errorf("Page %d size differs between runs: %d vs %d",
				i+1, first.Pages[i].Size, second.Pages[i].Size)
		}
	}
}

func TestConvertCorruptInputCleansScratch(t *testing.T) {
	serverHandler := newTestHandler(t, &fakeRenderer{pages: 3})

	_, err := serverHandler.Convert([]byte("this is not a pdf"), ConversionOptions{})
	if err == nil {
		t.Fatal("Expected error for corrupt input, got nil")
	}
	if !errors.Is(err, ErrRasterization) {
		t.Errorf("Expected ErrRasterization, got: %v", err)
	}

	leftover, _ := os.ReadDir(serverHandler.Scratch.Root)
	if len(leftover) != 0 {
		t.Errorf("Expected empty scratch dir after failure, found %d files", len(leftover))
	}
}

func TestConvertZeroPages(t *testing.T) {
	serverHandler := newTestHandler(t, &fakeRenderer{pages: 0})

	_, err := serverHandler.Convert([]byte("%PDF-1.4 empty"), ConversionOptions{})
	if !errors.Is(err, ErrRasterization) {
		t.Errorf("Expected ErrRasterization for zero pages, got: %v", err)
	}
}

func TestConvertOptimizeFalsePassesRasterThrough(t *testing.T) {
	serverHandler := newTestHandler(t, &fakeRenderer{pages: 1})
	optimizeOff := false

	result, err := serverHandler.Convert([]byte("%PDF-1.4"), ConversionOptions{Optimize: &optimizeOff})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(result.Pages) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(result.Pages))
	}
	page := result.Pages[0]
	if len(page.Data) < 2 || page.Data[0] != 0xFF || page.Data[1] != 0xD8 {
		t.Error("Passthrough output is not the rasterizer's JPEG")
	}
}

func TestReencodeJPEGMalformedInput(t *testing.T) {
	_, err := reencodeJPEG([]byte("garbage bytes"), 85)
	if !errors.Is(err, ErrEncoding) {
		t.Errorf("Expected ErrEncoding for malformed raster data, got: %v", err)
	}
}

func TestEncodePageDataURI(t *testing.T) {
	uri := EncodePageDataURI([]byte{0xFF, 0xD8, 0xFF})
	if uri != "data:image/jpeg;base64,/9j/" {
		t.Errorf("Unexpected data URI: %s", uri)
	}
}
