package engine

import "errors"

// Pipeline error taxonomy. Handlers map these onto HTTP statuses at the
// request boundary: ErrInvalidInput is a client fault (400), everything
// else is a server fault (500).
var (
	// ErrInvalidInput covers missing or malformed request data
	ErrInvalidInput = errors.New("InvalidInput")

	// ErrRasterization covers renderer failures: not a PDF, renderer
	// unavailable, or any page failing to render
	ErrRasterization = errors.New("RasterizationError")

	// ErrEncoding covers JPEG re-encoding failures on malformed raster data
	ErrEncoding = errors.New("EncodingError")
)

// errorKind returns the taxonomy name for an error, falling back to a
// catch-all for anything the pipeline did not classify.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrRasterization):
		return "RasterizationError"
	case errors.Is(err, ErrEncoding):
		return "EncodingError"
	default:
		return "UnhandledError"
	}
}
