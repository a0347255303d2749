package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rasterdoc/rasterdoc/config"
	"github.com/rasterdoc/rasterdoc/engine/pdfrenderer"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Renderer     pdfrenderer.Renderer
	Scratch      *ScratchStore
	StartTime    time.Time
}

type convertRequest struct {
	Base64  string            `json:"base64"`
	Options ConversionOptions `json:"options"`
}

type pageResponse struct {
	Page   int    `json:"page"`
	Base64 string `json:"base64"`
	Size   int    `json:"size"`
}

type convertResponse struct {
	Success        bool           `json:"success"`
	TotalPages     int            `json:"totalPages"`
	ProcessingTime *int64         `json:"processingTime,omitempty"`
	Images         []pageResponse `json:"images"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ConvertBase64 converts a base64-encoded PDF into one JPEG per page
// @Summary Convert a base64 PDF to JPEG pages
// @Description Accepts a base64 PDF (with or without data-URI prefix) and returns base64 JPEG images, one per page
// @Tags Convert
// @Accept json
// @Produce json
// @Param request body convertRequest true "Base64 PDF and conversion options"
// @Success 200 {object} convertResponse
// @Failure 400 {object} errorResponse "Missing or malformed base64"
// @Failure 500 {object} errorResponse "Conversion pipeline failure"
// @Router /convert [post]
func (serverHandler *ServerHandler) ConvertBase64(context echo.Context) error {
	var request convertRequest
	if err := context.Bind(&request); err != nil {
		return sendError(context, fmt.Errorf("%w: invalid JSON body: %v", ErrInvalidInput, err))
	}
	if request.Base64 == "" {
		return sendError(context, fmt.Errorf("%w: missing base64 field", ErrInvalidInput))
	}

	sourceBytes, err := DecodePDFBase64(request.Base64)
	if err != nil {
		return sendError(context, err)
	}

	result, err := serverHandler.Convert(sourceBytes, request.Options)
	if err != nil {
		Logger.Error("Conversion failed", "error", err)
		return sendError(context, err)
	}

	elapsedMillis := result.Elapsed.Milliseconds()
	return context.JSON(http.StatusOK, convertResponse{
		Success:        true,
		TotalPages:     len(result.Pages),
		ProcessingTime: &elapsedMillis,
		Images:         pageResponses(result.Pages),
	})
}

// ConvertFile converts an uploaded PDF file into one JPEG per page
// @Summary Convert an uploaded PDF to JPEG pages
// @Description Accepts a multipart upload with field "pdf" and optional JSON-encoded "options" field
// @Tags Convert
// @Accept multipart/form-data
// @Produce json
// @Param pdf formData file true "PDF file to convert"
// @Param options formData string false "JSON-encoded conversion options"
// @Success 200 {object} convertResponse
// @Failure 400 {object} errorResponse "Missing file or malformed options"
// @Failure 500 {object} errorResponse "Conversion pipeline failure"
// @Router /convert-file [post]
func (serverHandler *ServerHandler) ConvertFile(context echo.Context) error {
	fileHeader, err := context.FormFile("pdf")
	if err != nil {
		return sendError(context, fmt.Errorf("%w: missing pdf file field", ErrInvalidInput))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return sendError(context, fmt.Errorf("unable to open uploaded file: %w", err))
	}
	defer file.Close()

	sourceBytes, err := io.ReadAll(file)
	if err != nil {
		return sendError(context, fmt.Errorf("unable to read uploaded file: %w", err))
	}

	var options ConversionOptions
	if optionsJSON := context.FormValue("options"); optionsJSON != "" {
		if err := json.Unmarshal([]byte(optionsJSON), &options); err != nil {
			return sendError(context, fmt.Errorf("%w: malformed options JSON: %v", ErrInvalidInput, err))
		}
	}

	result, err := serverHandler.Convert(sourceBytes, options)
	if err != nil {
		Logger.Error("Conversion failed", "fileName", fileHeader.Filename, "error", err)
		return sendError(context, err)
	}

	return context.JSON(http.StatusOK, convertResponse{
		Success:    true,
		TotalPages: len(result.Pages),
		Images:     pageResponses(result.Pages),
	})
}

// Health reports service liveness
// @Summary Health check
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (serverHandler *ServerHandler) Health(context echo.Context) error {
	return context.JSON(http.StatusOK, map[string]interface{}{
		"status":    "OK",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(serverHandler.StartTime).Round(time.Second).String(),
	})
}

// Root serves service metadata and a usage example
// @Summary Service metadata
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (serverHandler *ServerHandler) Root(context echo.Context) error {
	return context.JSON(http.StatusOK, map[string]interface{}{
		"service":     "rasterdoc",
		"description": "Converts PDF documents to base64-encoded JPEG images, one per page",
		"endpoints": map[string]string{
			"POST /convert":      "JSON body {base64, options?}",
			"POST /convert-file": "multipart form, field 'pdf' plus optional JSON 'options'",
			"GET /health":        "liveness check",
		},
		"example": map[string]interface{}{
			"base64": "data:application/pdf;base64,JVBERi0xLjQK...",
			"options": map[string]interface{}{
				"density":  300,
				"width":    2000,
				"height":   2000,
				"quality":  85,
				"optimize": true,
			},
		},
	})
}

// pageResponses builds the wire form of the converted pages, page N at
// 1-based position N as delivered by the rasterizer
func pageResponses(pages []PageImage) []pageResponse {
	images := make([]pageResponse, 0, len(pages))
	for _, page := range pages {
		images = append(images, pageResponse{
			Page:   page.Page,
			Base64: EncodePageDataURI(page.Data),
			Size:   page.Size,
		})
	}
	return images
}

// sendError maps a pipeline error onto the HTTP boundary. Client
// faults get 400, everything else 500; nothing propagates a panic or
// crashes the process.
func sendError(context echo.Context, err error) error {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrInvalidInput) {
		status = http.StatusBadRequest
	}
	return context.JSON(status, errorResponse{
		Error:   errorKind(err),
		Message: err.Error(),
	})
}
