package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/rasterdoc/rasterdoc/config"
	engine "github.com/rasterdoc/rasterdoc/engine"
	"github.com/rasterdoc/rasterdoc/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	config.Logger = Logger
	engine.Logger = Logger
}

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	Logger.Info("Setting up PDF renderer", "backend", serverConfig.RendererBackend)
	renderer, err := pdfrenderer.NewRenderer(serverConfig.RendererBackend)
	if err != nil {
		Logger.Error("Failed to set up PDF renderer", "backend", serverConfig.RendererBackend, "error", err)
		os.Exit(1)
	}
	defer renderer.Close()

	scratch, err := engine.NewScratchStore(serverConfig.TempPath)
	if err != nil {
		Logger.Error("Failed to set up scratch storage", "path", serverConfig.TempPath, "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	Logger.Info("Echo created")

	// JSON error body for anything that escapes the handlers
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		message := "internal server error"
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			message = fmt.Sprintf("%v", he.Message)
		}
		if c.Response().Committed {
			return
		}
		c.JSON(code, map[string]string{
			"error":   "UnhandledError",
			"message": message,
		})
	}

	serverHandler := engine.ServerHandler{
		Echo:         e,
		ServerConfig: serverConfig,
		Renderer:     renderer,
		Scratch:      scratch,
		StartTime:    time.Now(),
	}
	Logger.Info("About to run startup checks")
	if err := serverHandler.StartupChecks(); err != nil {
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	Logger.Info("Startup checks complete")
	serverHandler.InitializeSchedules() //start the scratch sweep cron job
	Logger.Info("Schedules initialized")

	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	e.Use(middleware.BodyLimit(serverConfig.BodyLimit))

	e.GET("/", serverHandler.Root)
	e.GET("/health", serverHandler.Health)
	e.POST("/convert", serverHandler.ConvertBase64)
	e.POST("/convert-file", serverHandler.ConvertFile)

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = e.Start(addr)

		// Check if error is "address already in use"
		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			// Increment port for next attempt
			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				os.Exit(1)
			}
		} else if startErr != nil {
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		} else {
			break
		}
	}
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}
