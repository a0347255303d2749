package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP   string
	ListenAddrPort string

	TempPath   string // scratch file root
	OutputPath string // reserved for future persistent output

	RendererBackend string // "fitz" or "pdfium"

	SweepIntervalMinutes    int
	ScratchRetentionMinutes int

	BodyLimit string // max request body, echo format e.g. "50M"

	ConversionDefaults
}

// ConversionDefaults are the fallback values applied to any conversion
// option a request omits (or supplies out of range).
type ConversionDefaults struct {
	Density int // render DPI
	Width   int // max pixel width
	Height  int // max pixel height
	Quality int // JPEG quality 1-100
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")
	serverConfigLive.BodyLimit = getEnv("BODY_LIMIT", "50M")

	// Scratch storage configuration
	tempDir := filepath.ToSlash(getEnv("TEMP_PATH", "temp"))
	tempDirAbs, err := filepath.Abs(tempDir)
	if err != nil {
		logger.Error("Failed creating absolute path for temp directory", "error", err)
	}
	serverConfigLive.TempPath = tempDirAbs

	outputDir := filepath.ToSlash(getEnv("OUTPUT_PATH", "output"))
	outputDirAbs, err := filepath.Abs(outputDir)
	if err != nil {
		logger.Error("Failed creating absolute path for output directory", "error", err)
	}
	serverConfigLive.OutputPath = outputDirAbs

	// Renderer configuration
	serverConfigLive.RendererBackend = getEnv("RENDERER", "fitz")

	// Background sweep configuration
	serverConfigLive.SweepIntervalMinutes = getEnvInt("SWEEP_INTERVAL_MINUTES", 10)
	serverConfigLive.ScratchRetentionMinutes = getEnvInt("SCRATCH_RETENTION_MINUTES", 60)

	// Conversion defaults, applied when a request omits an option
	serverConfigLive.ConversionDefaults = ConversionDefaults{
		Density: getEnvInt("DEFAULT_DENSITY", 300),
		Width:   getEnvInt("DEFAULT_WIDTH", 2000),
		Height:  getEnvInt("DEFAULT_HEIGHT", 2000),
		Quality: getEnvInt("DEFAULT_QUALITY", 85),
	}

	fmt.Println("\n========================================")
	fmt.Println("   rasterdoc - PDF to JPEG service")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "rasterdoc.log"))
	fmt.Println("Initializing...")

	logger.Info("Configuration loaded",
		"renderer", serverConfigLive.RendererBackend,
		"tempPath", serverConfigLive.TempPath,
		"sweepIntervalMinutes", serverConfigLive.SweepIntervalMinutes,
		"scratchRetentionMinutes", serverConfigLive.ScratchRetentionMinutes)

	return serverConfigLive, logger
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "stdout")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "rasterdoc.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}
