package config

import (
	"path/filepath"
	"testing"
)

func TestGetEnvDefaults(t *testing.T) {
	if got := getEnv("RASTERDOC_TEST_UNSET_VAR", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %q", got)
	}

	t.Setenv("RASTERDOC_TEST_VAR", "value")
	if got := getEnv("RASTERDOC_TEST_VAR", "fallback"); got != "value" {
		t.Errorf("Expected value, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	if got := getEnvInt("RASTERDOC_TEST_UNSET_INT", 42); got != 42 {
		t.Errorf("Expected default 42, got %d", got)
	}

	t.Setenv("RASTERDOC_TEST_INT", "7")
	if got := getEnvInt("RASTERDOC_TEST_INT", 42); got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}

	t.Setenv("RASTERDOC_TEST_INT", "not a number")
	if got := getEnvInt("RASTERDOC_TEST_INT", 42); got != 42 {
		t.Errorf("Expected default for unparseable value, got %d", got)
	}
}

func TestSetupServerDefaults(t *testing.T) {
	t.Setenv("LOG_OUTPUT", "stdout")

	serverConfig, logger := SetupServer()
	if logger == nil {
		t.Fatal("Expected a logger")
	}

	if serverConfig.ListenAddrPort != "8000" {
		t.Errorf("Expected default port 8000, got %s", serverConfig.ListenAddrPort)
	}
	if serverConfig.RendererBackend != "fitz" {
		t.Errorf("Expected default renderer fitz, got %s", serverConfig.RendererBackend)
	}
	if serverConfig.BodyLimit != "50M" {
		t.Errorf("Expected default body limit 50M, got %s", serverConfig.BodyLimit)
	}
	if filepath.Base(serverConfig.TempPath) != "temp" {
		t.Errorf("Expected temp path to end in temp, got %s", serverConfig.TempPath)
	}

	defaults := serverConfig.ConversionDefaults
	if defaults.Density != 300 || defaults.Width != 2000 || defaults.Height != 2000 || defaults.Quality != 85 {
		t.Errorf("Unexpected conversion defaults: %+v", defaults)
	}
}

func TestSetupServerOverrides(t *testing.T) {
	t.Setenv("LOG_OUTPUT", "stdout")
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("RENDERER", "pdfium")
	t.Setenv("DEFAULT_QUALITY", "70")
	t.Setenv("SCRATCH_RETENTION_MINUTES", "15")

	serverConfig, _ := SetupServer()
	if serverConfig.ListenAddrPort != "9100" {
		t.Errorf("Expected port 9100, got %s", serverConfig.ListenAddrPort)
	}
	if serverConfig.RendererBackend != "pdfium" {
		t.Errorf("Expected renderer pdfium, got %s", serverConfig.RendererBackend)
	}
	if serverConfig.Quality != 70 {
		t.Errorf("Expected default quality override 70, got %d", serverConfig.Quality)
	}
	if serverConfig.ScratchRetentionMinutes != 15 {
		t.Errorf("Expected retention 15, got %d", serverConfig.ScratchRetentionMinutes)
	}
}
