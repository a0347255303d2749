package engine

import (
	"os"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := directoryChecks(serverHandler.ServerConfig.TempPath); err != nil {
		return err
	}
	if err := directoryChecks(serverHandler.ServerConfig.OutputPath); err != nil {
		return err
	}
	rendererChecks(serverHandler)
	return nil
}

// directoryChecks ensures a storage directory exists, creating it if needed
func directoryChecks(path string) error {
	if path == "" {
		Logger.Warn("Storage path not configured")
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating storage directory", "path", path)
			if err := os.MkdirAll(path, 0755); err != nil {
				Logger.Error("Unable to create storage directory", "path", path, "error", err)
				return err
			}
			return nil
		}
		Logger.Error("Unable to stat storage directory", "path", path, "error", err)
		return err
	}
	if !info.IsDir() {
		Logger.Error("Storage path exists but is not a directory", "path", path)
		return os.ErrInvalid
	}
	return nil
}

// rendererChecks confirms the configured renderer backend is usable.
// Non-fatal: requests will surface rasterization errors per-call.
func rendererChecks(serverHandler *ServerHandler) {
	if serverHandler.Renderer == nil {
		Logger.Warn("No renderer configured, conversions will fail",
			"backend", serverHandler.ServerConfig.RendererBackend)
		return
	}
	Logger.Info("Renderer backend ready", "backend", serverHandler.ServerConfig.RendererBackend)
}
