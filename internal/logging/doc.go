// Package logging provides structured logging using uber/zap.
//
// This package offers logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Window contexts, the window manager and the page loader all take a
// *zap.Logger; pass Logger.Logger or a child from Logger.Window.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.Window(string(windowID)).Debug("Script loaded", zap.String("filename", name))
package logging
