// Package server provides HTTP server setup for the window API.
//
// This package orchestrates all components:
//   - Window runtime (sandbox host, window manager, page loader) via app.New
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, request tracing, metrics, CORS, rate limiting)
//   - Prometheus exposition on /metrics
//   - gzip response compression
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Build the window runtime
//  4. Setup HTTP routes and middleware
//  5. Start HTTP server
//  6. Graceful shutdown on signal: drain requests, close windows
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg, logging.NewDefault())
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
