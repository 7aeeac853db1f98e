// Package http provides HTTP handlers for the window API.
//
// Endpoints:
//   - Health: / and /health
//   - Windows: POST /windows, GET /windows, GET /windows/:id, DELETE /windows/:id
//   - Scripts: POST /windows/:id/evaluate, GET /windows/:id/globals
//   - Pages: POST /windows/:id/load
//
// Script failures are results, not HTTP errors: an evaluation that throws
// answers 200 with the error field set. Host failures map to status codes
// (unknown window 404, window limit 429, upstream page failures 502).
//
// Example Usage:
//
//	handlers := http.NewHandlers(manager, loader, logger)
//	router.POST("/windows", handlers.CreateWindow)
//	router.POST("/windows/:id/evaluate", handlers.Evaluate)
package http
