// Package main is the entry point for the window API server.
//
// The server hosts named windows: isolated script contexts whose global
// object is a host-owned property table. Clients create windows, evaluate
// scripts in them, inspect their globals and run the scripts of whole pages
// through them.
//
// The server provides:
//   - REST API for window management and evaluation
//   - WebSocket streaming evaluation per window
//   - Page script loading with per-origin circuit breakers
//   - Prometheus metrics on /metrics
//   - Rate limiting and request tracing
//
// Configuration:
//   - Environment variables (12-factor), see internal/config
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
