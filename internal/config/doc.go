// Package config provides 12-factor configuration management for the
// windowctx server and CLI.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Sandbox: window context limits, pool size, console binding
//   - Loader: page script fetching (timeout, retries, size limit)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - SANDBOX_TIMEOUT, SANDBOX_MAX_CALL_STACK, SANDBOX_POOL_SIZE,
//     SANDBOX_DEFAULT_FILENAME, SANDBOX_MAX_WINDOWS, SANDBOX_CONSOLE
//   - LOADER_TIMEOUT, LOADER_RETRIES, LOADER_USER_AGENT, LOADER_MAX_SCRIPT_BYTES
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
