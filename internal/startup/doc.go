// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read from environment variables by [LoadConfig]. A .env
// file in the working directory is loaded first; variables already present
// in the environment take precedence.
//
//   - PORT: HTTP server port (default: 8080)
//   - PERSISTENCE: sqlite or memory (default: sqlite)
//   - DATABASE_DIR: Directory for mediahub.db (default: /database)
//   - SIMULATE_LATENCY: Delay store operations like a remote backend (default: true)
//   - LATENCY_SCALE: Multiplier applied to the simulated delays (default: 1)
//   - THUMBNAIL_WIDTH: Video thumbnail width in pixels (default: 400)
//   - THUMBNAIL_OFFSET: Position of the captured frame (default: 1s)
//   - THUMBNAIL_TIMEOUT: Limit for a single frame extraction (default: 30s)
//   - THUMBNAIL_WORKERS: Concurrent frame extractions (default: CPU count)
//   - MAX_UPLOAD_SIZE: Largest accepted upload in bytes (default: 512 MiB)
//   - METRICS_ENABLED: Serve /metrics (default: true)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_STATIC_FILES: Log blob requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	startup.LogDatabaseInit(time.Since(dbStart))
//	startup.LogServerStarted(startup.ServerConfig{Port: config.Port})
//	startup.LogShutdownInitiated("SIGTERM")
//	startup.LogShutdownComplete()
package startup
