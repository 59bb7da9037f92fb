// Media Hub serves the media store behind a JSON API.
//
// # Application Lifecycle
//
//  1. Configuration Loading: reads .env and environment variables
//  2. Persistence: opens the SQLite key/value database, or keeps state in memory
//  3. Thumbnails: sets up the ffmpeg frame extractor, sized to the CPU count
//  4. Media Store: restores persisted state or seeds the mock dataset
//  5. HTTP Server Setup: routes, access logging, compression, metrics
//  6. Graceful Shutdown: on SIGINT/SIGTERM stops the server, releases every
//     transient handle and closes the database
//
// # Environment Variables
//
// See package startup for the full list. The most common are:
//
//   - PORT: HTTP server port (default: 8080)
//   - PERSISTENCE: sqlite or memory (default: sqlite)
//   - DATABASE_DIR: Directory for the SQLite database (default: /database)
//   - SIMULATE_LATENCY: Delay store operations like a remote backend (default: true)
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//
// # Build Requirements
//
// SQLite support needs CGO. Video thumbnails need ffmpeg in PATH; without
// it photo uploads still work and video uploads fail.
package main
