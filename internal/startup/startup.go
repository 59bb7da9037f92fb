package startup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-hub/internal/logging"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// Persistence backends accepted by PERSISTENCE.
const (
	PersistenceSQLite = "sqlite"
	PersistenceMemory = "memory"
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port            string
	DatabaseDir     string
	Persistence     string
	SimulateLatency bool
	LatencyScale    float64
	LogStaticFiles  bool
	LogHealthChecks bool
	MetricsEnabled  bool

	ThumbnailWidth   int
	ThumbnailOffset  time.Duration
	ThumbnailTimeout time.Duration
	MaxUploadSize    int64

	// Derived
	DatabasePath string
	FFmpegFound  bool
}

// Defaults
const (
	defaultPort             = "8080"
	defaultDatabaseDir      = "/database"
	defaultThumbnailWidth   = 400
	defaultThumbnailOffset  = time.Second
	defaultThumbnailTimeout = 30 * time.Second
	defaultMaxUploadSize    = 512 << 20
	databaseFileName        = "mediahub.db"
)

// LoadDotEnv loads a .env file from the working directory when one exists.
// Variables already set in the environment win. A missing file is not an
// error.
func LoadDotEnv() error {
	err := godotenv.Load(".env")
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	// Before the first log line, so LOG_LEVEL from .env takes effect
	dotenvErr := LoadDotEnv()

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if dotenvErr != nil {
		logging.Warn("  Failed to load .env: %v", dotenvErr)
	}

	config, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  PERSISTENCE:         %s", config.Persistence)
	logging.Info("  DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  SIMULATE_LATENCY:    %v", config.SimulateLatency)
	logging.Info("  LATENCY_SCALE:       %g", config.LatencyScale)
	logging.Info("  THUMBNAIL_WIDTH:     %d", config.ThumbnailWidth)
	logging.Info("  THUMBNAIL_OFFSET:    %v", config.ThumbnailOffset)
	logging.Info("  THUMBNAIL_TIMEOUT:   %v", config.ThumbnailTimeout)
	logging.Info("  MAX_UPLOAD_SIZE:     %d", config.MaxUploadSize)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  LOG_STATIC_FILES:    %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if config.Persistence == PersistenceSQLite {
		logging.Info("")
		logging.Info("------------------------------------------------------------")
		logging.Info("DIRECTORY SETUP")
		logging.Info("------------------------------------------------------------")
		logging.Info("  Database directory (absolute): %s", config.DatabaseDir)

		if err := ensureDirectory(config.DatabaseDir, "database"); err != nil {
			return nil, fmt.Errorf("database directory error: %w", err)
		}

		logging.Debug("  Testing database directory write access...")
		if err := testWriteAccess(config.DatabaseDir); err != nil {
			return nil, fmt.Errorf("database directory is not writable (required for sqlite persistence): %w", err)
		}
		logging.Info("  [OK] Database directory is writable")
	}

	config.FFmpegFound = checkFFmpeg() == nil

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Persistence:       %s", persistenceString(config))
	logging.Info("    Video thumbnails:  %s", enabledString(config.FFmpegFound))
	logging.Info("    Metrics:           %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// configFromEnv parses the environment without touching the filesystem.
func configFromEnv() (*Config, error) {
	persistence := strings.ToLower(getEnv("PERSISTENCE", PersistenceSQLite))
	if persistence != PersistenceSQLite && persistence != PersistenceMemory {
		return nil, fmt.Errorf("invalid PERSISTENCE %q (want %q or %q)", persistence, PersistenceSQLite, PersistenceMemory)
	}

	databaseDir, err := filepath.Abs(getEnv("DATABASE_DIR", defaultDatabaseDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}

	config := &Config{
		Port:             getEnv("PORT", defaultPort),
		DatabaseDir:      databaseDir,
		Persistence:      persistence,
		SimulateLatency:  getEnvBool("SIMULATE_LATENCY", true),
		LatencyScale:     getEnvFloat("LATENCY_SCALE", 1.0),
		LogStaticFiles:   getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:  getEnvBool("LOG_HEALTH_CHECKS", true),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
		ThumbnailWidth:   getEnvInt("THUMBNAIL_WIDTH", defaultThumbnailWidth),
		ThumbnailOffset:  getEnvDuration("THUMBNAIL_OFFSET", defaultThumbnailOffset),
		ThumbnailTimeout: getEnvDuration("THUMBNAIL_TIMEOUT", defaultThumbnailTimeout),
		MaxUploadSize:    int64(getEnvInt("MAX_UPLOAD_SIZE", defaultMaxUploadSize)),
		DatabasePath:     filepath.Join(databaseDir, databaseFileName),
	}

	if config.ThumbnailWidth <= 0 {
		logging.Warn("  Invalid THUMBNAIL_WIDTH %d, using default: %d", config.ThumbnailWidth, defaultThumbnailWidth)
		config.ThumbnailWidth = defaultThumbnailWidth
	}
	if config.ThumbnailOffset < 0 {
		logging.Warn("  Negative THUMBNAIL_OFFSET, using default: %v", defaultThumbnailOffset)
		config.ThumbnailOffset = defaultThumbnailOffset
	}
	if config.ThumbnailTimeout <= 0 {
		logging.Warn("  Invalid THUMBNAIL_TIMEOUT, using default: %v", defaultThumbnailTimeout)
		config.ThumbnailTimeout = defaultThumbnailTimeout
	}
	if config.MaxUploadSize <= 0 {
		logging.Warn("  Invalid MAX_UPLOAD_SIZE, using default: %d", defaultMaxUploadSize)
		config.MaxUploadSize = defaultMaxUploadSize
	}
	if config.LatencyScale < 0 {
		logging.Warn("  Negative LATENCY_SCALE, using default: 1")
		config.LatencyScale = 1.0
	}

	return config, nil
}

func persistenceString(config *Config) string {
	if config.Persistence == PersistenceMemory {
		return "MEMORY (state is lost on restart)"
	}
	return "SQLITE " + config.DatabasePath
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(path string, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Path: %s", path)
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogStoreInit logs media store initialization
func LogStoreInit(items int, nextID int64, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA STORE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Media items:     %d", items)
	logging.Info("  Next id:         %d", nextID)
	logging.Info("  [OK] Store ready in %v", duration)
}

// LogThumbnailInit logs thumbnail deriver initialization
func LogThumbnailInit(ffmpegFound bool, concurrency int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("THUMBNAIL INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if !ffmpegFound {
		logging.Warn("  FFmpeg not found in PATH")
		logging.Warn("  Video uploads will fail until ffmpeg is installed")
		return
	}
	logging.Info("  Concurrent extractions: %d", concurrency)
	logging.Info("  [OK] FFmpeg is available")
}

// LogMemoryInit logs the heap limit and whether upload backpressure is active.
func LogMemoryInit(source string, heapBytes int64, guardEnabled bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY")
	logging.Info("------------------------------------------------------------")
	if heapBytes <= 0 {
		logging.Info("  Heap limit:          none")
	} else {
		logging.Info("  Heap limit:          %.1f MiB (from %s)", float64(heapBytes)/(1024*1024), source)
	}
	if guardEnabled {
		logging.Info("  [OK] Upload backpressure enabled")
	} else {
		logging.Info("  Upload backpressure: disabled")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Blob request logging: ON")
	} else {
		logging.Info("    Blob request logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___          __  __      __
   /  |/  /__  ____/ (_)___ _   / / / /_  __/ /_
  / /|_/ / _ \/ __  / / __ '/  / /_/ / / / / __ \
 / /  / /  __/ /_/ / / /_/ /  / __  / /_/ / /_/ /
/_/  /_/\___/\__,_/_/\__,_/  /_/ /_/\__,_/_.___/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(first))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid number for %s: %q, using default: %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
