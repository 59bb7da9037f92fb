package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-hub/internal/database"
	"media-hub/internal/handlers"
	"media-hub/internal/logging"
	"media-hub/internal/media"
	"media-hub/internal/memory"
	"media-hub/internal/metrics"
	"media-hub/internal/middleware"
	"media-hub/internal/objecturl"
	"media-hub/internal/startup"
	"media-hub/internal/store"
	"media-hub/internal/workers"
)

func main() {
	startTime := time.Now()
	ctx := context.Background()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)
	}

	// Memory
	memoryLimit := memory.ConfigureFromEnv()
	guard := memory.NewUploadGuard(memory.DefaultGuardConfig())
	guardCtx, stopGuard := context.WithCancel(ctx)
	defer stopGuard()
	go guard.Run(guardCtx)
	startup.LogMemoryInit(memoryLimit.Source, memoryLimit.HeapBytes, guard.Enabled())

	// Persistence
	var (
		persistence store.Persistence
		db          *database.Database
		closeDB     func() error
	)
	switch config.Persistence {
	case startup.PersistenceMemory:
		mem := database.NewMemory()
		persistence = mem
		closeDB = mem.Close
	default:
		dbStart := time.Now()
		db, err = database.New(ctx, config.DatabasePath)
		if err != nil {
			startup.LogFatal("Failed to initialize database: %v", err)
		}
		persistence = db
		closeDB = db.Close
		startup.LogDatabaseInit(db.Path(), time.Since(dbStart))
	}

	// Thumbnails
	concurrency := workers.ForCPU(0)
	startup.LogThumbnailInit(config.FFmpegFound, concurrency)
	deriver := media.NewThumbnailDeriver(media.NewFFmpegExtractor(""), media.ThumbnailOptions{
		Width:         config.ThumbnailWidth,
		Offset:        config.ThumbnailOffset,
		Timeout:       config.ThumbnailTimeout,
		MaxConcurrent: concurrency,
	})

	// Store
	delays := store.Delays{}
	if config.SimulateLatency {
		delays = store.DefaultDelays().Scale(config.LatencyScale)
	}
	storeStart := time.Now()
	mediaStore := store.New(ctx, store.Options{
		Persistence: persistence,
		Deriver:     deriver,
		Admission:   guard,
		Delays:      delays,
	})
	state := mediaStore.Snapshot()
	startup.LogStoreInit(len(state.Media), state.NextID, time.Since(storeStart))

	registry := objecturl.NewRegistry()

	// HTTP
	var pinger handlers.Pinger
	if db != nil {
		pinger = db
	}
	h := handlers.New(mediaStore, registry, pinger, handlers.Config{
		MaxUploadSize:  config.MaxUploadSize,
		MetricsEnabled: config.MetricsEnabled,
		Memory:         guard,
	})
	router := h.Router()
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(
		middleware.Logger(loggingConfig)(router),
	)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan struct{})
	go handleShutdown(srv, registry, closeDB, done)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func handleShutdown(srv *http.Server, registry *objecturl.Registry, closeDB func() error, done chan<- struct{}) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Releasing transient handles")
	released := registry.Close()
	startup.LogShutdownStepComplete("Released transient handles")
	logging.Debug("  %d handle(s) were still live", released)

	startup.LogShutdownStep("Closing database")
	if err := closeDB(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}
