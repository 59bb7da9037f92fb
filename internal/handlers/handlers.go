package handlers

import (
	"context"
	"time"

	"media-hub/internal/media"
	"media-hub/internal/objecturl"
	"media-hub/internal/store"
)

// defaultMaxUploadSize bounds multipart bodies when Config leaves it unset.
const defaultMaxUploadSize = 512 << 20

// MediaStore is the subset of *store.Store the handlers depend on.
type MediaStore interface {
	Authenticate(ctx context.Context, creds store.Credentials) (store.AuthResult, error)
	ListMedia(ctx context.Context) ([]store.MediaRecord, error)
	GetMedia(ctx context.Context, id int64) (store.MediaRecord, error)
	GetUser(ctx context.Context) (store.UserProfile, error)
	UploadMedia(ctx context.Context, title string, asset media.Asset) (store.MediaRecord, error)
	DeleteMedia(ctx context.Context, id int64) (store.DeleteResult, error)
	UpdateUser(ctx context.Context, update store.ProfileUpdate, avatar *media.Asset) (store.UserProfile, error)
	Snapshot() store.State
}

// Pinger reports whether the persistence backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryStatus reports upload backpressure for the health check.
type MemoryStatus interface {
	Usage() float64
	Paused() bool
}

// Config tunes request handling.
type Config struct {
	MaxUploadSize  int64
	MetricsEnabled bool
	// Memory is optional.
	Memory MemoryStatus
}

// Handlers serves the media hub HTTP API.
type Handlers struct {
	store     MediaStore
	registry  *objecturl.Registry
	db        Pinger
	config    Config
	startTime time.Time
}

// New creates the API handlers. db may be nil when state is kept in memory.
func New(s MediaStore, registry *objecturl.Registry, db Pinger, config Config) *Handlers {
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = defaultMaxUploadSize
	}
	return &Handlers{
		store:     s,
		registry:  registry,
		db:        db,
		config:    config,
		startTime: time.Now(),
	}
}
