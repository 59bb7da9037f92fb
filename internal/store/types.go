package store

import (
	"context"
	"errors"
	"fmt"

	"media-hub/internal/media"
)

// Categories a record can be filed under. Uploads start as recent; nothing
// in the store moves a record to favorite, but restored or seeded data may
// carry it.
const (
	CategoryRecent   = "recent"
	CategoryFavorite = "favorite"
)

// Persisted state keys. All three must be present for a restore.
const (
	KeyMedia  = "mediahub.media"
	KeyUser   = "mediahub.user"
	KeyNextID = "mediahub.next_id"
)

var (
	// ErrNotFound is returned by lookups of ids that are not in the store.
	ErrNotFound = errors.New("media not found")
	// ErrInvalidAvatar is returned when an avatar upload is not a decodable image.
	ErrInvalidAvatar = errors.New("avatar is not a valid image")
)

// MediaRecord is one entry in the media collection.
type MediaRecord struct {
	ID        int64      `json:"id"`
	Type      media.Kind `json:"type"`
	Title     string     `json:"title"`
	Thumbnail string     `json:"thumbnail"`
	URL       string     `json:"url"`
	Size      string     `json:"size,omitempty"`
	Category  string     `json:"category"`
}

// UserProfile is the single user of the dashboard.
type UserProfile struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// ProfileUpdate carries the fields to merge into the profile. Nil fields
// are left unchanged.
type ProfileUpdate struct {
	Name *string
}

// Credentials are accepted by Authenticate but never verified.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the outcome of Authenticate.
type AuthResult struct {
	Success bool `json:"success"`
}

// DeleteResult reports whether a record was removed. Record is the removed
// entry so the caller can release any transient handles it referenced.
type DeleteResult struct {
	Success bool         `json:"success"`
	Record  *MediaRecord `json:"-"`
}

// State is a copy of everything the store persists.
type State struct {
	Media  []MediaRecord `json:"media"`
	User   UserProfile   `json:"user"`
	NextID int64         `json:"nextId"`
}

// Persistence is the key/value backend the store reads and writes.
// database.Database and database.MemoryStore implement it.
type Persistence interface {
	GetMetadata(ctx context.Context, key string) (string, error)
	SetMetadataBatch(ctx context.Context, entries map[string]string) error
}

// Deriver produces the thumbnail reference for an asset.
// media.ThumbnailDeriver implements it.
type Deriver interface {
	Derive(ctx context.Context, asset media.Asset, reference string) (string, error)
}

// Admission decides when an upload may start. Wait blocks until it may, or
// returns an error if the upload should be abandoned.
type Admission interface {
	Wait(ctx context.Context) error
}

// PersistenceError describes a failed read, parse or write of persisted
// state. The store logs these and carries on in memory; they are never
// returned from public operations.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence %s of %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
