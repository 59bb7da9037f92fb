package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"media-hub/internal/logging"
	"media-hub/internal/media"
	"media-hub/internal/metrics"
)

// Delays is the simulated latency of each operation. The zero value
// disables simulation, which is what tests use.
type Delays struct {
	Authenticate time.Duration
	ListMedia    time.Duration
	GetMedia     time.Duration
	GetUser      time.Duration
	Upload       time.Duration
	Delete       time.Duration
	UpdateUser   time.Duration
}

// DefaultDelays models a remote backend: reads are quick, uploads are the
// slowest operation.
func DefaultDelays() Delays {
	return Delays{
		Authenticate: 500 * time.Millisecond,
		ListMedia:    300 * time.Millisecond,
		GetMedia:     100 * time.Millisecond,
		GetUser:      100 * time.Millisecond,
		Upload:       1500 * time.Millisecond,
		Delete:       500 * time.Millisecond,
		UpdateUser:   700 * time.Millisecond,
	}
}

// Scale multiplies every delay by factor. Non-positive factors disable
// simulation.
func (d Delays) Scale(factor float64) Delays {
	if factor <= 0 {
		return Delays{}
	}
	scale := func(v time.Duration) time.Duration {
		return time.Duration(float64(v) * factor)
	}
	return Delays{
		Authenticate: scale(d.Authenticate),
		ListMedia:    scale(d.ListMedia),
		GetMedia:     scale(d.GetMedia),
		GetUser:      scale(d.GetUser),
		Upload:       scale(d.Upload),
		Delete:       scale(d.Delete),
		UpdateUser:   scale(d.UpdateUser),
	}
}

// Options configures a Store.
type Options struct {
	// Persistence holds state across restarts. Nil keeps state in memory.
	Persistence Persistence
	// Deriver produces thumbnails. Nil uses a deriver without a frame
	// extractor, which fails every video upload.
	Deriver Deriver
	// Admission gates uploads, typically on memory pressure. Nil admits
	// every upload.
	Admission Admission
	// Delays is the simulated latency per operation.
	Delays Delays
	// Seed replaces the mock dataset when non-nil. An empty, non-nil slice
	// seeds an empty store.
	Seed []MediaRecord
	// User replaces DefaultUser when non-nil.
	User *UserProfile
}

// Store is the single source of truth for media records and the user
// profile. Mutations are serialized; callers always receive copies.
//
// Operations ignore cancellation of their context. Once issued, an
// operation runs to completion; a caller that stops waiting only loses
// the result.
type Store struct {
	mu     sync.Mutex
	media  []MediaRecord
	user   UserProfile
	nextID int64

	persistence Persistence
	deriver     Deriver
	admission   Admission
	delays      Delays
	seed        []MediaRecord
	seedUser    UserProfile
}

// New builds a store and initializes it from persisted state, falling back
// to the seed dataset. Initialization never fails: persistence problems are
// logged and the store runs in memory.
func New(ctx context.Context, opts Options) *Store {
	s := &Store{
		persistence: opts.Persistence,
		deriver:     opts.Deriver,
		admission:   opts.Admission,
		delays:      opts.Delays,
		seed:        opts.Seed,
		seedUser:    DefaultUser(),
	}
	if s.seed == nil {
		s.seed = DefaultSeed()
	}
	if opts.User != nil {
		s.seedUser = *opts.User
	}
	if s.deriver == nil {
		s.deriver = media.NewThumbnailDeriver(nil, media.ThumbnailOptions{})
	}
	if s.persistence == nil {
		logging.Warn("Media store has no persistence configured, state will not survive restarts")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializeLocked(ctx)
	return s
}

func (s *Store) initializeLocked(ctx context.Context) {
	if s.persistence != nil {
		state, err := readState(ctx, s.persistence)
		if err == nil {
			s.media = state.Media
			s.user = state.User
			s.nextID = state.NextID
			s.checkNextIDLocked()
			s.updateGaugesLocked()
			metrics.PersistenceRestores.WithLabelValues("restored").Inc()
			logging.Info("Restored %d media record(s) from persisted state (next id %d)", len(s.media), s.nextID)
			return
		}
		logPersistenceError(err, "initializing with defaults")
	}

	s.seedLocked()
	metrics.PersistenceRestores.WithLabelValues("seeded").Inc()
	logging.Info("Seeded media store with %d record(s) (next id %d)", len(s.media), s.nextID)
	s.persistLocked(ctx)
}

func (s *Store) seedLocked() {
	s.media = slices.Clone(s.seed)
	if s.media == nil {
		s.media = []MediaRecord{}
	}
	s.user = s.seedUser

	var maxID int64
	for _, m := range s.media {
		maxID = max(maxID, m.ID)
	}
	s.nextID = maxID + 1
	s.updateGaugesLocked()
}

// checkNextIDLocked keeps ids unique if a restored counter lags behind the
// records it was saved with.
func (s *Store) checkNextIDLocked() {
	for _, m := range s.media {
		if m.ID >= s.nextID {
			logging.Warn("Persisted next id %d is not above existing id %d, advancing", s.nextID, m.ID)
			s.nextID = m.ID + 1
		}
	}
}

func (s *Store) updateGaugesLocked() {
	metrics.StoreMediaItems.Set(float64(len(s.media)))
	metrics.StoreNextID.Set(float64(s.nextID))
}

// wait simulates network latency.
func wait(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Authenticate accepts any credentials after a delay. There is no real
// account check.
func (s *Store) Authenticate(_ context.Context, creds Credentials) (result AuthResult, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpAuthenticate, start, err) }()

	wait(s.delays.Authenticate)
	logging.Info("Simulating login for email: %s", creds.Email)
	return AuthResult{Success: true}, nil
}

// ListMedia returns a snapshot of the collection, newest first.
func (s *Store) ListMedia(_ context.Context) (records []MediaRecord, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpListMedia, start, err) }()

	wait(s.delays.ListMedia)

	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.media), nil
}

// GetMedia returns a copy of the record with id, or ErrNotFound.
func (s *Store) GetMedia(_ context.Context, id int64) (record MediaRecord, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpGetMedia, start, err) }()

	wait(s.delays.GetMedia)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return MediaRecord{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.media[idx], nil
}

// GetUser returns a copy of the profile.
func (s *Store) GetUser(_ context.Context) (user UserProfile, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpGetUser, start, err) }()

	wait(s.delays.GetUser)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, nil
}

// UploadMedia stores asset as a new record at the head of the collection.
// The thumbnail is derived before anything is committed, so a failed
// derivation leaves the collection and the id counter untouched.
func (s *Store) UploadMedia(ctx context.Context, title string, asset media.Asset) (record MediaRecord, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpUpload, start, err) }()
	ctx = context.WithoutCancel(ctx)

	if len(asset.Data) == 0 {
		return MediaRecord{}, fmt.Errorf("upload %q: %w", title, media.ErrEmptyAsset)
	}
	if s.admission != nil {
		if err := s.admission.Wait(ctx); err != nil {
			return MediaRecord{}, fmt.Errorf("upload %q not admitted: %w", title, err)
		}
	}
	wait(s.delays.Upload)

	kind := asset.Kind()
	reference := media.EncodeAsset(asset)

	thumbnail, err := s.deriver.Derive(ctx, asset, reference)
	if err != nil {
		return MediaRecord{}, fmt.Errorf("upload %q: %w", title, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record = MediaRecord{
		ID:        s.nextID,
		Type:      kind,
		Title:     title,
		Thumbnail: thumbnail,
		URL:       reference,
		Size:      media.FormatSize(asset.Size()),
		Category:  CategoryRecent,
	}
	s.nextID++
	s.media = slices.Insert(s.media, 0, record)

	s.persistLocked(ctx)
	s.updateGaugesLocked()
	metrics.StoreUploadBytes.WithLabelValues(string(kind)).Add(float64(asset.Size()))

	logging.Info("Uploaded media %d (%s, %s): %q", record.ID, record.Type, record.Size, record.Title)
	return record, nil
}

// DeleteMedia removes the record with id. A missing id is reported as
// Success false with a nil error. The store does not release transient
// handles the record may reference; that is the caller's job.
func (s *Store) DeleteMedia(ctx context.Context, id int64) (result DeleteResult, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpDelete, start, err) }()
	ctx = context.WithoutCancel(ctx)

	wait(s.delays.Delete)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		logging.Debug("Delete requested for unknown media id %d", id)
		return DeleteResult{Success: false}, nil
	}

	removed := s.media[idx]
	s.media = slices.Delete(s.media, idx, idx+1)

	s.persistLocked(ctx)
	s.updateGaugesLocked()

	logging.Info("Deleted media item with id: %d", id)
	return DeleteResult{Success: true, Record: &removed}, nil
}

// UpdateUser merges update into the profile. A non-nil avatar replaces the
// current avatar with a durable reference to its content; otherwise the
// existing avatar is kept.
func (s *Store) UpdateUser(ctx context.Context, update ProfileUpdate, avatar *media.Asset) (user UserProfile, err error) {
	start := time.Now()
	defer func() { observe(metrics.OpUpdateUser, start, err) }()
	ctx = context.WithoutCancel(ctx)

	wait(s.delays.UpdateUser)

	var avatarRef string
	if avatar != nil {
		if _, _, err := media.ProbeImage(avatar.Data); err != nil {
			return UserProfile{}, fmt.Errorf("%w: %v", ErrInvalidAvatar, err)
		}
		avatarRef = media.EncodeAsset(*avatar)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if update.Name != nil {
		s.user.Name = *update.Name
	}
	if avatarRef != "" {
		s.user.Avatar = avatarRef
	}

	s.persistLocked(ctx)

	logging.Info("Updated user profile: %q", s.user.Name)
	return s.user, nil
}

// Snapshot returns a copy of the current state without simulated latency.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Media:  slices.Clone(s.media),
		User:   s.user,
		NextID: s.nextID,
	}
}

func (s *Store) indexLocked(id int64) int {
	return slices.IndexFunc(s.media, func(m MediaRecord) bool {
		return m.ID == id
	})
}
