package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"media-hub/internal/database"
	"media-hub/internal/media"
)

const stubThumbnail = "data:image/jpeg;base64,c3R1Yg=="

// stubDeriver mimics media.ThumbnailDeriver without ffmpeg.
type stubDeriver struct {
	err   error
	calls atomic.Int32
}

func (d *stubDeriver) Derive(_ context.Context, asset media.Asset, reference string) (string, error) {
	d.calls.Add(1)
	if asset.Kind() != media.KindVideo {
		return reference, nil
	}
	if d.err != nil {
		return "", d.err
	}
	return stubThumbnail, nil
}

// failingPersistence fails every read and write.
type failingPersistence struct {
	writes atomic.Int32
}

func (f *failingPersistence) GetMetadata(context.Context, string) (string, error) {
	return "", errors.New("disk unavailable")
}

func (f *failingPersistence) SetMetadataBatch(context.Context, map[string]string) error {
	f.writes.Add(1)
	return errors.New("disk unavailable")
}

func newTestStore(t *testing.T, p Persistence, seed []MediaRecord) *Store {
	t.Helper()
	return New(context.Background(), Options{
		Persistence: p,
		Deriver:     &stubDeriver{},
		Seed:        seed,
	})
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{10, 120, 200, 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func photoAsset(name string, size int) media.Asset {
	return media.Asset{Name: name, ContentType: "image/jpeg", Data: bytes.Repeat([]byte{0xAB}, size)}
}

func videoAsset(name string, size int) media.Asset {
	return media.Asset{Name: name, ContentType: "video/mp4", Data: bytes.Repeat([]byte{0x01}, size)}
}

func TestNewSeedsDefaultDataset(t *testing.T) {
	mem := database.NewMemory()
	s := newTestStore(t, mem, nil)

	state := s.Snapshot()
	if len(state.Media) != len(DefaultSeed()) {
		t.Fatalf("seeded %d records, want %d", len(state.Media), len(DefaultSeed()))
	}
	if state.NextID != 7 {
		t.Errorf("NextID = %d, want 7", state.NextID)
	}
	if state.User != DefaultUser() {
		t.Errorf("User = %+v, want %+v", state.User, DefaultUser())
	}

	for _, key := range []string{KeyMedia, KeyUser, KeyNextID} {
		if _, err := mem.GetMetadata(context.Background(), key); err != nil {
			t.Errorf("seed was not persisted: key %q: %v", key, err)
		}
	}
}

func TestUploadIntoEmptyStore(t *testing.T) {
	s := newTestStore(t, database.NewMemory(), []MediaRecord{})

	rec, err := s.UploadMedia(context.Background(), "Sunset", photoAsset("sunset.jpg", 2_000_000))
	if err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}

	if rec.ID != 1 {
		t.Errorf("ID = %d, want 1", rec.ID)
	}
	if rec.Type != media.KindPhoto {
		t.Errorf("Type = %q, want %q", rec.Type, media.KindPhoto)
	}
	if rec.Title != "Sunset" {
		t.Errorf("Title = %q, want Sunset", rec.Title)
	}
	if rec.Size != "1.91 MB" {
		t.Errorf("Size = %q, want 1.91 MB", rec.Size)
	}
	if rec.Category != CategoryRecent {
		t.Errorf("Category = %q, want %q", rec.Category, CategoryRecent)
	}
	if rec.Thumbnail != rec.URL {
		t.Error("photo thumbnail should equal its URL")
	}
	if !strings.HasPrefix(rec.URL, "data:image/jpeg;base64,") {
		t.Errorf("URL is not a durable data URL: %.40q", rec.URL)
	}

	list, err := s.ListMedia(context.Background())
	if err != nil {
		t.Fatalf("ListMedia() error = %v", err)
	}
	if len(list) != 1 || list[0] != rec {
		t.Errorf("ListMedia() = %+v, want only the uploaded record", list)
	}
}

func TestUploadAssignsIncreasingIDsNewestFirst(t *testing.T) {
	s := newTestStore(t, database.NewMemory(), nil)
	ctx := context.Background()

	first, err := s.UploadMedia(ctx, "first", photoAsset("a.jpg", 10))
	if err != nil {
		t.Fatalf("UploadMedia(first) error = %v", err)
	}
	second, err := s.UploadMedia(ctx, "second", videoAsset("b.mp4", 10))
	if err != nil {
		t.Fatalf("UploadMedia(second) error = %v", err)
	}

	if first.ID != 7 {
		t.Errorf("first.ID = %d, want 7 after the six seeded records", first.ID)
	}
	if second.ID != first.ID+1 {
		t.Errorf("second.ID = %d, want %d", second.ID, first.ID+1)
	}

	list, _ := s.ListMedia(ctx)
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("ListMedia() head = [%d %d], want [%d %d]", list[0].ID, list[1].ID, second.ID, first.ID)
	}
}

func TestUploadVideoUsesDerivedThumbnail(t *testing.T) {
	s := newTestStore(t, nil, []MediaRecord{})

	rec, err := s.UploadMedia(context.Background(), "clip", videoAsset("clip.mp4", 64))
	if err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}
	if rec.Type != media.KindVideo {
		t.Errorf("Type = %q, want video", rec.Type)
	}
	if rec.Thumbnail != stubThumbnail {
		t.Errorf("Thumbnail = %q, want derived frame", rec.Thumbnail)
	}
	if rec.Thumbnail == rec.URL {
		t.Error("video thumbnail should differ from its URL")
	}
}

func TestUploadThumbnailFailureAddsNothing(t *testing.T) {
	thumbErr := &media.ThumbnailError{Stage: media.StageCapture, Err: errors.New("no frame")}
	s := New(context.Background(), Options{
		Deriver: &stubDeriver{err: thumbErr},
		Seed:    []MediaRecord{},
	})

	_, err := s.UploadMedia(context.Background(), "broken", videoAsset("broken.mp4", 64))
	if !errors.Is(err, media.ErrThumbnail) {
		t.Fatalf("UploadMedia() error = %v, want ErrThumbnail", err)
	}

	state := s.Snapshot()
	if len(state.Media) != 0 {
		t.Errorf("collection has %d records, want 0", len(state.Media))
	}
	if state.NextID != 1 {
		t.Errorf("NextID = %d, want 1 (not consumed)", state.NextID)
	}

	rec, err := s.UploadMedia(context.Background(), "photo", photoAsset("p.jpg", 10))
	if err != nil {
		t.Fatalf("UploadMedia(photo) error = %v", err)
	}
	if rec.ID != 1 {
		t.Errorf("next successful upload ID = %d, want 1", rec.ID)
	}
}

func TestUploadRejectsEmptyAsset(t *testing.T) {
	deriver := &stubDeriver{}
	s := New(context.Background(), Options{Deriver: deriver, Seed: []MediaRecord{}})

	_, err := s.UploadMedia(context.Background(), "empty", media.Asset{Name: "e.jpg", ContentType: "image/jpeg"})
	if !errors.Is(err, media.ErrEmptyAsset) {
		t.Fatalf("UploadMedia() error = %v, want ErrEmptyAsset", err)
	}
	if deriver.calls.Load() != 0 {
		t.Error("deriver should not run for an empty asset")
	}
}

func TestDeleteMedia(t *testing.T) {
	s := newTestStore(t, database.NewMemory(), nil)
	ctx := context.Background()

	res, err := s.DeleteMedia(ctx, 999)
	if err != nil {
		t.Fatalf("DeleteMedia(999) error = %v", err)
	}
	if res.Success || res.Record != nil {
		t.Errorf("DeleteMedia(999) = %+v, want unsuccessful with no record", res)
	}
	if got := len(s.Snapshot().Media); got != 6 {
		t.Errorf("collection size after missing delete = %d, want 6", got)
	}

	res, err = s.DeleteMedia(ctx, 3)
	if err != nil {
		t.Fatalf("DeleteMedia(3) error = %v", err)
	}
	if !res.Success || res.Record == nil || res.Record.ID != 3 {
		t.Fatalf("DeleteMedia(3) = %+v, want success with record 3", res)
	}

	if _, err := s.GetMedia(ctx, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMedia(3) after delete error = %v, want ErrNotFound", err)
	}

	state := s.Snapshot()
	if len(state.Media) != 5 {
		t.Errorf("collection size = %d, want 5", len(state.Media))
	}
	if state.NextID != 7 {
		t.Errorf("NextID = %d, want 7 (ids are never reused)", state.NextID)
	}

	// Deleting again is a clean miss.
	res, _ = s.DeleteMedia(ctx, 3)
	if res.Success {
		t.Error("second DeleteMedia(3) reported success")
	}
}

func TestGetMedia(t *testing.T) {
	s := newTestStore(t, nil, nil)

	rec, err := s.GetMedia(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetMedia(2) error = %v", err)
	}
	if rec.Title != "Poolside Sunset" {
		t.Errorf("Title = %q, want Poolside Sunset", rec.Title)
	}

	if _, err := s.GetMedia(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMedia(42) error = %v, want ErrNotFound", err)
	}
}

func TestResultsAreCopies(t *testing.T) {
	s := newTestStore(t, nil, nil)
	ctx := context.Background()

	list, _ := s.ListMedia(ctx)
	list[0].Title = "mutated"

	again, _ := s.ListMedia(ctx)
	if again[0].Title == "mutated" {
		t.Error("mutating a ListMedia result changed the store")
	}
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("name only keeps avatar", func(t *testing.T) {
		s := newTestStore(t, nil, nil)
		name := "Jordan"

		user, err := s.UpdateUser(ctx, ProfileUpdate{Name: &name}, nil)
		if err != nil {
			t.Fatalf("UpdateUser() error = %v", err)
		}
		if user.Name != "Jordan" {
			t.Errorf("Name = %q, want Jordan", user.Name)
		}
		if user.Avatar != DefaultUser().Avatar {
			t.Errorf("Avatar = %q, want unchanged", user.Avatar)
		}
	})

	t.Run("avatar replaced with durable reference", func(t *testing.T) {
		s := newTestStore(t, nil, nil)
		data := encodePNG(t, 8, 8)

		user, err := s.UpdateUser(ctx, ProfileUpdate{}, &media.Asset{Name: "me.png", Data: data})
		if err != nil {
			t.Fatalf("UpdateUser() error = %v", err)
		}
		if user.Name != DefaultUser().Name {
			t.Errorf("Name = %q, want unchanged", user.Name)
		}
		if !strings.HasPrefix(user.Avatar, "data:image/png;base64,") {
			t.Errorf("Avatar = %.40q, want PNG data URL", user.Avatar)
		}
	})

	t.Run("invalid avatar leaves profile unchanged", func(t *testing.T) {
		s := newTestStore(t, nil, nil)
		name := "Ignored"

		_, err := s.UpdateUser(ctx, ProfileUpdate{Name: &name}, &media.Asset{Name: "x.png", Data: []byte("not an image")})
		if !errors.Is(err, ErrInvalidAvatar) {
			t.Fatalf("UpdateUser() error = %v, want ErrInvalidAvatar", err)
		}
		if got := s.Snapshot().User; got != DefaultUser() {
			t.Errorf("User = %+v, want unchanged", got)
		}
	})
}

func TestStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	mem := database.NewMemory()

	s := newTestStore(t, mem, nil)
	rec, err := s.UploadMedia(ctx, "kept", photoAsset("k.jpg", 100))
	if err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}
	if _, err := s.DeleteMedia(ctx, 1); err != nil {
		t.Fatalf("DeleteMedia() error = %v", err)
	}
	name := "Restarted"
	if _, err := s.UpdateUser(ctx, ProfileUpdate{Name: &name}, nil); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	before := s.Snapshot()

	restored := newTestStore(t, mem, []MediaRecord{})
	after := restored.Snapshot()

	if fmt.Sprint(after) != fmt.Sprint(before) {
		t.Errorf("restored state differs\n got: %+v\nwant: %+v", after, before)
	}
	if after.Media[0].ID != rec.ID {
		t.Errorf("head record = %d, want %d", after.Media[0].ID, rec.ID)
	}

	next, _ := restored.UploadMedia(ctx, "after restart", photoAsset("n.jpg", 1))
	if next.ID != rec.ID+1 {
		t.Errorf("ID after restart = %d, want %d", next.ID, rec.ID+1)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "mediahub.db")

	db, err := database.New(ctx, dbPath)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	s := newTestStore(t, db, []MediaRecord{})
	if _, err := s.UploadMedia(ctx, "Sunset", photoAsset("sunset.jpg", 2_000_000)); err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}
	if _, err := s.UploadMedia(ctx, "Clip", videoAsset("clip.mp4", 512)); err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}
	want := s.Snapshot()
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db, err = database.New(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	got, err := ReadState(ctx, db)
	if err != nil {
		t.Fatalf("ReadState() error = %v", err)
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("persisted state differs\n got: %.200v\nwant: %.200v", got, want)
	}
	if got.NextID != 3 {
		t.Errorf("NextID = %d, want 3", got.NextID)
	}
}

func TestCorruptStateFallsBackToSeed(t *testing.T) {
	ctx := context.Background()
	mem := database.NewMemory()
	_ = mem.SetMetadataBatch(ctx, map[string]string{
		KeyMedia:  "{not json",
		KeyUser:   `{"name":"x","avatar":"y"}`,
		KeyNextID: "9",
	})

	s := newTestStore(t, mem, nil)
	if got := len(s.Snapshot().Media); got != 6 {
		t.Errorf("collection size = %d, want seeded 6", got)
	}

	// The fallback is written back so the next start restores cleanly.
	state, err := ReadState(ctx, mem)
	if err != nil {
		t.Fatalf("ReadState() after fallback error = %v", err)
	}
	if state.NextID != 7 {
		t.Errorf("persisted NextID = %d, want 7", state.NextID)
	}
}

func TestPartialStateFallsBackToSeed(t *testing.T) {
	ctx := context.Background()
	mem := database.NewMemory()
	_ = mem.SetMetadataBatch(ctx, map[string]string{KeyMedia: "[]"})

	s := newTestStore(t, mem, nil)
	if got := len(s.Snapshot().Media); got != 6 {
		t.Errorf("collection size = %d, want seeded 6", got)
	}
}

func TestLaggingNextIDIsAdvanced(t *testing.T) {
	ctx := context.Background()
	mem := database.NewMemory()
	_ = mem.SetMetadataBatch(ctx, map[string]string{
		KeyMedia:  `[{"id":5,"type":"photo","title":"a","thumbnail":"t","url":"u","category":"recent"}]`,
		KeyUser:   `{"name":"x","avatar":"y"}`,
		KeyNextID: "2",
	})

	s := newTestStore(t, mem, nil)
	rec, err := s.UploadMedia(ctx, "b", photoAsset("b.jpg", 1))
	if err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}
	if rec.ID != 6 {
		t.Errorf("ID = %d, want 6", rec.ID)
	}
}

func TestPersistenceFailureIsTolerated(t *testing.T) {
	fp := &failingPersistence{}
	s := newTestStore(t, fp, []MediaRecord{})
	ctx := context.Background()

	rec, err := s.UploadMedia(ctx, "still works", photoAsset("a.jpg", 10))
	if err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}
	if rec.ID != 1 {
		t.Errorf("ID = %d, want 1", rec.ID)
	}
	if res, err := s.DeleteMedia(ctx, rec.ID); err != nil || !res.Success {
		t.Errorf("DeleteMedia() = %+v, %v; want success", res, err)
	}
	if fp.writes.Load() < 3 {
		t.Errorf("writes attempted = %d, want at least 3 (seed, upload, delete)", fp.writes.Load())
	}
}

func TestAbandonedOperationsStillComplete(t *testing.T) {
	s := New(context.Background(), Options{
		Deriver: &stubDeriver{},
		Delays:  Delays{Upload: 50 * time.Millisecond, Delete: 50 * time.Millisecond},
	})
	seeded := len(s.Snapshot().Media)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	res, err := s.DeleteMedia(ctx, 3)
	if err != nil || !res.Success {
		t.Fatalf("DeleteMedia() after the caller cancelled = %+v, %v; want success", res, err)
	}

	// Already cancelled before the call.
	rec, err := s.UploadMedia(ctx, "late", photoAsset("late.jpg", 10))
	if err != nil {
		t.Fatalf("UploadMedia() with a cancelled context error = %v", err)
	}

	state := s.Snapshot()
	if len(state.Media) != seeded {
		t.Errorf("records = %d, want %d (one deleted, one uploaded)", len(state.Media), seeded)
	}
	if _, err := s.GetMedia(context.Background(), 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMedia(3) error = %v, want ErrNotFound", err)
	}
	if state.Media[0].ID != rec.ID || rec.Title != "late" {
		t.Errorf("newest record = %+v, want the abandoned upload", state.Media[0])
	}
}

func TestAbandonedVideoUploadStillDerives(t *testing.T) {
	deriver := &cancelAwareDeriver{delay: 50 * time.Millisecond}
	s := New(context.Background(), Options{Deriver: deriver, Seed: []MediaRecord{}})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	rec, err := s.UploadMedia(ctx, "clip", videoAsset("clip.mp4", 10))
	if err != nil {
		t.Fatalf("UploadMedia() after the caller cancelled = %v", err)
	}
	if rec.Thumbnail != stubThumbnail {
		t.Errorf("Thumbnail = %q, want the derived frame", rec.Thumbnail)
	}
	if n := len(s.Snapshot().Media); n != 1 {
		t.Errorf("records = %d, want 1", n)
	}
}

// cancelAwareDeriver fails if its context is cancelled while it works.
type cancelAwareDeriver struct {
	delay time.Duration
}

func (d *cancelAwareDeriver) Derive(ctx context.Context, _ media.Asset, _ string) (string, error) {
	select {
	case <-time.After(d.delay):
		return stubThumbnail, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type gate struct {
	err   error
	calls int
}

func (g *gate) Wait(context.Context) error {
	g.calls++
	return g.err
}

func TestUploadAdmission(t *testing.T) {
	open := &gate{}
	s := New(context.Background(), Options{Deriver: &stubDeriver{}, Seed: []MediaRecord{}, Admission: open})
	if _, err := s.UploadMedia(context.Background(), "ok", photoAsset("ok.jpg", 10)); err != nil {
		t.Fatalf("UploadMedia() error = %v", err)
	}
	if open.calls != 1 {
		t.Errorf("admission consulted %d times, want 1", open.calls)
	}

	closed := &gate{err: context.DeadlineExceeded}
	s = New(context.Background(), Options{Deriver: &stubDeriver{}, Seed: []MediaRecord{}, Admission: closed})
	if _, err := s.UploadMedia(context.Background(), "held", photoAsset("held.jpg", 10)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("UploadMedia() error = %v, want the admission error", err)
	}
	if state := s.Snapshot(); len(state.Media) != 0 || state.NextID != 1 {
		t.Errorf("rejected upload changed state: %+v", state)
	}

	// Empty assets are rejected before admission.
	if _, err := s.UploadMedia(context.Background(), "empty", media.Asset{}); !errors.Is(err, media.ErrEmptyAsset) {
		t.Errorf("UploadMedia(empty) error = %v", err)
	}
	if closed.calls != 1 {
		t.Errorf("admission consulted %d times, want 1", closed.calls)
	}
}

func TestSimulatedLatency(t *testing.T) {
	s := New(context.Background(), Options{
		Deriver: &stubDeriver{},
		Delays:  Delays{ListMedia: 30 * time.Millisecond},
	})

	start := time.Now()
	if _, err := s.ListMedia(context.Background()); err != nil {
		t.Fatalf("ListMedia() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("ListMedia() returned after %v, want at least 30ms", elapsed)
	}
}

func TestAuthenticateAcceptsAnything(t *testing.T) {
	s := newTestStore(t, nil, nil)

	for _, creds := range []Credentials{{}, {Email: "a@b.c", Password: "wrong"}} {
		res, err := s.Authenticate(context.Background(), creds)
		if err != nil || !res.Success {
			t.Errorf("Authenticate(%+v) = %+v, %v; want success", creds, res, err)
		}
	}
}

func TestConcurrentUploadsGetUniqueIDs(t *testing.T) {
	s := newTestStore(t, database.NewMemory(), []MediaRecord{})

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := s.UploadMedia(context.Background(), fmt.Sprintf("item-%d", i), photoAsset("x.jpg", 8))
			if err != nil {
				t.Errorf("UploadMedia() error = %v", err)
				return
			}
			ids <- rec.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("got %d unique ids, want %d", len(seen), n)
	}
	if next := s.Snapshot().NextID; next != n+1 {
		t.Errorf("NextID = %d, want %d", next, n+1)
	}
}

func TestDelaysScale(t *testing.T) {
	d := DefaultDelays()

	half := d.Scale(0.5)
	if half.Upload != 750*time.Millisecond {
		t.Errorf("Scale(0.5).Upload = %v, want 750ms", half.Upload)
	}
	if off := d.Scale(0); off != (Delays{}) {
		t.Errorf("Scale(0) = %+v, want zero delays", off)
	}
}
