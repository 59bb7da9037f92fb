package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// stubExtractor returns a fixed frame or error and records calls.
type stubExtractor struct {
	frame   image.Image
	err     error
	delay   time.Duration
	calls   atomic.Int32
	offsets []time.Duration
	mu      sync.Mutex
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (s *stubExtractor) ExtractFrame(ctx context.Context, _ []byte, offset time.Duration) (image.Image, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.offsets = append(s.offsets, offset)
	s.mu.Unlock()

	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		prev := s.maxSeen.Load()
		if n <= prev || s.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.frame, s.err
}

func solidFrame(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{200, 40, 40, 255}}, image.Point{}, draw.Src)
	return img
}

func decodeDataURLImage(t *testing.T, ref string) image.Image {
	t.Helper()

	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(ref, prefix) {
		t.Fatalf("thumbnail is not a JPEG data URL: %.40q", ref)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref, prefix))
	if err != nil {
		t.Fatalf("thumbnail payload is not base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("thumbnail payload is not a JPEG: %v", err)
	}
	return img
}

func TestDerivePhotoReturnsReference(t *testing.T) {
	extractor := &stubExtractor{frame: solidFrame(10, 10)}
	deriver := NewThumbnailDeriver(extractor, ThumbnailOptions{})

	asset := Asset{Name: "beach.jpg", ContentType: "image/jpeg", Data: []byte{0xFF, 0xD8, 0xFF}}
	ref := EncodeAsset(asset)

	thumb, err := deriver.Derive(context.Background(), asset, ref)
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	if thumb != ref {
		t.Error("photo thumbnail should be the asset reference")
	}
	if extractor.calls.Load() != 0 {
		t.Errorf("extractor should not be called for photos, called %d times", extractor.calls.Load())
	}
}

func TestDeriveVideoScalesToWidth(t *testing.T) {
	tests := []struct {
		name       string
		frameW     int
		frameH     int
		wantWidth  int
		wantHeight int
	}{
		{"landscape 16:9", 1280, 720, 400, 225},
		{"portrait", 720, 1280, 400, 711},
		{"small frame is upscaled", 200, 100, 400, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := &stubExtractor{frame: solidFrame(tt.frameW, tt.frameH)}
			deriver := NewThumbnailDeriver(extractor, ThumbnailOptions{Width: 400, Offset: time.Second})

			asset := Asset{Name: "clip.mp4", ContentType: "video/mp4", Data: []byte("fake video bytes")}
			ref := EncodeAsset(asset)

			thumb, err := deriver.Derive(context.Background(), asset, ref)
			if err != nil {
				t.Fatalf("Derive() error: %v", err)
			}
			if thumb == ref {
				t.Fatal("video thumbnail must differ from the asset reference")
			}

			img := decodeDataURLImage(t, thumb)
			b := img.Bounds()
			if b.Dx() != tt.wantWidth {
				t.Errorf("width = %d, want %d", b.Dx(), tt.wantWidth)
			}
			if diff := b.Dy() - tt.wantHeight; diff < -1 || diff > 1 {
				t.Errorf("height = %d, want about %d", b.Dy(), tt.wantHeight)
			}
			if len(extractor.offsets) != 1 || extractor.offsets[0] != time.Second {
				t.Errorf("expected one extraction at 1s, got %v", extractor.offsets)
			}
		})
	}
}

func TestDeriveVideoErrors(t *testing.T) {
	tests := []struct {
		name      string
		extractor FrameExtractor
		data      []byte
		wantStage ThumbnailStage
	}{
		{
			name:      "empty asset",
			extractor: &stubExtractor{frame: solidFrame(10, 10)},
			data:      nil,
			wantStage: StageRead,
		},
		{
			name:      "extractor failure",
			extractor: &stubExtractor{err: errors.New("decoder exploded")},
			data:      []byte("x"),
			wantStage: StageCapture,
		},
		{
			name:      "extractor stage preserved",
			extractor: &stubExtractor{err: &ThumbnailError{Stage: StageSeek, Err: errors.New("no frame")}},
			data:      []byte("x"),
			wantStage: StageSeek,
		},
		{
			name:      "zero dimensions",
			extractor: &stubExtractor{frame: image.NewRGBA(image.Rect(0, 0, 0, 0))},
			data:      []byte("x"),
			wantStage: StageSeek,
		},
		{
			name:      "nil frame",
			extractor: &stubExtractor{},
			data:      []byte("x"),
			wantStage: StageCapture,
		},
		{
			name:      "no extractor",
			extractor: nil,
			data:      []byte("x"),
			wantStage: StageCapture,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deriver := NewThumbnailDeriver(tt.extractor, ThumbnailOptions{})
			asset := Asset{Name: "clip.webm", ContentType: "video/webm", Data: tt.data}

			thumb, err := deriver.Derive(context.Background(), asset, EncodeAsset(asset))
			if err == nil {
				t.Fatal("expected an error")
			}
			if thumb != "" {
				t.Errorf("expected no thumbnail on failure, got %.30q", thumb)
			}
			if !errors.Is(err, ErrThumbnail) {
				t.Errorf("error should match ErrThumbnail: %v", err)
			}
			var thumbErr *ThumbnailError
			if !errors.As(err, &thumbErr) {
				t.Fatalf("expected *ThumbnailError, got %T", err)
			}
			if thumbErr.Stage != tt.wantStage {
				t.Errorf("stage = %s, want %s", thumbErr.Stage, tt.wantStage)
			}
		})
	}
}

func TestDeriveVideoTimeout(t *testing.T) {
	extractor := &stubExtractor{frame: solidFrame(10, 10), delay: time.Second}
	deriver := NewThumbnailDeriver(extractor, ThumbnailOptions{Timeout: 20 * time.Millisecond})

	asset := Asset{Name: "slow.mp4", ContentType: "video/mp4", Data: []byte("x")}
	_, err := deriver.Derive(context.Background(), asset, EncodeAsset(asset))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDeriveIgnoresCallerCancellation(t *testing.T) {
	extractor := &stubExtractor{frame: solidFrame(40, 20), delay: 50 * time.Millisecond}
	deriver := NewThumbnailDeriver(extractor, ThumbnailOptions{Width: 20, Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	asset := Asset{Name: "clip.mp4", ContentType: "video/mp4", Data: []byte("x")}
	thumb, err := deriver.Derive(ctx, asset, EncodeAsset(asset))
	if err != nil {
		t.Fatalf("Derive() after the caller cancelled = %v, want success", err)
	}
	if got := decodeDataURLImage(t, thumb).Bounds().Dx(); got != 20 {
		t.Errorf("thumbnail width = %d, want 20", got)
	}
}

func TestDeriveLimitsConcurrency(t *testing.T) {
	extractor := &stubExtractor{frame: solidFrame(20, 20), delay: 20 * time.Millisecond}
	deriver := NewThumbnailDeriver(extractor, ThumbnailOptions{MaxConcurrent: 2})

	asset := Asset{Name: "clip.mp4", ContentType: "video/mp4", Data: []byte("x")}
	ref := EncodeAsset(asset)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := deriver.Derive(context.Background(), asset, ref); err != nil {
				t.Errorf("Derive() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := extractor.maxSeen.Load(); got > 2 {
		t.Errorf("observed %d concurrent extractions, limit is 2", got)
	}
	if got := extractor.calls.Load(); got != 6 {
		t.Errorf("calls = %d, want 6", got)
	}
}

func createTestVideo(t *testing.T, duration string) []byte {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "lavfi",
		"-i", "color=c=blue:s=320x240:d="+duration,
		"-c:v", "libx264",
		"-t", duration,
		"-pix_fmt", "yuv420p",
		"-y",
		path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not create test video (%v): %s", err, out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read test video: %v", err)
	}
	return data
}

func TestFFmpegExtractorIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available, skipping video thumbnail test")
	}

	tests := []struct {
		name     string
		duration string
	}{
		{"seeks one second in", "3"},
		{"falls back to start for short clip", "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := createTestVideo(t, tt.duration)
			extractor := NewFFmpegExtractor(t.TempDir())
			if !extractor.Available() {
				t.Fatal("Available() = false with ffmpeg on PATH")
			}

			deriver := NewThumbnailDeriver(extractor, ThumbnailOptions{})
			asset := Asset{Name: "test.mp4", ContentType: "video/mp4", Data: data}

			thumb, err := deriver.Derive(context.Background(), asset, EncodeAsset(asset))
			if err != nil {
				t.Fatalf("Derive() error: %v", err)
			}

			img := decodeDataURLImage(t, thumb)
			if img.Bounds().Dx() != DefaultThumbnailWidth {
				t.Errorf("width = %d, want %d", img.Bounds().Dx(), DefaultThumbnailWidth)
			}
			if img.Bounds().Dy() != 300 {
				t.Errorf("height = %d, want 300 for a 4:3 source", img.Bounds().Dy())
			}
		})
	}
}

func TestFFmpegExtractorRejectsGarbage(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available, skipping test")
	}

	extractor := NewFFmpegExtractor(t.TempDir())
	_, err := extractor.ExtractFrame(context.Background(), []byte("definitely not a video"), time.Second)
	if !errors.Is(err, ErrThumbnail) {
		t.Errorf("expected thumbnail error for garbage input, got %v", err)
	}
}
