package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"time"

	"media-hub/internal/logging"
	"media-hub/internal/metrics"

	"github.com/disintegration/imaging"
)

const (
	// DefaultThumbnailWidth is the width video frames are scaled to.
	DefaultThumbnailWidth = 400
	// DefaultFrameOffset is how far into playback the frame is captured.
	DefaultFrameOffset = time.Second
	// DefaultExtractTimeout bounds a single ffmpeg invocation.
	DefaultExtractTimeout = 30 * time.Second

	thumbnailQuality = 85
)

// ErrThumbnail matches every *ThumbnailError via errors.Is.
var ErrThumbnail = errors.New("thumbnail derivation failed")

// ThumbnailStage identifies where derivation failed.
type ThumbnailStage string

const (
	// StageRead means the asset could not be read as a binary stream.
	StageRead ThumbnailStage = "read"
	// StageSeek means the video could not be positioned or had no dimensions.
	StageSeek ThumbnailStage = "seek"
	// StageCapture means no frame could be captured or decoded.
	StageCapture ThumbnailStage = "capture"
	// StageEncode means the captured frame could not be encoded.
	StageEncode ThumbnailStage = "encode"
)

// ThumbnailError reports a failed video thumbnail derivation. An upload
// that hits it must fail as a whole.
type ThumbnailError struct {
	Stage ThumbnailStage
	Err   error
}

func (e *ThumbnailError) Error() string {
	return fmt.Sprintf("thumbnail %s failed: %v", e.Stage, e.Err)
}

func (e *ThumbnailError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrThumbnail.
func (e *ThumbnailError) Is(target error) bool {
	return target == ErrThumbnail
}

// FrameExtractor decodes a video and returns the frame at offset. When the
// video is shorter than offset, the first frame is returned.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, data []byte, offset time.Duration) (image.Image, error)
}

// ThumbnailOptions configures a ThumbnailDeriver. Zero values take defaults.
type ThumbnailOptions struct {
	Width         int
	Offset        time.Duration
	Timeout       time.Duration
	MaxConcurrent int
}

// ThumbnailDeriver produces the preview reference for an uploaded asset.
type ThumbnailDeriver struct {
	extractor FrameExtractor
	width     int
	offset    time.Duration
	timeout   time.Duration
	sem       chan struct{}
}

// NewThumbnailDeriver creates a deriver that captures video frames with
// extractor.
func NewThumbnailDeriver(extractor FrameExtractor, opts ThumbnailOptions) *ThumbnailDeriver {
	if opts.Width <= 0 {
		opts.Width = DefaultThumbnailWidth
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultExtractTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}

	logging.Debug("ThumbnailDeriver: width=%d offset=%v timeout=%v concurrency=%d",
		opts.Width, opts.Offset, opts.Timeout, opts.MaxConcurrent)

	return &ThumbnailDeriver{
		extractor: extractor,
		width:     opts.Width,
		offset:    opts.Offset,
		timeout:   opts.Timeout,
		sem:       make(chan struct{}, opts.MaxConcurrent),
	}
}

// Derive returns the thumbnail reference for asset. Photos reuse the
// asset's own durable reference; videos get a captured frame encoded as a
// JPEG data URL. Video failures are returned as *ThumbnailError.
//
// Cancellation of ctx is ignored: a started derivation runs until it
// succeeds, fails or hits the extraction timeout.
func (t *ThumbnailDeriver) Derive(ctx context.Context, asset Asset, reference string) (string, error) {
	ctx = context.WithoutCancel(ctx)
	kind := asset.Kind()
	if kind != KindVideo {
		return reference, nil
	}

	start := time.Now()
	thumb, err := t.deriveVideo(ctx, asset)

	metrics.ThumbnailGenerationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(string(kind), "error").Inc()
		logging.Warn("Thumbnail derivation failed for %q: %v", asset.Name, err)
		return "", err
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues(string(kind), "success").Inc()
	logging.Debug("Thumbnail derived for %q in %v", asset.Name, time.Since(start))
	return thumb, nil
}

func (t *ThumbnailDeriver) deriveVideo(ctx context.Context, asset Asset) (string, error) {
	if len(asset.Data) == 0 {
		return "", &ThumbnailError{Stage: StageRead, Err: ErrEmptyAsset}
	}
	if t.extractor == nil {
		return "", &ThumbnailError{Stage: StageCapture, Err: errors.New("no frame extractor configured")}
	}

	t.sem <- struct{}{}
	defer func() { <-t.sem }()

	metrics.ThumbnailExtractionsInFlight.Inc()
	defer metrics.ThumbnailExtractionsInFlight.Dec()

	extractCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	frame, err := t.extractor.ExtractFrame(extractCtx, asset.Data, t.offset)
	if err != nil {
		var thumbErr *ThumbnailError
		if errors.As(err, &thumbErr) {
			return "", thumbErr
		}
		return "", &ThumbnailError{Stage: StageCapture, Err: err}
	}
	if frame == nil {
		return "", &ThumbnailError{Stage: StageCapture, Err: errors.New("extractor returned nil frame")}
	}

	bounds := frame.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return "", &ThumbnailError{Stage: StageSeek, Err: fmt.Errorf("frame has zero dimensions (%dx%d)", bounds.Dx(), bounds.Dy())}
	}

	// Height 0 keeps the source aspect ratio
	thumb := imaging.Resize(frame, t.width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return "", &ThumbnailError{Stage: StageEncode, Err: err}
	}

	return DataURL("image/jpeg", buf.Bytes()), nil
}

// FFmpegExtractor captures frames by piping a PNG out of ffmpeg.
type FFmpegExtractor struct {
	binary  string
	tempDir string
}

// NewFFmpegExtractor returns an extractor that stages uploads in tempDir
// (os.TempDir when empty) because container formats such as MP4 need a
// seekable input.
func NewFFmpegExtractor(tempDir string) *FFmpegExtractor {
	return &FFmpegExtractor{binary: "ffmpeg", tempDir: tempDir}
}

// Available reports whether the ffmpeg binary can be found.
func (f *FFmpegExtractor) Available() bool {
	_, err := exec.LookPath(f.binary)
	return err == nil
}

// ExtractFrame implements FrameExtractor.
func (f *FFmpegExtractor) ExtractFrame(ctx context.Context, data []byte, offset time.Duration) (image.Image, error) {
	ffmpegPath, err := exec.LookPath(f.binary)
	if err != nil {
		return nil, &ThumbnailError{Stage: StageCapture, Err: fmt.Errorf("ffmpeg not found: %w", err)}
	}

	input, err := os.CreateTemp(f.tempDir, "mediahub-video-*")
	if err != nil {
		return nil, &ThumbnailError{Stage: StageRead, Err: fmt.Errorf("failed to stage video: %w", err)}
	}
	defer func() {
		if err := os.Remove(input.Name()); err != nil {
			logging.Warn("failed to remove staged video %s: %v", input.Name(), err)
		}
	}()

	if _, err := input.Write(data); err != nil {
		_ = input.Close()
		return nil, &ThumbnailError{Stage: StageRead, Err: fmt.Errorf("failed to stage video: %w", err)}
	}
	if err := input.Close(); err != nil {
		return nil, &ThumbnailError{Stage: StageRead, Err: fmt.Errorf("failed to stage video: %w", err)}
	}

	start := time.Now()
	defer func() {
		metrics.ThumbnailFFmpegDuration.Observe(time.Since(start).Seconds())
	}()

	out, err := runFFmpeg(ctx, ffmpegPath, input.Name(), offset)
	if (err != nil || len(out) == 0) && offset > 0 {
		// Clips shorter than the offset produce nothing; fall back to the start
		logging.Debug("FFmpeg seek to %v failed (%v), retrying from start", offset, err)
		out, err = runFFmpeg(ctx, ffmpegPath, input.Name(), 0)
	}
	if err != nil {
		return nil, &ThumbnailError{Stage: StageCapture, Err: err}
	}
	if len(out) == 0 {
		return nil, &ThumbnailError{Stage: StageSeek, Err: errors.New("ffmpeg produced no frame")}
	}

	logging.Debug("FFmpeg frame output size: %d bytes", len(out))

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, &ThumbnailError{Stage: StageCapture, Err: fmt.Errorf("failed to decode ffmpeg output: %w", err)}
	}
	return img, nil
}

func runFFmpeg(ctx context.Context, ffmpegPath, inputPath string, offset time.Duration) ([]byte, error) {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if offset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", offset.Seconds()))
	}
	args = append(args,
		"-i", inputPath,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
