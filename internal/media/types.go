package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// Image format decoders for ProbeImage
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp" // WebP format support
)

// Kind is the media classification of an uploaded asset.
type Kind string

const (
	// KindPhoto is any asset that is not a video.
	KindPhoto Kind = "photo"
	// KindVideo is an asset whose content type starts with "video".
	KindVideo Kind = "video"
)

// DefaultContentType is assumed when an asset declares no type and its
// content cannot be sniffed.
const DefaultContentType = "application/octet-stream"

// ErrEmptyAsset is returned for assets without content.
var ErrEmptyAsset = errors.New("asset has no content")

// Asset is an uploaded binary with its declared metadata.
type Asset struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the asset length in bytes.
func (a Asset) Size() int64 {
	return int64(len(a.Data))
}

// ResolvedContentType returns the declared content type, falling back to
// sniffing the content when none was declared.
func (a Asset) ResolvedContentType() string {
	if ct := strings.TrimSpace(a.ContentType); ct != "" {
		return ct
	}
	return DetectContentType(a.Data)
}

// Kind classifies the asset by its resolved content type.
func (a Asset) Kind() Kind {
	return Classify(a.ResolvedContentType())
}

// Classify maps a content type to a Kind. Only "video/*" types are videos.
func Classify(contentType string) Kind {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "video") {
		return KindVideo
	}
	return KindPhoto
}

// DetectContentType sniffs the MIME type from the content's magic bytes.
func DetectContentType(data []byte) string {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return DefaultContentType
	}
	return kind.MIME.Value
}

// FormatSize renders a byte count as mebibytes with two decimals, e.g.
// 2000000 -> "1.91 MB".
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/1024/1024)
}

// DataURL encodes content as a base64 data URL. Data URLs are durable
// references: they stay valid across restarts because they carry the
// content itself.
func DataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = DefaultContentType
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// EncodeAsset returns the durable reference for an asset.
func EncodeAsset(a Asset) string {
	return DataURL(a.ResolvedContentType(), a.Data)
}

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// ProbeImage reads the image header without fully decoding it and returns
// its dimensions and format.
func ProbeImage(data []byte) (*ImageDimensions, string, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if config.Width == 0 || config.Height == 0 {
		return nil, format, fmt.Errorf("image has zero dimensions (%dx%d)", config.Width, config.Height)
	}
	return &ImageDimensions{Width: config.Width, Height: config.Height}, format, nil
}
