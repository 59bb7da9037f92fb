// Package media provides asset handling for uploads: classification into
// photos and videos, size formatting, durable data URL references and
// thumbnail derivation.
//
// The ThumbnailDeriver returns a photo's own reference unchanged and, for
// videos, captures a frame with ffmpeg one second into playback (or at the
// start of shorter clips), scales it to a fixed width and encodes it as a
// JPEG data URL.
package media
