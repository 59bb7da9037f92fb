// Package store implements the media store: the collection of media
// records and the single user profile behind the dashboard.
//
// A Store is built once at startup with New. It restores its state from a
// Persistence backend when all three keys are present and otherwise seeds
// a mock dataset. Every mutation is written through as one batch; write
// failures are logged and the store keeps serving from memory.
//
// Operations simulate network latency (see Delays) and hand out copies, so
// callers can never mutate store state by holding on to a result.
//
//	s := store.New(ctx, store.Options{
//		Persistence: db,
//		Deriver:     media.NewThumbnailDeriver(media.NewFFmpegExtractor(""), media.ThumbnailOptions{}),
//		Delays:      store.DefaultDelays(),
//	})
//	rec, err := s.UploadMedia(ctx, "Sunset", asset)
package store
