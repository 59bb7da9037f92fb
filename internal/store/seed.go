package store

import "media-hub/internal/media"

// DefaultUser is the profile a freshly seeded store starts with.
func DefaultUser() UserProfile {
	return UserProfile{
		Name:   "Media Hub Staff",
		Avatar: "https://picsum.photos/seed/avatar/40/40",
	}
}

// DefaultSeed returns the mock dataset used when no persisted state exists.
func DefaultSeed() []MediaRecord {
	const videoBase = "https://storage.googleapis.com/gtv-videos-bucket/sample/"

	return []MediaRecord{
		{
			ID:        1,
			Type:      media.KindVideo,
			Title:     "Opening Weekend Highlights",
			Thumbnail: "https://picsum.photos/seed/opening/400/225",
			URL:       videoBase + "BigBuckBunny.mp4",
			Size:      "150.69 MB",
			Category:  CategoryRecent,
		},
		{
			ID:        2,
			Type:      media.KindPhoto,
			Title:     "Poolside Sunset",
			Thumbnail: "https://picsum.photos/seed/sunset/400/300",
			URL:       "https://picsum.photos/seed/sunset/1600/1200",
			Size:      "2.40 MB",
			Category:  CategoryFavorite,
		},
		{
			ID:        3,
			Type:      media.KindPhoto,
			Title:     "DJ Booth",
			Thumbnail: "https://picsum.photos/seed/booth/400/300",
			URL:       "https://picsum.photos/seed/booth/1600/1200",
			Size:      "3.12 MB",
			Category:  CategoryRecent,
		},
		{
			ID:        4,
			Type:      media.KindVideo,
			Title:     "Crowd Drone Pass",
			Thumbnail: "https://picsum.photos/seed/drone/400/225",
			URL:       videoBase + "ElephantsDream.mp4",
			Size:      "161.62 MB",
			Category:  CategoryFavorite,
		},
		{
			ID:        5,
			Type:      media.KindPhoto,
			Title:     "Cabana Setup",
			Thumbnail: "https://picsum.photos/seed/cabana/400/300",
			URL:       "https://picsum.photos/seed/cabana/1600/1200",
			Size:      "1.87 MB",
			Category:  CategoryRecent,
		},
		{
			ID:        6,
			Type:      media.KindVideo,
			Title:     "Fireworks Finale",
			Thumbnail: "https://picsum.photos/seed/fireworks/400/225",
			URL:       videoBase + "ForBiggerBlazes.mp4",
			Size:      "2.38 MB",
			Category:  CategoryRecent,
		},
	}
}
