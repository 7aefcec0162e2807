package config

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			VideosDir:     "~/videos",
			OrganizedDir:  "~/videos/organized",
			StateDir:      "~/.local/share/vidshelf",
			LogDir:        "~/.local/share/vidshelf/logs",
			ThumbCacheDir: "~/.local/share/vidshelf/thumbs",
		},
		Site: Site{
			ListingPath: "/categories/updates",
			TagsPath:    "/tags",
			ModelsPath:  "/models",
			UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		},
		Crawl: Crawl{
			Workers:        4,
			RequestTimeout: 30,
			RetryAttempts:  3,
			RetryBackoffMS: 500,
			PaginationMode: "probe",
			MaxProbePages:  500,
		},
		Matching: Matching{
			MinSimilarity:   0.80,
			AmbiguityMargin: 0.05,
			VideoExtensions: []string{".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv", ".webm", ".m4v"},
		},
		Linking: Linking{
			AllowCopyFallback: true,
			UntaggedFolder:    "tag no tag",
		},
		Metadata: Metadata{
			EmitNFO:            true,
			DownloadThumbnails: true,
			RequestTimeout:     20,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
