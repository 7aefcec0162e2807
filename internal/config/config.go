package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	VideosDir     string `toml:"videos_dir"`
	OrganizedDir  string `toml:"organized_dir"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	ThumbCacheDir string `toml:"thumb_cache_dir"`
}

// Site describes the remote content site being catalogued.
type Site struct {
	Domain        string `toml:"domain"`
	ListingPath   string `toml:"listing_path"`
	TagsPath      string `toml:"tags_path"`
	ModelsPath    string `toml:"models_path"`
	UserAgent     string `toml:"user_agent"`
	SessionCookie string `toml:"session_cookie"`
}

// Crawl contains crawling behavior settings.
type Crawl struct {
	Workers        int `toml:"workers"`
	RequestTimeout int `toml:"request_timeout"`
	RetryAttempts  int `toml:"retry_attempts"`
	RetryBackoffMS int `toml:"retry_backoff_ms"`
	// PaginationMode selects how total page counts are determined:
	// "probe" keeps fetching past the visible pager until a page comes back
	// empty; "pager" trusts the widget's maximum page number.
	PaginationMode string `toml:"pagination_mode"`
	MaxProbePages  int    `toml:"max_probe_pages"`
}

// Matching contains match resolver thresholds.
type Matching struct {
	MinSimilarity   float64  `toml:"min_similarity"`
	AmbiguityMargin float64  `toml:"ambiguity_margin"`
	VideoExtensions []string `toml:"video_extensions"`
}

// Linking contains link organizer settings.
type Linking struct {
	// AllowCopyFallback permits a full file copy when no link strategy
	// works. Copies duplicate storage, so sites with large files may want
	// this off.
	AllowCopyFallback bool   `toml:"allow_copy_fallback"`
	UntaggedFolder    string `toml:"untagged_folder"`
}

// Metadata contains metadata emitter settings.
type Metadata struct {
	EmitNFO            bool `toml:"emit_nfo"`
	DownloadThumbnails bool `toml:"download_thumbnails"`
	RequestTimeout     int  `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format  string `toml:"format"`
	Level   string `toml:"level"`
	NoColor bool   `toml:"no_color"`
}

// Config encapsulates all configuration values for vidshelf.
//
// Configuration sections by subsystem:
//   - Paths: local video folder, organized output tree, state and logs
//   - Site: remote domain and listing/tags/models path segments
//   - Crawl: worker pool size, timeouts, retries, pagination mode
//   - Matching: similarity threshold and ambiguity margin
//   - Linking: link strategy fallbacks and synthetic folder names
//   - Metadata: NFO and thumbnail emission
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Site     Site     `toml:"site"`
	Crawl    Crawl    `toml:"crawl"`
	Matching Matching `toml:"matching"`
	Linking  Linking  `toml:"linking"`
	Metadata Metadata `toml:"metadata"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vidshelf/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was actually found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidshelf.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs. The organized tree
// is created on a best-effort basis so config load still succeeds when the
// target mount is temporarily offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.ThumbCacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OrganizedDir) != "" {
		_ = os.MkdirAll(c.Paths.OrganizedDir, 0o755)
	}
	return nil
}

// BaseURL returns the site domain with scheme, without a trailing slash.
func (c *Config) BaseURL() string {
	domain := strings.TrimSpace(c.Site.Domain)
	if domain == "" {
		return ""
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return strings.TrimRight(domain, "/")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
