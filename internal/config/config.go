// Package config loads, normalizes, and validates clipsync configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir     string `toml:"work_dir"`
	LogDir      string `toml:"log_dir"`
	CookiesFile string `toml:"cookies_file"`
	APIBind     string `toml:"api_bind"`
}

// Storage contains configuration for the S3-compatible object storage bucket
// that receives published artifacts. Credentials may also arrive via the
// CLIPSYNC_STORAGE_ACCESS_KEY / CLIPSYNC_STORAGE_SECRET_KEY environment
// variables (optionally loaded from a .env file next to the working
// directory).
type Storage struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	PublicURL string `toml:"public_url"`
}

// Import contains defaults for playlist import runs.
type Import struct {
	MaxDurationMinutes int `toml:"max_duration_minutes"`
	MaxItems           int `toml:"max_items"`
	// Inter-item delay bounds, seconds. The coordinator sleeps a random
	// duration inside these bounds between processed items.
	DelayMinSeconds        int `toml:"delay_min_seconds"`
	DelayMaxSeconds        int `toml:"delay_max_seconds"`
	FailureDelayMinSeconds int `toml:"failure_delay_min_seconds"`
	FailureDelayMaxSeconds int `toml:"failure_delay_max_seconds"`
	StalePlaceholderHours  int `toml:"stale_placeholder_hours"`
}

// Tools contains external binary names and timeouts.
type Tools struct {
	YtdlpBinary       string `toml:"ytdlp_binary"`
	GalleryDlBinary   string `toml:"gallerydl_binary"`
	FfmpegBinary      string `toml:"ffmpeg_binary"`
	InfoTimeout       int    `toml:"info_timeout"`
	ListTimeout       int    `toml:"list_timeout"`
	DownloadTimeout   int    `toml:"download_timeout"`
	TranscodeTimeout  int    `toml:"transcode_timeout"`
	HLSSegmentSeconds int    `toml:"hls_segment_seconds"`
	AudioBitrate      string `toml:"audio_bitrate"`
	AudioSampleRate   int    `toml:"audio_sample_rate"`
}

// Notifications contains ntfy push notification settings. An empty topic
// disables notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipsync.
//
// Configuration sections by subsystem:
//   - Paths: working/log directories, cookies file, API bind address
//   - Storage: S3-compatible bucket receiving published artifacts
//   - Import: playlist import policy defaults
//   - Tools: external binary names and timeouts
//   - Notifications: optional ntfy push notifications
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Import        Import        `toml:"import"`
	Tools         Tools         `toml:"tools"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The third return value
// reports whether a config file existed at the resolved path.
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

	applyEnvOverrides(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// applyEnvOverrides lets storage credentials come from the environment so the
// config file on disk never has to hold secrets. A .env file in the current
// directory is honored when present.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	if v := strings.TrimSpace(os.Getenv("CLIPSYNC_STORAGE_ENDPOINT")); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIPSYNC_STORAGE_BUCKET")); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIPSYNC_STORAGE_ACCESS_KEY")); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIPSYNC_STORAGE_SECRET_KEY")); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIPSYNC_STORAGE_PUBLIC_URL")); v != "" {
		cfg.Storage.PublicURL = v
	}
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

	projectPath, err := filepath.Abs("clipsync.toml")
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

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.TempDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TempDir returns the directory that holds per-item scratch directories.
func (c *Config) TempDir() string {
	return filepath.Join(c.Paths.WorkDir, "temp")
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
