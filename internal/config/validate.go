package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint is required; set it in the config file or CLIPSYNC_STORAGE_ENDPOINT")
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket is required")
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return errors.New("storage credentials are required; set storage.access_key/secret_key or the CLIPSYNC_STORAGE_* env vars")
	}
	if c.Storage.PublicURL == "" {
		return errors.New("storage.public_url is required to compute published artifact URLs")
	}
	return nil
}

func (c *Config) validateImport() error {
	checks := []struct {
		name  string
		value int
	}{
		{"import.max_duration_minutes", c.Import.MaxDurationMinutes},
		{"import.delay_min_seconds", c.Import.DelayMinSeconds},
		{"import.delay_max_seconds", c.Import.DelayMaxSeconds},
		{"import.stale_placeholder_hours", c.Import.StalePlaceholderHours},
		{"tools.info_timeout", c.Tools.InfoTimeout},
		{"tools.list_timeout", c.Tools.ListTimeout},
		{"tools.download_timeout", c.Tools.DownloadTimeout},
		{"tools.transcode_timeout", c.Tools.TranscodeTimeout},
		{"tools.hls_segment_seconds", c.Tools.HLSSegmentSeconds},
	}
	for _, check := range checks {
		if check.value <= 0 {
			return fmt.Errorf("%s must be positive", check.name)
		}
	}
	if c.Import.DelayMaxSeconds < c.Import.DelayMinSeconds {
		return errors.New("import.delay_max_seconds must be >= import.delay_min_seconds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
