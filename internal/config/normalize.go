package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeImport()
	c.normalizeTools()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if trimmed := strings.TrimSpace(c.Paths.CookiesFile); trimmed != "" {
		if c.Paths.CookiesFile, err = expandPath(trimmed); err != nil {
			return fmt.Errorf("paths.cookies_file: %w", err)
		}
	} else {
		c.Paths.CookiesFile = ""
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.AccessKey = strings.TrimSpace(c.Storage.AccessKey)
	c.Storage.SecretKey = strings.TrimSpace(c.Storage.SecretKey)
	c.Storage.PublicURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicURL), "/")
	if c.Storage.Region == "" {
		c.Storage.Region = "auto"
	}
}

func (c *Config) normalizeImport() {
	if c.Import.MaxDurationMinutes <= 0 {
		c.Import.MaxDurationMinutes = defaultMaxDurationMinutes
	}
	if c.Import.DelayMinSeconds <= 0 {
		c.Import.DelayMinSeconds = defaultDelayMinSeconds
	}
	if c.Import.DelayMaxSeconds < c.Import.DelayMinSeconds {
		c.Import.DelayMaxSeconds = c.Import.DelayMinSeconds
	}
	if c.Import.FailureDelayMinSeconds <= 0 {
		c.Import.FailureDelayMinSeconds = defaultFailDelayMinSeconds
	}
	if c.Import.FailureDelayMaxSeconds < c.Import.FailureDelayMinSeconds {
		c.Import.FailureDelayMaxSeconds = c.Import.FailureDelayMinSeconds
	}
	if c.Import.StalePlaceholderHours <= 0 {
		c.Import.StalePlaceholderHours = defaultStalePlaceholderHours
	}
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.YtdlpBinary) == "" {
		c.Tools.YtdlpBinary = defaultYtdlpBinary
	}
	if strings.TrimSpace(c.Tools.GalleryDlBinary) == "" {
		c.Tools.GalleryDlBinary = defaultGalleryDlBinary
	}
	if strings.TrimSpace(c.Tools.FfmpegBinary) == "" {
		c.Tools.FfmpegBinary = defaultFfmpegBinary
	}
	if c.Tools.InfoTimeout <= 0 {
		c.Tools.InfoTimeout = defaultInfoTimeout
	}
	if c.Tools.ListTimeout <= 0 {
		c.Tools.ListTimeout = defaultListTimeout
	}
	if c.Tools.DownloadTimeout <= 0 {
		c.Tools.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Tools.TranscodeTimeout <= 0 {
		c.Tools.TranscodeTimeout = defaultTranscodeTimeout
	}
	if c.Tools.HLSSegmentSeconds <= 0 {
		c.Tools.HLSSegmentSeconds = defaultHLSSegmentSeconds
	}
	if strings.TrimSpace(c.Tools.AudioBitrate) == "" {
		c.Tools.AudioBitrate = defaultAudioBitrate
	}
	if c.Tools.AudioSampleRate <= 0 {
		c.Tools.AudioSampleRate = defaultAudioSampleRate
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
}
