package config

const (
	defaultWorkDir               = "~/.local/share/clipsync"
	defaultLogDir                = "~/.local/share/clipsync/logs"
	defaultAPIBind               = "127.0.0.1:7519"
	defaultLogFormat             = "text"
	defaultLogLevel              = "info"
	defaultMaxDurationMinutes    = 10
	defaultDelayMinSeconds       = 5
	defaultDelayMaxSeconds       = 10
	defaultFailDelayMinSeconds   = 3
	defaultFailDelayMaxSeconds   = 5
	defaultStalePlaceholderHours = 24
	defaultYtdlpBinary           = "yt-dlp"
	defaultGalleryDlBinary       = "gallery-dl"
	defaultFfmpegBinary          = "ffmpeg"
	defaultInfoTimeout           = 60
	defaultListTimeout           = 120
	defaultDownloadTimeout       = 600
	defaultTranscodeTimeout      = 600
	defaultHLSSegmentSeconds     = 6
	defaultAudioBitrate          = "192k"
	defaultAudioSampleRate       = 44100
	defaultNtfyTimeoutSeconds    = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			Region: "auto",
			UseSSL: true,
		},
		Import: Import{
			MaxDurationMinutes:     defaultMaxDurationMinutes,
			DelayMinSeconds:        defaultDelayMinSeconds,
			DelayMaxSeconds:        defaultDelayMaxSeconds,
			FailureDelayMinSeconds: defaultFailDelayMinSeconds,
			FailureDelayMaxSeconds: defaultFailDelayMaxSeconds,
			StalePlaceholderHours:  defaultStalePlaceholderHours,
		},
		Tools: Tools{
			YtdlpBinary:       defaultYtdlpBinary,
			GalleryDlBinary:   defaultGalleryDlBinary,
			FfmpegBinary:      defaultFfmpegBinary,
			InfoTimeout:       defaultInfoTimeout,
			ListTimeout:       defaultListTimeout,
			DownloadTimeout:   defaultDownloadTimeout,
			TranscodeTimeout:  defaultTranscodeTimeout,
			HLSSegmentSeconds: defaultHLSSegmentSeconds,
			AudioBitrate:      defaultAudioBitrate,
			AudioSampleRate:   defaultAudioSampleRate,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
