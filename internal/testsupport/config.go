package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.Endpoint = "storage.test:9000"
	cfgVal.Storage.Region = "us-east-1"
	cfgVal.Storage.Bucket = "clipsync-test"
	cfgVal.Storage.AccessKey = "test-access"
	cfgVal.Storage.SecretKey = "test-secret"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCookiesFile creates an empty cookies file under the test's temp
// directory and points the config at it.
func WithCookiesFile() ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "cookies.txt")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			b.t.Fatalf("write cookies file: %v", err)
		}
		b.cfg.Paths.CookiesFile = path
	}
}

// WithMaxDuration overrides the import duration ceiling, in minutes.
func WithMaxDuration(minutes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.MaxDurationMinutes = minutes
	}
}

// WithPublicURL sets the storage public URL base on the test config.
func WithPublicURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.PublicURL = url
	}
}
