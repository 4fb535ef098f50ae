package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipsync/internal/api"
	"clipsync/internal/config"
	"clipsync/internal/deps"
	"clipsync/internal/logging"
	"clipsync/internal/notifications"
	"clipsync/internal/objstore"
	"clipsync/internal/pipeline"
	"clipsync/internal/progress"
	"clipsync/internal/services/ffmpeg"
	"clipsync/internal/services/gallerydl"
	"clipsync/internal/services/ytdlp"
	"clipsync/internal/source"
	"clipsync/internal/store"
	"clipsync/internal/worker"
)

// Daemon owns the import coordinator, the API server, and enforces
// single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *store.Store
	hub         *progress.Hub
	coordinator *pipeline.Coordinator
	apiServer   *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with all dependencies wired from cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	contentStore, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	blobs, err := objstore.New(cfg.Storage)
	if err != nil {
		_ = contentStore.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}

	fetcher, err := ytdlp.New(cfg.Tools.YtdlpBinary, cfg.Paths.CookiesFile, cfg.Tools.InfoTimeout, cfg.Tools.DownloadTimeout)
	if err != nil {
		_ = contentStore.Close()
		return nil, fmt.Errorf("yt-dlp client: %w", err)
	}
	lister, err := gallerydl.New(cfg.Tools.GalleryDlBinary, cfg.Paths.CookiesFile, cfg.Tools.ListTimeout)
	if err != nil {
		_ = contentStore.Close()
		return nil, fmt.Errorf("gallery-dl client: %w", err)
	}
	transcoder, err := ffmpeg.New(cfg.Tools.FfmpegBinary, cfg.Tools.TranscodeTimeout, cfg.Tools.HLSSegmentSeconds, cfg.Tools.AudioBitrate, cfg.Tools.AudioSampleRate)
	if err != nil {
		_ = contentStore.Close()
		return nil, fmt.Errorf("ffmpeg client: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	selector := source.NewSelector(
		source.NewTwitter(lister, fetcher),
		source.NewAparat(httpClient, fetcher),
	)

	proc := worker.New(cfg.TempDir(), fetcher, transcoder, blobs, contentStore, httpClient, logging.NewComponentLogger(logger, "worker"))
	coordinator := pipeline.New(selector, contentStore, proc, cfg.Import, logging.NewComponentLogger(logger, "pipeline"))
	importer := &notifyingImporter{
		coordinator: coordinator,
		notifier:    notifications.NewService(cfg),
		records:     contentStore,
		logger:      logging.NewComponentLogger(logger, "notifications"),
	}

	hub := progress.NewHub()
	staleAfter := time.Duration(cfg.Import.StalePlaceholderHours) * time.Hour
	apiServer := api.New(
		cfg.Paths.APIBind,
		hub,
		importer,
		contentStore,
		staleAfter,
		contentStore.Path(),
		logging.NewComponentLogger(logger, "api"),
	)

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipsyncd.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logger,
		store:       contentStore,
		hub:         hub,
		coordinator: coordinator,
		apiServer:   apiServer,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	for _, missing := range deps.MissingRequired(deps.CheckBinaries(deps.Requirements(d.cfg))) {
		d.logger.Warn("external tool unavailable",
			logging.String("tool", missing.Name),
			logging.String("detail", missing.Detail),
		)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipsync daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.apiServer.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("clipsync daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
	)
	return nil
}

// Stop shuts down the API server and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.apiServer.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("clipsync daemon stopped")
}

// Close releases all resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
		d.store = nil
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// PruneStalePlaceholders removes placeholder rows older than the configured
// stale window. Run on startup so crashed imports do not accumulate rows.
func (d *Daemon) PruneStalePlaceholders(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-time.Duration(d.cfg.Import.StalePlaceholderHours) * time.Hour)
	pruned, err := d.store.PruneStalePlaceholders(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		d.logger.Info("pruned stale placeholder records", logging.Int64("pruned", pruned))
	}
	return pruned, nil
}
