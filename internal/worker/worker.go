// Package worker downloads, transcodes, and publishes one candidate at a
// time.
package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"clipsync/internal/fileutil"
	"clipsync/internal/logging"
	"clipsync/internal/services"
	"clipsync/internal/source"
	"clipsync/internal/store"
)

// Stage names forwarded to the per-item callback, in processing order.
const (
	StageDownload  = "download"
	StageThumbnail = "thumbnail"
	StageRegister  = "register"
	StageSegment   = "segment"
	StageAudio     = "audio"
	StageUpload    = "upload"
	StageFinalize  = "finalize"
)

const (
	sourceFileName    = "original.mp4"
	audioFileName     = "audio.mp3"
	thumbnailFileName = "thumbnail.jpg"
	hlsDirName        = "hls"
	playlistName      = "master.m3u8"
	metadataName      = "metadata.json"
)

// MediaFetcher downloads raw source media.
type MediaFetcher interface {
	Download(ctx context.Context, url, destPath string) error
}

// Transcoder produces the HLS rendition and the standalone audio file.
type Transcoder interface {
	Segment(ctx context.Context, src, hlsDir string) error
	ExtractAudio(ctx context.Context, src, dest string) error
}

// BlobStore publishes artifacts and derives public URLs.
type BlobStore interface {
	UploadFile(ctx context.Context, localPath, key, contentType string) (string, error)
	UploadDir(ctx context.Context, localDir, keyPrefix string) error
	UploadJSON(ctx context.Context, key string, v any) error
	RemovePrefix(ctx context.Context, prefix string) error
	PublicURL(key string) string
}

// Registrar persists content records.
type Registrar interface {
	CreatePlaceholder(ctx context.Context, params store.PlaceholderParams) (string, error)
	Finalize(ctx context.Context, id string, params store.FinalizeParams) error
}

// Request is one item to process.
type Request struct {
	Candidate   source.Candidate
	Performer   *store.Performer
	CategoryIDs []string
	DedupKey    string
}

// Result reports the published artifacts for a processed item.
type Result struct {
	RecordID     string
	RawURL       string
	AudioURL     string
	ThumbnailURL string
	StreamURL    string
}

// Worker runs the per-item state machine.
type Worker struct {
	tempRoot   string
	fetcher    MediaFetcher
	transcoder Transcoder
	blobs      BlobStore
	records    Registrar
	httpClient *http.Client
	logger     *slog.Logger
}

// New constructs a worker. httpClient and logger may be nil.
func New(tempRoot string, fetcher MediaFetcher, transcoder Transcoder, blobs BlobStore, records Registrar, httpClient *http.Client, logger *slog.Logger) *Worker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{
		tempRoot:   tempRoot,
		fetcher:    fetcher,
		transcoder: transcoder,
		blobs:      blobs,
		records:    records,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Process runs the state machine for one candidate: download, thumbnail,
// register, segment, extract audio, upload, finalize. The scratch directory
// is removed whether or not processing succeeds. Thumbnail failures are
// logged and processing continues without one.
func (w *Worker) Process(ctx context.Context, req Request, onStage func(stage string)) (*Result, error) {
	cand := req.Candidate
	if cand.ID == "" {
		return nil, services.Wrap(services.ErrValidation, StageDownload, "", "candidate id required", nil)
	}
	notify := func(stage string) {
		if onStage != nil {
			onStage(stage)
		}
	}
	log := w.logger.With(
		logging.String("platform", cand.Platform),
		logging.String("video_id", cand.ID),
	)

	itemDir := filepath.Join(w.tempRoot, itemDirName(cand))
	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, StageDownload, "", "create scratch directory", err)
	}
	defer func() {
		if err := os.RemoveAll(itemDir); err != nil {
			log.Warn("scratch cleanup failed", logging.Error(err))
		}
	}()

	// 1. Acquire.
	notify(StageDownload)
	sourcePath := filepath.Join(itemDir, sourceFileName)
	if err := w.fetcher.Download(ctx, cand.SourceURL, sourcePath); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, StageDownload, "yt-dlp", "", err)
	}

	// 2. Thumbnail, non-fatal.
	notify(StageThumbnail)
	thumbnailPath := ""
	if cand.ThumbnailURL != "" {
		p := filepath.Join(itemDir, thumbnailFileName)
		if err := w.fetchThumbnail(ctx, cand.ThumbnailURL, p); err != nil {
			log.Warn("thumbnail fetch failed", logging.Error(err))
		} else {
			thumbnailPath = p
		}
	}

	// 3. Register.
	notify(StageRegister)
	recordID, err := w.records.CreatePlaceholder(ctx, store.PlaceholderParams{
		Title:           cand.Title,
		Description:     cand.Description,
		Type:            store.TypeVideo,
		DurationSeconds: cand.DurationSeconds,
		OriginalDate:    cand.PublishedAt,
		Source:          cand.Platform,
		ExternalID:      cand.ID,
		ExternalURL:     cand.SourceURL,
		PerformerID:     performerID(req.Performer),
		DedupKey:        req.DedupKey,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StageRegister, "store", "", err)
	}

	// 4. Segment.
	notify(StageSegment)
	hlsDir := filepath.Join(itemDir, hlsDirName)
	if err := w.transcoder.Segment(ctx, sourcePath, hlsDir); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, StageSegment, "ffmpeg", "", err)
	}

	// 5. Extract audio.
	notify(StageAudio)
	audioPath := filepath.Join(itemDir, audioFileName)
	if err := w.transcoder.ExtractAudio(ctx, sourcePath, audioPath); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, StageAudio, "ffmpeg", "", err)
	}

	// 6. Upload. A failure partway leaves objects under the record prefix;
	// sweep them so a retry starts from a clean key space.
	notify(StageUpload)
	prefix := path.Join("content", recordID)
	result := &Result{RecordID: recordID}
	abortUpload := func(detail string, cause error) error {
		if rmErr := w.blobs.RemovePrefix(context.WithoutCancel(ctx), prefix); rmErr != nil {
			log.Warn("partial upload cleanup failed", logging.Error(rmErr))
		}
		return services.Wrap(services.ErrTransient, StageUpload, "storage", detail, cause)
	}

	result.RawURL, err = w.blobs.UploadFile(ctx, sourcePath, path.Join(prefix, sourceFileName), "")
	if err != nil {
		return nil, abortUpload("raw media", err)
	}
	if thumbnailPath != "" {
		result.ThumbnailURL, err = w.blobs.UploadFile(ctx, thumbnailPath, path.Join(prefix, thumbnailFileName), "")
		if err != nil {
			return nil, abortUpload("thumbnail", err)
		}
	}
	if err := w.blobs.UploadDir(ctx, hlsDir, path.Join(prefix, hlsDirName)); err != nil {
		return nil, abortUpload("hls rendition", err)
	}
	result.StreamURL = w.blobs.PublicURL(path.Join(prefix, hlsDirName, playlistName))
	result.AudioURL, err = w.blobs.UploadFile(ctx, audioPath, path.Join(prefix, audioFileName), "")
	if err != nil {
		return nil, abortUpload("audio", err)
	}

	// 7. Finalize.
	notify(StageFinalize)
	if err := w.records.Finalize(ctx, recordID, store.FinalizeParams{
		RawURL:       result.RawURL,
		AudioURL:     result.AudioURL,
		ThumbnailURL: result.ThumbnailURL,
		StreamURL:    result.StreamURL,
	}); err != nil {
		return nil, services.Wrap(services.ErrTransient, StageFinalize, "store", "", err)
	}
	if err := w.blobs.UploadJSON(ctx, path.Join(prefix, metadataName), buildMetadata(req, recordID, result)); err != nil {
		return nil, services.Wrap(services.ErrTransient, StageFinalize, "storage", "metadata sidecar", err)
	}

	log.Info("item published",
		logging.String("record_id", recordID),
		logging.String("stream_url", result.StreamURL),
	)
	return result, nil
}

func (w *Worker) fetchThumbnail(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build thumbnail request: %w", err)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch thumbnail: status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create thumbnail file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("write thumbnail: %w", err)
	}
	return out.Close()
}

func itemDirName(cand source.Candidate) string {
	name := fileutil.SanitizeID(cand.Platform + "_" + cand.ID)
	if name == "" {
		name = "item"
	}
	return name
}

func performerID(performer *store.Performer) string {
	if performer == nil {
		return ""
	}
	return performer.ID
}

// Metadata is the sidecar object uploaded next to the media.
type Metadata struct {
	ID            string    `json:"id"`
	Hash          string    `json:"hash"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	PerformerHash string    `json:"performerHash,omitempty"`
	PerformerName string    `json:"performerName,omitempty"`
	Type          string    `json:"type"`
	Duration      int       `json:"duration"`
	OriginalDate  time.Time `json:"originalDate"`
	Categories    []string  `json:"categories,omitempty"`
	Source        string    `json:"source"`
	ExternalID    string    `json:"externalId"`
	ExternalURL   string    `json:"externalUrl"`
	RawURL        string    `json:"rawUrl,omitempty"`
	AudioURL      string    `json:"audioUrl,omitempty"`
	ThumbnailURL  string    `json:"thumbnailUrl,omitempty"`
	StreamURL     string    `json:"streamUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func buildMetadata(req Request, recordID string, result *Result) Metadata {
	meta := Metadata{
		ID:           recordID,
		Hash:         req.DedupKey,
		Title:        req.Candidate.Title,
		Description:  req.Candidate.Description,
		Type:         store.TypeVideo,
		Duration:     req.Candidate.DurationSeconds,
		OriginalDate: req.Candidate.PublishedAt,
		Categories:   req.CategoryIDs,
		Source:       req.Candidate.Platform,
		ExternalID:   req.Candidate.ID,
		ExternalURL:  req.Candidate.SourceURL,
		RawURL:       result.RawURL,
		AudioURL:     result.AudioURL,
		ThumbnailURL: result.ThumbnailURL,
		StreamURL:    result.StreamURL,
		CreatedAt:    time.Now().UTC(),
	}
	if req.Performer != nil {
		meta.PerformerHash = req.Performer.DedupKey
		meta.PerformerName = req.Performer.Name
	}
	return meta
}
