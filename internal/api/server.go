// Package api exposes the daemon's HTTP surface: import control, progress
// streaming, and content listings.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipsync/internal/logging"
	"clipsync/internal/pipeline"
	"clipsync/internal/progress"
	"clipsync/internal/store"
	"clipsync/internal/worker"
)

const (
	// scheduleDelay gives subscribers time to attach to a freshly
	// registered session before events start flowing.
	scheduleDelay = 100 * time.Millisecond

	// defaultSessionPoll and defaultSessionWait bound how long the SSE
	// relay waits for a session to appear before giving up.
	defaultSessionPoll = 100 * time.Millisecond
	defaultSessionWait = 5 * time.Second
)

// Importer runs playlist and single-item imports.
type Importer interface {
	Run(ctx context.Context, locator, performerID string, opts pipeline.Options) (pipeline.Summary, error)
	ImportSingle(ctx context.Context, locator, performerID string, categoryIDs []string) (*worker.Result, error)
}

// ContentStore is the read and maintenance surface the API needs.
type ContentStore interface {
	ListContent(ctx context.Context, limit int) ([]*store.ContentRecord, error)
	PruneStalePlaceholders(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// Server serves the HTTP API.
type Server struct {
	bind       string
	hub        *progress.Hub
	importer   Importer
	contents   ContentStore
	staleAfter time.Duration
	dbPath     string
	logger     *slog.Logger

	sessionPoll time.Duration
	sessionWait time.Duration

	mux      *http.ServeMux
	listener net.Listener
	server   *http.Server

	// baseCtx scopes background import runs so shutdown cancels them.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New constructs the API server. logger may be nil.
func New(bind string, hub *progress.Hub, importer Importer, contents ContentStore, staleAfter time.Duration, dbPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		bind:        strings.TrimSpace(bind),
		hub:         hub,
		importer:    importer,
		contents:    contents,
		staleAfter:  staleAfter,
		dbPath:      dbPath,
		logger:      logger,
		sessionPoll: defaultSessionPoll,
		sessionWait: defaultSessionWait,
		mux:         http.NewServeMux(),
		baseCtx:     ctx,
		cancel:      cancel,
	}

	s.mux.HandleFunc("/api/imports", s.handleImports)
	s.mux.HandleFunc("/api/imports/video", s.handleImportVideo)
	s.mux.HandleFunc("/api/imports/progress/", s.handleProgress)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/content", s.handleContent)
	s.mux.HandleFunc("/api/content/prune-stale", s.handlePruneStale)

	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start begins serving until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down and cancels background runs.
func (s *Server) Stop() {
	s.cancel()
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req StartImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Locator) == "" {
		s.writeError(w, http.StatusBadRequest, "locator required")
		return
	}
	if strings.TrimSpace(req.PerformerID) == "" {
		s.writeError(w, http.StatusBadRequest, "performerId required")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// The session must exist before work is scheduled so a subscriber
	// attaching right after this response never misses the run.
	if _, err := s.hub.Register(sessionID); err != nil {
		if errors.Is(err, progress.ErrSessionExists) {
			s.writeError(w, http.StatusConflict, "session already active")
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cancelled := make(map[string]struct{}, len(req.CancelledIDs))
	for _, id := range req.CancelledIDs {
		cancelled[id] = struct{}{}
	}
	opts := pipeline.Options{
		CategoryIDs:        req.CategoryIDs,
		MaxDurationMinutes: req.MaxDurationMinutes,
		MaxItems:           req.MaxItems,
		SkipExisting:       req.SkipExisting,
		Cancelled:          cancelled,
		OnProgress: func(event progress.Event) {
			s.hub.Publish(sessionID, event)
		},
	}

	go func() {
		timer := time.NewTimer(scheduleDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-s.baseCtx.Done():
			s.hub.Publish(sessionID, progress.ErrorEvent("daemon shutting down"))
			return
		}
		if _, err := s.importer.Run(s.baseCtx, req.Locator, req.PerformerID, opts); err != nil {
			s.logger.Warn("import run failed",
				logging.String("session_id", sessionID),
				logging.Error(err),
			)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, StartImportResponse{SessionID: sessionID})
}

func (s *Server) handleImportVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ImportVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Locator) == "" || strings.TrimSpace(req.PerformerID) == "" {
		s.writeError(w, http.StatusBadRequest, "locator and performerId required")
		return
	}

	result, err := s.importer.ImportSingle(r.Context(), req.Locator, req.PerformerID, req.CategoryIDs)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, ImportVideoResponse{
		RecordID:     result.RecordID,
		RawURL:       result.RawURL,
		AudioURL:     result.AudioURL,
		ThumbnailURL: result.ThumbnailURL,
		StreamURL:    result.StreamURL,
	})
}

// handleProgress relays a session's events as server-sent events. The
// session may not exist yet when the subscriber connects; the relay polls
// for it before giving up with a synthetic error event.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/imports/progress/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	session, found := s.waitForSession(r.Context(), sessionID)
	if !found {
		writeSSE(w, progress.ErrorEvent("session not found"))
		flusher.Flush()
		return
	}

	for {
		select {
		case event, open := <-session.Events():
			if !open {
				return
			}
			writeSSE(w, event)
			flusher.Flush()
			if event.Terminal() {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) waitForSession(ctx context.Context, sessionID string) (*progress.Session, bool) {
	deadline := time.Now().Add(s.sessionWait)
	for {
		if session, ok := s.hub.Get(sessionID); ok {
			return session, true
		}
		if time.Now().After(deadline) {
			return nil, false
		}
		select {
		case <-time.After(s.sessionPoll):
		case <-ctx.Done():
			return nil, false
		}
	}
}

func writeSSE(w http.ResponseWriter, event progress.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.contents.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Running:        true,
		PID:            os.Getpid(),
		DatabasePath:   s.dbPath,
		LiveSessions:   s.hub.Len(),
		TotalRecords:   stats.TotalRecords,
		ProcessedCount: stats.ProcessedCount,
		Placeholders:   stats.PlaceholderCount,
		Performers:     stats.PerformerCount,
	})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.contents.ListContent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	items := make([]ContentItem, 0, len(records))
	for _, record := range records {
		items = append(items, ContentItem{
			ID:              record.ID,
			Title:           record.Title,
			Type:            record.Type,
			DurationSeconds: record.DurationSeconds,
			Processed:       record.Processed,
			Uploaded:        record.Uploaded,
			Source:          record.Source,
			ExternalID:      record.ExternalID,
			StreamURL:       record.StreamURL,
			ThumbnailURL:    record.ThumbnailURL,
			CreatedAt:       record.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, ContentListResponse{Items: items})
}

func (s *Server) handlePruneStale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cutoff := time.Now().Add(-s.staleAfter)
	pruned, err := s.contents.PruneStalePlaceholders(r.Context(), cutoff)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, PruneResponse{Pruned: pruned})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
