package api

import "time"

// StartImportRequest begins a playlist import run.
type StartImportRequest struct {
	SessionID          string   `json:"sessionId,omitempty"`
	Locator            string   `json:"locator"`
	PerformerID        string   `json:"performerId"`
	CategoryIDs        []string `json:"categoryIds,omitempty"`
	MaxDurationMinutes int      `json:"maxDurationMinutes,omitempty"`
	MaxItems           int      `json:"maxItems,omitempty"`
	SkipExisting       *bool    `json:"skipExisting,omitempty"`
	CancelledIDs       []string `json:"cancelledIds,omitempty"`
}

// StartImportResponse returns the session token for progress subscription.
type StartImportResponse struct {
	SessionID string `json:"sessionId"`
}

// ImportVideoRequest imports a single item synchronously.
type ImportVideoRequest struct {
	Locator     string   `json:"locator"`
	PerformerID string   `json:"performerId"`
	CategoryIDs []string `json:"categoryIds,omitempty"`
}

// ImportVideoResponse reports the published artifacts.
type ImportVideoResponse struct {
	RecordID     string `json:"recordId"`
	RawURL       string `json:"rawUrl,omitempty"`
	AudioURL     string `json:"audioUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	StreamURL    string `json:"streamUrl,omitempty"`
}

// ContentItem is one persisted record in list responses.
type ContentItem struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Type            string    `json:"type"`
	DurationSeconds int       `json:"durationSeconds"`
	Processed       bool      `json:"processed"`
	Uploaded        bool      `json:"uploaded"`
	Source          string    `json:"source,omitempty"`
	ExternalID      string    `json:"externalId,omitempty"`
	StreamURL       string    `json:"streamUrl,omitempty"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ContentListResponse wraps content listings.
type ContentListResponse struct {
	Items []ContentItem `json:"items"`
}

// PruneResponse reports placeholder reconciliation results.
type PruneResponse struct {
	Pruned int64 `json:"pruned"`
}

// StatusResponse reports daemon and store health.
type StatusResponse struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	DatabasePath   string `json:"databasePath"`
	LiveSessions   int    `json:"liveSessions"`
	TotalRecords   int64  `json:"totalRecords"`
	ProcessedCount int64  `json:"processedCount"`
	Placeholders   int64  `json:"placeholders"`
	Performers     int64  `json:"performers"`
}
