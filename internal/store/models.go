package store

import "time"

// Content types persisted in content_records.type.
const (
	TypeVideo = "video"
	TypeAudio = "audio"
)

// ContentRecord is one imported item. A placeholder row is inserted at
// register time to obtain a stable id, then updated in place once all
// artifacts are uploaded.
type ContentRecord struct {
	ID              string
	Title           string
	Description     string
	Type            string
	DurationSeconds int
	OriginalDate    time.Time
	Processed       bool
	Uploaded        bool
	RawURL          string
	AudioURL        string
	ThumbnailURL    string
	StreamURL       string
	Source          string
	ExternalID      string
	ExternalURL     string
	PerformerID     string
	DedupKey        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Performer is the minimal performer row the dedup service needs.
type Performer struct {
	ID        string
	Name      string
	DedupKey  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stats summarizes store contents for the status surfaces.
type Stats struct {
	TotalRecords     int64
	ProcessedCount   int64
	PlaceholderCount int64
	PerformerCount   int64
}
