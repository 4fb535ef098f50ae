// Package progress carries per-session import progress events from the
// pipeline to subscribers.
package progress

// Status identifies the event variant.
type Status string

const (
	StatusStarting     Status = "starting"
	StatusIDsFetched   Status = "ids-fetched"
	StatusFetchingInfo Status = "fetching-info"
	StatusVideoAdded   Status = "video-added"
	StatusChecking     Status = "checking"
	StatusDownloading  Status = "downloading"
	StatusProcessing   Status = "processing"
	StatusCompleted    Status = "completed"
	StatusSkipped      Status = "skipped"
	StatusFailed       Status = "failed"
	StatusDone         Status = "done"
	StatusError        Status = "error"
)

// Event is one progress update. Fields are populated per variant; the wire
// shape is flat so SSE consumers can switch on status alone.
type Event struct {
	Status     Status  `json:"status"`
	Total      int     `json:"total,omitempty"`
	Current    int     `json:"current,omitempty"`
	Video      string  `json:"video,omitempty"`
	VideoID    string  `json:"videoId,omitempty"`
	VideoIndex int     `json:"videoIndex,omitempty"`
	Stage      string  `json:"stage,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Error      string  `json:"error,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
	Downloaded *int    `json:"downloaded,omitempty"`
	Skipped    *int    `json:"skipped,omitempty"`
	Failed     *int    `json:"failed,omitempty"`
}

// Terminal reports whether the event ends its session.
func (e Event) Terminal() bool {
	return e.Status == StatusDone || e.Status == StatusError
}

// Starting builds the run-started event.
func Starting() Event {
	return Event{Status: StatusStarting}
}

// IDsFetched reports how many items the listing produced.
func IDsFetched(total int) Event {
	return Event{Status: StatusIDsFetched, Total: total}
}

// FetchingInfo reports metadata resolution position.
func FetchingInfo(current, total int) Event {
	return Event{Status: StatusFetchingInfo, Current: current, Total: total}
}

// VideoAdded reports a candidate entering the processing queue.
func VideoAdded(title, videoID string) Event {
	return Event{Status: StatusVideoAdded, Video: title, VideoID: videoID}
}

// ItemStage reports a per-item stage transition. status is one of checking,
// downloading, or processing.
func ItemStage(status Status, title, videoID, stage string, index, total int) Event {
	event := Event{
		Status:     status,
		Video:      title,
		VideoID:    videoID,
		Stage:      stage,
		VideoIndex: index,
		Total:      total,
	}
	if total > 0 {
		event.Percentage = float64(index) / float64(total) * 100
	}
	return event
}

// Completed reports a finished item.
func Completed(title, videoID string, index, total int) Event {
	return Event{Status: StatusCompleted, Video: title, VideoID: videoID, VideoIndex: index, Total: total}
}

// Skipped reports a filtered item and why.
func Skipped(title, videoID, reason string) Event {
	return Event{Status: StatusSkipped, Video: title, VideoID: videoID, Reason: reason}
}

// Failed reports a per-item failure.
func Failed(title, videoID, cause string) Event {
	return Event{Status: StatusFailed, Video: title, VideoID: videoID, Error: cause}
}

// Done builds the successful terminal event with final counts.
func Done(downloaded, skipped, failed int) Event {
	return Event{
		Status:     StatusDone,
		Downloaded: &downloaded,
		Skipped:    &skipped,
		Failed:     &failed,
	}
}

// ErrorEvent builds the failed terminal event.
func ErrorEvent(message string) Event {
	return Event{Status: StatusError, Error: message}
}
