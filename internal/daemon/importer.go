package daemon

import (
	"context"
	"log/slog"
	"time"

	"clipsync/internal/logging"
	"clipsync/internal/notifications"
	"clipsync/internal/pipeline"
	"clipsync/internal/store"
	"clipsync/internal/worker"
)

// notifyingImporter decorates the coordinator with push notifications for
// run lifecycle events. Notification failures are logged, never fatal.
type notifyingImporter struct {
	coordinator *pipeline.Coordinator
	notifier    notifications.Service
	records     *store.Store
	logger      *slog.Logger
}

func (n *notifyingImporter) Run(ctx context.Context, locator, performerID string, opts pipeline.Options) (pipeline.Summary, error) {
	if err := n.notifier.NotifyImportStarted(ctx, locator); err != nil {
		n.logger.Warn("import started notification", logging.Error(err))
	}

	start := time.Now()
	summary, err := n.coordinator.Run(ctx, locator, performerID, opts)
	if err != nil {
		if nerr := n.notifier.NotifyImportFailed(ctx, locator, err); nerr != nil {
			n.logger.Warn("import failed notification", logging.Error(nerr))
		}
		return summary, err
	}

	if nerr := n.notifier.NotifyImportCompleted(ctx, summary.Downloaded, summary.Skipped, summary.Failed, time.Since(start)); nerr != nil {
		n.logger.Warn("import completed notification", logging.Error(nerr))
	}
	return summary, nil
}

func (n *notifyingImporter) ImportSingle(ctx context.Context, locator, performerID string, categoryIDs []string) (*worker.Result, error) {
	result, err := n.coordinator.ImportSingle(ctx, locator, performerID, categoryIDs)
	if err != nil {
		return nil, err
	}

	title := result.RecordID
	if record, lookupErr := n.records.GetContent(ctx, result.RecordID); lookupErr == nil {
		title = record.Title
	}
	if nerr := n.notifier.NotifyVideoPublished(ctx, title, result.StreamURL); nerr != nil {
		n.logger.Warn("video published notification", logging.Error(nerr))
	}
	return result, nil
}
