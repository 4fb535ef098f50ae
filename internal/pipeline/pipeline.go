// Package pipeline coordinates playlist imports: listing, metadata
// resolution, filtering, and per-item processing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"clipsync/internal/config"
	"clipsync/internal/dedup"
	"clipsync/internal/logging"
	"clipsync/internal/progress"
	"clipsync/internal/source"
	"clipsync/internal/store"
	"clipsync/internal/worker"
)

// queueCapacity bounds how far metadata resolution may run ahead of
// processing.
const queueCapacity = 16

// Skip reasons reported on skipped events.
const (
	ReasonCancelled     = "cancelled"
	ReasonTooLong       = "too-long"
	ReasonAlreadyExists = "already-exists"
)

// ErrNoItems is returned when the adapter lists nothing for a locator.
var ErrNoItems = errors.New("no items found for locator")

// Selector picks the adapter for a locator.
type Selector interface {
	Select(locator string) (source.Adapter, error)
}

// RecordStore is the store surface the coordinator needs.
type RecordStore interface {
	GetPerformer(ctx context.Context, id string) (*store.Performer, error)
	DedupKeyExists(ctx context.Context, key string) (bool, error)
}

// Processor runs the per-item state machine.
type Processor interface {
	Process(ctx context.Context, req worker.Request, onStage func(stage string)) (*worker.Result, error)
}

// Options tunes one run.
type Options struct {
	CategoryIDs        []string
	MaxDurationMinutes int
	MaxItems           int
	// SkipExisting defaults to true when nil.
	SkipExisting *bool
	Cancelled    map[string]struct{}
	OnProgress   func(progress.Event)
	// InterItemDelay overrides the randomized pause between items,
	// primarily for tests.
	InterItemDelay func(failed bool) time.Duration
}

// ItemOutcome is the per-item record in a run summary.
type ItemOutcome struct {
	ID       string
	Title    string
	Status   progress.Status
	Reason   string
	RecordID string
}

// Summary reports the final counts for one run.
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
	Items      []ItemOutcome
}

// Coordinator drives the two concurrent stages of a playlist import.
type Coordinator struct {
	selector Selector
	records  RecordStore
	proc     Processor
	imports  config.Import
	logger   *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New constructs a coordinator. logger may be nil.
func New(selector Selector, records RecordStore, proc Processor, imports config.Import, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		selector: selector,
		records:  records,
		proc:     proc,
		imports:  imports,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// queued is one listing entry flowing from metadata resolution to
// processing. A non-nil err marks a fetch failure that still consumes a
// queue slot so counts stay consistent.
type queued struct {
	index int
	id    string
	cand  source.Candidate
	err   error
}

// Run imports a playlist. Every progress event for the run, including
// exactly one terminal event, is delivered through opts.OnProgress; the
// returned summary carries the same counts.
func (c *Coordinator) Run(ctx context.Context, locator, performerID string, opts Options) (Summary, error) {
	emit := opts.OnProgress
	if emit == nil {
		emit = func(progress.Event) {}
	}
	maxDuration := opts.MaxDurationMinutes
	if maxDuration <= 0 {
		maxDuration = c.imports.MaxDurationMinutes
	}
	skipExisting := true
	if opts.SkipExisting != nil {
		skipExisting = *opts.SkipExisting
	}
	delay := opts.InterItemDelay
	if delay == nil {
		delay = c.randomDelay
	}

	emit(progress.Starting())

	fail := func(err error) (Summary, error) {
		emit(progress.ErrorEvent(err.Error()))
		return Summary{}, err
	}

	adapter, err := c.selector.Select(locator)
	if err != nil {
		return fail(err)
	}
	performer, err := c.records.GetPerformer(ctx, performerID)
	if err != nil {
		return fail(fmt.Errorf("resolve performer: %w", err))
	}

	log := c.logger.With(
		logging.String("platform", adapter.Name()),
		logging.String("performer", performer.Name),
	)

	// Stage 0: listing must finish before anything else starts since it
	// fixes the total used for percentage reporting.
	ids, err := adapter.ListIDs(ctx, locator, opts.MaxItems)
	if err != nil {
		return fail(fmt.Errorf("list items: %w", err))
	}
	if len(ids) == 0 {
		return fail(fmt.Errorf("%w: %s", ErrNoItems, locator))
	}
	total := len(ids)
	emit(progress.IDsFetched(total))
	log.Info("listing complete", logging.Int("total", total))

	// Stage 1: resolve metadata ahead of processing, bounded by the queue.
	queue := make(chan queued, queueCapacity)
	go func() {
		defer close(queue)
		for i, id := range ids {
			emit(progress.FetchingInfo(i+1, total))
			cand, err := adapter.FetchInfo(ctx, id)
			if err == nil {
				emit(progress.VideoAdded(cand.Title, cand.ID))
			}
			select {
			case queue <- queued{index: i + 1, id: id, cand: cand, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Stage 2: consume in listing order, filter, process.
	summary := Summary{}
	for entry := range queue {
		if ctx.Err() != nil {
			break
		}
		outcome := c.processEntry(ctx, entry, performer, opts, maxDuration, skipExisting, total, emit, log)
		summary.Items = append(summary.Items, outcome)
		switch outcome.Status {
		case progress.StatusCompleted:
			summary.Downloaded++
			c.pause(ctx, delay(false))
		case progress.StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
			if entry.err == nil {
				c.pause(ctx, delay(true))
			}
		}
	}

	if err := ctx.Err(); err != nil {
		emit(progress.ErrorEvent(err.Error()))
		return summary, err
	}

	emit(progress.Done(summary.Downloaded, summary.Skipped, summary.Failed))
	log.Info("run complete",
		logging.Int("downloaded", summary.Downloaded),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (c *Coordinator) processEntry(
	ctx context.Context,
	entry queued,
	performer *store.Performer,
	opts Options,
	maxDurationMinutes int,
	skipExisting bool,
	total int,
	emit func(progress.Event),
	log *slog.Logger,
) ItemOutcome {
	if entry.err != nil {
		log.Warn("metadata fetch failed", logging.String("video_id", entry.id), logging.Error(entry.err))
		emit(progress.Failed(entry.id, entry.id, entry.err.Error()))
		return ItemOutcome{ID: entry.id, Title: entry.id, Status: progress.StatusFailed, Reason: entry.err.Error()}
	}

	cand := entry.cand
	emit(progress.ItemStage(progress.StatusChecking, cand.Title, cand.ID, "filter", entry.index, total))

	if _, ok := opts.Cancelled[cand.ID]; ok {
		emit(progress.Skipped(cand.Title, cand.ID, ReasonCancelled))
		return ItemOutcome{ID: cand.ID, Title: cand.Title, Status: progress.StatusSkipped, Reason: ReasonCancelled}
	}

	// Durations exactly at the ceiling are accepted.
	if cand.DurationSeconds > maxDurationMinutes*60 {
		emit(progress.Skipped(cand.Title, cand.ID, ReasonTooLong))
		return ItemOutcome{ID: cand.ID, Title: cand.Title, Status: progress.StatusSkipped, Reason: ReasonTooLong}
	}

	contentKey := dedup.ContentKey(cand.Title, performer.DedupKey)
	if skipExisting {
		exists, err := c.records.DedupKeyExists(ctx, contentKey)
		if err != nil {
			emit(progress.Failed(cand.Title, cand.ID, err.Error()))
			return ItemOutcome{ID: cand.ID, Title: cand.Title, Status: progress.StatusFailed, Reason: err.Error()}
		}
		if exists {
			emit(progress.Skipped(cand.Title, cand.ID, ReasonAlreadyExists))
			return ItemOutcome{ID: cand.ID, Title: cand.Title, Status: progress.StatusSkipped, Reason: ReasonAlreadyExists}
		}
	}

	result, err := c.proc.Process(ctx, worker.Request{
		Candidate:   cand,
		Performer:   performer,
		CategoryIDs: opts.CategoryIDs,
		DedupKey:    contentKey,
	}, func(stage string) {
		status := progress.StatusProcessing
		if stage == worker.StageDownload {
			status = progress.StatusDownloading
		}
		emit(progress.ItemStage(status, cand.Title, cand.ID, stage, entry.index, total))
	})
	if err != nil {
		log.Warn("item failed", logging.String("video_id", cand.ID), logging.Error(err))
		emit(progress.Failed(cand.Title, cand.ID, err.Error()))
		return ItemOutcome{ID: cand.ID, Title: cand.Title, Status: progress.StatusFailed, Reason: err.Error()}
	}

	emit(progress.Completed(cand.Title, cand.ID, entry.index, total))
	return ItemOutcome{ID: cand.ID, Title: cand.Title, Status: progress.StatusCompleted, RecordID: result.RecordID}
}

// ImportSingle imports one item synchronously, outside any session.
func (c *Coordinator) ImportSingle(ctx context.Context, locator, performerID string, categoryIDs []string) (*worker.Result, error) {
	adapter, err := c.selector.Select(locator)
	if err != nil {
		return nil, err
	}
	id, err := source.ItemID(locator)
	if err != nil {
		return nil, err
	}
	performer, err := c.records.GetPerformer(ctx, performerID)
	if err != nil {
		return nil, fmt.Errorf("resolve performer: %w", err)
	}
	cand, err := adapter.FetchInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	contentKey := dedup.ContentKey(cand.Title, performer.DedupKey)
	exists, err := c.records.DedupKeyExists(ctx, contentKey)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("item %s already imported", cand.ID)
	}
	return c.proc.Process(ctx, worker.Request{
		Candidate:   cand,
		Performer:   performer,
		CategoryIDs: categoryIDs,
		DedupKey:    contentKey,
	}, nil)
}

func (c *Coordinator) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// randomDelay picks the inter-item pause: longer after a success so back to
// back downloads stay spread out, shorter after a failure.
func (c *Coordinator) randomDelay(failed bool) time.Duration {
	minSec, maxSec := c.imports.DelayMinSeconds, c.imports.DelayMaxSeconds
	if failed {
		minSec, maxSec = c.imports.FailureDelayMinSeconds, c.imports.FailureDelayMaxSeconds
	}
	if maxSec < minSec {
		maxSec = minSec
	}
	span := maxSec - minSec + 1
	c.rngMu.Lock()
	offset := c.rng.Intn(span)
	c.rngMu.Unlock()
	return time.Duration(minSec+offset) * time.Second
}
