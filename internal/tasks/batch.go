package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/google/uuid"
)

// Remover removes one subscription and waits for the outcome.
type Remover interface {
	Unsubscribe(ctx context.Context, id models.ItemID) error
}

// BatchRecorder persists finished batches.
type BatchRecorder interface {
	RecordBatch(ctx context.Context, run models.BatchRun) error
}

// ItemFailure is one removal that failed.
type ItemFailure struct {
	ID  models.ItemID
	Err error
}

// BatchResult contains the outcome of one [BatchEngine.Execute] call.
type BatchResult struct {
	ID         uuid.UUID
	AppID      uint32
	Attempted  int           // Removals issued
	Succeeded  int           // Removals confirmed by the service
	Failures   []ItemFailure // Failed removals in issue order
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed returns the ids that could not be removed.
func (r *BatchResult) Failed() []models.ItemID {
	ids := make([]models.ItemID, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.ID
	}
	return ids
}

// Err summarises the failures as a [*BatchError], or returns nil when there were none.
func (r *BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &BatchError{Attempted: r.Attempted, Failures: r.Failures}
}

// Run converts the result into its persisted form.
func (r *BatchResult) Run() models.BatchRun {
	run := models.BatchRun{
		ID:         r.ID.String(),
		AppID:      r.AppID,
		Attempted:  r.Attempted,
		Succeeded:  r.Succeeded,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	for _, f := range r.Failures {
		run.Failures = append(run.Failures, models.BatchFailure{ID: f.ID, Error: f.Err.Error()})
	}
	return run
}

// BatchError reports the failed removals of a batch.
type BatchError struct {
	Attempted int
	Failures  []ItemFailure
}

func (e *BatchError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.ID, f.Err)
	}
	return fmt.Sprintf("%d of %d removals failed: %s", len(e.Failures), e.Attempted, strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// BatchEngine removes selections sequentially through a [Remover].
type BatchEngine struct {
	remover  Remover
	recorder BatchRecorder
	appID    uint32
	logger   *log.Logger
}

// NewBatchEngine creates a BatchEngine. recorder and logger may be nil.
func NewBatchEngine(remover Remover, recorder BatchRecorder, appID uint32, logger *log.Logger) *BatchEngine {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &BatchEngine{
		remover:  remover,
		recorder: recorder,
		appID:    appID,
		logger:   shared.WithLogger(logger, "component", "batch"),
	}
}

// Execute unsubscribes from selected in order, one request in flight at a time.
//
// progress is reset to len(selected) and advanced before each removal is issued. A failed removal is
// recorded and the batch continues. Cancelling ctx stops the batch before the next item; the partial
// result is returned together with the context error. The returned error is reserved for conditions
// that stopped the batch, per-item failures are in [BatchResult.Failures].
func (e *BatchEngine) Execute(ctx context.Context, selected []models.ItemID, progress *Progress, updates chan<- ProgressUpdate) (*BatchResult, error) {
	if e.remover == nil {
		return nil, fmt.Errorf("%w: workshop not initialized", shared.ErrServiceUnavailable)
	}
	if progress == nil {
		progress = &Progress{}
	}

	total := len(selected)
	result := &BatchResult{ID: uuid.New(), AppID: e.appID, StartedAt: time.Now().UTC()}
	progress.Reset(total)

	logger := shared.WithLogger(e.logger, "batch_id", result.ID.String())
	logger.Info("batch started", "items", total)
	sendProgress(updates, batchStartedUpdate(total))

	var stopErr error
	for i, id := range selected {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}

		step := i + 1
		progress.Advance()
		result.Attempted++
		sendProgress(updates, removingUpdate(step, total, id))

		err := e.remover.Unsubscribe(ctx, id)
		if err == nil {
			result.Succeeded++
			sendProgress(updates, removedUpdate(step, total, id))
			continue
		}

		result.Failures = append(result.Failures, ItemFailure{ID: id, Err: err})
		sendProgress(updates, removeFailedUpdate(step, total, id, err))
		logger.Warn("unsubscribe failed", "id", id, "error", err)

		if errors.Is(err, shared.ErrHandleClosed) {
			stopErr = err
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			stopErr = ctxErr
			break
		}
	}

	result.FinishedAt = time.Now().UTC()
	logger.Info("batch finished",
		"attempted", result.Attempted,
		"succeeded", result.Succeeded,
		"failed", len(result.Failures),
		"duration", result.FinishedAt.Sub(result.StartedAt))

	e.record(result, logger)
	return result, stopErr
}

// record persists result; failures are only logged.
func (e *BatchEngine) record(result *BatchResult, logger *log.Logger) {
	if e.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.recorder.RecordBatch(ctx, result.Run()); err != nil {
		logger.Warn("failed to record batch", "error", err)
	}
}
