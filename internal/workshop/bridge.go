package workshop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/desertthunder/amdu/internal/steam"
)

// RemoteError is a failure reported by the service for one bridge call.
type RemoteError struct {
	Op  string
	ID  models.ItemID
	Err error
}

func (e *RemoteError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == shared.ErrRemote }

type outcome[T any] struct {
	val T
	err error
}

// Future is the pending result of one bridge call.
type Future[T any] struct {
	ch   chan outcome[T]
	once sync.Once
	done <-chan struct{}
}

func newFuture[T any](done <-chan struct{}) *Future[T] {
	return &Future[T]{ch: make(chan outcome[T], 1), done: done}
}

// resolve delivers the first result and ignores the rest. It never blocks.
func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		select {
		case f.ch <- outcome[T]{val: v, err: err}:
		default:
		}
	})
}

// Wait blocks until the result arrives, ctx ends, or the owning [Workshop] shuts down.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	select {
	case r := <-f.ch:
		f.keep(r)
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-f.done:
		select {
		case r := <-f.ch:
			f.keep(r)
			return r.val, r.err
		default:
			return zero, shared.ErrHandleClosed
		}
	}
}

// keep puts a received result back so later Wait calls see it too.
func (f *Future[T]) keep(r outcome[T]) {
	select {
	case f.ch <- r:
	default:
	}
}

// QueryItemsAsync submits one details query for ids.
func (w *Workshop) QueryItemsAsync(ids []models.ItemID) *Future[[]models.RemoteItem] {
	f := newFuture[[]models.RemoteItem](w.done)
	if w.closed() {
		f.resolve(nil, shared.ErrHandleClosed)
		return f
	}
	if len(ids) == 0 || len(ids) > steam.MaxQueryItems {
		f.resolve(nil, fmt.Errorf("%w: query takes 1 to %d ids, got %d", shared.ErrSubmissionRejected, steam.MaxQueryItems, len(ids)))
		return f
	}

	sids := make([]steam.PublishedFileID, len(ids))
	for i, id := range ids {
		sids[i] = steam.PublishedFileID(id)
	}

	err := w.client.QueryItems(sids, func(results []steam.QueryResult, err error) {
		if err != nil {
			f.resolve(nil, &RemoteError{Op: "query", Err: err})
			return
		}
		f.resolve(toRemoteItems(results), nil)
	})
	if err != nil {
		if !errors.Is(err, shared.ErrSubmissionRejected) {
			err = fmt.Errorf("%w: %v", shared.ErrSubmissionRejected, err)
		}
		w.logger.Warn("query submission rejected", "ids", len(ids), "error", err)
		f.resolve(nil, err)
	}
	return f
}

// QueryItems runs a details query and waits for its result.
func (w *Workshop) QueryItems(ctx context.Context, ids []models.ItemID) ([]models.RemoteItem, error) {
	return w.QueryItemsAsync(ids).Wait(ctx)
}

// UnsubscribeAsync submits an unsubscribe request for id.
func (w *Workshop) UnsubscribeAsync(id models.ItemID) *Future[struct{}] {
	f := newFuture[struct{}](w.done)
	if w.closed() {
		f.resolve(struct{}{}, shared.ErrHandleClosed)
		return f
	}

	w.client.UnsubscribeItem(steam.PublishedFileID(id), func(err error) {
		if err != nil {
			f.resolve(struct{}{}, &RemoteError{Op: "unsubscribe", ID: id, Err: err})
			return
		}
		f.resolve(struct{}{}, nil)
	})
	return f
}

// Unsubscribe removes the subscription to id and waits for the outcome.
func (w *Workshop) Unsubscribe(ctx context.Context, id models.ItemID) error {
	_, err := w.UnsubscribeAsync(id).Wait(ctx)
	return err
}

// FetchSubscribed returns every subscribed item with details and local size.
//
// Items the service returns no details for are still listed, named by id, so they can be removed.
func (w *Workshop) FetchSubscribed(ctx context.Context) ([]models.RemoteItem, error) {
	ids := w.SubscribedIDs()
	if len(ids) == 0 {
		return []models.RemoteItem{}, nil
	}

	found := make(map[models.ItemID]models.RemoteItem, len(ids))
	for start := 0; start < len(ids); start += steam.MaxQueryItems {
		end := min(start+steam.MaxQueryItems, len(ids))
		items, err := w.QueryItems(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch subscribed items: %w", err)
		}
		for _, it := range items {
			found[it.ID] = it
		}
	}

	items := make([]models.RemoteItem, 0, len(ids))
	for _, id := range ids {
		it, ok := found[id]
		if !ok {
			it = models.RemoteItem{ID: id, Name: fmt.Sprintf("Unavailable item %s", id), URL: steam.CommunityItemURL + id.String()}
		}
		if size, ok := w.InstallSize(id); ok {
			it.LocalSizeBytes = size
		}
		items = append(items, it)
	}

	w.logger.Debug("fetched subscribed items", "count", len(items), "with_details", len(found))
	return items, nil
}

func toRemoteItems(results []steam.QueryResult) []models.RemoteItem {
	items := make([]models.RemoteItem, len(results))
	for i, r := range results {
		items[i] = models.RemoteItem{
			ID:   models.ItemID(r.PublishedFileID),
			Name: r.Title,
			URL:  r.URL,
			Tags: r.Tags,
		}
	}
	return items
}
