package steam

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/desertthunder/amdu/internal/shared"
)

// MaxQueryItems is the largest id list a single details query accepts.
const MaxQueryItems = 100

// CommunityItemURL is the public page for a workshop item.
const CommunityItemURL = "https://steamcommunity.com/sharedfiles/filedetails/?id="

// PublishedFileID identifies a workshop item.
type PublishedFileID uint64

func (id PublishedFileID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// AppID identifies a Steam application.
type AppID uint32

// QueryResult holds the details of one item returned by a details query.
type QueryResult struct {
	PublishedFileID PublishedFileID
	Title           string
	URL             string
	Tags            []string
	FileSize        uint64
	TimeUpdated     time.Time
}

// InstallInfo is the local install state of a subscribed item.
type InstallInfo struct {
	Folder     string
	SizeOnDisk uint64
	TimeStamp  time.Time
}

// Client is the callback-driven workshop service.
//
// Query and unsubscribe callbacks never run on the submitting goroutine; they run inside RunCallbacks.
type Client interface {
	// RunCallbacks delivers every queued callback on the calling goroutine.
	RunCallbacks()
	// SubscribedItems returns the locally cached subscription list.
	SubscribedItems() []PublishedFileID
	// ItemInstallInfo reports local install state. ok is false for items not installed.
	ItemInstallInfo(id PublishedFileID) (info InstallInfo, ok bool)
	// QueryItems submits a details query. A non-nil return means the request was never submitted
	// and cb will not be called.
	QueryItems(ids []PublishedFileID, cb func([]QueryResult, error)) error
	// UnsubscribeItem submits an unsubscribe request; cb receives the outcome.
	UnsubscribeItem(id PublishedFileID, cb func(error))
	Close() error
}

// Error is a failure reported by the service for one request.
type Error struct {
	Op     string
	Status int
	Msg    string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("steam %s: status %d: %s", e.Op, e.Status, e.Msg)
	}
	return fmt.Sprintf("steam %s: %s", e.Op, e.Msg)
}

func (e *Error) Is(target error) bool {
	return target == shared.ErrRemote
}

// CallbackQueue buffers callbacks until they are pumped.
//
// Pushes after Close are dropped.
type CallbackQueue struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
}

// Push queues fn and reports whether it was accepted.
func (q *CallbackQueue) Push(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, fn)
	return true
}

// Run drains the queue on the calling goroutine. Callbacks queued while draining run on the next call.
//
// If a callback panics, the callbacks after it are put back at the front of the queue before the
// panic propagates.
func (q *CallbackQueue) Run() {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for i, fn := range batch {
		q.runOne(fn, batch[i+1:])
	}
}

func (q *CallbackQueue) runOne(fn func(), rest []func()) {
	defer func() {
		if r := recover(); r != nil {
			q.requeue(rest)
			panic(r)
		}
	}()
	fn()
}

func (q *CallbackQueue) requeue(fns []func()) {
	if len(fns) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending = append(append([]func(){}, fns...), q.pending...)
}

// Len returns the number of queued callbacks.
func (q *CallbackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close discards queued callbacks and rejects further pushes.
func (q *CallbackQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.pending = nil
}
