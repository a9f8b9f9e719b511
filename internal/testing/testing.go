// package testing contains shared testing utilities
package testing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/amdu/internal/shared"
	"github.com/desertthunder/amdu/internal/steam"
)

// FakeItem seeds a [FakeClient] with one subscribed item.
type FakeItem struct {
	ID   steam.PublishedFileID
	Name string
	Tags []string
	Size uint64
}

// FakeClient is an in-memory test double for [steam.Client].
//
// Callbacks are queued and delivered by RunCallbacks, like the real client. Set Hold to park
// callbacks instead so tests can deliver them late with DeliverHeld.
type FakeClient struct {
	mu         sync.Mutex
	items      map[steam.PublishedFileID]FakeItem
	subscribed []steam.PublishedFileID
	failures   map[steam.PublishedFileID]error
	held       []func()
	unsubbed   []steam.PublishedFileID
	queue      steam.CallbackQueue

	Hold          bool
	RejectQueries bool
	QueryErr      error

	Pumps  atomic.Int64
	Closes atomic.Int64
}

// NewFakeClient returns a client subscribed to items, in the given order.
func NewFakeClient(items ...FakeItem) *FakeClient {
	c := &FakeClient{
		items:    make(map[steam.PublishedFileID]FakeItem),
		failures: make(map[steam.PublishedFileID]error),
	}
	for _, it := range items {
		c.items[it.ID] = it
		c.subscribed = append(c.subscribed, it.ID)
	}
	return c
}

// FailUnsubscribe makes every unsubscribe of id fail with err.
func (c *FakeClient) FailUnsubscribe(id steam.PublishedFileID, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[id] = err
}

// Unsubscribed returns the ids unsubscribe was requested for, in call order.
func (c *FakeClient) Unsubscribed() []steam.PublishedFileID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.unsubbed)
}

// InjectPanic queues a callback that panics when pumped.
func (c *FakeClient) InjectPanic() {
	c.queue.Push(func() { panic("injected callback panic") })
}

// DeliverHeld runs every parked callback on the calling goroutine.
func (c *FakeClient) DeliverHeld() {
	c.mu.Lock()
	held := c.held
	c.held = nil
	c.mu.Unlock()
	for _, fn := range held {
		fn()
	}
}

// HeldCount returns the number of parked callbacks.
func (c *FakeClient) HeldCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.held)
}

func (c *FakeClient) deliver(fn func()) {
	c.mu.Lock()
	if c.Hold {
		c.held = append(c.held, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.queue.Push(fn)
}

func (c *FakeClient) RunCallbacks() {
	c.Pumps.Add(1)
	c.queue.Run()
}

func (c *FakeClient) SubscribedItems() []steam.PublishedFileID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.subscribed)
}

func (c *FakeClient) ItemInstallInfo(id steam.PublishedFileID) (steam.InstallInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok || it.Size == 0 {
		return steam.InstallInfo{}, false
	}
	return steam.InstallInfo{SizeOnDisk: it.Size}, true
}

func (c *FakeClient) QueryItems(ids []steam.PublishedFileID, cb func([]steam.QueryResult, error)) error {
	c.mu.Lock()
	if c.RejectQueries {
		c.mu.Unlock()
		return fmt.Errorf("%w: fake rejected", shared.ErrSubmissionRejected)
	}
	if len(ids) == 0 || len(ids) > steam.MaxQueryItems {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d ids", shared.ErrSubmissionRejected, len(ids))
	}

	qerr := c.QueryErr
	var results []steam.QueryResult
	for _, id := range ids {
		it, ok := c.items[id]
		if !ok {
			continue
		}
		results = append(results, steam.QueryResult{
			PublishedFileID: id,
			Title:           it.Name,
			URL:             steam.CommunityItemURL + id.String(),
			Tags:            slices.Clone(it.Tags),
			FileSize:        it.Size,
		})
	}
	c.mu.Unlock()

	if qerr != nil {
		c.deliver(func() { cb(nil, qerr) })
		return nil
	}
	c.deliver(func() { cb(results, nil) })
	return nil
}

func (c *FakeClient) UnsubscribeItem(id steam.PublishedFileID, cb func(error)) {
	c.mu.Lock()
	c.unsubbed = append(c.unsubbed, id)
	err := c.failures[id]
	if err == nil {
		c.subscribed = slices.DeleteFunc(c.subscribed, func(v steam.PublishedFileID) bool { return v == id })
	}
	c.mu.Unlock()

	c.deliver(func() { cb(err) })
}

func (c *FakeClient) Close() error {
	c.Closes.Add(1)
	c.queue.Close()
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// WritePreset writes a launcher preset export listing ids to dir/name and returns its path.
func WritePreset(t *testing.T, dir, name, presetName string, ids ...uint64) string {
	t.Helper()
	var rows string
	for _, id := range ids {
		rows += fmt.Sprintf(`<tr data-type="ModContainer"><td data-type="DisplayName">Mod %d</td>`+
			`<td><a href="https://steamcommunity.com/sharedfiles/filedetails/?id=%d" data-type="Link">link</a></td></tr>`+"\n", id, id)
	}
	html := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<html>
  <head>
    <meta name="arma:Type" content="preset" />
    <meta name="arma:PresetName" content="%s" />
  </head>
  <body>
    <h1>Arma 3 Mods</h1>
    <div class="mod-list">
      <table>
%s      </table>
    </div>
  </body>
</html>
`, presetName, rows)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		t.Fatalf("Failed to write preset %s: %v", path, err)
	}
	return path
}
