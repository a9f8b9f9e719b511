package steam

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/amdu/internal/shared"
)

const testManifest = `"AppWorkshop"
{
	"appid"		"107410"
	"SizeOnDisk"		"3000"
	"WorkshopItemsInstalled"
	{
		"450814997"
		{
			"size"		"1000"
			"timeupdated"		"1700000000"
			"manifest"		"1"
		}
		"463939057"
		{
			"size"		"2000"
			"timeupdated"		"1700000001"
			"manifest"		"2"
		}
	}
	"WorkshopItemDetails"
	{
		"463939057"
		{
			"manifest"		"2"
			"subscribedby"		"1"
		}
		"450814997"
		{
			"manifest"		"1"
			"subscribedby"		"1"
		}
		"843577117"
		{
			"manifest"		"3"
			"subscribedby"		"1"
		}
	}
}
`

func writeManifest(t *testing.T) string {
	t.Helper()
	lib := t.TempDir()
	path := ManifestPath(lib, 107410)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create workshop dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(testManifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return lib
}

// pump runs callbacks until done is closed or the deadline passes.
func pump(t *testing.T, c Client, done <-chan struct{}) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		c.RunCallbacks()
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("callback was never delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManifest(t *testing.T) {
	t.Run("ParseManifest", func(t *testing.T) {
		m, err := ParseManifest(strings.NewReader(testManifest))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if m.AppID != 107410 {
			t.Errorf("expected app id 107410, got %d", m.AppID)
		}

		want := []PublishedFileID{450814997, 463939057, 843577117}
		if len(m.Subscribed) != len(want) {
			t.Fatalf("expected %d subscribed items, got %v", len(want), m.Subscribed)
		}
		for i := range want {
			if m.Subscribed[i] != want[i] {
				t.Errorf("subscribed[%d] = %d, want %d", i, m.Subscribed[i], want[i])
			}
		}

		info, ok := m.Installed[463939057]
		if !ok {
			t.Fatal("expected install info for 463939057")
		}
		if info.SizeOnDisk != 2000 {
			t.Errorf("expected size 2000, got %d", info.SizeOnDisk)
		}
		if info.TimeStamp.Unix() != 1700000001 {
			t.Errorf("unexpected timestamp %v", info.TimeStamp)
		}

		if _, ok := m.Installed[843577117]; ok {
			t.Error("item without install entry should not report install info")
		}
	})

	t.Run("ParseManifest rejects other documents", func(t *testing.T) {
		if _, err := ParseManifest(strings.NewReader(`"AppState" { "appid" "1" }`)); err == nil {
			t.Error("expected error for manifest without AppWorkshop section")
		}
	})

	t.Run("ReadManifest fills folders", func(t *testing.T) {
		lib := writeManifest(t)
		m, err := ReadManifest(lib, 107410)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := filepath.Join(lib, "workshop", "content", "107410", "450814997")
		if got := m.Installed[450814997].Folder; got != want {
			t.Errorf("folder = %q, want %q", got, want)
		}
	})
}

func TestIsRunning(t *testing.T) {
	dir := t.TempDir()

	tc := []struct {
		name    string
		content string
		want    bool
	}{
		{name: "current process", content: strconv.Itoa(os.Getpid()) + "\n", want: true},
		{name: "garbage", content: "steam", want: false},
		{name: "non-positive pid", content: "0", want: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".pid")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write pid file: %v", err)
			}
			if got := IsRunning(path); got != tt.want {
				t.Errorf("IsRunning() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if IsRunning(filepath.Join(dir, "missing.pid")) {
			t.Error("missing pid file should not count as running")
		}
	})
}

func TestCallbackQueue(t *testing.T) {
	t.Run("runs callbacks in order on Run", func(t *testing.T) {
		var q CallbackQueue
		var got []int
		for i := range 3 {
			q.Push(func() { got = append(got, i) })
		}
		if len(got) != 0 {
			t.Fatal("callbacks must not run before Run")
		}

		q.Run()
		if fmt.Sprint(got) != "[0 1 2]" {
			t.Errorf("unexpected order %v", got)
		}
		if q.Len() != 0 {
			t.Errorf("expected empty queue, got %d", q.Len())
		}
	})

	t.Run("panicking callback keeps the rest queued", func(t *testing.T) {
		var q CallbackQueue
		ran := false
		q.Push(func() { panic("boom") })
		q.Push(func() { ran = true })

		func() {
			defer func() {
				if recover() == nil {
					t.Error("expected panic to propagate")
				}
			}()
			q.Run()
		}()

		if q.Len() != 1 {
			t.Fatalf("expected 1 requeued callback, got %d", q.Len())
		}
		q.Run()
		if !ran {
			t.Error("expected requeued callback to run")
		}
	})

	t.Run("drops pushes after Close", func(t *testing.T) {
		var q CallbackQueue
		q.Push(func() {})
		q.Close()

		if q.Len() != 0 {
			t.Error("Close should discard pending callbacks")
		}
		if q.Push(func() {}) {
			t.Error("Push after Close should be rejected")
		}
	})
}

func TestWebClient(t *testing.T) {
	newServer := func(t *testing.T, handler http.HandlerFunc) *httptest.Server {
		t.Helper()
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		return srv
	}

	newClient := func(t *testing.T, baseURL, token string) *WebClient {
		t.Helper()
		c, err := Init(WebOptions{
			AppID:       107410,
			LibraryPath: writeManifest(t),
			BaseURL:     baseURL,
			AccessToken: token,
			Timeout:     5 * time.Second,
		})
		if err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		t.Cleanup(func() { c.Close() })
		return c
	}

	t.Run("Init requires a running client", func(t *testing.T) {
		_, err := Init(WebOptions{
			AppID:          107410,
			LibraryPath:    writeManifest(t),
			PIDFile:        filepath.Join(t.TempDir(), "steam.pid"),
			RequireRunning: true,
		})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Init requires a manifest", func(t *testing.T) {
		_, err := Init(WebOptions{AppID: 107410, LibraryPath: t.TempDir()})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("SubscribedItems and ItemInstallInfo", func(t *testing.T) {
		c := newClient(t, "http://127.0.0.1:0", "")

		if got := len(c.SubscribedItems()); got != 3 {
			t.Errorf("expected 3 subscribed items, got %d", got)
		}
		if info, ok := c.ItemInstallInfo(450814997); !ok || info.SizeOnDisk != 1000 {
			t.Errorf("unexpected install info %+v (ok=%v)", info, ok)
		}
	})

	t.Run("QueryItems", func(t *testing.T) {
		var gotAuth string
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != detailsPath {
				http.NotFound(w, r)
				return
			}
			gotAuth = r.Header.Get("Authorization")
			if err := r.ParseForm(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if r.PostForm.Get("itemcount") != "2" || r.PostForm.Get("publishedfileids[1]") != "463939057" {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"response":{"result":1,"resultcount":2,"publishedfiledetails":[
				{"publishedfileid":"450814997","result":1,"title":"CBA_A3","file_size":"1234","time_updated":1700000000,"tags":[{"tag":"Mod"}]},
				{"publishedfileid":"463939057","result":9}
			]}}`)
		})
		c := newClient(t, srv.URL, "secret")

		done := make(chan struct{})
		var results []QueryResult
		var qerr error
		err := c.QueryItems([]PublishedFileID{450814997, 463939057}, func(r []QueryResult, err error) {
			results, qerr = r, err
			close(done)
		})
		if err != nil {
			t.Fatalf("unexpected submit error: %v", err)
		}
		pump(t, c, done)

		if qerr != nil {
			t.Fatalf("unexpected query error: %v", qerr)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		r := results[0]
		if r.PublishedFileID != 450814997 || r.Title != "CBA_A3" || r.FileSize != 1234 {
			t.Errorf("unexpected result %+v", r)
		}
		if r.URL != CommunityItemURL+"450814997" {
			t.Errorf("unexpected url %s", r.URL)
		}
		if len(r.Tags) != 1 || r.Tags[0] != "Mod" {
			t.Errorf("unexpected tags %v", r.Tags)
		}
		if gotAuth != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", gotAuth)
		}
	})

	t.Run("QueryItems rejects bad submissions", func(t *testing.T) {
		c := newClient(t, "http://127.0.0.1:0", "")
		cb := func([]QueryResult, error) { t.Error("callback must not run for rejected submission") }

		if err := c.QueryItems(nil, cb); !errors.Is(err, shared.ErrSubmissionRejected) {
			t.Errorf("expected ErrSubmissionRejected for empty list, got %v", err)
		}

		ids := make([]PublishedFileID, MaxQueryItems+1)
		if err := c.QueryItems(ids, cb); !errors.Is(err, shared.ErrSubmissionRejected) {
			t.Errorf("expected ErrSubmissionRejected for oversized list, got %v", err)
		}

		c.Close()
		if err := c.QueryItems([]PublishedFileID{1}, cb); !errors.Is(err, shared.ErrSubmissionRejected) {
			t.Errorf("expected ErrSubmissionRejected after close, got %v", err)
		}
	})

	t.Run("UnsubscribeItem", func(t *testing.T) {
		var mu sync.Mutex
		var seen []string
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			id := r.PostForm.Get("publishedfileid")
			mu.Lock()
			seen = append(seen, id)
			mu.Unlock()
			if id == "463939057" {
				http.Error(w, "denied", http.StatusForbidden)
				return
			}
			fmt.Fprint(w, `{"response":{}}`)
		})
		c := newClient(t, srv.URL, "")

		done := make(chan struct{})
		var uerr error
		c.UnsubscribeItem(450814997, func(err error) { uerr = err; close(done) })
		pump(t, c, done)
		if uerr != nil {
			t.Fatalf("unexpected unsubscribe error: %v", uerr)
		}
		for _, id := range c.SubscribedItems() {
			if id == 450814997 {
				t.Error("unsubscribed item still listed as subscribed")
			}
		}

		done = make(chan struct{})
		c.UnsubscribeItem(463939057, func(err error) { uerr = err; close(done) })
		pump(t, c, done)

		var serr *Error
		if !errors.As(uerr, &serr) || serr.Status != http.StatusForbidden {
			t.Fatalf("expected *Error with status 403, got %v", uerr)
		}
		if !errors.Is(uerr, shared.ErrRemote) {
			t.Error("remote failures should match ErrRemote")
		}
		if len(c.SubscribedItems()) != 2 {
			t.Errorf("failed unsubscribe should keep the item, got %v", c.SubscribedItems())
		}

		mu.Lock()
		defer mu.Unlock()
		if len(seen) != 2 {
			t.Errorf("expected 2 requests, got %v", seen)
		}
	})

	t.Run("Close drops undelivered callbacks", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"response":{}}`)
		})
		c := newClient(t, srv.URL, "")

		called := false
		c.UnsubscribeItem(450814997, func(error) { called = true })
		c.Close()
		c.RunCallbacks()

		if called {
			t.Error("callback should not run after Close")
		}
		if err := c.Close(); err != nil {
			t.Errorf("second Close returned %v", err)
		}
	})
}
