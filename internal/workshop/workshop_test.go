package workshop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/desertthunder/amdu/internal/steam"
	tu "github.com/desertthunder/amdu/internal/testing"
)

func newTestWorkshop(t *testing.T, client *tu.FakeClient) *Workshop {
	t.Helper()
	w := New(client, Options{PollInterval: 5 * time.Millisecond})
	t.Cleanup(w.Shutdown)
	return w
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestWorkshopLifecycle(t *testing.T) {
	t.Run("Shutdown is idempotent", func(t *testing.T) {
		client := tu.NewFakeClient()
		w := New(client, Options{PollInterval: 5 * time.Millisecond})

		w.Shutdown()
		w.Shutdown()

		select {
		case <-w.Done():
		default:
			t.Fatal("worker should have exited after Shutdown")
		}
		if got := client.Closes.Load(); got != 1 {
			t.Errorf("expected client closed once, got %d", got)
		}
	})

	t.Run("concurrent Shutdown", func(t *testing.T) {
		client := tu.NewFakeClient()
		w := New(client, Options{PollInterval: 5 * time.Millisecond})

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.Shutdown()
			}()
		}
		wg.Wait()

		if got := client.Closes.Load(); got != 1 {
			t.Errorf("expected client closed once, got %d", got)
		}
	})

	t.Run("worker stops pumping after Shutdown", func(t *testing.T) {
		client := tu.NewFakeClient()
		w := New(client, Options{PollInterval: time.Millisecond})
		time.Sleep(20 * time.Millisecond)
		w.Shutdown()

		pumps := client.Pumps.Load()
		if pumps == 0 {
			t.Fatal("expected the worker to pump callbacks")
		}
		time.Sleep(20 * time.Millisecond)
		if got := client.Pumps.Load(); got != pumps {
			t.Errorf("pumped %d more times after Shutdown", got-pumps)
		}
	})

	t.Run("callback panic does not stop the worker", func(t *testing.T) {
		client := tu.NewFakeClient(tu.FakeItem{ID: 1001, Name: "CBA_A3"})
		w := newTestWorkshop(t, client)

		client.InjectPanic()
		items, err := w.QueryItems(testContext(t), []models.ItemID{1001})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 || items[0].Name != "CBA_A3" {
			t.Errorf("unexpected items %+v", items)
		}
	})

	t.Run("local state", func(t *testing.T) {
		client := tu.NewFakeClient(
			tu.FakeItem{ID: 1001, Name: "a", Size: 5000},
			tu.FakeItem{ID: 1002, Name: "b"},
		)
		w := newTestWorkshop(t, client)

		ids := w.SubscribedIDs()
		if len(ids) != 2 || ids[0] != 1001 || ids[1] != 1002 {
			t.Errorf("unexpected subscribed ids %v", ids)
		}
		if size, ok := w.InstallSize(1001); !ok || size != 5000 {
			t.Errorf("InstallSize(1001) = %d, %v", size, ok)
		}
		if _, ok := w.InstallSize(1002); ok {
			t.Error("item without install info should report not ok")
		}
	})
}

func TestBridge(t *testing.T) {
	t.Run("QueryItems", func(t *testing.T) {
		client := tu.NewFakeClient(
			tu.FakeItem{ID: 1001, Name: "CBA_A3", Tags: []string{"Mod"}},
			tu.FakeItem{ID: 1002, Name: "ACE"},
		)
		w := newTestWorkshop(t, client)

		items, err := w.QueryItems(testContext(t), []models.ItemID{1001, 1002})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if !items[0].HasTag("mod") {
			t.Errorf("expected tags to carry over, got %v", items[0].Tags)
		}
		if items[1].URL != steam.CommunityItemURL+"1002" {
			t.Errorf("unexpected url %s", items[1].URL)
		}
	})

	t.Run("submission rejected resolves immediately", func(t *testing.T) {
		client := tu.NewFakeClient(tu.FakeItem{ID: 1001})
		client.RejectQueries = true
		w := newTestWorkshop(t, client)

		_, err := w.QueryItems(testContext(t), []models.ItemID{1001})
		if !errors.Is(err, shared.ErrSubmissionRejected) {
			t.Errorf("expected ErrSubmissionRejected, got %v", err)
		}

		_, err = w.QueryItems(testContext(t), nil)
		if !errors.Is(err, shared.ErrSubmissionRejected) {
			t.Errorf("expected ErrSubmissionRejected for empty ids, got %v", err)
		}
	})

	t.Run("query failure is a RemoteError", func(t *testing.T) {
		client := tu.NewFakeClient(tu.FakeItem{ID: 1001})
		client.QueryErr = errors.New("busy")
		w := newTestWorkshop(t, client)

		_, err := w.QueryItems(testContext(t), []models.ItemID{1001})
		var rerr *RemoteError
		if !errors.As(err, &rerr) || rerr.Op != "query" {
			t.Fatalf("expected query RemoteError, got %v", err)
		}
		if !errors.Is(err, shared.ErrRemote) {
			t.Error("expected error to match ErrRemote")
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		client := tu.NewFakeClient(tu.FakeItem{ID: 1001}, tu.FakeItem{ID: 1002})
		client.FailUnsubscribe(1002, errors.New("denied"))
		w := newTestWorkshop(t, client)
		ctx := testContext(t)

		if err := w.Unsubscribe(ctx, 1001); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		err := w.Unsubscribe(ctx, 1002)
		var rerr *RemoteError
		if !errors.As(err, &rerr) || rerr.ID != 1002 {
			t.Fatalf("expected RemoteError for 1002, got %v", err)
		}

		ids := w.SubscribedIDs()
		if len(ids) != 1 || ids[0] != 1002 {
			t.Errorf("expected only 1002 to remain subscribed, got %v", ids)
		}
	})

	t.Run("Wait honours context", func(t *testing.T) {
		client := tu.NewFakeClient(tu.FakeItem{ID: 1001})
		client.Hold = true
		w := newTestWorkshop(t, client)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if err := w.Unsubscribe(ctx, 1001); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("Wait can be called more than once", func(t *testing.T) {
		client := tu.NewFakeClient(tu.FakeItem{ID: 1001, Name: "x"})
		w := newTestWorkshop(t, client)
		ctx := testContext(t)

		f := w.QueryItemsAsync([]models.ItemID{1001})
		first, err := f.Wait(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := f.Wait(ctx)
		if err != nil || len(second) != len(first) {
			t.Errorf("second Wait returned %v, %v", second, err)
		}
	})

	t.Run("pending request resolves with ErrHandleClosed on Shutdown", func(t *testing.T) {
		client := tu.NewFakeClient(tu.FakeItem{ID: 1001})
		client.Hold = true
		w := New(client, Options{PollInterval: 5 * time.Millisecond})

		f := w.UnsubscribeAsync(1001)
		w.Shutdown()

		if _, err := f.Wait(testContext(t)); !errors.Is(err, shared.ErrHandleClosed) {
			t.Errorf("expected ErrHandleClosed, got %v", err)
		}

		// a late response must be dropped without blocking or panicking
		client.DeliverHeld()
		client.DeliverHeld()
	})

	t.Run("requests after Shutdown resolve immediately", func(t *testing.T) {
		client := tu.NewFakeClient(tu.FakeItem{ID: 1001})
		w := New(client, Options{PollInterval: 5 * time.Millisecond})
		w.Shutdown()

		ctx := testContext(t)
		if _, err := w.QueryItems(ctx, []models.ItemID{1001}); !errors.Is(err, shared.ErrHandleClosed) {
			t.Errorf("expected ErrHandleClosed from query, got %v", err)
		}
		if err := w.Unsubscribe(ctx, 1001); !errors.Is(err, shared.ErrHandleClosed) {
			t.Errorf("expected ErrHandleClosed from unsubscribe, got %v", err)
		}
		if len(client.Unsubscribed()) != 0 {
			t.Error("no request should reach the client after Shutdown")
		}
	})
}

func TestFetchSubscribed(t *testing.T) {
	t.Run("chunks queries and fills sizes", func(t *testing.T) {
		var items []tu.FakeItem
		for i := range steam.MaxQueryItems + 20 {
			items = append(items, tu.FakeItem{ID: steam.PublishedFileID(10000 + i), Name: "mod", Size: uint64(i + 1)})
		}
		client := tu.NewFakeClient(items...)
		w := newTestWorkshop(t, client)

		got, err := w.FetchSubscribed(testContext(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != len(items) {
			t.Fatalf("expected %d items, got %d", len(items), len(got))
		}
		last := got[len(got)-1]
		if last.ID != models.ItemID(10000+steam.MaxQueryItems+19) || last.LocalSizeBytes != uint64(steam.MaxQueryItems+20) {
			t.Errorf("unexpected last item %+v", last)
		}
	})

	t.Run("empty subscription list", func(t *testing.T) {
		w := newTestWorkshop(t, tu.NewFakeClient())

		got, err := w.FetchSubscribed(testContext(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no items, got %v", got)
		}
	})

	t.Run("propagates query failures", func(t *testing.T) {
		client := tu.NewFakeClient(tu.FakeItem{ID: 1001})
		client.QueryErr = errors.New("busy")
		w := newTestWorkshop(t, client)

		if _, err := w.FetchSubscribed(testContext(t)); !errors.Is(err, shared.ErrRemote) {
			t.Errorf("expected ErrRemote, got %v", err)
		}
	})
}
