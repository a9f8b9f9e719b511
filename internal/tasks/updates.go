package tasks

import (
	"fmt"

	"github.com/desertthunder/amdu/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSubscribed Phase = iota
	Reconcile
	Unsubscribe
	Refresh
)

func (p Phase) String() string {
	switch p {
	case FetchSubscribed:
		return "fetch_subscribed"
	case Reconcile:
		return "reconcile"
	case Unsubscribe:
		return "unsubscribe"
	case Refresh:
		return "refresh"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingSubscribedUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchSubscribed, Step: 1, Total: 1, Message: "Fetching subscribed items..."}
}

func fetchedSubscribedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSubscribed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d subscribed items", count),
	}
}

func reconcileUpdate(stats models.Stats) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d of %d items are not in any preset", stats.Candidates, stats.Subscribed),
		Data:    stats,
	}
}

func batchStartedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Unsubscribe,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Unsubscribing from %d items...", total),
	}
}

func removingUpdate(step, total int, id models.ItemID) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Unsubscribe,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Unsubscribing %s...", step, total, id),
	}
}

func removedUpdate(step, total int, id models.ItemID) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Unsubscribe,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, id),
	}
}

func removeFailedUpdate(step, total int, id models.ItemID, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Unsubscribe,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, id, err),
	}
}

func refreshUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Refresh, Step: 1, Total: 1, Message: "Refreshing subscribed items..."}
}
