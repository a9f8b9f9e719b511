package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/reconcile"
	"github.com/desertthunder/amdu/internal/shared"
)

// Service is the slice of the workshop handle a [Session] needs.
type Service interface {
	Remover
	FetchSubscribed(ctx context.Context) ([]models.RemoteItem, error)
}

// SessionOptions configures a [Session].
type SessionOptions struct {
	ExcludedTags    []string
	DefaultSelected bool
	Recorder        BatchRecorder
	AppID           uint32
	Logger          *log.Logger
}

// Session is one reconciliation cycle: fetch the universe, subtract keep sets, select, remove, repeat.
//
// All methods are safe for concurrent use. Network calls happen outside the lock.
type Session struct {
	svc      Service
	engine   *BatchEngine
	opts     SessionOptions
	logger   *log.Logger
	progress Progress

	mu         sync.Mutex
	gen        uint64 // bumped by every refresh; a fetch installs its result only if gen is unchanged
	universe   []models.RemoteItem
	keep       []models.KeepSet
	candidates []models.RemovalCandidate
}

// NewSession creates a Session over svc. Call Refresh to load the universe.
func NewSession(svc Service, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Session{
		svc:    svc,
		engine: NewBatchEngine(svc, opts.Recorder, opts.AppID, logger),
		opts:   opts,
		logger: shared.WithLogger(logger, "component", "session"),
	}
}

// Refresh replaces the universe with a fresh fetch and recomputes candidates.
//
// When refreshes overlap, only the one started last installs its result; earlier ones return nil
// without touching the universe.
func (s *Session) Refresh(ctx context.Context) error {
	return s.refresh(ctx, nil)
}

func (s *Session) refresh(ctx context.Context, updates chan<- ProgressUpdate) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	sendProgress(updates, fetchingSubscribedUpdate())
	items, err := s.svc.FetchSubscribed(ctx)
	if err != nil {
		return err
	}
	sendProgress(updates, fetchedSubscribedUpdate(len(items)))

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("dropping stale refresh", "generation", gen, "subscribed", len(items))
		return nil
	}
	s.universe = items
	s.recompute()
	stats := s.stats()
	s.mu.Unlock()

	sendProgress(updates, reconcileUpdate(stats))
	s.logger.Debug("refreshed", "subscribed", stats.Subscribed, "candidates", stats.Candidates)
	return nil
}

// SetKeepSets replaces the loaded keep sets and recomputes candidates.
func (s *Session) SetKeepSets(sets []models.KeepSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keep = slices.Clone(sets)
	s.recompute()
}

// KeepSets returns the loaded keep sets.
func (s *Session) KeepSets() []models.KeepSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.keep)
}

// recompute rebuilds candidates from scratch. Callers hold mu.
func (s *Session) recompute() {
	removal := reconcile.ComputeRemovalSet(s.universe, s.keep, s.opts.ExcludedTags)
	s.candidates = reconcile.Candidates(removal, s.candidates, s.opts.DefaultSelected)
}

// Toggle flips the selection of the candidate with id and reports whether it was found.
func (s *Session) Toggle(id models.ItemID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.candidates {
		if s.candidates[i].Item.ID == id {
			s.candidates[i].Selected = !s.candidates[i].Selected
			return true
		}
	}
	return false
}

// SetAll selects or deselects every candidate.
func (s *Session) SetAll(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.candidates {
		s.candidates[i].Selected = selected
	}
}

// ToggleAll deselects everything when every candidate is selected, and selects everything otherwise.
func (s *Session) ToggleAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := !slices.ContainsFunc(s.candidates, func(c models.RemovalCandidate) bool { return !c.Selected })
	for i := range s.candidates {
		s.candidates[i].Selected = !all
	}
}

// Candidates returns a copy of the current candidate list.
func (s *Session) Candidates() []models.RemovalCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.candidates)
}

// Universe returns a copy of the last fetched subscription list.
func (s *Session) Universe() []models.RemoteItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.universe)
}

// Selected returns the selected candidate ids in list order.
func (s *Session) Selected() []models.ItemID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reconcile.Selected(s.candidates)
}

func (s *Session) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats()
}

func (s *Session) stats() models.Stats {
	return reconcile.Summarize(len(s.universe), s.candidates)
}

// Progress is the live progress of the current or last batch.
func (s *Session) Progress() *Progress {
	return &s.progress
}

// RunBatch removes the current selection and then refreshes the universe.
//
// The refresh is skipped when the batch was stopped early.
func (s *Session) RunBatch(ctx context.Context, updates chan<- ProgressUpdate) (*BatchResult, error) {
	result, err := s.engine.Execute(ctx, s.Selected(), &s.progress, updates)
	if err != nil {
		return result, err
	}

	sendProgress(updates, refreshUpdate())
	if err := s.refresh(ctx, updates); err != nil {
		return result, fmt.Errorf("failed to refresh after batch: %w", err)
	}
	return result, nil
}
