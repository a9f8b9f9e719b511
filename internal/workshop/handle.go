package workshop

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/desertthunder/amdu/internal/steam"
)

// DefaultPollInterval is how often callbacks are pumped when no interval is configured.
const DefaultPollInterval = 100 * time.Millisecond

// Options configures a [Workshop].
type Options struct {
	PollInterval time.Duration
	Logger       *log.Logger
}

// Workshop is the live connection to the workshop service.
//
// Exactly one worker goroutine runs per Workshop, from construction until Shutdown.
type Workshop struct {
	client   steam.Client
	logger   *log.Logger
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Open initialises the Steam client for cfg.AppID and starts the worker.
//
// Errors wrap [shared.ErrServiceUnavailable] when Steam cannot be reached.
func Open(cfg shared.SteamConfig, logger *log.Logger) (*Workshop, error) {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	client, err := steam.Init(steam.WebOptionsFromConfig(cfg, logger))
	if err != nil {
		return nil, err
	}
	return New(client, Options{PollInterval: cfg.PollInterval(), Logger: logger}), nil
}

// New wraps an initialised client and starts the worker.
func New(client steam.Client, opts Options) *Workshop {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Workshop{
		client:   client,
		logger:   shared.WithLogger(logger, "component", "workshop"),
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Workshop) run() {
	defer close(w.done)
	w.logger.Debug("callback worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if w.ctx.Err() != nil {
			w.logger.Debug("callback worker stopped")
			return
		}
		w.pump()

		select {
		case <-w.ctx.Done():
			w.logger.Debug("callback worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *Workshop) pump() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("callback panicked", "panic", r)
		}
	}()
	w.client.RunCallbacks()
}

// Shutdown stops the worker, waits for it to exit and closes the client.
//
// Safe to call any number of times from any goroutine; every call returns after the worker has exited.
func (w *Workshop) Shutdown() {
	w.once.Do(func() {
		w.cancel()
		<-w.done
		if err := w.client.Close(); err != nil {
			w.logger.Warn("failed to close steam client", "error", err)
		}
		w.logger.Debug("workshop shut down")
	})
}

// Done is closed once the worker has exited.
func (w *Workshop) Done() <-chan struct{} {
	return w.done
}

func (w *Workshop) closed() bool {
	return w.ctx.Err() != nil
}

// SubscribedIDs returns the locally cached subscription list.
func (w *Workshop) SubscribedIDs() []models.ItemID {
	subs := w.client.SubscribedItems()
	ids := make([]models.ItemID, len(subs))
	for i, id := range subs {
		ids[i] = models.ItemID(id)
	}
	return ids
}

// InstallSize returns the size on disk of an installed item.
func (w *Workshop) InstallSize(id models.ItemID) (uint64, bool) {
	info, ok := w.client.ItemInstallInfo(steam.PublishedFileID(id))
	if !ok {
		return 0, false
	}
	return info.SizeOnDisk, true
}
