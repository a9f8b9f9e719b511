package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/amdu/internal/presets"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/desertthunder/amdu/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
//
// A workshop that cannot be opened is not fatal: the TUI shows the error until the user quits.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	if path := r.config.Logging.File; path != "" {
		fileLogger, err := shared.NewFileLogger(path)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		shared.SetLogLevel(fileLogger, shared.ParseLevel(r.config.Logging.Level))
		r.SetLogger(fileLogger)
	}

	opts := ui.Options{AppID: r.config.Steam.AppID, Logger: r.logger}

	store, err := r.presetRepository()
	if err != nil {
		return err
	}
	opts.Store = store

	recorder, err := r.batchRepository()
	if err != nil {
		return err
	}

	w, err := r.openWorkshop(r.config.Steam, r.logger)
	if err != nil {
		r.logger.Error("workshop unavailable", "error", err)
		opts.InitErr = err
	} else {
		defer w.Shutdown()
		opts.Session = r.newSession(w, recorder)
	}

	if watcher, err := presets.NewWatcher(r.logger); err != nil {
		r.logger.Warn("preset watching disabled", "error", err)
	} else {
		defer watcher.Close()
		opts.Watcher = watcher
	}

	model := ui.NewModel(ctx, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
