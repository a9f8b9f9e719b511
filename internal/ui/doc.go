// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks one reconciliation cycle:
//  1. [LoadingView] : Fetch subscribed items and saved presets
//  2. [ListView] : Browse removal candidates and toggle their selection
//  3. [PresetView] : Type preset file paths to load as keep lists
//  4. [ConfirmView] : Confirm the unsubscribe batch
//  5. [BatchView] : Monitor progress of the running batch
//  6. [ResultView] : Display removed and failed items
//
// When the workshop service could not be reached at startup the model shows [ErrorView] permanently
// and never calls the service.
//
// Batch progress is polled from [tasks.Progress] on a 100ms tick rather than pushed, so the batch never
// waits on the renderer. Loaded preset files are watched and reloaded when they change on disk.
//
// Keyboard navigation uses vim-style bindings (j/k, space, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
