package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/presets"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/desertthunder/amdu/internal/tasks"
)

const tickInterval = 100 * time.Millisecond

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	ErrorView
	ListView
	PresetView
	ConfirmView
	BatchView
	ResultView
)

// PresetStore persists keep sets between runs.
type PresetStore interface {
	List() ([]models.KeepSet, error)
	Save(set models.KeepSet) error
}

// Options holds the dependencies of a [Model].
//
// When InitErr is set the model only renders the error; Session may then be nil.
type Options struct {
	Session *tasks.Session
	InitErr error
	Store   PresetStore
	Watcher *presets.Watcher
	AppID   uint32
	Logger  *log.Logger
	OpenURL func(url string) error // Defaults to [shared.OpenURL]
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	view    ViewState
	session *tasks.Session
	store   PresetStore
	watcher *presets.Watcher
	appID   uint32
	logger  *log.Logger
	openURL func(string) error
	width   int
	height  int

	list    list.Model
	input   textinput.Model
	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    keyMap

	initErr     error
	err         error
	status      string
	batchCancel context.CancelFunc
	updates     chan tasks.ProgressUpdate
	done        chan batchDoneMsg
	update      tasks.ProgressUpdate
	snapshot    tasks.ProgressSnapshot
	result      *tasks.BatchResult
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	ctx, cancel := context.WithCancel(ctx)
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Removal candidates"
	l.SetShowHelp(false)
	l.SetStatusBarItemName("candidate", "candidates")
	l.KeyMap.Quit.SetEnabled(false)

	input := textinput.New()
	input.Placeholder = "path/to/preset.html, another.html"
	input.Prompt = "Preset: "

	openURL := opts.OpenURL
	if openURL == nil {
		openURL = shared.OpenURL
	}

	view := LoadingView
	if opts.InitErr != nil || opts.Session == nil {
		view = ErrorView
	}

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		view:    view,
		session: opts.Session,
		store:   opts.Store,
		watcher: opts.Watcher,
		appID:   opts.AppID,
		logger:  shared.WithLogger(logger, "component", "ui"),
		openURL: openURL,
		list:    l,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:     progress.New(progress.WithDefaultGradient()),
		help:    help.New(),
		keys:    newKeyMap(),
		initErr: opts.InitErr,
	}
}

// State returns the active view state.
func (m *Model) State() ViewState { return m.view }

// Init loads saved presets and the subscribed universe.
//
// A model created with an init error issues no commands.
func (m *Model) Init() tea.Cmd {
	if m.view == ErrorView {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.loadSaved(), m.waitForPresetChange())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, max(msg.Height-8, 4))
		m.bar.Width = max(min(msg.Width-8, 80), 10)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ErrorView:
			return m.handleErrorKeys(msg)
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				return m.quit()
			}
			return m, nil
		case ListView:
			return m.handleListKeys(msg)
		case PresetView:
			return m.handlePresetKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case BatchView:
			return m.handleBatchKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != LoadingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case savedPresetsMsg:
		if msg.err != nil {
			m.logger.Warn("failed to load saved presets", "error", msg.err)
			m.status = fmt.Sprintf("Saved presets unavailable: %v", msg.err)
		}
		m.applySets(msg.sets, false)
		return m, m.refresh()

	case refreshedMsg:
		m.view = ListView
		m.err = msg.err
		return m, m.syncList()

	case presetsLoadedMsg:
		m.view = ListView
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.applySets(msg.result.Sets, true)
		m.status = fmt.Sprintf("Loaded %d preset(s)", len(msg.result.Sets))
		if err := msg.result.Err(); err != nil {
			m.err = err
		}
		return m, m.syncList()

	case presetChangedMsg:
		if msg.err != nil {
			m.logger.Warn("failed to reload preset", "path", msg.path, "error", msg.err)
			m.status = fmt.Sprintf("Could not reload %s: %v", msg.path, msg.err)
			return m, m.waitForPresetChange()
		}
		m.applySets([]models.KeepSet{msg.set}, true)
		m.status = fmt.Sprintf("Reloaded preset %q", msg.set.Name)
		if m.view == ListView {
			return m, tea.Batch(m.syncList(), m.waitForPresetChange())
		}
		return m, m.waitForPresetChange()

	case openedMsg:
		if msg.err != nil {
			m.logger.Warn("failed to open item page", "url", msg.url, "error", msg.err)
			m.status = fmt.Sprintf("Could not open %s: %v", msg.url, msg.err)
		} else {
			m.status = "Opened " + msg.url
		}
		return m, nil

	case batchTickMsg:
		if m.view != BatchView {
			return m, nil
		}
		m.snapshot = m.session.Progress().Snapshot()
		return m, tickBatch()

	case progressUpdateMsg:
		m.update = tasks.ProgressUpdate(msg)
		return m, m.waitForUpdate()

	case batchDoneMsg:
		m.snapshot = m.session.Progress().Snapshot()
		m.result = msg.result
		m.err = msg.err
		m.updates, m.done = nil, nil
		if m.batchCancel != nil {
			m.batchCancel()
			m.batchCancel = nil
		}
		m.view = ResultView
		return m, m.syncList()
	}

	return m.updateComponents(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ErrorView:
		return m.renderInitError()
	case LoadingView:
		return m.renderLoading()
	case ListView:
		return m.renderList()
	case PresetView:
		return m.renderPresetPrompt()
	case ConfirmView:
		return m.renderConfirm()
	case BatchView:
		return m.renderBatch()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return m, tea.Quit
}

func (m *Model) handleErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) || msg.Type == tea.KeyEsc {
		return m.quit()
	}
	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.toggle):
		item, ok := m.list.SelectedItem().(candidateItem)
		if !ok {
			return m, nil
		}
		if !m.session.Toggle(item.candidate.Item.ID) {
			return m, nil
		}
		item.candidate.Selected = !item.candidate.Selected
		return m, m.list.SetItem(m.list.GlobalIndex(), item)
	case key.Matches(msg, m.keys.toggleAll):
		m.session.ToggleAll()
		return m, m.syncList()
	case key.Matches(msg, m.keys.preset):
		m.view = PresetView
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.unsub):
		if m.session.Stats().Selected == 0 {
			m.status = "Nothing selected"
			return m, nil
		}
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.open):
		item, ok := m.list.SelectedItem().(candidateItem)
		if !ok || item.candidate.Item.URL == "" {
			return m, nil
		}
		return m, m.open(item.candidate.Item.URL)
	case key.Matches(msg, m.keys.refresh):
		m.view = LoadingView
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.refresh())
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handlePresetKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.quit()
	case tea.KeyEsc:
		m.input.Blur()
		m.view = ListView
		return m, nil
	case tea.KeyEnter:
		m.input.Blur()
		paths := splitPaths(m.input.Value())
		if len(paths) == 0 {
			m.view = ListView
			return m, nil
		}
		m.status = "Loading presets..."
		return m, m.loadPresets(paths)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = BatchView
		m.err = nil
		m.result = nil
		m.update = tasks.ProgressUpdate{}
		return m, tea.Batch(m.startBatch(), tickBatch())
	case key.Matches(msg, m.keys.no), msg.String() == "q":
		m.view = ListView
		return m, nil
	case msg.Type == tea.KeyCtrlC:
		return m.quit()
	}
	return m, nil
}

func (m *Model) handleBatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m.quit()
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.back):
		if m.batchCancel != nil {
			m.batchCancel()
			m.status = "Stopping after the current item..."
		}
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.enter), key.Matches(msg, m.keys.back):
		m.view = ListView
		m.status = ""
		return m, nil
	}
	return m, nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ListView:
		m.list, cmd = m.list.Update(msg)
	case PresetView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// applySets merges sets into the session's keep sets, replacing entries with the same name or source.
func (m *Model) applySets(sets []models.KeepSet, persist bool) {
	if len(sets) == 0 {
		return
	}
	current := m.session.KeepSets()
	for _, set := range sets {
		i := slices.IndexFunc(current, func(existing models.KeepSet) bool {
			return existing.Name == set.Name || (set.Source != "" && existing.Source == set.Source)
		})
		if i < 0 {
			current = append(current, set)
		} else {
			if old := current[i].Source; m.watcher != nil && old != "" && old != set.Source {
				if err := m.watcher.Remove(old); err != nil {
					m.logger.Debug("failed to stop watching preset", "path", old, "error", err)
				}
			}
			current[i] = set
		}

		if persist && m.store != nil {
			if err := m.store.Save(set); err != nil {
				m.logger.Warn("failed to save preset", "name", set.Name, "error", err)
			}
		}
		if m.watcher != nil && set.Source != "" {
			if err := m.watcher.Add(set.Source); err != nil {
				m.logger.Debug("not watching preset", "path", set.Source, "error", err)
			}
		}
	}
	m.session.SetKeepSets(current)
}

func (m *Model) syncList() tea.Cmd {
	if m.session == nil {
		return nil
	}
	return m.list.SetItems(candidateItems(m.session.Candidates()))
}

func (m *Model) loadSaved() tea.Cmd {
	return func() tea.Msg {
		if m.store == nil {
			return savedPresetsMsg{}
		}
		sets, err := m.store.List()
		return savedPresetsMsg{sets: sets, err: err}
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: m.session.Refresh(m.ctx)}
	}
}

func (m *Model) loadPresets(paths []string) tea.Cmd {
	return func() tea.Msg {
		expanded := make([]string, len(paths))
		for i, p := range paths {
			expanded[i] = shared.ExpandPath(p)
		}
		result, err := presets.LoadFiles(m.ctx, expanded, m.logger)
		return presetsLoadedMsg{result: result, err: err}
	}
}

func (m *Model) open(url string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{url: url, err: m.openURL(url)}
	}
}

func (m *Model) waitForPresetChange() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	changes := m.watcher.Changes()
	return func() tea.Msg {
		path, ok := <-changes
		if !ok {
			return nil
		}
		set, err := presets.ParseFile(path, m.logger)
		return presetChangedMsg{path: path, set: set, err: err}
	}
}

func (m *Model) startBatch() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.batchCancel = cancel
	m.updates = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan batchDoneMsg, 1)

	updates, done := m.updates, m.done
	go func() {
		result, err := m.session.RunBatch(ctx, updates)
		done <- batchDoneMsg{result: result, err: err}
		close(updates)
	}()

	return m.waitForUpdate()
}

func (m *Model) waitForUpdate() tea.Cmd {
	updates, done := m.updates, m.done
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func tickBatch() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return batchTickMsg(t)
	})
}

func splitPaths(s string) []string {
	var paths []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func stoppedEarly(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, shared.ErrHandleClosed)
}
