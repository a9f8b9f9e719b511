package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/desertthunder/amdu/internal/formatter"
)

func (m *Model) renderInitError() string {
	var b strings.Builder
	b.WriteString(styles.err.Render("Workshop unavailable"))
	b.WriteString("\n\n")
	if m.initErr != nil {
		b.WriteString(m.initErr.Error())
	} else {
		b.WriteString("the workshop service was not initialized")
	}
	b.WriteString("\n\n")
	b.WriteString(styles.help.Render("Start Steam, then run amdu again."))
	return fmt.Sprintf("%s\n\n%s", styles.box.Render(b.String()), m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}

func (m *Model) renderLoading() string {
	return fmt.Sprintf("\n %s Fetching subscribed items...\n\n%s", m.spinner.View(), m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}

func (m *Model) renderHeader() string {
	stats := m.session.Stats()
	title := "Workshop subscriptions"
	if m.appID != 0 {
		title = fmt.Sprintf("Workshop subscriptions (app %d)", m.appID)
	}

	names := make([]string, 0)
	for _, set := range m.session.KeepSets() {
		names = append(names, set.Name)
	}
	keep := "no presets loaded, nothing is protected"
	if len(names) > 0 {
		keep = "keeping " + strings.Join(names, ", ")
	}

	line := fmt.Sprintf("%d subscribed • %d candidates • %d selected • %s freed",
		stats.Subscribed, stats.Candidates, stats.Selected, formatter.FormatSize(stats.SelectedBytes))
	return fmt.Sprintf("%s\n%s\n%s", styles.title.Render(title), line, styles.help.Render(keep))
}

func (m *Model) renderStatus() string {
	var lines []string
	if m.err != nil {
		lines = append(lines, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	if m.status != "" {
		lines = append(lines, styles.warn.Render(m.status))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderList() string {
	parts := []string{m.renderHeader(), m.list.View()}
	if status := m.renderStatus(); status != "" {
		parts = append(parts, status)
	}
	helpKeys := []key.Binding{m.keys.toggle, m.keys.toggleAll, m.keys.preset, m.keys.unsub, m.keys.open, m.keys.quit}
	parts = append(parts, m.help.ShortHelpView(helpKeys))
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderPresetPrompt() string {
	title := styles.title.Render("Load launcher presets")
	hint := styles.help.Render("Separate multiple files with commas. Empty input cancels.")
	helpKeys := []key.Binding{m.keys.enter, m.keys.back}
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, m.input.View(), hint, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	stats := m.session.Stats()
	title := styles.title.Render(fmt.Sprintf("Unsubscribe from %d item(s)?", stats.Selected))
	details := fmt.Sprintf("This frees about %s of disk space.", formatter.FormatSize(stats.SelectedBytes))
	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n\n%s", title, details, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderBatch() string {
	title := styles.title.Render("Unsubscribing...")
	counts := fmt.Sprintf("%d / %d", m.snapshot.Completed, m.snapshot.Total)
	parts := []string{title, m.bar.ViewAs(m.snapshot.Fraction()), counts}
	if m.update.Message != "" {
		parts = append(parts, m.update.Message)
	}
	if m.status != "" {
		parts = append(parts, styles.warn.Render(m.status))
	}
	parts = append(parts, m.help.ShortHelpView([]key.Binding{m.keys.back}))
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderResult() string {
	var b strings.Builder
	r := m.result

	switch {
	case r == nil:
		b.WriteString(styles.err.Render("Batch failed"))
	case stoppedEarly(m.err):
		b.WriteString(styles.warn.Render("Batch stopped"))
	case len(r.Failures) > 0:
		b.WriteString(styles.warn.Render("Batch finished with failures"))
	default:
		b.WriteString(styles.ok.Render("Batch complete"))
	}
	b.WriteString("\n\n")

	if r != nil {
		fmt.Fprintf(&b, "Removed %d of %d attempted item(s)\n", r.Succeeded, r.Attempted)
		for _, f := range r.Failures {
			b.WriteString(styles.err.Render(fmt.Sprintf("  ✗ %s: %v", f.ID, f.Err)))
			b.WriteString("\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n%s", b.String(), m.help.ShortHelpView(helpKeys))
}
