// package formatter renders removal candidate reports as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/dustin/go-humanize"
)

// Supported report formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Report is a snapshot of one reconciliation: what is subscribed, what no preset keeps, and what is selected.
type Report struct {
	AppID       uint32                    `json:"app_id"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Presets     []string                  `json:"presets"`
	Stats       models.Stats              `json:"stats"`
	Candidates  []models.RemovalCandidate `json:"candidates"`
}

// FormatSize renders a byte count with decimal (SI) units, e.g. "1.2 GB".
func FormatSize(n uint64) string {
	return humanize.Bytes(n)
}

// ExportToCSV converts a Report to CSV format with columns: ID, Name, Size, Size Bytes, Selected, URL
func ExportToCSV(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Size", "Size Bytes", "Selected", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, c := range r.Candidates {
		record := []string{
			c.Item.ID.String(),
			c.Item.Name,
			FormatSize(c.Item.LocalSizeBytes),
			strconv.FormatUint(c.Item.LocalSizeBytes, 10),
			strconv.FormatBool(c.Selected),
			c.Item.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Report to Markdown with a summary and a checklist of candidates
func ExportToMarkdown(r *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Workshop removal candidates\n\n")
	if len(r.Presets) > 0 {
		buf.WriteString(fmt.Sprintf("**Presets**: %s\n", strings.Join(r.Presets, ", ")))
	} else {
		buf.WriteString("**Presets**: none loaded (nothing is protected)\n")
	}
	buf.WriteString(fmt.Sprintf("**Subscribed**: %d\n", r.Stats.Subscribed))
	buf.WriteString(fmt.Sprintf("**Candidates**: %d\n", r.Stats.Candidates))
	buf.WriteString(fmt.Sprintf("**Selected**: %d (%s)\n\n", r.Stats.Selected, FormatSize(r.Stats.SelectedBytes)))

	buf.WriteString("## Items\n\n")
	for _, c := range r.Candidates {
		mark := " "
		if c.Selected {
			mark = "x"
		}
		buf.WriteString(fmt.Sprintf("- [%s] [%s](%s) [%s]\n", mark, c.Item.Name, c.Item.URL, FormatSize(c.Item.LocalSizeBytes)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Report to plain text format
func ExportToText(r *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Subscribed: %d\n", r.Stats.Subscribed))
	buf.WriteString(fmt.Sprintf("Candidates: %d\n", r.Stats.Candidates))
	buf.WriteString(fmt.Sprintf("Selected: %d\n", r.Stats.Selected))
	buf.WriteString(fmt.Sprintf("Space freed: %s\n\n", FormatSize(r.Stats.SelectedBytes)))

	for i, c := range r.Candidates {
		buf.WriteString(fmt.Sprintf("%d. %s (%s) %s\n", i+1, c.Item.Name, c.Item.ID, FormatSize(c.Item.LocalSizeBytes)))
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a Report to JSON
func ExportToJSON(r *Report, pretty bool) ([]byte, error) {
	return shared.MarshalJSON(r, pretty)
}

// Export renders r in format.
func Export(r *Report, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return ExportToJSON(r, true)
	case FormatCSV:
		return ExportToCSV(r)
	case FormatMarkdown, "md":
		return ExportToMarkdown(r)
	case FormatText, "text":
		return ExportToText(r)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (json, csv, markdown, txt)", shared.ErrInvalidFlag, format)
	}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		return "md"
	case FormatText, "text":
		return "txt"
	default:
		return strings.ToLower(format)
	}
}

// WriteExport renders r in format and writes it to path.
//
// Defaults to amdu_candidates.{ext} as the filename.
func WriteExport(r *Report, format, path string) (string, error) {
	data, err := Export(r, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "amdu_candidates." + Extension(format)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
