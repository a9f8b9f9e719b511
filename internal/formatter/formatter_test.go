package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/shared"
	th "github.com/desertthunder/amdu/internal/testing"
)

func testReport() *Report {
	return &Report{
		AppID:       107410,
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Presets:     []string{"Coop", "Zeus"},
		Stats:       models.Stats{Subscribed: 5, Candidates: 2, Selected: 1, SelectedBytes: 1_500_000_000},
		Candidates: []models.RemovalCandidate{
			{
				Item: models.RemoteItem{
					ID:             450814997,
					Name:           "CBA_A3",
					URL:            "https://steamcommunity.com/sharedfiles/filedetails/?id=450814997",
					LocalSizeBytes: 1_500_000_000,
				},
				Selected: true,
			},
			{
				Item: models.RemoteItem{
					ID:   463939057,
					Name: "ace, extended",
					URL:  "https://steamcommunity.com/sharedfiles/filedetails/?id=463939057",
				},
				Selected: false,
			},
		},
	}
}

func TestFormatSize(t *testing.T) {
	tc := map[uint64]string{
		0:             "0 B",
		999:           "999 B",
		1000:          "1.0 kB",
		1_500_000_000: "1.5 GB",
	}
	for in, want := range tc {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testReport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,Name,Size,Size Bytes,Selected,URL") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "450814997,CBA_A3,1.5 GB,1500000000,true,") {
			t.Errorf("CSV missing first candidate, got: %s", output)
		}
		if !strings.Contains(output, `"ace, extended"`) {
			t.Errorf("CSV should quote names containing commas, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testReport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "**Presets**: Coop, Zeus") {
			t.Errorf("Markdown missing presets, got: %s", output)
		}
		if !strings.Contains(output, "**Selected**: 1 (1.5 GB)") {
			t.Errorf("Markdown missing selection summary, got: %s", output)
		}
		if !strings.Contains(output, "- [x] [CBA_A3]") || !strings.Contains(output, "- [ ] [ace, extended]") {
			t.Errorf("Markdown missing checklist, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown without presets", func(t *testing.T) {
		r := testReport()
		r.Presets = nil
		data, _ := ExportToMarkdown(r)
		if !strings.Contains(string(data), "nothing is protected") {
			t.Errorf("expected note about missing presets, got: %s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testReport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Space freed: 1.5 GB") {
			t.Errorf("text missing freed space, got: %s", output)
		}
		if !strings.Contains(output, "2. ace, extended (463939057) 0 B") {
			t.Errorf("text missing second candidate, got: %s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(testReport(), false)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded Report
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded.Candidates) != 2 || decoded.Stats.Selected != 1 {
			t.Errorf("unexpected decoded report %+v", decoded)
		}
	})

	t.Run("Export rejects unknown formats", func(t *testing.T) {
		if _, err := Export(testReport(), "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.md")

		got, err := WriteExport(testReport(), "md", path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		if !strings.Contains(th.MustReadFile(t, path), "# Workshop removal candidates") {
			t.Error("markdown file has unexpected content")
		}
	})

	t.Run("default filename", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		got, err := WriteExport(testReport(), FormatCSV, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != "amdu_candidates.csv" {
			t.Errorf("unexpected default filename %s", got)
		}
		th.AssertFileExists(t, filepath.Join(tempDir, got))
	})

	t.Run("write failure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "report.txt")
		if _, err := WriteExport(testReport(), FormatText, path); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}
