package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/amdu/internal/formatter"
	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/reconcile"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/desertthunder/amdu/internal/tasks"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Subscribed lists every subscribed item with its local size.
func (r *Runner) Subscribed(ctx context.Context, cmd *cli.Command) error {
	w, err := r.openWorkshop(r.config.Steam, r.logger)
	if err != nil {
		return err
	}
	defer w.Shutdown()

	items, err := w.FetchSubscribed(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch subscribed items: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	var total uint64
	r.writePlainHeader(fmt.Sprintf("Subscribed items (%d)", len(items)))
	for _, item := range items {
		total += item.LocalSizeBytes
		r.writePlain("%-12s %-50s %10s\n", item.ID, item.Name, formatter.FormatSize(item.LocalSizeBytes))
	}
	r.writePlainln("Total on disk: %s", formatter.FormatSize(total))
	return nil
}

// Diff prints or exports the removal candidates without unsubscribing anything.
func (r *Runner) Diff(ctx context.Context, cmd *cli.Command) error {
	w, session, err := r.reconcile(ctx, cmd)
	if err != nil {
		return err
	}
	defer w.Shutdown()

	report := r.report(session, cmd.String("filter"))

	if format := cmd.String("format"); format != "" {
		path, err := formatter.WriteExport(report, format, cmd.String("output"))
		if err != nil {
			return err
		}
		r.logger.Info("exported candidates", "format", format, "path", path)
		r.writePlain("✓ Exported %d candidates to %s\n", len(report.Candidates), path)
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	r.writeSummary(report)
	if len(report.Candidates) == 0 {
		r.writePlain("\nNothing to remove.\n")
		return nil
	}
	r.writePlain("\n")
	for _, c := range report.Candidates {
		mark := " "
		if c.Selected {
			mark = "x"
		}
		r.writePlain("[%s] %-12s %-50s %10s\n", mark, c.Item.ID, c.Item.Name, formatter.FormatSize(c.Item.LocalSizeBytes))
	}
	return nil
}

// Unsub unsubscribes from the selected removal candidates and refreshes.
//
// With --id only the named candidates are selected. Without --yes the user is asked first.
func (r *Runner) Unsub(ctx context.Context, cmd *cli.Command) error {
	w, session, err := r.reconcile(ctx, cmd)
	if err != nil {
		return err
	}
	defer w.Shutdown()

	if ids := cmd.StringSlice("id"); len(ids) > 0 {
		if err := selectOnly(session, ids); err != nil {
			return err
		}
	}

	stats := session.Stats()
	if stats.Selected == 0 {
		r.writePlain("Nothing to unsubscribe.\n")
		return nil
	}

	if !cmd.Bool("yes") && !r.confirm("Unsubscribe from %d item(s), freeing %s?", stats.Selected, formatter.FormatSize(stats.SelectedBytes)) {
		r.writePlain("Aborted.\n")
		return nil
	}

	updates := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.printProgress(session.Progress(), updates)
	}()

	result, err := session.RunBatch(ctx, updates)
	close(updates)
	<-done

	if result != nil {
		if cmd.Bool("json") {
			if jsonErr := r.writeJSON(result.Run(), cmd.Bool("pretty")); jsonErr != nil {
				return jsonErr
			}
		} else {
			r.writeBatchSummary(result)
		}
	}

	if err != nil {
		return err
	}
	return result.Err()
}

// printProgress renders batch updates, as one rewritten line on a terminal and as plain lines otherwise.
func (r *Runner) printProgress(progress *tasks.Progress, updates <-chan tasks.ProgressUpdate) {
	live := false
	if f, ok := r.output.(*os.File); ok {
		live = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	for update := range updates {
		if !live {
			r.writePlain("%s\n", update.Message)
			continue
		}
		if update.Phase != tasks.Unsubscribe {
			r.writePlain("\r\033[K%s", update.Message)
			continue
		}
		snap := progress.Snapshot()
		r.writePlain("\r\033[K[%d/%d] %3.0f%% %s", snap.Completed, snap.Total, snap.Fraction()*100, update.Message)
	}
	if live {
		r.writePlain("\n")
	}
}

func (r *Runner) writeBatchSummary(result *tasks.BatchResult) {
	r.writePlain("\n")
	r.writePlainHeader("Unsubscribe Complete!")
	r.writePlain("Batch: %s\n", result.ID)
	r.writePlain("Removed: %d/%d\n", result.Succeeded, result.Attempted)
	r.writePlain("Duration: %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	if len(result.Failures) > 0 {
		r.writePlain("\nFailed to unsubscribe %d item(s):\n", len(result.Failures))
		for _, f := range result.Failures {
			r.writePlain("  - %s: %v\n", f.ID, f.Err)
		}
	}
}

func (r *Runner) report(session *tasks.Session, filter string) *formatter.Report {
	names := make([]string, 0)
	for _, set := range session.KeepSets() {
		names = append(names, set.Name)
	}
	return &formatter.Report{
		AppID:       r.config.Steam.AppID,
		GeneratedAt: time.Now().UTC(),
		Presets:     names,
		Stats:       session.Stats(),
		Candidates:  reconcile.Filter(session.Candidates(), filter),
	}
}

func (r *Runner) writeSummary(report *formatter.Report) {
	r.writePlainHeader(fmt.Sprintf("Workshop app %d", report.AppID))
	if len(report.Presets) == 0 {
		r.writePlain("Presets: none, nothing is protected\n")
	} else {
		r.writePlain("Presets: %s\n", strings.Join(report.Presets, ", "))
	}
	r.writePlain("Subscribed: %d\n", report.Stats.Subscribed)
	r.writePlain("Candidates: %d\n", report.Stats.Candidates)
	r.writePlain("Selected: %d (%s)\n", report.Stats.Selected, formatter.FormatSize(report.Stats.SelectedBytes))
}

// selectOnly narrows the selection to ids, which must all be removal candidates.
func selectOnly(session *tasks.Session, ids []string) error {
	wanted := make([]models.ItemID, 0, len(ids))
	for _, raw := range ids {
		id, err := models.ParseItemID(raw)
		if err != nil {
			return fmt.Errorf("%w: %q is not a workshop item id", shared.ErrInvalidArgument, raw)
		}
		wanted = append(wanted, id)
	}

	session.SetAll(false)
	for _, id := range slices.Compact(slices.Sorted(slices.Values(wanted))) {
		if !session.Toggle(id) {
			return fmt.Errorf("%w: %s is not a removal candidate", shared.ErrInvalidArgument, id)
		}
	}
	return nil
}
