package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// History lists recorded unsubscribe batches, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.batchRepository()
	if err != nil {
		return err
	}
	runs, err := repo.List(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		r.writePlain("No batches recorded yet.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Unsubscribe history (%d)", len(runs)))
	for _, run := range runs {
		r.writePlain("%s  %-16s removed %d/%d", run.ID, humanize.Time(run.StartedAt), run.Succeeded, run.Attempted)
		if n := len(run.Failures); n > 0 {
			r.writePlain(", %d failed", n)
		}
		r.writePlain("\n")
		for _, f := range run.Failures {
			r.writePlain("    - %s: %s\n", f.ID, f.Error)
		}
	}
	return nil
}
