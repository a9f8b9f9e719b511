package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/amdu/internal/presets"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/urfave/cli/v3"
)

// PresetsAdd parses launcher preset files and saves each one as a keep list.
//
// Files that parse are saved even when others fail; the failures are returned together.
func (r *Runner) PresetsAdd(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one preset file is required", shared.ErrMissingArgument)
	}

	repo, err := r.presetRepository()
	if err != nil {
		return err
	}

	result, err := presets.LoadFiles(ctx, expandPaths(paths), r.logger)
	if err != nil {
		return err
	}

	for _, set := range result.Sets {
		if err := repo.Save(set); err != nil {
			return fmt.Errorf("failed to save preset %q: %w", set.Name, err)
		}
		r.logger.Info("saved preset", "name", set.Name, "items", len(set.Entries), "source", set.Source)
		r.writePlain("✓ Saved preset %q (%d items)\n", set.Name, len(set.Entries))
	}
	for _, loadErr := range result.Errors {
		r.writePlain("✗ %s: %v\n", loadErr.Path, loadErr.Err)
	}

	return result.Err()
}

// PresetsList prints saved presets.
func (r *Runner) PresetsList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.presetRepository()
	if err != nil {
		return err
	}
	sets, err := repo.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(sets, cmd.Bool("pretty"))
	}

	if len(sets) == 0 {
		r.writePlain("No saved presets. Add one with 'amdu presets add <file.html>'.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Saved presets (%d)", len(sets)))
	for _, set := range sets {
		r.writePlain("%-30s %5d items", set.Name, len(set.Entries))
		if set.Source != "" {
			r.writePlain("  %s", set.Source)
		}
		r.writePlain("\n")
	}
	return nil
}

// PresetsRemove deletes one saved preset by name.
func (r *Runner) PresetsRemove(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("%w: preset name is required", shared.ErrMissingArgument)
	}

	repo, err := r.presetRepository()
	if err != nil {
		return err
	}
	if err := repo.Delete(name); err != nil {
		return err
	}

	r.writePlain("✓ Removed preset %q\n", name)
	return nil
}

// PresetsClear deletes every saved preset.
func (r *Runner) PresetsClear(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.presetRepository()
	if err != nil {
		return err
	}
	n, err := repo.Clear()
	if err != nil {
		return err
	}

	r.writePlain("✓ Removed %d preset(s)\n", n)
	return nil
}
