package main

import (
	"context"

	"github.com/desertthunder/amdu/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations. With --rollback it reverts the newest applied migration.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.database()
	if err != nil {
		return err
	}

	if cmd.Bool("rollback") {
		m, err := shared.RollbackMigration(db)
		if err != nil {
			return err
		}
		r.logger.Warn("rolled back migration", "version", m.Version, "name", m.Name)
		r.writePlain("✓ Rolled back migration %d (%s)\n", m.Version, m.Name)
		return nil
	}

	version, err := shared.SchemaVersion(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s (schema version %d)\n", r.config.Database.Path, version)
	return nil
}

// SetupConfig writes the default configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = defaultConfigPath
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Wrote %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set steam.library_path to your steamapps directory\n")
	r.writePlain("2. Run 'amdu presets add <preset.html>' for each launcher preset you keep\n")
	r.writePlain("3. Run 'amdu diff' to see what would be removed\n")
	return nil
}
