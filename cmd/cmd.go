// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func presetFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "preset",
		Aliases: []string{"p"},
		Usage:   "Launcher preset file to keep in addition to saved presets (repeatable)",
	}
}

// setupCommand handles setup operations for the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write the default configuration file",
				Action: r.SetupConfig,
			},
		},
	}
}

// presetsCommand manages saved keep lists.
func presetsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "presets",
		Aliases: []string{"preset"},
		Usage:   "Manage saved launcher presets",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Parse launcher preset files and save them",
				ArgsUsage: "<file.html>...",
				Action:    r.PresetsAdd,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List saved presets",
				Flags:   outputFlags(),
				Action:  r.PresetsList,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a saved preset by name",
				ArgsUsage: "<name>",
				Action:    r.PresetsRemove,
			},
			{
				Name:   "clear",
				Usage:  "Remove all saved presets",
				Action: r.PresetsClear,
			},
		},
	}
}

func subscribedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "subscribed",
		Usage:  "List subscribed workshop items",
		Flags:  outputFlags(),
		Action: r.Subscribed,
	}
}

// diffCommand prints the removal candidates without changing anything.
func diffCommand(r *Runner) *cli.Command {
	flags := []cli.Flag{
		presetFlag(),
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Fuzzy filter candidates by name",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Export format: json, csv, markdown or txt",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Export file path (default: amdu_candidates.<ext>)",
		},
	}
	return &cli.Command{
		Name:   "diff",
		Usage:  "Show subscribed items that no preset keeps",
		Flags:  append(flags, outputFlags()...),
		Action: r.Diff,
	}
}

// unsubCommand removes the removal candidates.
func unsubCommand(r *Runner) *cli.Command {
	flags := []cli.Flag{
		presetFlag(),
		&cli.StringSliceFlag{
			Name:  "id",
			Usage: "Only unsubscribe these candidate ids (repeatable)",
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Do not ask for confirmation",
		},
	}
	return &cli.Command{
		Name:    "unsub",
		Aliases: []string{"unsubscribe"},
		Usage:   "Unsubscribe from items that no preset keeps",
		Flags:   append(flags, outputFlags()...),
		Action:  r.Unsub,
	}
}

func historyCommand(r *Runner) *cli.Command {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of batches to show",
			Value: 20,
		},
	}
	return &cli.Command{
		Name:   "history",
		Usage:  "Show past unsubscribe batches",
		Flags:  append(flags, outputFlags()...),
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command for interactive reconciliation.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI",
		Action:  r.TUI,
	}
}
