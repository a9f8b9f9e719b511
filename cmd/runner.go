package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amdu/internal/models"
	"github.com/desertthunder/amdu/internal/presets"
	"github.com/desertthunder/amdu/internal/repositories"
	"github.com/desertthunder/amdu/internal/shared"
	"github.com/desertthunder/amdu/internal/tasks"
	"github.com/desertthunder/amdu/internal/workshop"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

// WorkshopOpener creates a workshop handle. Replaced in tests.
type WorkshopOpener func(cfg shared.SteamConfig, logger *log.Logger) (*workshop.Workshop, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config       *shared.Config
	configPath   string
	logger       *log.Logger
	output       io.Writer
	input        io.Reader
	db           *sql.DB
	ownsDB       bool
	openWorkshop WorkshopOpener
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config       *shared.Config
	ConfigPath   string
	Logger       *log.Logger
	Output       io.Writer
	Input        io.Reader
	DB           *sql.DB
	OpenWorkshop WorkshopOpener
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.OpenWorkshop == nil {
		opts.OpenWorkshop = workshop.Open
	}

	return &Runner{
		config:       opts.Config,
		configPath:   opts.ConfigPath,
		logger:       opts.Logger,
		output:       opts.Output,
		input:        opts.Input,
		db:           opts.DB,
		openWorkshop: opts.OpenWorkshop,
	}
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:     "amdu",
		Usage:    "Unsubscribe from Steam workshop items no launcher preset keeps",
		Version:  "0.1.0",
		Flags:    []cli.Flag{configFlag()},
		Before:   r.configure,
		After:    r.close,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, presetsCommand, subscribedCommand, diffCommand, unsubCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file named by --config. A missing default file falls back to built-in defaults.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" {
		path = defaultConfigPath
	}
	r.configPath = path

	if _, err := os.Stat(path); err != nil {
		if cmd.IsSet("config") {
			return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
		r.logger.Debug("config file not found, using defaults", "path", path)
	} else {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	shared.SetLogLevel(r.logger, shared.ParseLevel(r.config.Logging.Level))
	return ctx, nil
}

// close releases a database the runner opened itself. An injected database is left open.
func (r *Runner) close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// database opens the configured database on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db, r.ownsDB = db, true
	return db, nil
}

func (r *Runner) presetRepository() (*repositories.PresetRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewPresetRepository(db), nil
}

func (r *Runner) batchRepository() (*repositories.BatchRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewBatchRepository(db), nil
}

func (r *Runner) newSession(w *workshop.Workshop, recorder tasks.BatchRecorder) *tasks.Session {
	return tasks.NewSession(w, tasks.SessionOptions{
		ExcludedTags:    r.config.Reconcile.ExcludedTags,
		DefaultSelected: r.config.Reconcile.DefaultSelected,
		Recorder:        recorder,
		AppID:           r.config.Steam.AppID,
		Logger:          r.logger,
	})
}

// keepSets returns the saved presets followed by the preset files in extra.
func (r *Runner) keepSets(ctx context.Context, extra []string) ([]models.KeepSet, error) {
	repo, err := r.presetRepository()
	if err != nil {
		return nil, err
	}
	sets, err := repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to load saved presets: %w", err)
	}
	if len(extra) == 0 {
		return sets, nil
	}

	result, err := presets.LoadFiles(ctx, expandPaths(extra), r.logger)
	if err != nil {
		return nil, err
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return append(sets, result.Sets...), nil
}

// reconcile opens the workshop, loads keep sets and fetches the universe.
//
// The caller owns the returned workshop and must shut it down.
func (r *Runner) reconcile(ctx context.Context, cmd *cli.Command) (*workshop.Workshop, *tasks.Session, error) {
	sets, err := r.keepSets(ctx, cmd.StringSlice("preset"))
	if err != nil {
		return nil, nil, err
	}
	recorder, err := r.batchRepository()
	if err != nil {
		return nil, nil, err
	}

	w, err := r.openWorkshop(r.config.Steam, r.logger)
	if err != nil {
		return nil, nil, err
	}

	session := r.newSession(w, recorder)
	session.SetKeepSets(sets)
	if err := session.Refresh(ctx); err != nil {
		w.Shutdown()
		return nil, nil, fmt.Errorf("failed to fetch subscribed items: %w", err)
	}
	return w, session, nil
}

// confirm asks a yes/no question on the runner's input. Anything but y/yes is a no.
func (r *Runner) confirm(format string, args ...any) bool {
	r.writePlain(format+" [y/N] ", args...)
	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

func expandPaths(paths []string) []string {
	expanded := make([]string, len(paths))
	for i, p := range paths {
		expanded[i] = shared.ExpandPath(p)
	}
	return expanded
}
