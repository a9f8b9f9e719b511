package shared

import (
	"cmp"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// migrationName matches "0002_batch_runs_up.sql".
var migrationName = regexp.MustCompile(`^(\d+)_(\w+?)_(up|down)\.sql$`)

// Migration is one embedded schema step of the keep-set and batch-history store.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// parseMigrationName splits a migration file name into version, name and direction.
func parseMigrationName(file string) (version int, name, direction string, ok bool) {
	m := migrationName.FindStringSubmatch(file)
	if m == nil {
		return 0, "", "", false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil || version == 0 {
		return 0, "", "", false
	}
	return version, m[2], m[3], true
}

// loadMigrations returns the embedded migrations sorted by version. Every version needs both scripts.
func loadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		version, name, direction, ok := parseMigrationName(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}

		content, err := migrationFiles.ReadFile(path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if direction == "up" {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("incomplete migration %04d_%s", m.Version, m.Name)
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return migrations, nil
}

// RunMigrations applies every migration newer than the recorded schema version.
func RunMigrations(db *sql.DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := migrate(db, m.Up, `INSERT INTO schema_migrations (version) VALUES (?)`, m.Version)
		if err != nil {
			return fmt.Errorf("failed to apply migration %04d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// RollbackMigration reverts the most recently applied migration and returns it.
//
// Returns [ErrNothingToRollback] when no migration is applied.
func RollbackMigration(db *sql.DB) (Migration, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return Migration{}, fmt.Errorf("failed to load migrations: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return Migration{}, err
	}
	if current == 0 {
		return Migration{}, ErrNothingToRollback
	}

	i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == current })
	if i < 0 {
		return Migration{}, fmt.Errorf("%w: schema version %d is newer than this binary", ErrInvalidConfig, current)
	}

	m := migrations[i]
	if err := migrate(db, m.Down, `DELETE FROM schema_migrations WHERE version = ?`, m.Version); err != nil {
		return Migration{}, fmt.Errorf("failed to roll back migration %04d_%s: %w", m.Version, m.Name, err)
	}
	return m, nil
}

// SchemaVersion returns the highest applied migration version, 0 when none is applied.
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// migrate runs script and the bookkeeping statement in one transaction.
func migrate(db *sql.DB, script, record string, version int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements(script) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%w\nStatement: %s", err, stmt)
		}
	}
	if _, err := tx.Exec(record, version); err != nil {
		return err
	}
	return tx.Commit()
}

// statements splits script on ";" after dropping "--" comments and blank lines.
func statements(script string) []string {
	var lines []string
	for line := range strings.SplitSeq(script, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	var stmts []string
	for stmt := range strings.SplitSeq(strings.Join(lines, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
