package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// bootstrapVersion creates schema_migrations itself, so it can't be looked up first.
const bootstrapVersion = "000001"

// Migration represents a single database migration.
type Migration struct {
	Version     string
	Description string
	UpSQL       string
	DownSQL     string
}

// Migrator handles database migrations.
type Migrator struct {
	pool   *pgxpool.Pool
	schema string
	source fs.FS
	logger *logging.Logger
}

// NewMigrator creates a new migrator over the embedded migrations.
func NewMigrator(conn *Connection, logger *logging.Logger) *Migrator {
	return &Migrator{
		pool:   conn.Pool(),
		schema: conn.Schema(),
		source: migrationsFS,
		logger: logger.WithComponent("migrator"),
	}
}

// Run applies all pending migrations.
func (m *Migrator) Run(ctx context.Context) error {
	m.logger.MigrationStarted()

	migrations, err := LoadMigrations(m.source)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	appliedCount := 0
	for _, migration := range migrations {
		applied, err := m.applyMigration(ctx, migration)
		if err != nil {
			m.logger.MigrationFailed(migration.Version, migration.Description, err)
			return fmt.Errorf("applying migration %s: %w", migration.Version, err)
		}
		if applied {
			appliedCount++
		}
	}

	m.logger.MigrationCompleted(appliedCount)
	return nil
}

// parseMigrationName splits 000001_description.up.sql into its parts.
func parseMigrationName(name string) (version, description, direction string, ok bool) {
	var base string
	switch {
	case strings.HasSuffix(name, ".up.sql"):
		direction = "up"
		base = strings.TrimSuffix(name, ".up.sql")
	case strings.HasSuffix(name, ".down.sql"):
		direction = "down"
		base = strings.TrimSuffix(name, ".down.sql")
	default:
		return "", "", "", false
	}

	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], direction, true
}

// LoadMigrations reads migration files from the migrations directory of fsys,
// sorted by version. versions without an up script are ignored.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	byVersion := make(map[string]*Migration)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		version, description, direction, ok := parseMigrationName(name)
		if !ok {
			continue
		}

		// fs paths always use forward slashes
		content, err := fs.ReadFile(fsys, "migrations/"+name)
		if err != nil {
			return nil, fmt.Errorf("reading migration file %s: %w", name, err)
		}

		mig, exists := byVersion[version]
		if !exists {
			mig = &Migration{Version: version, Description: description}
			byVersion[version] = mig
		}

		if direction == "up" {
			mig.UpSQL = string(content)
		} else {
			mig.DownSQL = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.UpSQL != "" {
			migrations = append(migrations, *mig)
		}
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func (m *Migrator) migrationsTable() string {
	return pgx.Identifier{m.schema, "schema_migrations"}.Sanitize()
}

// applyMigration applies a single migration if not already applied.
// returns true if migration was applied, false if already applied.
func (m *Migrator) applyMigration(ctx context.Context, migration Migration) (bool, error) {
	var exists bool
	err := m.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+m.migrationsTable()+` WHERE version = $1)`,
		migration.Version,
	).Scan(&exists)

	// schema_migrations doesn't exist until the bootstrap migration ran
	if err != nil && migration.Version != bootstrapVersion {
		return false, fmt.Errorf("checking migration status: %w", err)
	}

	if exists {
		m.logger.MigrationSkipped(migration.Version, migration.Description)
		return false, nil
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, migration.UpSQL); err != nil {
		return false, fmt.Errorf("executing migration: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO `+m.migrationsTable()+` (version, description) VALUES ($1, $2)`,
		migration.Version, migration.Description,
	); err != nil {
		return false, fmt.Errorf("recording migration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}

	m.logger.MigrationApplied(migration.Version, migration.Description)
	return true, nil
}

// AppliedMigrations returns the applied versions in order. a database the
// bootstrap migration never ran on has none.
func (m *Migrator) AppliedMigrations(ctx context.Context) ([]string, error) {
	var present bool
	if err := m.pool.QueryRow(ctx,
		`SELECT to_regclass($1) IS NOT NULL`,
		m.migrationsTable(),
	).Scan(&present); err != nil {
		return nil, fmt.Errorf("looking up migrations table: %w", err)
	}
	if !present {
		return []string{}, nil
	}

	rows, err := m.pool.Query(ctx,
		`SELECT version FROM `+m.migrationsTable()+` ORDER BY version`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// MigrationStatus pairs a known migration with whether it has been applied.
type MigrationStatus struct {
	Migration
	Applied bool
}

// Status lists every embedded migration in version order.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	migrations, err := LoadMigrations(m.source)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	applied, err := m.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	return migrationStatus(migrations, applied), nil
}

func migrationStatus(migrations []Migration, applied []string) []MigrationStatus {
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	statuses := make([]MigrationStatus, len(migrations))
	for i, mig := range migrations {
		statuses[i] = MigrationStatus{Migration: mig, Applied: done[mig.Version]}
	}
	return statuses
}

// Down reverts the newest steps applied migrations and returns how many ran.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	if steps < 1 {
		return 0, errors.New("steps must be at least 1")
	}

	migrations, err := LoadMigrations(m.source)
	if err != nil {
		return 0, fmt.Errorf("loading migrations: %w", err)
	}
	applied, err := m.AppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	plan, err := revertPlan(migrations, applied, steps)
	if err != nil {
		return 0, err
	}

	for i, mig := range plan {
		if err := m.revertMigration(ctx, mig); err != nil {
			m.logger.MigrationFailed(mig.Version, mig.Description, err)
			return i, fmt.Errorf("reverting migration %s: %w", mig.Version, err)
		}
	}
	return len(plan), nil
}

// revertPlan picks the migrations to revert, newest first. every one of them
// must still be embedded and carry a down script.
func revertPlan(migrations []Migration, applied []string, steps int) ([]Migration, error) {
	byVersion := make(map[string]Migration, len(migrations))
	for _, mig := range migrations {
		byVersion[mig.Version] = mig
	}

	plan := make([]Migration, 0, min(steps, len(applied)))
	for i := len(applied) - 1; i >= 0 && len(plan) < steps; i-- {
		mig, ok := byVersion[applied[i]]
		if !ok {
			return nil, fmt.Errorf("applied migration %s is not embedded", applied[i])
		}
		if strings.TrimSpace(mig.DownSQL) == "" {
			return nil, fmt.Errorf("migration %s has no down script", mig.Version)
		}
		plan = append(plan, mig)
	}
	return plan, nil
}

func (m *Migrator) revertMigration(ctx context.Context, migration Migration) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, migration.DownSQL); err != nil {
		return fmt.Errorf("executing down script: %w", err)
	}

	// the bootstrap down script drops schema_migrations along with its row
	if migration.Version != bootstrapVersion {
		if _, err := tx.Exec(ctx,
			`DELETE FROM `+m.migrationsTable()+` WHERE version = $1`,
			migration.Version,
		); err != nil {
			return fmt.Errorf("forgetting migration: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	m.logger.MigrationReverted(migration.Version, migration.Description)
	return nil
}
