package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// singletonID pins the table to exactly one row.
const singletonID = 1

// SQLiteStore persists the settings row in SQLite. Updates run in a
// transaction so concurrent writers serialize on the single row.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the settings database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runtime_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		canary_pct REAL NOT NULL,
		kill_switch INTEGER NOT NULL,
		feature_flags TEXT,
		updated_by TEXT NOT NULL DEFAULT '',
		update_reason TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the current settings, creating defaults on first read.
func (s *SQLiteStore) Get(ctx context.Context) (*Settings, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := readRow(ctx, tx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = Defaults()
		current.UpdatedAt = time.Now().UTC()
		if err := writeRow(ctx, tx, current); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return current, nil
}

// Update applies fn inside a transaction.
func (s *SQLiteStore) Update(ctx context.Context, updatedBy, reason string, fn func(*Settings) error) (*Settings, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := readRow(ctx, tx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = Defaults()
	}

	if err := fn(current); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpdateAborted, err)
	}
	if err := current.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpdateAborted, err)
	}

	current.UpdatedBy = updatedBy
	current.UpdateReason = reason
	current.UpdatedAt = time.Now().UTC()

	if err := writeRow(ctx, tx, current); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return current, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func readRow(ctx context.Context, tx *sql.Tx) (*Settings, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT canary_pct, kill_switch, feature_flags, updated_by, update_reason, updated_at
		FROM runtime_settings WHERE id = ?`, singletonID)

	var (
		out       Settings
		kill      int
		flags     sql.NullString
		updatedAt int64
	)
	err := row.Scan(&out.CanaryPct, &kill, &flags, &out.UpdatedBy, &out.UpdateReason, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	out.KillSwitch = kill != 0
	out.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if flags.Valid && flags.String != "" && flags.String != "null" {
		if err := json.Unmarshal([]byte(flags.String), &out.FeatureFlags); err != nil {
			return nil, fmt.Errorf("failed to decode feature flags: %w", err)
		}
	}
	return &out, nil
}

func writeRow(ctx context.Context, tx *sql.Tx, s *Settings) error {
	flags, err := json.Marshal(s.FeatureFlags)
	if err != nil {
		return fmt.Errorf("failed to encode feature flags: %w", err)
	}

	kill := 0
	if s.KillSwitch {
		kill = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runtime_settings (id, canary_pct, kill_switch, feature_flags, updated_by, update_reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			canary_pct = excluded.canary_pct,
			kill_switch = excluded.kill_switch,
			feature_flags = excluded.feature_flags,
			updated_by = excluded.updated_by,
			update_reason = excluded.update_reason,
			updated_at = excluded.updated_at`,
		singletonID, s.CanaryPct, kill, string(flags), s.UpdatedBy, s.UpdateReason, s.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
