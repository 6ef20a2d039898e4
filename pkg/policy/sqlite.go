package policy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"steward-hq/steward/pkg/yardstick"
)

// policySchema is the SQLite schema for policies and their stats. The
// condition tree and params are stored as JSON in their wire form.
const policySchema = `
CREATE TABLE IF NOT EXISTS policies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	enabled INTEGER NOT NULL,
	priority INTEGER NOT NULL,
	condition TEXT NOT NULL,
	action TEXT NOT NULL,
	params TEXT,
	confidence_threshold REAL NOT NULL,
	provenance TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policies_priority ON policies(priority, name);

CREATE TABLE IF NOT EXISTS policy_stats (
	policy_id TEXT NOT NULL,
	user TEXT NOT NULL,
	fired INTEGER NOT NULL DEFAULT 0,
	approved INTEGER NOT NULL DEFAULT 0,
	rejected INTEGER NOT NULL DEFAULT 0,
	window_days INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (policy_id, user)
);
`

// SQLiteStore is a Store backed by SQLite (modernc.org/sqlite, no cgo).
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a policy database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("sqlite", "open", err)
	}

	// Serialized writes keep the unique-name check and the insert atomic.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, storageErr("sqlite", "pragma", err)
	}
	if _, err := db.Exec(policySchema); err != nil {
		db.Close()
		return nil, storageErr("sqlite", "create_schema", err)
	}

	logger := slog.Default().With("component", "policy.sqlite")
	logger.Info("policy store opened", "path", path)

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Save creates or updates a policy after validation.
func (s *SQLiteStore) Save(ctx context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = time.Now().UTC()

	condJSON, err := json.Marshal(p.Condition)
	if err != nil {
		return storageErr("sqlite", "marshal_condition", err)
	}
	paramsJSON, err := json.Marshal(p.Params)
	if err != nil {
		return storageErr("sqlite", "marshal_params", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO policies (id, name, enabled, priority, condition, action, params, confidence_threshold, provenance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			enabled = excluded.enabled,
			priority = excluded.priority,
			condition = excluded.condition,
			action = excluded.action,
			params = excluded.params,
			confidence_threshold = excluded.confidence_threshold,
			provenance = excluded.provenance,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, boolToInt(p.Enabled), p.Priority, string(condJSON), string(p.Action),
		string(paramsJSON), p.ConfidenceThreshold, p.Provenance,
		p.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: policies.name") {
			return &DuplicateNameError{Name: p.Name}
		}
		return storageErr("sqlite", "save", err)
	}
	return nil
}

// Get returns a policy by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Policy, error) {
	return s.queryOne(ctx, "WHERE id = ?", id)
}

// GetByName returns a policy by name.
func (s *SQLiteStore) GetByName(ctx context.Context, name string) (*Policy, error) {
	return s.queryOne(ctx, "WHERE name = ?", name)
}

func (s *SQLiteStore) queryOne(ctx context.Context, where string, arg interface{}) (*Policy, error) {
	row := s.db.QueryRowContext(ctx, selectPolicy+where, arg)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("sqlite", "get", err)
	}
	return p, nil
}

const selectPolicy = `
	SELECT id, name, enabled, priority, condition, action, params, confidence_threshold, provenance, created_at, updated_at
	FROM policies `

// List returns all policies in evaluation order.
func (s *SQLiteStore) List(ctx context.Context) ([]*Policy, error) {
	return s.queryMany(ctx, selectPolicy+"ORDER BY priority, name")
}

// ListEnabled returns enabled policies in evaluation order.
func (s *SQLiteStore) ListEnabled(ctx context.Context) ([]*Policy, error) {
	return s.queryMany(ctx, selectPolicy+"WHERE enabled = 1 ORDER BY priority, name")
}

func (s *SQLiteStore) queryMany(ctx context.Context, query string) ([]*Policy, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("sqlite", "list", err)
	}
	defer rows.Close()

	var out []*Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, storageErr("sqlite", "scan", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPolicy(row rowScanner) (*Policy, error) {
	var (
		p          Policy
		enabled    int
		condJSON   string
		paramsJSON sql.NullString
		provenance sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&p.ID, &p.Name, &enabled, &p.Priority, &condJSON, (*string)(&p.Action),
		&paramsJSON, &p.ConfidenceThreshold, &provenance, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Enabled = enabled != 0
	p.Provenance = provenance.String

	var node yardstick.Node
	if err := json.Unmarshal([]byte(condJSON), &node); err != nil {
		return nil, fmt.Errorf("stored condition for policy %q is corrupt: %w", p.Name, err)
	}
	p.Condition = &node

	if paramsJSON.Valid && paramsJSON.String != "" && paramsJSON.String != "null" {
		if err := json.Unmarshal([]byte(paramsJSON.String), &p.Params); err != nil {
			return nil, fmt.Errorf("stored params for policy %q are corrupt: %w", p.Name, err)
		}
	}

	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetEnabled flips the enabled flag.
func (s *SQLiteStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return s.updateField(ctx, "UPDATE policies SET enabled = ?, updated_at = ? WHERE id = ?", boolToInt(enabled), id)
}

// SetPriority changes the priority.
func (s *SQLiteStore) SetPriority(ctx context.Context, id string, priority int) error {
	return s.updateField(ctx, "UPDATE policies SET priority = ?, updated_at = ? WHERE id = ?", priority, id)
}

func (s *SQLiteStore) updateField(ctx context.Context, query string, value interface{}, id string) error {
	res, err := s.db.ExecContext(ctx, query, value, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return storageErr("sqlite", "update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("sqlite", "update", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a policy and its stats rows.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("sqlite", "begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM policies WHERE id = ?", id)
	if err != nil {
		return storageErr("sqlite", "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("sqlite", "delete", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM policy_stats WHERE policy_id = ?", id); err != nil {
		return storageErr("sqlite", "delete_stats", err)
	}
	return tx.Commit()
}

// RecordFired increments the fired counter.
func (s *SQLiteStore) RecordFired(ctx context.Context, policyID, user string) error {
	return s.bumpStat(ctx, policyID, user, "fired")
}

// RecordReview increments an outcome counter.
func (s *SQLiteStore) RecordReview(ctx context.Context, policyID, user string, approved bool) error {
	col := "rejected"
	if approved {
		col = "approved"
	}
	return s.bumpStat(ctx, policyID, user, col)
}

// bumpStat upserts the stats row and increments one counter. Column names
// come from a fixed internal set, never from input.
func (s *SQLiteStore) bumpStat(ctx context.Context, policyID, user, column string) error {
	query := fmt.Sprintf(`
		INSERT INTO policy_stats (policy_id, user, %s) VALUES (?, ?, 1)
		ON CONFLICT(policy_id, user) DO UPDATE SET %s = %s + 1`, column, column, column)
	if _, err := s.db.ExecContext(ctx, query, policyID, user); err != nil {
		return storageErr("sqlite", "bump_stat", err)
	}
	return nil
}

// GetStats returns the tally for (policy, user). Ratios are derived at
// read time so they are always consistent with the counters.
func (s *SQLiteStore) GetStats(ctx context.Context, policyID, user string) (*Stats, error) {
	st := &Stats{PolicyID: policyID, User: user}
	err := s.db.QueryRowContext(ctx, `
		SELECT fired, approved, rejected, window_days
		FROM policy_stats WHERE policy_id = ? AND user = ?`, policyID, user).
		Scan(&st.Fired, &st.Approved, &st.Rejected, &st.WindowDays)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return nil, storageErr("sqlite", "get_stats", err)
	}
	st.recompute()
	return st, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
