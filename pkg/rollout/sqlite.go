package rollout

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const bundleSchema = `
CREATE TABLE IF NOT EXISTS bundles (
	id TEXT PRIMARY KEY,
	version TEXT NOT NULL UNIQUE,
	rules TEXT,
	active INTEGER NOT NULL DEFAULT 0,
	canary_pct REAL NOT NULL DEFAULT 0,
	activated_at TEXT,
	activated_by TEXT,
	approval_id TEXT,
	provenance TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bundles_active ON bundles(active);
`

// SQLiteStore is a Store backed by SQLite (modernc.org/sqlite, no
// cgo). Activation runs in a transaction so the exactly-one-active
// invariant holds across concurrent activate and rollback calls.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a bundle database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("sqlite", "open", err)
	}

	// Serialized writes keep activation swaps atomic.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, storageErr("sqlite", "pragma", err)
	}
	if _, err := db.Exec(bundleSchema); err != nil {
		db.Close()
		return nil, storageErr("sqlite", "schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create persists a new draft bundle.
func (s *SQLiteStore) Create(ctx context.Context, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}

	b.ID = uuid.NewString()
	b.Active = false
	b.CanaryPct = 0
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	provenance, err := json.Marshal(b.Provenance)
	if err != nil {
		return storageErr("sqlite", "marshal_provenance", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bundles (id, version, rules, active, canary_pct, provenance, created_at)
		VALUES (?, ?, ?, 0, 0, ?, ?)`,
		b.ID, b.Version, string(b.Rules), string(provenance), b.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return stateErr(KindDuplicateVersion, b.Version, "version already exists")
		}
		return storageErr("sqlite", "create", err)
	}
	return nil
}

// Get returns a bundle by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Bundle, error) {
	return s.getOne(ctx, "id = ?", id)
}

// GetByVersion returns a bundle by version.
func (s *SQLiteStore) GetByVersion(ctx context.Context, version string) (*Bundle, error) {
	return s.getOne(ctx, "version = ?", version)
}

func (s *SQLiteStore) getOne(ctx context.Context, where string, arg interface{}) (*Bundle, error) {
	row := s.db.QueryRowContext(ctx, bundleColumns+" FROM bundles WHERE "+where, arg)
	b, err := scanBundle(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("sqlite", "get", err)
	}
	return b, nil
}

// List returns all bundles, newest created first.
func (s *SQLiteStore) List(ctx context.Context) ([]*Bundle, error) {
	rows, err := s.db.QueryContext(ctx, bundleColumns+" FROM bundles ORDER BY created_at DESC, version DESC")
	if err != nil {
		return nil, storageErr("sqlite", "list", err)
	}
	defer rows.Close()

	bundles := []*Bundle{}
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, storageErr("sqlite", "scan", err)
		}
		bundles = append(bundles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("sqlite", "list", err)
	}
	return bundles, nil
}

// GetActive returns the active bundle, or nil.
func (s *SQLiteStore) GetActive(ctx context.Context) (*Bundle, error) {
	row := s.db.QueryRowContext(ctx, bundleColumns+" FROM bundles WHERE active = 1")
	b, err := scanBundle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("sqlite", "get_active", err)
	}
	return b, nil
}

// Activate atomically swaps the active flag to id inside a
// transaction.
func (s *SQLiteStore) Activate(ctx context.Context, id string, pct float64, actor, approvalID string, at time.Time) (*Bundle, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("sqlite", "begin", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM bundles WHERE id = ?", id).Scan(&exists); err != nil {
		return nil, storageErr("sqlite", "activate", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "UPDATE bundles SET active = 0, canary_pct = 0 WHERE active = 1 AND id != ?", id); err != nil {
		return nil, storageErr("sqlite", "deactivate", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE bundles SET active = 1, canary_pct = ?, activated_at = ?, activated_by = ?, approval_id = ?
		WHERE id = ?`,
		pct, at.Format(time.RFC3339Nano), actor, approvalID, id,
	); err != nil {
		return nil, storageErr("sqlite", "activate", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("sqlite", "commit", err)
	}
	return s.Get(ctx, id)
}

// Promote sets the canary percentage of an active bundle. The active
// precondition is part of the UPDATE's WHERE clause.
func (s *SQLiteStore) Promote(ctx context.Context, id string, pct float64) (*Bundle, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE bundles SET canary_pct = ? WHERE id = ? AND active = 1", pct, id)
	if err != nil {
		return nil, storageErr("sqlite", "promote", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, storageErr("sqlite", "promote", err)
	}
	if n == 0 {
		b, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, stateErr(KindBundleInactive, b.Version, "cannot promote an inactive bundle")
	}
	return s.Get(ctx, id)
}

// StampProvenance merges entries into a bundle's provenance map.
func (s *SQLiteStore) StampProvenance(ctx context.Context, id string, entries map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("sqlite", "begin", err)
	}
	defer tx.Rollback()

	var raw sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT provenance FROM bundles WHERE id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return storageErr("sqlite", "stamp_provenance", err)
	}

	provenance := map[string]string{}
	if raw.Valid && raw.String != "" && raw.String != "null" {
		if err := json.Unmarshal([]byte(raw.String), &provenance); err != nil {
			return storageErr("sqlite", "stamp_provenance", err)
		}
	}
	for k, v := range entries {
		provenance[k] = v
	}

	merged, err := json.Marshal(provenance)
	if err != nil {
		return storageErr("sqlite", "stamp_provenance", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE bundles SET provenance = ? WHERE id = ?", string(merged), id); err != nil {
		return storageErr("sqlite", "stamp_provenance", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("sqlite", "commit", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

const bundleColumns = `SELECT id, version, rules, active, canary_pct, activated_at,
	activated_by, approval_id, provenance, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBundle(row rowScanner) (*Bundle, error) {
	b := &Bundle{}
	var rules, activatedAt, activatedBy, approvalID, provenance sql.NullString
	var active int
	var createdAt string

	err := row.Scan(
		&b.ID, &b.Version, &rules, &active, &b.CanaryPct, &activatedAt,
		&activatedBy, &approvalID, &provenance, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	b.Active = active != 0
	b.ActivatedBy = activatedBy.String
	b.ApprovalID = approvalID.String
	if rules.Valid && rules.String != "" {
		b.Rules = json.RawMessage(rules.String)
	}
	if provenance.Valid && provenance.String != "" && provenance.String != "null" {
		if err := json.Unmarshal([]byte(provenance.String), &b.Provenance); err != nil {
			return nil, err
		}
	}
	if activatedAt.Valid && activatedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, activatedAt.String)
		if err != nil {
			return nil, err
		}
		b.ActivatedAt = t
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	b.CreatedAt = created
	return b, nil
}
