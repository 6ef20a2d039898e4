package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is the current audit database schema version.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS audit_actions (
    id TEXT PRIMARY KEY,
    subject_record_id TEXT NOT NULL,
    action TEXT NOT NULL,
    params TEXT,
    actor TEXT NOT NULL,
    outcome TEXT NOT NULL,
    error TEXT,
    why TEXT,
    evidence TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_actions(subject_record_id);
CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_actions(actor);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_actions(timestamp);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore creates a SQLite audit store and initializes the
// schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStore{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError("sqlite", "enable_wal", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Append records an action.
func (s *SQLiteStore) Append(ctx context.Context, action *Action) (*Action, error) {
	if err := validateAction(action); err != nil {
		return nil, err
	}

	stored := cloneAction(action)
	stored.ID = uuid.NewString()
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}

	params, err := json.Marshal(stored.Params)
	if err != nil {
		return nil, NewStorageError("sqlite", "marshal_params", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_actions (
			id, subject_record_id, action, params, actor,
			outcome, error, why, evidence, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.SubjectRecordID, stored.Action, string(params), stored.Actor,
		string(stored.Outcome), stored.Error, stored.Why, stored.Evidence, stored.Timestamp,
	)
	if err != nil {
		return nil, NewStorageError("sqlite", "append", err)
	}

	return stored, nil
}

// Query returns actions matching the query, newest first.
func (s *SQLiteStore) Query(ctx context.Context, q *Query) ([]*Action, error) {
	if q == nil {
		q = &Query{}
	}

	where, args := buildWhere(q)
	query := "SELECT id, subject_record_id, action, params, actor, outcome, error, why, evidence, timestamp FROM audit_actions" +
		where + " ORDER BY timestamp DESC, id DESC"

	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	actions := []*Action{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return actions, nil
}

// ForRecord returns all actions for one subject record, newest first.
func (s *SQLiteStore) ForRecord(ctx context.Context, recordID string) ([]*Action, error) {
	return s.Query(ctx, &Query{SubjectRecordID: recordID})
}

// Count returns the number of actions matching the query.
func (s *SQLiteStore) Count(ctx context.Context, q *Query) (int, error) {
	if q == nil {
		q = &Query{}
	}

	where, args := buildWhere(q)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_actions"+where, args...).Scan(&n)
	if err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// Prune deletes actions older than the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_actions WHERE timestamp < ?", olderThan)
	if err != nil {
		return 0, NewStorageError("sqlite", "prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "prune", err)
	}
	if n > 0 {
		s.logger.Info("pruned audit actions", "removed", n, "older_than", olderThan)
	}
	return int(n), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func buildWhere(q *Query) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}
	if q.SubjectRecordID != "" {
		clauses = append(clauses, "subject_record_id = ?")
		args = append(args, q.SubjectRecordID)
	}
	if q.Actor != "" {
		clauses = append(clauses, "actor = ?")
		args = append(args, q.Actor)
	}
	if q.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(q.Outcome))
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, q.Since)
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, "timestamp < ?")
		args = append(args, q.Until)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func scanAction(rows *sql.Rows) (*Action, error) {
	a := &Action{}
	var params, errMsg, why, evidence sql.NullString
	var outcome string
	if err := rows.Scan(
		&a.ID, &a.SubjectRecordID, &a.Action, &params, &a.Actor,
		&outcome, &errMsg, &why, &evidence, &a.Timestamp,
	); err != nil {
		return nil, err
	}
	a.Outcome = Outcome(outcome)
	a.Error = errMsg.String
	a.Why = why.String
	a.Evidence = evidence.String
	if params.Valid && params.String != "" && params.String != "null" {
		if err := json.Unmarshal([]byte(params.String), &a.Params); err != nil {
			return nil, err
		}
	}
	a.Timestamp = a.Timestamp.UTC()
	return a, nil
}
