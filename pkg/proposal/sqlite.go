package proposal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"steward-hq/steward/pkg/policy"
)

// proposalSchema stores params and rationale as JSON. reviewed_at is
// NULL until a review happens.
const proposalSchema = `
CREATE TABLE IF NOT EXISTS proposals (
	id TEXT PRIMARY KEY,
	subject_record_id TEXT NOT NULL,
	user TEXT NOT NULL,
	action TEXT NOT NULL,
	params TEXT,
	confidence REAL NOT NULL,
	rationale TEXT NOT NULL,
	policy_id TEXT NOT NULL,
	status TEXT NOT NULL,
	reviewer TEXT,
	reviewed_at TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_proposals_user_status ON proposals(user, status);
CREATE INDEX IF NOT EXISTS idx_proposals_policy ON proposals(policy_id);
`

// SQLiteStore is a Store backed by SQLite (modernc.org/sqlite, no cgo).
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a proposal database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("sqlite", "open", err)
	}

	// Serialized writes keep the status check and the update atomic.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, storageErr("sqlite", "pragma", err)
	}
	if _, err := db.Exec(proposalSchema); err != nil {
		db.Close()
		return nil, storageErr("sqlite", "schema", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "proposal.sqlite"),
	}, nil
}

// Create persists a new proposal.
func (s *SQLiteStore) Create(ctx context.Context, p *ProposedAction) error {
	p.ID = uuid.NewString()
	p.Status = StatusPending
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	params, err := json.Marshal(p.Params)
	if err != nil {
		return storageErr("sqlite", "marshal_params", err)
	}
	rationale, err := json.Marshal(p.Rationale)
	if err != nil {
		return storageErr("sqlite", "marshal_rationale", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO proposals (
			id, subject_record_id, user, action, params, confidence,
			rationale, policy_id, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SubjectRecordID, p.User, string(p.Action), string(params), p.Confidence,
		string(rationale), p.PolicyID, string(p.Status), p.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return storageErr("sqlite", "create", err)
	}
	return nil
}

// Get returns a proposal by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*ProposedAction, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM proposals WHERE id = ?", id)
	p, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("sqlite", "get", err)
	}
	return p, nil
}

// List returns proposals matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, f *Filter) ([]*ProposedAction, error) {
	if f == nil {
		f = &Filter{}
	}

	query := selectColumns + " FROM proposals"
	clauses := []string{}
	args := []interface{}{}
	if f.User != "" {
		clauses = append(clauses, "user = ?")
		args = append(args, f.User)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.PolicyID != "" {
		clauses = append(clauses, "policy_id = ?")
		args = append(args, f.PolicyID)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("sqlite", "list", err)
	}
	defer rows.Close()

	proposals := []*ProposedAction{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, storageErr("sqlite", "scan", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("sqlite", "list", err)
	}
	return proposals, nil
}

// Transition moves a proposal between statuses. The status
// precondition is part of the UPDATE's WHERE clause, so the check and
// the write are one atomic statement.
func (s *SQLiteStore) Transition(ctx context.Context, id string, from, to Status, reviewer string, reviewedAt time.Time) (*ProposedAction, error) {
	if !from.CanTransitionTo(to) {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &TransitionError{ID: id, From: from, To: to, Current: current.Status}
	}

	var res sql.Result
	var err error
	if from == StatusPending {
		res, err = s.db.ExecContext(ctx, `
			UPDATE proposals SET status = ?, reviewer = ?, reviewed_at = ?
			WHERE id = ? AND status = ?`,
			string(to), reviewer, reviewedAt.Format(time.RFC3339Nano), id, string(from),
		)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE proposals SET status = ? WHERE id = ? AND status = ?`,
			string(to), id, string(from),
		)
	}
	if err != nil {
		return nil, storageErr("sqlite", "transition", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, storageErr("sqlite", "transition", err)
	}
	if n == 0 {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &TransitionError{ID: id, From: from, To: to, Current: current.Status}
	}

	return s.Get(ctx, id)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

const selectColumns = `SELECT id, subject_record_id, user, action, params, confidence,
	rationale, policy_id, status, reviewer, reviewed_at, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProposal(row rowScanner) (*ProposedAction, error) {
	p := &ProposedAction{}
	var action, status, createdAt string
	var params, reviewer, reviewedAt sql.NullString
	var rationale string

	err := row.Scan(
		&p.ID, &p.SubjectRecordID, &p.User, &action, &params, &p.Confidence,
		&rationale, &p.PolicyID, &status, &reviewer, &reviewedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	p.Action = policy.ActionType(action)
	p.Status = Status(status)
	p.Reviewer = reviewer.String
	if params.Valid && params.String != "" && params.String != "null" {
		if err := json.Unmarshal([]byte(params.String), &p.Params); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal([]byte(rationale), &p.Rationale); err != nil {
		return nil, err
	}
	if reviewedAt.Valid && reviewedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, reviewedAt.String)
		if err != nil {
			return nil, err
		}
		p.ReviewedAt = t
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = created
	return p, nil
}
