// Package audit keeps a persistent journal of config edits: one entry per
// committed mutation and one per save attempt.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// entryTimeFormat is fixed-width so created_at sorts as text.
const entryTimeFormat = "2006-01-02T15:04:05.000000000Z"

// List page size bounds.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry is one journal record.
type Entry struct {
	ID         string         `json:"id"`
	Node       string         `json:"node"`
	Action     string         `json:"action"`
	InstanceID string         `json:"instance_id,omitempty"`
	Sequence   uint64         `json:"sequence"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Node       string // required
	Action     string // optional: a mutation op, "save" or "save_failed"
	InstanceID string // optional
	Limit      int    // default 50, max 200
	Offset     int
}

// ListResult is one page of entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for journal storage.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores the journal in the edit_log table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new journal repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "edit-" + uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var details *string
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("encoding edit details: %w", err)
		}
		s := string(b)
		details = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO edit_log (id, node, action, instance_id, sequence, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Node, entry.Action, nullableString(entry.InstanceID),
		int64(entry.Sequence), details, //nolint:gosec // sequence counts edits of one process
		entry.CreatedAt.UTC().Format(entryTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting edit entry: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching the filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	conditions := []string{"node = ?"}
	args := []any{filter.Node}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.InstanceID != "" {
		conditions = append(conditions, "instance_id = ?")
		args = append(args, filter.InstanceID)
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM edit_log " + where //nolint:gosec // WHERE holds only placeholders
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting edit entries: %w", err)
	}

	query := "SELECT id, node, action, instance_id, sequence, details, created_at FROM edit_log " + //nolint:gosec // WHERE holds only placeholders
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying edit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var instanceID, details sql.NullString
		var sequence int64
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Node, &e.Action, &instanceID, &sequence, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning edit entry: %w", err)
		}
		e.InstanceID = instanceID.String
		e.Sequence = uint64(sequence) //nolint:gosec // stored from a uint64
		if details.Valid && details.String != "" {
			var d map[string]any
			if json.Unmarshal([]byte(details.String), &d) == nil {
				e.Details = d
			}
		}
		if e.CreatedAt, err = time.Parse(entryTimeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parsing edit timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edit entries: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
