package nodeconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// revisionTimeFormat is fixed-width so created_at sorts as text.
const revisionTimeFormat = "2006-01-02T15:04:05.000000000Z"

// List page size bounds.
const (
	defaultRevisionLimit = 20
	maxRevisionLimit     = 200
)

// Revision is one saved config snapshot.
type Revision struct {
	ID            string          `json:"id"`
	Node          string          `json:"node"`
	Config        json.RawMessage `json:"config,omitempty"`
	InstanceCount int             `json:"instance_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Repository defines the interface for saved config revisions.
type Repository interface {
	// Save stores a revision. ID and CreatedAt are generated if empty.
	Save(ctx context.Context, rev *Revision) error

	// Latest returns the newest revision of a node.
	Latest(ctx context.Context, node string) (*Revision, error)

	// Get returns a revision by ID.
	Get(ctx context.Context, id string) (*Revision, error)

	// List returns a node's revisions newest first, without their config.
	List(ctx context.Context, node string, limit int) ([]Revision, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed revision repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save inserts a new revision.
func (r *SQLiteRepository) Save(ctx context.Context, rev *Revision) error {
	if rev == nil || len(rev.Config) == 0 {
		return fmt.Errorf("%w: empty revision", ErrInvalidConfig)
	}
	if rev.ID == "" {
		rev.ID = "rev-" + uuid.NewString()
	}
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO config_revisions (id, node, config, instance_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rev.ID, rev.Node, string(rev.Config), rev.InstanceCount,
		rev.CreatedAt.UTC().Format(revisionTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting config revision: %w", err)
	}
	return nil
}

// Latest returns the newest revision of a node.
func (r *SQLiteRepository) Latest(ctx context.Context, node string) (*Revision, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, node, config, instance_count, created_at FROM config_revisions
		 WHERE node = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		node,
	)
	return scanRevision(row)
}

// Get returns a revision by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Revision, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, node, config, instance_count, created_at FROM config_revisions WHERE id = ?`,
		id,
	)
	return scanRevision(row)
}

// List returns a node's revisions newest first. Config bodies are omitted.
func (r *SQLiteRepository) List(ctx context.Context, node string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = defaultRevisionLimit
	}
	if limit > maxRevisionLimit {
		limit = maxRevisionLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, node, instance_count, created_at FROM config_revisions
		 WHERE node = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		node, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying config revisions: %w", err)
	}
	defer rows.Close()

	revisions := []Revision{}
	for rows.Next() {
		var rev Revision
		var createdAt string
		if err := rows.Scan(&rev.ID, &rev.Node, &rev.InstanceCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning config revision: %w", err)
		}
		if rev.CreatedAt, err = parseRevisionTime(createdAt); err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating config revisions: %w", err)
	}
	return revisions, nil
}

func scanRevision(row *sql.Row) (*Revision, error) {
	var rev Revision
	var config, createdAt string
	err := row.Scan(&rev.ID, &rev.Node, &config, &rev.InstanceCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRevisionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning config revision: %w", err)
	}

	rev.Config = json.RawMessage(config)
	if rev.CreatedAt, err = parseRevisionTime(createdAt); err != nil {
		return nil, err
	}
	return &rev, nil
}

func parseRevisionTime(s string) (time.Time, error) {
	t, err := time.Parse(revisionTimeFormat, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing revision timestamp %q: %w", s, err)
		}
	}
	return t, nil
}
