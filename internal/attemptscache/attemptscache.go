// Package attemptscache persists merge attempts to disk (spec §6
// "Persisted state"): one folder per attempt holding the three input
// revisions and the merged output of every method tried, indexed by a
// small sqlite database for `mergiraf review`/`report` lookups. It is
// optional, best-effort, and never read back during a merge itself
// (spec §5 "Global state").
package attemptscache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Attempt is one row of attempt metadata.
type Attempt struct {
	ID                  string
	Path                string
	CreatedAt           time.Time
	BestMethod          string
	HasAdditionalIssues bool
}

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	best_method TEXT NOT NULL DEFAULT '',
	has_additional_issues INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_attempts_path ON attempts(path);
`

// Cache indexes attempt metadata alongside the per-attempt folders on
// disk.
type Cache struct {
	db  *sql.DB
	dir string
}

// Open opens or creates the attempts cache rooted at dir (typically
// under the user's cache directory, e.g. `~/.cache/mergiraf/attempts`).
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating attempts cache dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "attempts.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening attempts cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying attempts cache schema: %w", err)
	}

	return &Cache{db: db, dir: dir}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// NewAttempt creates a fresh attempt folder for path and records it,
// returning the attempt's id and its on-disk directory.
func (c *Cache) NewAttempt(path string) (id string, dir string, err error) {
	id = uuid.New().String()
	dir = filepath.Join(c.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating attempt dir %s: %w", dir, err)
	}

	_, err = c.db.Exec(
		`INSERT INTO attempts (id, path, created_at) VALUES (?, ?, ?)`,
		id, path, time.Now().UnixNano(),
	)
	if err != nil {
		return "", "", fmt.Errorf("recording attempt %s: %w", id, err)
	}
	return id, dir, nil
}

// StoreFile writes one named file (e.g. "Base.go", "structured.merged")
// into the attempt's folder.
func (c *Cache) StoreFile(dir, name string, content []byte) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// MarkBest records which method's output is the best solve for id, both
// as a `best` pointer file in the attempt folder and in the index, so
// `mergiraf review` can find it without re-running selection.
func (c *Cache) MarkBest(id, dir, method string, hasAdditionalIssues bool) error {
	if err := c.StoreFile(dir, "best", []byte(method)); err != nil {
		return err
	}
	_, err := c.db.Exec(
		`UPDATE attempts SET best_method = ?, has_additional_issues = ? WHERE id = ?`,
		method, boolToInt(hasAdditionalIssues), id,
	)
	if err != nil {
		return fmt.Errorf("updating attempt %s: %w", id, err)
	}
	return nil
}

// Get looks up one attempt's metadata by id.
func (c *Cache) Get(id string) (*Attempt, error) {
	var a Attempt
	var createdAtNanos int64
	var hasIssues int
	err := c.db.QueryRow(
		`SELECT id, path, created_at, best_method, has_additional_issues FROM attempts WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.Path, &createdAtNanos, &a.BestMethod, &hasIssues)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no attempt with id %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up attempt %s: %w", id, err)
	}
	a.CreatedAt = time.Unix(0, createdAtNanos)
	a.HasAdditionalIssues = hasIssues != 0
	return &a, nil
}

// Dir returns the on-disk folder for an attempt id.
func (c *Cache) Dir(id string) string {
	return filepath.Join(c.dir, id)
}

// List returns every recorded attempt, most recent first.
func (c *Cache) List() ([]*Attempt, error) {
	rows, err := c.db.Query(
		`SELECT id, path, created_at, best_method, has_additional_issues FROM attempts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	defer rows.Close()

	var out []*Attempt
	for rows.Next() {
		var a Attempt
		var createdAtNanos int64
		var hasIssues int
		if err := rows.Scan(&a.ID, &a.Path, &createdAtNanos, &a.BestMethod, &hasIssues); err != nil {
			return nil, fmt.Errorf("scanning attempt row: %w", err)
		}
		a.CreatedAt = time.Unix(0, createdAtNanos)
		a.HasAdditionalIssues = hasIssues != 0
		out = append(out, &a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
