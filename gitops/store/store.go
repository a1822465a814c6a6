// Package store persists snapshots keyed by commit
// SHA. Git content at a commit is immutable, so the
// table is append-only: history reconstruction only
// fetches commits it has never seen.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/rh-aiservices-bu/grimoire/gitops/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    commit_sha  TEXT NOT NULL,
    project     TEXT NOT NULL,
    content     TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (commit_sha, project)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_project ON snapshots(project);
`

// Store is a durable commit-sha keyed snapshot cache.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath and
// applies the schema.
func Open(dbPath string) (*Store, error) {
	const errCtx = "opening snapshot store"

	db, err := sql.Open(
		"sqlite",
		dbPath+"?_pragma=journal_mode(wal)",
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck

		return nil, fmt.Errorf(
			"%s: schema migration: %w", errCtx, err,
		)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the snapshot cached for a commit, or
// false when the commit has not been seen.
func (s *Store) Get(
	ctx context.Context,
	project string,
	sha string,
) (*snapshot.Snapshot, bool, error) {
	const errCtx = "loading cached snapshot"

	var content string

	err := s.db.QueryRowContext(
		ctx,
		`SELECT content FROM snapshots
		 WHERE commit_sha = ? AND project = ?`,
		sha, project,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	snap, err := snapshot.Decode([]byte(content))
	if err != nil {
		return nil, false, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return snap, true, nil
}

// Put caches the snapshot found at a commit. Storing
// the same commit twice is a no-op: the content at a
// SHA never changes.
func (s *Store) Put(
	ctx context.Context,
	project string,
	sha string,
	snap *snapshot.Snapshot,
) error {
	const errCtx = "caching snapshot"

	content, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO snapshots
		 (commit_sha, project, content)
		 VALUES (?, ?, ?)`,
		sha, project, string(content),
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// DeleteProject drops every cached snapshot for a
// project, for when the project itself is removed.
func (s *Store) DeleteProject(
	ctx context.Context,
	project string,
) error {
	const errCtx = "deleting cached snapshots"

	if _, err := s.db.ExecContext(
		ctx,
		`DELETE FROM snapshots WHERE project = ?`,
		project,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
