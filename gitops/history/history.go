// Package history reconstructs the production prompt
// timeline of a project from the commits touching its
// tracked file.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rh-aiservices-bu/grimoire/gitops/commitmsg"
	"github.com/rh-aiservices-bu/grimoire/gitops/git"
	"github.com/rh-aiservices-bu/grimoire/gitops/snapshot"
)

// SnapshotStore caches snapshots by commit SHA so only
// never-seen commits cost a platform round trip.
type SnapshotStore interface {
	Get(
		ctx context.Context,
		project string,
		sha string,
	) (*snapshot.Snapshot, bool, error)
	Put(
		ctx context.Context,
		project string,
		sha string,
		snap *snapshot.Snapshot,
	) error
}

// Entry is one point in a project's production
// history.
type Entry struct {
	// Snapshot is the prompt as committed.
	Snapshot *snapshot.Snapshot

	// Commit is the commit that produced it.
	Commit git.Commit

	// Kind is the best-effort annotation of how the
	// commit came to be. It is presentation only.
	Kind commitmsg.Kind

	// Current marks the newest entry.
	Current bool
}

// Config holds the settings for a Reconstructor.
type Config struct {
	// Provider performs the platform operations.
	Provider git.Provider

	// Store caches snapshots across runs. Optional:
	// without it every commit costs a fetch.
	Store SnapshotStore

	// Project is the project name.
	Project string

	// ProviderID is the model provider id.
	ProviderID string
}

// Reconstructor builds production history views.
type Reconstructor struct {
	provider   git.Provider
	store      SnapshotStore
	project    string
	providerID string
}

// New validates cfg and returns a Reconstructor.
func New(cfg Config) (*Reconstructor, error) {
	const errCtx = "creating history reconstructor"

	if cfg.Provider == nil {
		return nil, fmt.Errorf(
			"%s: provider must be set", errCtx,
		)
	}

	if cfg.Project == "" || cfg.ProviderID == "" {
		return nil, fmt.Errorf(
			"%s: project and provider id must be set",
			errCtx,
		)
	}

	return &Reconstructor{
		provider:   cfg.Provider,
		store:      cfg.Store,
		project:    cfg.Project,
		providerID: cfg.ProviderID,
	}, nil
}

// ProductionHistory returns up to limit history
// entries, newest first. The newest surviving entry is
// marked current. Commits whose content is missing or
// undecodable are skipped rather than failing the
// whole reconstruction.
func (r *Reconstructor) ProductionHistory(
	ctx context.Context,
	limit int,
) ([]Entry, error) {
	const errCtx = "reconstructing history"

	path := snapshot.ProdPath(
		r.project, r.providerID,
	)

	commits, err := r.provider.ListCommits(
		ctx, path, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var entries []Entry

	for _, commit := range commits {
		snap, err := r.snapshotAt(ctx, path, commit)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		if snap == nil {
			continue
		}

		entries = append(entries, Entry{
			Snapshot: snap,
			Commit:   commit,
			Kind: commitmsg.Classify(
				commit.Message,
			),
			Current: len(entries) == 0,
		})
	}

	return entries, nil
}

// snapshotAt resolves the snapshot at a commit,
// preferring the durable cache. A nil snapshot with
// nil error means the commit should be skipped.
func (r *Reconstructor) snapshotAt(
	ctx context.Context,
	path string,
	commit git.Commit,
) (*snapshot.Snapshot, error) {
	if r.store != nil {
		snap, ok, err := r.store.Get(
			ctx, r.project, commit.SHA,
		)
		if err != nil {
			return nil, err
		}

		if ok {
			return withCommitTime(snap, commit), nil
		}
	}

	file, err := r.provider.ReadFile(
		ctx, path, commit.SHA,
	)
	if err != nil {
		slog.Warn(
			"skipping commit without content",
			"sha", commit.SHA,
			"error", err,
		)

		return nil, nil
	}

	snap, err := snapshot.Decode(file.Content)
	if err != nil {
		slog.Warn(
			"skipping undecodable snapshot",
			"sha", commit.SHA,
			"error", err,
		)

		return nil, nil
	}

	if r.store != nil {
		if err := r.store.Put(
			ctx, r.project, commit.SHA, snap,
		); err != nil {
			return nil, err
		}
	}

	return withCommitTime(snap, commit), nil
}

// withCommitTime stamps the snapshot with the commit
// time: the history view reflects when content landed,
// not when it was authored client-side.
func withCommitTime(
	snap *snapshot.Snapshot,
	commit git.Commit,
) *snapshot.Snapshot {
	if commit.Date.IsZero() {
		return snap
	}

	out := *snap
	out.CreatedAt = commit.Date.Format(
		time.RFC3339,
	)

	return &out
}
