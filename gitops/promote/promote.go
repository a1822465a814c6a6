// Package promote orchestrates tagging prompt
// snapshots in a git repository: production tags go
// through a branch and pull request, test tags are
// committed directly to the default branch.
package promote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rh-aiservices-bu/grimoire/gitops/cache"
	"github.com/rh-aiservices-bu/grimoire/gitops/commitmsg"
	"github.com/rh-aiservices-bu/grimoire/gitops/git"
	"github.com/rh-aiservices-bu/grimoire/gitops/snapshot"
)

// Config holds all settings for a Promoter. Use a
// Config struct instead of many arguments.
type Config struct {
	// Provider performs the platform operations.
	Provider git.Provider

	// Cache memoizes platform results. Required.
	Cache cache.Cache

	// Project is the project name as shown to users.
	// Its slug form names branches and the content
	// directory.
	Project string

	// ProviderID is the model provider id the
	// prompts are tracked under.
	ProviderID string

	// Now is the clock used for branch timestamps
	// and cache decisions. Defaults to time.Now.
	Now func() time.Time
}

// Promoter drives content operations for one project
// and model provider pair.
type Promoter struct {
	provider   git.Provider
	cache      cache.Cache
	project    string
	providerID string
	now        func() time.Time
}

// New validates cfg and returns a Promoter.
func New(cfg Config) (*Promoter, error) {
	const errCtx = "creating promoter"

	if cfg.Provider == nil {
		return nil, fmt.Errorf(
			"%s: provider must be set", errCtx,
		)
	}

	if cfg.Cache == nil {
		return nil, fmt.Errorf(
			"%s: cache must be set", errCtx,
		)
	}

	if cfg.Project == "" || cfg.ProviderID == "" {
		return nil, fmt.Errorf(
			"%s: project and provider id must be set",
			errCtx,
		)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Promoter{
		provider:   cfg.Provider,
		cache:      cfg.Cache,
		project:    cfg.Project,
		providerID: cfg.ProviderID,
		now:        now,
	}, nil
}

// InitProject creates the project's folder structure
// on a stable branch and opens a pull request for it.
// The branch name carries no timestamp: initial setup
// is attempted at most once per project, and a rerun
// failing on the existing branch is the desired
// signal.
func (p *Promoter) InitProject(
	ctx context.Context,
) (*git.PullRequest, error) {
	base, err := p.baseBranch(ctx)
	if err != nil {
		return nil, err
	}

	branch := "create-project-" +
		snapshot.Slug(p.project)

	if err := p.provider.CreateBranch(
		ctx, branch, base,
	); err != nil {
		return nil, &StepError{
			Step: StepBranch,
			Err:  err,
		}
	}

	if _, err := p.provider.WriteFile(
		ctx,
		git.WriteFileRequest{
			Path: snapshot.KeepPath(
				p.project, p.providerID,
			),
			Content: []byte{},
			Message: commitmsg.ProjectInit(
				p.project,
			),
			Branch: branch,
		},
	); err != nil {
		return nil, &StepError{
			Step: StepWrite,
			Err:  err,
		}
	}

	pr, err := p.provider.CreatePullRequest(
		ctx,
		git.PullRequestRequest{
			Title: initPRTitle(p.project),
			Body: initPRBody(
				p.project, p.providerID,
			),
			SourceBranch: branch,
			TargetBranch: base.Branch,
		},
	)
	if err != nil {
		return nil, &StepError{
			Step: StepPullRequest,
			Err:  err,
		}
	}

	p.afterMutation(ctx)
	p.trackPR(ctx, pr)

	slog.Info(
		"opened project init pull request",
		"project", p.project,
		"pr", pr.Number,
		"url", pr.URL,
	)

	return pr, nil
}

// TagProduction writes snap as the production prompt
// on a fresh timestamped branch and opens a pull
// request against the default branch. The tag becomes
// effective only once a human merges the PR.
func (p *Promoter) TagProduction(
	ctx context.Context,
	snap *snapshot.Snapshot,
) (*git.PullRequest, error) {
	base, err := p.baseBranch(ctx)
	if err != nil {
		return nil, err
	}

	branch := fmt.Sprintf(
		"update-prompt-%s-%d",
		snapshot.Slug(p.project),
		p.now().Unix(),
	)

	if err := p.provider.CreateBranch(
		ctx, branch, base,
	); err != nil {
		return nil, &StepError{
			Step: StepBranch,
			Err:  err,
		}
	}

	path := snapshot.ProdPath(
		p.project, p.providerID,
	)

	// Probe for an existing file on the new branch:
	// updating in place needs the prior blob SHA,
	// creating must omit it.
	sha, update, err := p.probeFile(ctx, path, branch)
	if err != nil {
		return nil, &StepError{
			Step: StepProbe,
			Err:  err,
		}
	}

	content, err := snap.Encode()
	if err != nil {
		return nil, &StepError{
			Step: StepWrite,
			Err:  err,
		}
	}

	if _, err := p.provider.WriteFile(
		ctx,
		git.WriteFileRequest{
			Path:    path,
			Content: content,
			Message: commitmsg.ProdUpdate(
				p.project, update,
			),
			Branch: branch,
			SHA:    sha,
		},
	); err != nil {
		return nil, &StepError{
			Step: StepWrite,
			Err:  err,
		}
	}

	pr, err := p.provider.CreatePullRequest(
		ctx,
		git.PullRequestRequest{
			Title: prodPRTitle(p.project, update),
			Body: prodPRBody(prodPRDetails{
				project:  p.project,
				provider: p.providerID,
				path:     path,
				update:   update,
				snap:     snap,
			}),
			SourceBranch: branch,
			TargetBranch: base.Branch,
		},
	)
	if err != nil {
		return nil, &StepError{
			Step: StepPullRequest,
			Err:  err,
		}
	}

	p.afterMutation(ctx)
	p.trackPR(ctx, pr)

	slog.Info(
		"opened production tag pull request",
		"project", p.project,
		"pr", pr.Number,
		"url", pr.URL,
	)

	return pr, nil
}

// TagTest writes snap as the test settings directly to
// the default branch. No pull request is involved:
// test settings are working state, not a release.
func (p *Promoter) TagTest(
	ctx context.Context,
	snap *snapshot.Snapshot,
) (*git.Commit, error) {
	base, err := p.baseBranch(ctx)
	if err != nil {
		return nil, err
	}

	path := snapshot.TestPath(
		p.project, p.providerID,
	)

	sha, _, err := p.probeFile(
		ctx, path, base.Branch,
	)
	if err != nil {
		return nil, &StepError{
			Step: StepProbe,
			Err:  err,
		}
	}

	content, err := snap.Encode()
	if err != nil {
		return nil, &StepError{
			Step: StepWrite,
			Err:  err,
		}
	}

	commit, err := p.provider.WriteFile(
		ctx,
		git.WriteFileRequest{
			Path:    path,
			Content: content,
			Message: commitmsg.TestUpdate(
				p.project,
			),
			Branch: base.Branch,
			SHA:    sha,
		},
	)
	if err != nil {
		return nil, &StepError{
			Step: StepWrite,
			Err:  err,
		}
	}

	p.afterMutation(ctx)

	return commit, nil
}

// ProductionSnapshot reads the current production
// prompt from the default branch. It returns nil
// without error when no production prompt exists yet.
func (p *Promoter) ProductionSnapshot(
	ctx context.Context,
) (*snapshot.Snapshot, error) {
	base, err := p.baseBranch(ctx)
	if err != nil {
		return nil, err
	}

	file, err := p.provider.ReadFile(
		ctx,
		snapshot.ProdPath(p.project, p.providerID),
		base.Branch,
	)
	if err != nil {
		var notFoundErr *git.NotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, nil
		}

		return nil, &StepError{
			Step: StepRead,
			Err:  err,
		}
	}

	snap, err := snapshot.Decode(file.Content)
	if err != nil {
		return nil, &StepError{
			Step: StepRead,
			Err:  err,
		}
	}

	return snap, nil
}

// baseBranch resolves the default branch and its head
// commit, the base for every content operation.
func (p *Promoter) baseBranch(
	ctx context.Context,
) (git.BranchBase, error) {
	name, err := p.provider.DefaultBranch(ctx)
	if err != nil {
		return git.BranchBase{}, &StepError{
			Step: StepResolveBase,
			Err:  err,
		}
	}

	head, err := p.provider.HeadCommit(ctx, name)
	if err != nil {
		return git.BranchBase{}, &StepError{
			Step: StepResolveBase,
			Err:  err,
		}
	}

	return git.BranchBase{
		Branch: name,
		SHA:    head,
	}, nil
}

// probeFile checks whether path exists on ref. It
// returns the blob SHA to supply on update and whether
// the write is an update of existing content.
func (p *Promoter) probeFile(
	ctx context.Context,
	path string,
	ref string,
) (string, bool, error) {
	file, err := p.provider.ReadFile(ctx, path, ref)
	if err != nil {
		var notFoundErr *git.NotFoundError
		if errors.As(err, &notFoundErr) {
			return "", false, nil
		}

		return "", false, err
	}

	return file.SHA, true, nil
}
