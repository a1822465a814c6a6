// Package gitlab implements the git.Provider interface
// on top of the GitLab REST API (/api/v4) via the
// official client-go module. Projects are addressed by
// their "owner/name" path; merge request iids map to
// the normalized pull request number.
package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/rh-aiservices-bu/grimoire/gitops/git"
)

// Config holds the settings needed to create a GitLab
// provider.
type Config struct {
	// Repo identifies the project to operate on.
	Repo git.RepoRef
	// AccessToken is a personal or project access
	// token used for authentication.
	AccessToken string
	// ServerURL is the base URL of a self-hosted
	// GitLab instance. Leave empty for gitlab.com.
	ServerURL string
}

// Provider performs content operations on GitLab.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	client *gl.Client
	repo   git.RepoRef
}

// NewProvider validates cfg and returns a Provider
// ready to operate on the configured project.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" {
		return nil, fmt.Errorf(
			"%s: repo owner and name must be set",
			errCtx,
		)
	}

	base, err := git.ResolveBaseURL(
		git.PlatformGitLab,
		cfg.ServerURL,
		cfg.Repo.URL,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(base),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Provider{
		client: client,
		repo:   cfg.Repo,
	}, nil
}

// Platform returns the gitlab platform tag.
func (p *Provider) Platform() git.Platform {
	return git.PlatformGitLab
}

// pid is the path-form project identifier.
func (p *Provider) pid() string {
	return p.repo.FullName()
}

// apiError normalizes a client-go failure. The
// response may be nil on transport errors.
func apiError(
	op string,
	resp *gl.Response,
	err error,
) error {
	if resp != nil {
		return &git.APIError{
			Platform:   git.PlatformGitLab,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       err.Error(),
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// notFound reports whether resp carries HTTP 404.
func notFound(resp *gl.Response) bool {
	return resp != nil &&
		resp.StatusCode == http.StatusNotFound
}

// TestAccess probes the authenticated user endpoint
// and requires the returned login to match username
// case-insensitively. The project itself is not
// probed: it may be addressed by path while the token
// is scoped elsewhere.
func (p *Provider) TestAccess(
	ctx context.Context,
	username string,
) bool {
	user, _, err := p.client.Users.CurrentUser(
		gl.WithContext(ctx),
	)
	if err != nil {
		slog.Warn(
			"gitlab access probe failed",
			"error", err,
		)

		return false
	}

	return strings.EqualFold(
		user.Username, username,
	)
}

// DefaultBranch returns the project's default branch.
func (p *Provider) DefaultBranch(
	ctx context.Context,
) (string, error) {
	const op = "resolving default branch"

	project, resp, err := p.client.Projects.GetProject(
		p.pid(), nil, gl.WithContext(ctx),
	)
	if err != nil {
		return "", apiError(op, resp, err)
	}

	return project.DefaultBranch, nil
}

// HeadCommit returns the SHA at the tip of branch.
func (p *Provider) HeadCommit(
	ctx context.Context,
	branch string,
) (string, error) {
	const op = "resolving head commit"

	br, resp, err := p.client.Branches.GetBranch(
		p.pid(), branch, gl.WithContext(ctx),
	)
	if err != nil {
		return "", apiError(op, resp, err)
	}

	return br.Commit.ID, nil
}

// CreateBranch creates a branch from base.Branch.
func (p *Provider) CreateBranch(
	ctx context.Context,
	name string,
	base git.BranchBase,
) error {
	const op = "creating branch"

	_, resp, err := p.client.Branches.CreateBranch(
		p.pid(),
		&gl.CreateBranchOptions{
			Branch: gl.Ptr(name),
			Ref:    gl.Ptr(base.Branch),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return apiError(op, resp, err)
	}

	return nil
}

// ReadFile returns the file at path on ref. GitLab
// serves content base64-encoded through the files API.
func (p *Provider) ReadFile(
	ctx context.Context,
	path string,
	ref string,
) (*git.FileContent, error) {
	const op = "reading file"

	file, resp, err :=
		p.client.RepositoryFiles.GetFile(
			p.pid(),
			path,
			&gl.GetFileOptions{
				Ref: gl.Ptr(ref),
			},
			gl.WithContext(ctx),
		)
	if err != nil {
		if notFound(resp) {
			return nil, &git.NotFoundError{
				Platform: git.PlatformGitLab,
				Resource: "file " + path,
			}
		}

		return nil, apiError(op, resp, err)
	}

	decoded, err := decodeContent(
		file.Content, file.Encoding,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: decode content: %w", op, err,
		)
	}

	return &git.FileContent{
		Content: decoded,
		SHA:     file.BlobID,
	}, nil
}

// WriteFile creates or updates a file. GitLab accepts
// raw content and needs no blob SHA; the SHA on req
// only selects create vs update. The resulting commit
// is resolved from the branch head afterwards.
func (p *Provider) WriteFile(
	ctx context.Context,
	req git.WriteFileRequest,
) (*git.Commit, error) {
	const op = "writing file"

	if req.SHA == "" {
		_, resp, err :=
			p.client.RepositoryFiles.CreateFile(
				p.pid(),
				req.Path,
				&gl.CreateFileOptions{
					Branch: gl.Ptr(req.Branch),
					Content: gl.Ptr(
						string(req.Content),
					),
					CommitMessage: gl.Ptr(
						req.Message,
					),
				},
				gl.WithContext(ctx),
			)
		if err != nil {
			return nil, apiError(op, resp, err)
		}
	} else {
		_, resp, err :=
			p.client.RepositoryFiles.UpdateFile(
				p.pid(),
				req.Path,
				&gl.UpdateFileOptions{
					Branch: gl.Ptr(req.Branch),
					Content: gl.Ptr(
						string(req.Content),
					),
					CommitMessage: gl.Ptr(
						req.Message,
					),
				},
				gl.WithContext(ctx),
			)
		if err != nil {
			return nil, apiError(op, resp, err)
		}
	}

	sha, err := p.HeadCommit(ctx, req.Branch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &git.Commit{
		SHA:     sha,
		Message: req.Message,
	}, nil
}

// CreatePullRequest opens a merge request.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	req git.PullRequestRequest,
) (*git.PullRequest, error) {
	const op = "creating merge request"

	created, resp, err :=
		p.client.MergeRequests.CreateMergeRequest(
			p.pid(),
			&gl.CreateMergeRequestOptions{
				Title: gl.Ptr(req.Title),
				Description: gl.Ptr(
					req.Body,
				),
				SourceBranch: gl.Ptr(
					req.SourceBranch,
				),
				TargetBranch: gl.Ptr(
					req.TargetBranch,
				),
			},
			gl.WithContext(ctx),
		)
	if err != nil {
		return nil, apiError(op, resp, err)
	}

	slog.Info(
		"created gitlab merge request",
		"url", created.WebURL,
	)

	return &git.PullRequest{
		Number:       created.IID,
		URL:          created.WebURL,
		Title:        created.Title,
		SourceBranch: created.SourceBranch,
		TargetBranch: created.TargetBranch,
		State:        normalizeState(created.State),
	}, nil
}

// PullRequest fetches the merge request with the given
// iid.
func (p *Provider) PullRequest(
	ctx context.Context,
	number int,
) (*git.PullRequest, error) {
	const op = "fetching merge request"

	mr, resp, err :=
		p.client.MergeRequests.GetMergeRequest(
			p.pid(),
			number,
			nil,
			gl.WithContext(ctx),
		)
	if err != nil {
		if notFound(resp) {
			return nil, &git.NotFoundError{
				Platform: git.PlatformGitLab,
				Resource: fmt.Sprintf(
					"merge request %d", number,
				),
			}
		}

		return nil, apiError(op, resp, err)
	}

	return &git.PullRequest{
		Number:       mr.IID,
		URL:          mr.WebURL,
		Title:        mr.Title,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		State:        normalizeState(mr.State),
	}, nil
}

// ListCommits returns up to limit commits touching
// path, newest first (the API's native order).
func (p *Provider) ListCommits(
	ctx context.Context,
	path string,
	limit int,
) ([]git.Commit, error) {
	const op = "listing commits"

	raw, resp, err := p.client.Commits.ListCommits(
		p.pid(),
		&gl.ListCommitsOptions{
			Path: gl.Ptr(path),
			ListOptions: gl.ListOptions{
				PerPage: limit,
			},
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, apiError(op, resp, err)
	}

	if len(raw) > limit {
		raw = raw[:limit]
	}

	commits := make([]git.Commit, 0, len(raw))

	for _, rc := range raw {
		commit := git.Commit{
			SHA:     rc.ID,
			Message: rc.Message,
			Author:  rc.AuthorName,
			URL:     rc.WebURL,
		}

		if rc.AuthoredDate != nil {
			commit.Date = *rc.AuthoredDate
		}

		commits = append(commits, commit)
	}

	return commits, nil
}

// normalizeState folds GitLab merge request states
// into the shared three-state model. "opened" and
// "locked" both count as open.
func normalizeState(state string) git.PRState {
	switch state {
	case "merged":
		return git.PRStateMerged
	case "closed":
		return git.PRStateClosed
	default:
		return git.PRStateOpen
	}
}
