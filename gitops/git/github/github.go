// Package github implements the git.Provider interface
// on top of the GitHub REST API via google/go-github.
// GitHub Enterprise hosts are addressed through their
// /api/v3 prefix.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/rh-aiservices-bu/grimoire/gitops/git"
)

// Config holds the settings needed to create a GitHub
// provider.
type Config struct {
	// Repo identifies the repository to operate on.
	Repo git.RepoRef
	// AccessToken is a personal access token or
	// GitHub App token used for authentication.
	AccessToken string
	// ServerURL is an optional GitHub Enterprise
	// base URL (e.g. "https://git.corp.example.com").
	// Leave empty for github.com.
	ServerURL string
}

// Provider performs content operations on GitHub.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	client *gh.Client
	repo   git.RepoRef
}

// NewProvider validates cfg and returns a Provider
// ready to operate on the configured repository.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" {
		return nil, fmt.Errorf(
			"%s: repo owner and name must be set",
			errCtx,
		)
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	client := gh.NewClient(nil).
		WithAuthToken(cfg.AccessToken)

	if cfg.ServerURL != "" &&
		!strings.Contains(
			cfg.ServerURL, "github.com",
		) {
		base := strings.TrimSuffix(
			cfg.ServerURL, "/",
		)

		var err error

		client, err = client.WithEnterpriseURLs(
			base+"/api/v3/",
			base+"/api/uploads/",
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}
	}

	return &Provider{
		client: client,
		repo:   cfg.Repo,
	}, nil
}

// Platform returns the github platform tag.
func (p *Provider) Platform() git.Platform {
	return git.PlatformGitHub
}

// apiError normalizes a go-github failure. The
// response may be nil on transport errors.
func apiError(
	op string,
	resp *gh.Response,
	err error,
) error {
	if resp != nil {
		return &git.APIError{
			Platform:   git.PlatformGitHub,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       err.Error(),
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// TestAccess probes the repository itself and checks
// for HTTP 200. The username is not consulted: a
// GitHub token that can read the repo is sufficient.
func (p *Provider) TestAccess(
	ctx context.Context,
	_ string,
) bool {
	_, resp, err := p.client.Repositories.Get(
		ctx, p.repo.Owner, p.repo.Name,
	)
	if err != nil {
		slog.Warn(
			"github access probe failed",
			"repo", p.repo.FullName(),
			"error", err,
		)

		return false
	}

	return resp.StatusCode == http.StatusOK
}

// DefaultBranch returns the repository's default
// branch.
func (p *Provider) DefaultBranch(
	ctx context.Context,
) (string, error) {
	const op = "resolving default branch"

	repo, resp, err := p.client.Repositories.Get(
		ctx, p.repo.Owner, p.repo.Name,
	)
	if err != nil {
		return "", apiError(op, resp, err)
	}

	return repo.GetDefaultBranch(), nil
}

// HeadCommit returns the SHA at the tip of branch.
func (p *Provider) HeadCommit(
	ctx context.Context,
	branch string,
) (string, error) {
	const op = "resolving head commit"

	ref, resp, err := p.client.Git.GetRef(
		ctx,
		p.repo.Owner,
		p.repo.Name,
		"refs/heads/"+branch,
	)
	if err != nil {
		return "", apiError(op, resp, err)
	}

	return ref.GetObject().GetSHA(), nil
}

// CreateBranch creates a ref pointing at base.SHA.
func (p *Provider) CreateBranch(
	ctx context.Context,
	name string,
	base git.BranchBase,
) error {
	const op = "creating branch"

	refName := "refs/heads/" + name

	_, resp, err := p.client.Git.CreateRef(
		ctx,
		p.repo.Owner,
		p.repo.Name,
		&gh.Reference{
			Ref: &refName,
			Object: &gh.GitObject{
				SHA: &base.SHA,
			},
		},
	)
	if err != nil {
		return apiError(op, resp, err)
	}

	return nil
}

// ReadFile returns the file at path on ref. go-github
// decodes the base64 content body.
func (p *Provider) ReadFile(
	ctx context.Context,
	path string,
	ref string,
) (*git.FileContent, error) {
	const op = "reading file"

	file, _, resp, err :=
		p.client.Repositories.GetContents(
			ctx,
			p.repo.Owner,
			p.repo.Name,
			path,
			&gh.RepositoryContentGetOptions{
				Ref: ref,
			},
		)
	if err != nil {
		if resp != nil &&
			resp.StatusCode ==
				http.StatusNotFound {
			return nil, &git.NotFoundError{
				Platform: git.PlatformGitHub,
				Resource: "file " + path,
			}
		}

		return nil, apiError(op, resp, err)
	}

	if file == nil {
		// Path resolved to a directory listing.
		return nil, &git.NotFoundError{
			Platform: git.PlatformGitHub,
			Resource: "file " + path,
		}
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf(
			"%s: decode content: %w", op, err,
		)
	}

	return &git.FileContent{
		Content: []byte(content),
		SHA:     file.GetSHA(),
	}, nil
}

// WriteFile creates or updates a file via the contents
// API. An update in place must carry the prior blob
// SHA.
func (p *Provider) WriteFile(
	ctx context.Context,
	req git.WriteFileRequest,
) (*git.Commit, error) {
	const op = "writing file"

	opts := &gh.RepositoryContentFileOptions{
		Message: &req.Message,
		Content: req.Content,
		Branch:  &req.Branch,
	}

	write := p.client.Repositories.CreateFile
	if req.SHA != "" {
		opts.SHA = &req.SHA
		write = p.client.Repositories.UpdateFile
	}

	result, resp, err := write(
		ctx,
		p.repo.Owner,
		p.repo.Name,
		req.Path,
		opts,
	)
	if err != nil {
		return nil, apiError(op, resp, err)
	}

	commit := &git.Commit{
		SHA:     result.Commit.GetSHA(),
		Message: req.Message,
		URL:     result.Commit.GetHTMLURL(),
	}

	if author := result.Commit.GetAuthor(); author !=
		nil {
		commit.Author = author.GetName()
		commit.Date = author.GetDate().Time
	}

	return commit, nil
}

// CreatePullRequest opens a pull request.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	req git.PullRequestRequest,
) (*git.PullRequest, error) {
	const op = "creating pull request"

	created, resp, err := p.client.PullRequests.Create(
		ctx,
		p.repo.Owner,
		p.repo.Name,
		&gh.NewPullRequest{
			Title: &req.Title,
			Body:  &req.Body,
			Head:  &req.SourceBranch,
			Base:  &req.TargetBranch,
		},
	)
	if err != nil {
		return nil, apiError(op, resp, err)
	}

	slog.Info(
		"created github pull request",
		"url", created.GetHTMLURL(),
	)

	return normalizePR(created), nil
}

// PullRequest fetches the pull request with the given
// number.
func (p *Provider) PullRequest(
	ctx context.Context,
	number int,
) (*git.PullRequest, error) {
	const op = "fetching pull request"

	pr, resp, err := p.client.PullRequests.Get(
		ctx, p.repo.Owner, p.repo.Name, number,
	)
	if err != nil {
		if resp != nil &&
			resp.StatusCode ==
				http.StatusNotFound {
			return nil, &git.NotFoundError{
				Platform: git.PlatformGitHub,
				Resource: fmt.Sprintf(
					"pull request %d", number,
				),
			}
		}

		return nil, apiError(op, resp, err)
	}

	return normalizePR(pr), nil
}

// ListCommits returns up to limit commits touching
// path, newest first (the API's native order).
func (p *Provider) ListCommits(
	ctx context.Context,
	path string,
	limit int,
) ([]git.Commit, error) {
	const op = "listing commits"

	raw, resp, err :=
		p.client.Repositories.ListCommits(
			ctx,
			p.repo.Owner,
			p.repo.Name,
			&gh.CommitsListOptions{
				Path: path,
				ListOptions: gh.ListOptions{
					PerPage: limit,
				},
			},
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
			SHA:     rc.GetSHA(),
			Message: rc.GetCommit().GetMessage(),
			URL:     rc.GetHTMLURL(),
		}

		if author := rc.GetCommit().
			GetAuthor(); author != nil {
			commit.Author = author.GetName()
			commit.Date = author.GetDate().Time
		}

		commits = append(commits, commit)
	}

	return commits, nil
}

// normalizePR folds GitHub's merged flag into the
// normalized state: a merged PR reports state=closed
// with merged=true.
func normalizePR(pr *gh.PullRequest) *git.PullRequest {
	state := git.PRStateOpen

	switch {
	case pr.GetMerged():
		state = git.PRStateMerged
	case pr.GetState() == "closed":
		state = git.PRStateClosed
	}

	return &git.PullRequest{
		Number:       pr.GetNumber(),
		URL:          pr.GetHTMLURL(),
		Title:        pr.GetTitle(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		State:        state,
	}
}
