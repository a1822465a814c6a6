// Package gitea implements the git.Provider interface
// against the Gitea REST API (/api/v1). Gitea has no
// public instance, so a server URL is mandatory.
package gitea

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rh-aiservices-bu/grimoire/gitops/git"
)

// defaultTimeout bounds every outbound call; callers
// needing cancellation pass a context above this.
const defaultTimeout = 30 * time.Second

// Config holds the settings needed to create a Gitea
// provider.
type Config struct {
	// Repo identifies the repository to operate on.
	Repo git.RepoRef
	// AccessToken is a Gitea access token.
	AccessToken string
	// ServerURL is the base URL of the Gitea
	// instance (e.g. "https://gitea.example.com").
	// Mandatory: gitea has no public default.
	ServerURL string
	// HTTPClient overrides the default client.
	// Intended for tests.
	HTTPClient *http.Client
}

// Provider performs content operations on a Gitea
// instance.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	base   string
	repo   git.RepoRef
	token  string
	client *http.Client
}

// NewProvider validates cfg and returns a Provider
// ready to operate on the configured repository.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitea provider"

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
		git.PlatformGitea, cfg.ServerURL, "",
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: defaultTimeout,
		}
	}

	return &Provider{
		base:   base,
		repo:   cfg.Repo,
		token:  cfg.AccessToken,
		client: client,
	}, nil
}

// Platform returns the gitea platform tag.
func (p *Provider) Platform() git.Platform {
	return git.PlatformGitea
}

// repoPath returns the /repos/{owner}/{name} API path
// prefix for the configured repository.
func (p *Provider) repoPath() string {
	return "/repos/" + p.repo.Owner + "/" + p.repo.Name
}

// do performs one API call and returns the status code
// and response body. Transport errors are wrapped; the
// caller decides which statuses are acceptable.
func (p *Provider) do(
	ctx context.Context,
	method string,
	path string,
	payload any,
) (int, []byte, error) {
	var body io.Reader

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf(
				"marshal request: %w", err,
			)
		}

		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, p.base+path, body,
	)
	if err != nil {
		return 0, nil, fmt.Errorf(
			"build request: %w", err,
		)
	}

	for key, val := range git.AuthHeaders(
		git.PlatformGitea, p.token,
	) {
		req.Header.Set(key, val)
	}

	if payload != nil {
		req.Header.Set(
			"Content-Type",
			"application/json; charset=utf-8",
		)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf(
			"send request: %w", err,
		)
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf(
			"read response body: %w", err,
		)
	}

	return resp.StatusCode, rb, nil
}

// apiError builds the normalized error for a non-2xx
// response.
func (p *Provider) apiError(
	op string,
	status int,
	body []byte,
) error {
	return &git.APIError{
		Platform:   git.PlatformGitea,
		Operation:  op,
		StatusCode: status,
		Body:       string(body),
	}
}

// TestAccess probes the authenticated user endpoint
// and requires the returned login to match username
// case-insensitively. This guards against a valid
// token for the wrong account silently passing.
func (p *Provider) TestAccess(
	ctx context.Context,
	username string,
) bool {
	status, body, err := p.do(
		ctx, http.MethodGet, "/user", nil,
	)
	if err != nil || status != http.StatusOK {
		slog.Warn(
			"gitea access probe failed",
			"status", status,
			"error", err,
		)

		return false
	}

	var user struct {
		Login string `json:"login"`
	}

	if err := json.Unmarshal(body, &user); err != nil {
		return false
	}

	return strings.EqualFold(user.Login, username)
}

// DefaultBranch returns the repository's default
// branch.
func (p *Provider) DefaultBranch(
	ctx context.Context,
) (string, error) {
	const op = "resolving default branch"

	status, body, err := p.do(
		ctx, http.MethodGet, p.repoPath(), nil,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if status != http.StatusOK {
		return "", p.apiError(op, status, body)
	}

	var repo struct {
		DefaultBranch string `json:"default_branch"`
	}

	if err := json.Unmarshal(body, &repo); err != nil {
		return "", fmt.Errorf(
			"%s: decode response: %w", op, err,
		)
	}

	return repo.DefaultBranch, nil
}

// HeadCommit returns the SHA at the tip of branch.
func (p *Provider) HeadCommit(
	ctx context.Context,
	branch string,
) (string, error) {
	const op = "resolving head commit"

	status, body, err := p.do(
		ctx,
		http.MethodGet,
		p.repoPath()+"/branches/"+
			url.PathEscape(branch),
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if status != http.StatusOK {
		return "", p.apiError(op, status, body)
	}

	var br struct {
		Commit struct {
			ID string `json:"id"`
		} `json:"commit"`
	}

	if err := json.Unmarshal(body, &br); err != nil {
		return "", fmt.Errorf(
			"%s: decode response: %w", op, err,
		)
	}

	return br.Commit.ID, nil
}

// CreateBranch creates a branch from base.Branch. A
// failure whose body reports an empty repository is
// promoted to *git.EmptyRepositoryError so callers can
// tell the user to add an initial commit.
func (p *Provider) CreateBranch(
	ctx context.Context,
	name string,
	base git.BranchBase,
) error {
	const op = "creating branch"

	payload := struct {
		NewBranchName string `json:"new_branch_name"`
		OldBranchName string `json:"old_branch_name"`
	}{
		NewBranchName: name,
		OldBranchName: base.Branch,
	}

	status, body, err := p.do(
		ctx,
		http.MethodPost,
		p.repoPath()+"/branches",
		payload,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if status == http.StatusCreated ||
		status == http.StatusOK {
		return nil
	}

	if strings.Contains(
		string(body), "Git Repository is empty",
	) {
		return &git.EmptyRepositoryError{
			Repo: p.repo,
		}
	}

	return p.apiError(op, status, body)
}

// contentsPath returns the contents API path for a
// repository file path.
func (p *Provider) contentsPath(path string) string {
	escaped := make(
		[]string, 0, strings.Count(path, "/")+1,
	)
	for _, seg := range strings.Split(path, "/") {
		escaped = append(
			escaped, url.PathEscape(seg),
		)
	}

	return p.repoPath() + "/contents/" +
		strings.Join(escaped, "/")
}

// ReadFile returns the file at path on ref. A 404
// yields *git.NotFoundError.
func (p *Provider) ReadFile(
	ctx context.Context,
	path string,
	ref string,
) (*git.FileContent, error) {
	const op = "reading file"

	target := p.contentsPath(path)
	if ref != "" {
		target += "?ref=" + url.QueryEscape(ref)
	}

	status, body, err := p.do(
		ctx, http.MethodGet, target, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if status == http.StatusNotFound {
		return nil, &git.NotFoundError{
			Platform: git.PlatformGitea,
			Resource: "file " + path,
		}
	}

	if status != http.StatusOK {
		return nil, p.apiError(op, status, body)
	}

	var file struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}

	if err := json.Unmarshal(body, &file); err != nil {
		return nil, fmt.Errorf(
			"%s: decode response: %w", op, err,
		)
	}

	decoded, err := decodeBase64(file.Content)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: decode content: %w", op, err,
		)
	}

	return &git.FileContent{
		Content: decoded,
		SHA:     file.SHA,
	}, nil
}

// WriteFile creates (POST) or updates (PUT, with blob
// SHA) a file. Content is base64-encoded as the API
// requires.
func (p *Provider) WriteFile(
	ctx context.Context,
	req git.WriteFileRequest,
) (*git.Commit, error) {
	const op = "writing file"

	payload := struct {
		Content string `json:"content"`
		Message string `json:"message"`
		Branch  string `json:"branch,omitempty"`
		SHA     string `json:"sha,omitempty"`
	}{
		Content: encodeBase64(req.Content),
		Message: req.Message,
		Branch:  req.Branch,
		SHA:     req.SHA,
	}

	method := http.MethodPost
	if req.SHA != "" {
		// Updating in place requires the prior blob
		// SHA on PUT.
		method = http.MethodPut
	}

	status, body, err := p.do(
		ctx, method, p.contentsPath(req.Path), payload,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if status != http.StatusCreated &&
		status != http.StatusOK {
		return nil, p.apiError(op, status, body)
	}

	var result struct {
		Commit struct {
			SHA     string `json:"sha"`
			HTMLURL string `json:"html_url"`
			Created string `json:"created"`
		} `json:"commit"`
	}

	if err := json.Unmarshal(
		body, &result,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: decode response: %w", op, err,
		)
	}

	commit := &git.Commit{
		SHA:     result.Commit.SHA,
		Message: req.Message,
		URL:     result.Commit.HTMLURL,
	}

	if ts, err := time.Parse(
		time.RFC3339, result.Commit.Created,
	); err == nil {
		commit.Date = ts
	}

	return commit, nil
}

// CreatePullRequest opens a pull request.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	req git.PullRequestRequest,
) (*git.PullRequest, error) {
	const op = "creating pull request"

	payload := struct {
		Title string `json:"title"`
		Body  string `json:"body,omitempty"`
		Head  string `json:"head"`
		Base  string `json:"base"`
	}{
		Title: req.Title,
		Body:  req.Body,
		Head:  req.SourceBranch,
		Base:  req.TargetBranch,
	}

	status, body, err := p.do(
		ctx,
		http.MethodPost,
		p.repoPath()+"/pulls",
		payload,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if status != http.StatusCreated &&
		status != http.StatusOK {
		return nil, p.apiError(op, status, body)
	}

	pr, err := decodePullRequest(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info(
		"created gitea pull request",
		"url", pr.URL,
	)

	return pr, nil
}

// PullRequest fetches the pull request with the given
// number.
func (p *Provider) PullRequest(
	ctx context.Context,
	number int,
) (*git.PullRequest, error) {
	const op = "fetching pull request"

	status, body, err := p.do(
		ctx,
		http.MethodGet,
		p.repoPath()+"/pulls/"+
			strconv.Itoa(number),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if status == http.StatusNotFound {
		return nil, &git.NotFoundError{
			Platform: git.PlatformGitea,
			Resource: fmt.Sprintf(
				"pull request %d", number,
			),
		}
	}

	if status != http.StatusOK {
		return nil, p.apiError(op, status, body)
	}

	pr, err := decodePullRequest(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pr, nil
}

// ListCommits returns up to limit commits touching
// path, newest first.
func (p *Provider) ListCommits(
	ctx context.Context,
	path string,
	limit int,
) ([]git.Commit, error) {
	const op = "listing commits"

	query := url.Values{}
	query.Set("path", path)
	query.Set("limit", strconv.Itoa(limit))

	status, body, err := p.do(
		ctx,
		http.MethodGet,
		p.repoPath()+"/commits?"+query.Encode(),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if status != http.StatusOK {
		return nil, p.apiError(op, status, body)
	}

	var raw []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string `json:"name"`
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		HTMLURL string `json:"html_url"`
	}

	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf(
			"%s: decode response: %w", op, err,
		)
	}

	if len(raw) > limit {
		raw = raw[:limit]
	}

	commits := make([]git.Commit, 0, len(raw))

	for _, rc := range raw {
		commit := git.Commit{
			SHA:     rc.SHA,
			Message: rc.Commit.Message,
			Author:  rc.Commit.Author.Name,
			URL:     rc.HTMLURL,
		}

		if ts, err := time.Parse(
			time.RFC3339, rc.Commit.Author.Date,
		); err == nil {
			commit.Date = ts
		}

		commits = append(commits, commit)
	}

	return commits, nil
}

// decodePullRequest normalizes a gitea pull request
// payload. Gitea reports state open/closed plus a
// separate merged flag.
func decodePullRequest(
	body []byte,
) (*git.PullRequest, error) {
	var raw struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
		Title   string `json:"title"`
		State   string `json:"state"`
		Merged  bool   `json:"merged"`
		Head    struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	}

	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf(
			"decode pull request: %w", err,
		)
	}

	state := git.PRStateOpen

	switch {
	case raw.Merged:
		state = git.PRStateMerged
	case raw.State == "closed":
		state = git.PRStateClosed
	}

	return &git.PullRequest{
		Number:       raw.Number,
		URL:          raw.HTMLURL,
		Title:        raw.Title,
		SourceBranch: raw.Head.Ref,
		TargetBranch: raw.Base.Ref,
		State:        state,
	}, nil
}
