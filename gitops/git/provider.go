package git

import "context"

// Pattern: Strategy -- swap git platform without
// changing promotion or history logic.

// Provider performs content operations on a git
// hosting platform. All methods are synchronous
// outbound HTTP calls bounded by the client timeout;
// the layer holds no connections between calls.
type Provider interface {
	// Platform returns the platform tag this
	// provider talks to.
	Platform() Platform

	// TestAccess reports whether the configured
	// credentials can reach the repository. GitHub
	// probes the repository itself; GitLab and Gitea
	// probe the authenticated user and require the
	// login to match username case-insensitively.
	// Probe failures yield false, never an error.
	TestAccess(ctx context.Context, username string) bool

	// DefaultBranch returns the platform-reported
	// primary branch of the repository.
	DefaultBranch(ctx context.Context) (string, error)

	// HeadCommit returns the SHA at the tip of
	// branch.
	HeadCommit(ctx context.Context, branch string) (string, error)

	// CreateBranch creates branch name pointing at
	// the given base. base is a SHA for GitHub and a
	// branch name for GitLab and Gitea; adapters
	// receive both via BranchBase.
	CreateBranch(ctx context.Context, name string, base BranchBase) error

	// ReadFile returns the file at path on ref.
	// A missing file returns a *NotFoundError.
	ReadFile(ctx context.Context, path string, ref string) (*FileContent, error)

	// WriteFile creates or updates a single file and
	// returns the resulting commit.
	WriteFile(ctx context.Context, req WriteFileRequest) (*Commit, error)

	// CreatePullRequest opens a pull/merge request.
	CreatePullRequest(ctx context.Context, req PullRequestRequest) (*PullRequest, error)

	// PullRequest fetches the current state of the
	// pull/merge request with the given
	// platform-native number.
	PullRequest(ctx context.Context, number int) (*PullRequest, error)

	// ListCommits returns up to limit commits
	// touching path, newest first.
	ListCommits(ctx context.Context, path string, limit int) ([]Commit, error)
}

// BranchBase names the point a new branch is created
// from. Adapters pick the field their platform's API
// wants: GitHub refs take a SHA, GitLab and Gitea
// branch endpoints take a branch name.
type BranchBase struct {
	Branch string
	SHA    string
}
