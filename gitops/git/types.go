package git

import "time"

// Platform identifies a git hosting platform family.
type Platform string

// Supported platforms.
const (
	PlatformGitHub Platform = "github"
	PlatformGitLab Platform = "gitlab"
	PlatformGitea  Platform = "gitea"
)

// Valid reports whether p is one of the supported
// platform tags.
func (p Platform) Valid() bool {
	switch p {
	case PlatformGitHub, PlatformGitLab, PlatformGitea:
		return true
	default:
		return false
	}
}

// Credential holds the authentication material for one
// platform account. The Platform recorded here is
// authoritative for every operation; the platform guess
// derived from a repository URL is advisory only.
type Credential struct {
	// Platform is the hosting platform tag.
	Platform Platform
	// Username is the account login name.
	Username string
	// Token is the plaintext access token. It is
	// encrypted by the session layer before being
	// held at rest.
	Token string
	// ServerURL is the base URL of a self-hosted
	// instance. Required for gitea, optional for
	// gitlab and github (Enterprise).
	ServerURL string
}

// RepoRef identifies a repository on a platform by
// owner and name.
type RepoRef struct {
	// Platform is the platform guessed from the
	// repository URL host. Advisory only.
	Platform Platform
	// Owner is the user or organisation owning the
	// repository.
	Owner string
	// Name is the repository name without owner.
	Name string
	// URL is the original repository URL the
	// reference was parsed from, without a trailing
	// ".git".
	URL string
}

// FullName returns the "owner/name" form used by
// path-addressed platform APIs.
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// FileContent is a file read from a repository.
type FileContent struct {
	// Content is the decoded file body.
	Content []byte
	// SHA is the blob SHA of the file, required by
	// GitHub and Gitea when updating in place.
	SHA string
}

// Commit is a normalized commit record. Immutable once
// fetched: a SHA never changes content.
type Commit struct {
	SHA     string
	Message string
	Author  string
	Date    time.Time
	// URL is the platform web URL of the commit.
	URL string
}

// PRState is the normalized pull request state.
type PRState string

// Pull request states. GitLab's "opened" is folded
// into PRStateOpen; a merged GitHub PR reports
// state=closed with merged=true and is folded into
// PRStateMerged.
const (
	PRStateOpen   PRState = "open"
	PRStateMerged PRState = "merged"
	PRStateClosed PRState = "closed"
)

// PullRequest is a normalized pull/merge request
// descriptor. Number carries the platform-native
// identifier (PR number, MR iid).
type PullRequest struct {
	Number       int
	URL          string
	Title        string
	SourceBranch string
	TargetBranch string
	State        PRState
}

// WriteFileRequest describes a single file write.
type WriteFileRequest struct {
	// Path is the repository-relative file path.
	Path string
	// Content is the raw file body. Adapters handle
	// base64 encoding where their platform requires
	// it.
	Content []byte
	// Message is the commit message.
	Message string
	// Branch is the branch to commit to.
	Branch string
	// SHA is the blob SHA of the existing file when
	// updating in place. Empty creates a new file.
	SHA string
}

// PullRequestRequest describes a pull request to open.
type PullRequestRequest struct {
	Title        string
	Body         string
	SourceBranch string
	TargetBranch string
}
