// Package gittest provides an in-memory git.Provider
// for exercising code that drives content operations
// without talking to a real platform.
package gittest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rh-aiservices-bu/grimoire/gitops/git"
)

// Fake is an in-memory git.Provider. Branch heads,
// file contents and pull requests live in maps; every
// mutation is recorded so tests can assert on call
// counts and commit history.
//
// The zero value is not usable; construct with New.
type Fake struct {
	mu sync.Mutex

	accessOK      bool
	defaultBranch string
	heads         map[string]string
	files         map[string]map[string]string
	prs           map[int]*git.PullRequest
	nextPR        int
	nextCommit    int
	history       []historyEntry
	calls         map[string]int
	errs          map[string]error
	emptyRepo     bool
}

type historyEntry struct {
	commit git.Commit
	path   string
}

// New returns a Fake with an empty default branch.
func New() *Fake {
	return &Fake{
		accessOK:      true,
		defaultBranch: "main",
		heads:         map[string]string{"main": "root"},
		files: map[string]map[string]string{
			"main": {},
		},
		prs:    map[int]*git.PullRequest{},
		nextPR: 1,
		calls:  map[string]int{},
		errs:   map[string]error{},
	}
}

// DenyAccess makes TestAccess report false.
func (f *Fake) DenyAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accessOK = false
}

// SetEmpty makes CreateBranch fail the way a platform
// does on a repository without an initial commit.
func (f *Fake) SetEmpty() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.emptyRepo = true
}

// FailWith forces the named operation to return err.
func (f *Fake) FailWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.errs[op] = err
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[op]
}

// SeedFile places content on a branch without
// recording a commit.
func (f *Fake) SeedFile(
	branch, path, content string,
) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.files[branch] == nil {
		f.files[branch] = map[string]string{}
	}

	f.files[branch][path] = content
}

// SeedCommit appends a commit to the recorded history
// for path, newest last in seeding order.
func (f *Fake) SeedCommit(
	path string,
	commit git.Commit,
) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.history = append(f.history, historyEntry{
		commit: commit,
		path:   path,
	})
}

// MergePR flips the pull request with the given number
// to the merged state.
func (f *Fake) MergePR(number int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pr, ok := f.prs[number]; ok {
		pr.State = git.PRStateMerged
	}
}

func (f *Fake) record(op string) error {
	f.calls[op]++

	return f.errs[op]
}

// Platform reports github so the fake slots into code
// paths that branch on platform quirks the least.
func (f *Fake) Platform() git.Platform {
	return git.PlatformGitHub
}

func (f *Fake) TestAccess(
	_ context.Context,
	_ string,
) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_ = f.record("TestAccess")

	return f.accessOK
}

func (f *Fake) DefaultBranch(
	_ context.Context,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("DefaultBranch"); err != nil {
		return "", err
	}

	return f.defaultBranch, nil
}

func (f *Fake) HeadCommit(
	_ context.Context,
	branch string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("HeadCommit"); err != nil {
		return "", err
	}

	head, ok := f.heads[branch]
	if !ok {
		return "", &git.NotFoundError{
			Platform: f.Platform(),
			Resource: "branch " + branch,
		}
	}

	return head, nil
}

func (f *Fake) CreateBranch(
	_ context.Context,
	name string,
	base git.BranchBase,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("CreateBranch"); err != nil {
		return err
	}

	if f.emptyRepo {
		return &git.EmptyRepositoryError{
			Repo: git.RepoRef{
				Owner: "fake",
				Name:  "fake",
			},
		}
	}

	from := base.Branch
	if from == "" {
		from = f.defaultBranch
	}

	f.heads[name] = f.heads[from]
	f.files[name] = map[string]string{}

	for path, content := range f.files[from] {
		f.files[name][path] = content
	}

	return nil
}

func (f *Fake) ReadFile(
	_ context.Context,
	path string,
	ref string,
) (*git.FileContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("ReadFile"); err != nil {
		return nil, err
	}

	content, ok := f.files[ref][path]
	if !ok {
		return nil, &git.NotFoundError{
			Platform: f.Platform(),
			Resource: "file " + path,
		}
	}

	return &git.FileContent{
		Content: []byte(content),
		SHA:     fmt.Sprintf("blob-%s-%s", ref, path),
	}, nil
}

func (f *Fake) WriteFile(
	_ context.Context,
	req git.WriteFileRequest,
) (*git.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("WriteFile"); err != nil {
		return nil, err
	}

	if f.files[req.Branch] == nil {
		return nil, &git.NotFoundError{
			Platform: f.Platform(),
			Resource: "branch " + req.Branch,
		}
	}

	f.files[req.Branch][req.Path] =
		string(req.Content)

	f.nextCommit++
	sha := fmt.Sprintf("commit-%d", f.nextCommit)
	f.heads[req.Branch] = sha

	commit := git.Commit{
		SHA:     sha,
		Message: req.Message,
		Author:  "fake",
		Date:    time.Unix(int64(f.nextCommit), 0),
	}
	f.history = append(f.history, historyEntry{
		commit: commit,
		path:   req.Path,
	})

	return &commit, nil
}

func (f *Fake) CreatePullRequest(
	_ context.Context,
	req git.PullRequestRequest,
) (*git.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err :=
		f.record("CreatePullRequest"); err != nil {
		return nil, err
	}

	pr := &git.PullRequest{
		Number: f.nextPR,
		URL: fmt.Sprintf(
			"https://fake.example.com/pr/%d",
			f.nextPR,
		),
		Title:        req.Title,
		SourceBranch: req.SourceBranch,
		TargetBranch: req.TargetBranch,
		State:        git.PRStateOpen,
	}
	f.prs[f.nextPR] = pr
	f.nextPR++

	out := *pr

	return &out, nil
}

func (f *Fake) PullRequest(
	_ context.Context,
	number int,
) (*git.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("PullRequest"); err != nil {
		return nil, err
	}

	pr, ok := f.prs[number]
	if !ok {
		return nil, &git.NotFoundError{
			Platform: f.Platform(),
			Resource: fmt.Sprintf(
				"pull request %d", number,
			),
		}
	}

	out := *pr

	return &out, nil
}

// ListCommits returns recorded commits touching path,
// newest first.
func (f *Fake) ListCommits(
	_ context.Context,
	path string,
	limit int,
) ([]git.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record("ListCommits"); err != nil {
		return nil, err
	}

	var commits []git.Commit

	for i := len(f.history) - 1; i >= 0; i-- {
		if f.history[i].path != path {
			continue
		}

		commits = append(
			commits, f.history[i].commit,
		)
		if len(commits) == limit {
			break
		}
	}

	return commits, nil
}
