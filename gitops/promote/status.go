package promote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/rh-aiservices-bu/grimoire/gitops/cache"
	"github.com/rh-aiservices-bu/grimoire/gitops/git"
)

// probeTTL bounds how long access and head probes are
// reused before the platform is asked again.
const probeTTL = 30 * time.Second

func (p *Promoter) accessKey(username string) string {
	return fmt.Sprintf(
		"access:%s:%s", p.project, username,
	)
}

func (p *Promoter) headKey() string {
	return "head:" + p.project
}

func (p *Promoter) prKey(number int) string {
	return fmt.Sprintf(
		"pr:%s:%d", p.project, number,
	)
}

func (p *Promoter) prListKey() string {
	return "prlist:" + p.project
}

// TestAccess reports whether the credential behind the
// provider can reach the repository as username.
// Results are reused for a short window so bursts of
// UI checks do not hammer the platform.
func (p *Promoter) TestAccess(
	ctx context.Context,
	username string,
) bool {
	key := p.accessKey(username)

	if cached, ok, err := p.cache.Get(
		ctx, key,
	); err == nil && ok {
		return string(cached) == "1"
	}

	granted := p.provider.TestAccess(ctx, username)

	value := []byte("0")
	if granted {
		value = []byte("1")
	}

	if err := p.cache.Set(
		ctx, key, value, probeTTL,
	); err != nil {
		slog.Warn(
			"caching access probe failed",
			"error", err,
		)
	}

	return granted
}

// PRStatus returns the state of a pull request. States
// are cached without expiry and refreshed only when
// force is set or a mutation invalidates them: polling
// a merged PR forever is wasted platform quota.
func (p *Promoter) PRStatus(
	ctx context.Context,
	number int,
	force bool,
) (git.PRState, error) {
	key := p.prKey(number)

	if !force {
		if cached, ok, err := p.cache.Get(
			ctx, key,
		); err == nil && ok {
			return git.PRState(cached), nil
		}
	}

	pr, err := p.provider.PullRequest(ctx, number)
	if err != nil {
		return "", &StepError{
			Step: StepStatus,
			Err:  err,
		}
	}

	if err := p.cache.Set(
		ctx,
		key,
		[]byte(pr.State),
		cache.NoTTL,
	); err != nil {
		slog.Warn(
			"caching pr state failed",
			"error", err,
		)
	}

	return pr.State, nil
}

// PendingPRs returns the pull requests opened by this
// promoter that are still open, dropping merged and
// closed ones from tracking.
func (p *Promoter) PendingPRs(
	ctx context.Context,
) ([]git.PullRequest, error) {
	numbers, err := p.trackedPRs(ctx)
	if err != nil {
		return nil, err
	}

	var (
		open    []git.PullRequest
		pending []int
	)

	for _, number := range numbers {
		pr, err := p.provider.PullRequest(
			ctx, number,
		)
		if err != nil {
			return nil, &StepError{
				Step: StepStatus,
				Err:  err,
			}
		}

		if pr.State == git.PRStateOpen {
			open = append(open, *pr)
			pending = append(pending, number)
		}
	}

	if err := p.storeTrackedPRs(
		ctx, pending,
	); err != nil {
		return nil, err
	}

	return open, nil
}

// SyncPRStatus refreshes the cached state of every
// tracked pull request from the platform.
func (p *Promoter) SyncPRStatus(
	ctx context.Context,
) error {
	numbers, err := p.trackedPRs(ctx)
	if err != nil {
		return err
	}

	for _, number := range numbers {
		if _, err := p.PRStatus(
			ctx, number, true,
		); err != nil {
			return err
		}
	}

	return nil
}

// RepositoryChanged reports whether the default branch
// has moved past lastKnownCommit. The head probe is
// cached for a short window.
func (p *Promoter) RepositoryChanged(
	ctx context.Context,
	lastKnownCommit string,
) (bool, error) {
	key := p.headKey()

	if cached, ok, err := p.cache.Get(
		ctx, key,
	); err == nil && ok {
		return string(cached) != lastKnownCommit, nil
	}

	base, err := p.baseBranch(ctx)
	if err != nil {
		return false, err
	}

	if err := p.cache.Set(
		ctx, key, []byte(base.SHA), probeTTL,
	); err != nil {
		slog.Warn(
			"caching head probe failed",
			"error", err,
		)
	}

	return base.SHA != lastKnownCommit, nil
}

// afterMutation drops the caches a successful write
// can have invalidated.
func (p *Promoter) afterMutation(ctx context.Context) {
	for _, err := range []error{
		p.cache.Invalidate(ctx, p.headKey()),
		p.cache.InvalidatePrefix(
			ctx, "pr:"+p.project+":",
		),
	} {
		if err != nil {
			slog.Warn(
				"cache invalidation failed",
				"error", err,
			)
		}
	}
}

// trackPR remembers a pull request opened by this
// promoter so PendingPRs can poll it later.
func (p *Promoter) trackPR(
	ctx context.Context,
	pr *git.PullRequest,
) {
	numbers, err := p.trackedPRs(ctx)
	if err != nil {
		slog.Warn(
			"loading tracked prs failed",
			"error", err,
		)

		return
	}

	if err := p.storeTrackedPRs(
		ctx, append(numbers, pr.Number),
	); err != nil {
		slog.Warn(
			"storing tracked prs failed",
			"error", err,
		)
	}
}

func (p *Promoter) trackedPRs(
	ctx context.Context,
) ([]int, error) {
	raw, ok, err := p.cache.Get(ctx, p.prListKey())
	if err != nil {
		return nil, fmt.Errorf(
			"loading tracked prs: %w", err,
		)
	}

	if !ok {
		return nil, nil
	}

	var numbers []int
	if err := json.Unmarshal(raw, &numbers); err != nil {
		return nil, fmt.Errorf(
			"decoding tracked prs: %w", err,
		)
	}

	return numbers, nil
}

func (p *Promoter) storeTrackedPRs(
	ctx context.Context,
	numbers []int,
) error {
	raw, err := json.Marshal(numbers)
	if err != nil {
		return fmt.Errorf(
			"encoding tracked prs: %w", err,
		)
	}

	if err := p.cache.Set(
		ctx, p.prListKey(), raw, cache.NoTTL,
	); err != nil {
		return fmt.Errorf(
			"storing tracked prs: %w", err,
		)
	}

	return nil
}
