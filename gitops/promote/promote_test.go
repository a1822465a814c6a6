package promote_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-aiservices-bu/grimoire/gitops/cache"
	"github.com/rh-aiservices-bu/grimoire/gitops/git"
	"github.com/rh-aiservices-bu/grimoire/gitops/git/gittest"
	"github.com/rh-aiservices-bu/grimoire/gitops/promote"
	"github.com/rh-aiservices-bu/grimoire/gitops/snapshot"
)

// harness bundles a promoter with its fake provider
// and a controllable clock.
type harness struct {
	promoter *promote.Promoter
	fake     *gittest.Fake
	now      *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	fake := gittest.New()

	promoter, err := promote.New(promote.Config{
		Provider:   fake,
		Cache:      cache.NewMemoryWithClock(clock),
		Project:    "Demo App",
		ProviderID: "gpt-4",
		Now:        clock,
	})
	require.NoError(t, err)

	return &harness{
		promoter: promoter,
		fake:     fake,
		now:      &now,
	}
}

func (h *harness) advance(d time.Duration) {
	*h.now = h.now.Add(d)
}

func testSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		UserPrompt:  "Summarize {{text}}",
		Temperature: 0.7,
		MaxLen:      512,
		TopP:        0.9,
		TopK:        40,
		Variables: map[string]string{
			"text": "article",
		},
		CreatedAt: "2026-08-30T12:00:00",
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := promote.New(promote.Config{
		Cache:      cache.NewMemory(),
		Project:    "Demo",
		ProviderID: "gpt-4",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider")

	_, err = promote.New(promote.Config{
		Provider:   gittest.New(),
		Project:    "Demo",
		ProviderID: "gpt-4",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache")

	_, err = promote.New(promote.Config{
		Provider: gittest.New(),
		Cache:    cache.NewMemory(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project")
}

func TestInitProject(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	pr, err := h.promoter.InitProject(ctx)
	require.NoError(t, err)

	assert.Equal(
		t,
		"✨ Initialize project: Demo App",
		pr.Title,
	)
	assert.Equal(
		t, "create-project-demo-app",
		pr.SourceBranch,
	)
	assert.Equal(t, "main", pr.TargetBranch)
	assert.Contains(t, pr.Body, "**Demo App**")
	assert.Contains(t, pr.Body, "gpt-4")
	assert.Contains(t, pr.Body, ".gitkeep")

	file, err := h.fake.ReadFile(
		ctx,
		"Demo App/gpt-4/.gitkeep",
		"create-project-demo-app",
	)
	require.NoError(t, err)
	assert.Empty(t, file.Content)
}

func TestInitProjectEmptyRepository(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.SetEmpty()

	_, err := h.promoter.InitProject(
		context.Background(),
	)

	var (
		stepErr  *promote.StepError
		emptyErr *git.EmptyRepositoryError
	)

	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, promote.StepBranch, stepErr.Step)
	require.ErrorAs(t, err, &emptyErr)
	assert.Contains(
		t, emptyErr.Error(), "initial commit",
	)
}

func TestTagProductionCreate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	pr, err := h.promoter.TagProduction(
		ctx, testSnapshot(),
	)
	require.NoError(t, err)

	assert.Equal(
		t,
		"🚀 Create production prompt for Demo App",
		pr.Title,
	)
	assert.Equal(
		t,
		"update-prompt-demo-app-1700000000",
		pr.SourceBranch,
	)
	assert.Contains(t, pr.Body, "creates the")
	assert.Contains(
		t,
		pr.Body,
		"`Demo App/gpt-4/prompt_prod.json`",
	)

	// The prompt lands on the branch, not on main.
	file, err := h.fake.ReadFile(
		ctx,
		"Demo App/gpt-4/prompt_prod.json",
		pr.SourceBranch,
	)
	require.NoError(t, err)

	snap, err := snapshot.Decode(file.Content)
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), snap)

	_, err = h.fake.ReadFile(
		ctx,
		"Demo App/gpt-4/prompt_prod.json",
		"main",
	)
	require.Error(t, err)
}

func TestTagProductionUpdateWording(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	seed, err := testSnapshot().Encode()
	require.NoError(t, err)

	h.fake.SeedFile(
		"main",
		"Demo App/gpt-4/prompt_prod.json",
		string(seed),
	)

	pr, err := h.promoter.TagProduction(
		ctx, testSnapshot(),
	)
	require.NoError(t, err)

	assert.Equal(
		t,
		"🚀 Update production prompt for Demo App",
		pr.Title,
	)
	assert.Contains(t, pr.Body, "updates the")
}

// Consecutive production tags must never reuse a
// branch name.
// A write failure after the branch was created
// surfaces as a step error so operators can see what
// partially happened.
func TestTagProductionWriteFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.FailWith("WriteFile", &git.APIError{
		Platform:   git.PlatformGitHub,
		Operation:  "writing file",
		StatusCode: 500,
	})

	_, err := h.promoter.TagProduction(
		context.Background(), testSnapshot(),
	)

	var stepErr *promote.StepError

	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, promote.StepWrite, stepErr.Step)

	var apiErr *git.APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
}

func TestTagProductionDistinctBranches(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	first, err := h.promoter.TagProduction(
		ctx, testSnapshot(),
	)
	require.NoError(t, err)

	h.advance(time.Second)

	second, err := h.promoter.TagProduction(
		ctx, testSnapshot(),
	)
	require.NoError(t, err)

	assert.NotEqual(
		t,
		first.SourceBranch,
		second.SourceBranch,
	)
}

func TestTagTest(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	commit, err := h.promoter.TagTest(
		ctx, testSnapshot(),
	)
	require.NoError(t, err)
	assert.Equal(
		t,
		"Update test prompt for Demo App",
		commit.Message,
	)

	// Direct commit to the default branch, no PR.
	assert.Equal(
		t, 0, h.fake.Calls("CreatePullRequest"),
	)

	file, err := h.fake.ReadFile(
		ctx,
		"Demo App/gpt-4/prompt_test.json",
		"main",
	)
	require.NoError(t, err)

	snap, err := snapshot.Decode(file.Content)
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), snap)
}

func TestProductionSnapshotAbsent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	snap, err := h.promoter.ProductionSnapshot(
		context.Background(),
	)

	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestProductionSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	seed, err := testSnapshot().Encode()
	require.NoError(t, err)

	h.fake.SeedFile(
		"main",
		"Demo App/gpt-4/prompt_prod.json",
		string(seed),
	)

	snap, err := h.promoter.ProductionSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), snap)
}
