package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-aiservices-bu/grimoire/gitops/commitmsg"
	"github.com/rh-aiservices-bu/grimoire/gitops/git"
	"github.com/rh-aiservices-bu/grimoire/gitops/git/gittest"
	"github.com/rh-aiservices-bu/grimoire/gitops/history"
	"github.com/rh-aiservices-bu/grimoire/gitops/snapshot"
	"github.com/rh-aiservices-bu/grimoire/gitops/store"
)

const prodPath = "Demo/gpt-4/prompt_prod.json"

func newReconstructor(
	t *testing.T,
	fake *gittest.Fake,
	st history.SnapshotStore,
) *history.Reconstructor {
	t.Helper()

	r, err := history.New(history.Config{
		Provider:   fake,
		Store:      st,
		Project:    "Demo",
		ProviderID: "gpt-4",
	})
	require.NoError(t, err)

	return r
}

// seedVersion records a commit touching the tracked
// file and the content readable at its SHA.
func seedVersion(
	t *testing.T,
	fake *gittest.Fake,
	sha string,
	message string,
	prompt string,
) {
	t.Helper()

	snap := &snapshot.Snapshot{
		UserPrompt: prompt,
		MaxLen:     512,
	}

	content, err := snap.Encode()
	require.NoError(t, err)

	fake.SeedCommit(prodPath, git.Commit{
		SHA:     sha,
		Message: message,
		Date:    time.Unix(1_700_000_000, 0).UTC(),
	})
	fake.SeedFile(sha, prodPath, string(content))
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := history.New(history.Config{
		Project:    "Demo",
		ProviderID: "gpt-4",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider")

	_, err = history.New(history.Config{
		Provider: gittest.New(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project")
}

func TestProductionHistoryEmpty(t *testing.T) {
	t.Parallel()

	r := newReconstructor(t, gittest.New(), nil)

	entries, err := r.ProductionHistory(
		context.Background(), 10,
	)

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProductionHistoryNewestFirst(t *testing.T) {
	t.Parallel()

	fake := gittest.New()
	seedVersion(
		t, fake, "c1",
		commitmsg.ProdUpdate("Demo", false), "v1",
	)
	seedVersion(
		t, fake, "c2",
		commitmsg.ProdUpdate("Demo", true), "v2",
	)
	seedVersion(
		t, fake, "c3",
		"manual fixup", "v3",
	)

	r := newReconstructor(t, fake, nil)

	entries, err := r.ProductionHistory(
		context.Background(), 2,
	)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "c3", entries[0].Commit.SHA)
	assert.Equal(t, "v3", entries[0].Snapshot.UserPrompt)
	assert.True(t, entries[0].Current)
	assert.Equal(
		t,
		commitmsg.KindDirectCommit,
		entries[0].Kind,
	)

	assert.Equal(t, "c2", entries[1].Commit.SHA)
	assert.False(t, entries[1].Current)
	assert.Equal(
		t, commitmsg.KindPRMerge, entries[1].Kind,
	)
}

// Commits whose content is gone or unreadable are
// dropped; the newest surviving entry is current.
func TestProductionHistorySkipsBroken(t *testing.T) {
	t.Parallel()

	fake := gittest.New()
	seedVersion(
		t, fake, "c1",
		commitmsg.ProdUpdate("Demo", false), "v1",
	)

	fake.SeedCommit(prodPath, git.Commit{
		SHA:     "c2",
		Message: "garbage content",
	})
	fake.SeedFile("c2", prodPath, "not json")

	fake.SeedCommit(prodPath, git.Commit{
		SHA:     "c3",
		Message: "content missing at sha",
	})

	r := newReconstructor(t, fake, nil)

	entries, err := r.ProductionHistory(
		context.Background(), 10,
	)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "c1", entries[0].Commit.SHA)
	assert.True(t, entries[0].Current)
}

// With a durable store a second reconstruction only
// fetches commits it has never seen.
func TestProductionHistoryUsesStore(t *testing.T) {
	t.Parallel()

	fake := gittest.New()
	seedVersion(
		t, fake, "c1",
		commitmsg.ProdUpdate("Demo", false), "v1",
	)
	seedVersion(
		t, fake, "c2",
		commitmsg.ProdUpdate("Demo", true), "v2",
	)

	st, err := store.Open(
		filepath.Join(t.TempDir(), "snapshots.db"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	r := newReconstructor(t, fake, st)
	ctx := context.Background()

	first, err := r.ProductionHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 2)

	fetched := fake.Calls("ReadFile")

	second, err := r.ProductionHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, second, 2)

	assert.Equal(t, fetched, fake.Calls("ReadFile"))
	assert.Equal(
		t,
		first[0].Snapshot.UserPrompt,
		second[0].Snapshot.UserPrompt,
	)
}

// History timestamps reflect commit time, not the
// client-side created_at written into the file.
func TestProductionHistoryCommitTime(t *testing.T) {
	t.Parallel()

	fake := gittest.New()
	seedVersion(
		t, fake, "c1",
		commitmsg.ProdUpdate("Demo", false), "v1",
	)

	r := newReconstructor(t, fake, nil)

	entries, err := r.ProductionHistory(
		context.Background(), 10,
	)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(
		t,
		time.Unix(1_700_000_000, 0).UTC().
			Format(time.RFC3339),
		entries[0].Snapshot.CreatedAt,
	)
}
