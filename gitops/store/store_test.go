package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-aiservices-bu/grimoire/gitops/snapshot"
	"github.com/rh-aiservices-bu/grimoire/gitops/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(
		filepath.Join(t.TempDir(), "snapshots.db"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	return st
}

func testSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		UserPrompt:  "Summarize {{text}}",
		Temperature: 0.7,
		MaxLen:      512,
		Variables: map[string]string{
			"text": "article",
		},
		CreatedAt: "2026-08-30T12:00:00",
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	st := openStore(t)

	_, ok, err := st.Get(
		context.Background(), "demo", "abc123",
	)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(
		ctx, "demo", "abc123", testSnapshot(),
	))

	snap, ok, err := st.Get(ctx, "demo", "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testSnapshot(), snap)
}

// A commit's content never changes, so a second Put
// for the same SHA keeps the first snapshot.
func TestPutSameShaKeepsFirst(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(
		ctx, "demo", "abc123", testSnapshot(),
	))

	changed := testSnapshot()
	changed.UserPrompt = "something else"

	require.NoError(t, st.Put(
		ctx, "demo", "abc123", changed,
	))

	snap, ok, err := st.Get(ctx, "demo", "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(
		t, testSnapshot().UserPrompt,
		snap.UserPrompt,
	)
}

func TestProjectsIsolated(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(
		ctx, "demo", "abc123", testSnapshot(),
	))

	_, ok, err := st.Get(ctx, "other", "abc123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteProject(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(
		ctx, "demo", "abc123", testSnapshot(),
	))
	require.NoError(t, st.Put(
		ctx, "other", "def456", testSnapshot(),
	))

	require.NoError(t, st.DeleteProject(ctx, "demo"))

	_, ok, err := st.Get(ctx, "demo", "abc123")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = st.Get(ctx, "other", "def456")
	require.NoError(t, err)
	assert.True(t, ok)
}
