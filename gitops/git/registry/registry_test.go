package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-aiservices-bu/grimoire/gitops/git"
	"github.com/rh-aiservices-bu/grimoire/gitops/git/registry"
)

func testRepo(platform git.Platform) git.RepoRef {
	return git.RepoRef{
		Platform: platform,
		Owner:    "acme",
		Name:     "widgets",
	}
}

func TestNewGitHub(t *testing.T) {
	t.Parallel()

	provider, err := registry.New(
		git.Credential{
			Platform: git.PlatformGitHub,
			Token:    "ghp-test",
		},
		testRepo(git.PlatformGitHub),
	)

	require.NoError(t, err)
	assert.Equal(
		t, git.PlatformGitHub, provider.Platform(),
	)
}

func TestNewGitLab(t *testing.T) {
	t.Parallel()

	provider, err := registry.New(
		git.Credential{
			Platform: git.PlatformGitLab,
			Token:    "glpat-test",
		},
		testRepo(git.PlatformGitLab),
	)

	require.NoError(t, err)
	assert.Equal(
		t, git.PlatformGitLab, provider.Platform(),
	)
}

func TestNewGitea(t *testing.T) {
	t.Parallel()

	provider, err := registry.New(
		git.Credential{
			Platform:  git.PlatformGitea,
			Token:     "gta-test",
			ServerURL: "https://gitea.example.com",
		},
		testRepo(git.PlatformGitea),
	)

	require.NoError(t, err)
	assert.Equal(
		t, git.PlatformGitea, provider.Platform(),
	)
}

// Gitea has no public default instance, so a server
// URL is mandatory.
func TestNewGiteaWithoutServerURL(t *testing.T) {
	t.Parallel()

	_, err := registry.New(
		git.Credential{
			Platform: git.PlatformGitea,
			Token:    "gta-test",
		},
		testRepo(git.PlatformGitea),
	)

	var confErr *git.ConfigurationError

	require.ErrorAs(t, err, &confErr)
	assert.Equal(
		t, git.PlatformGitea, confErr.Platform,
	)
}

func TestNewUnknownPlatform(t *testing.T) {
	t.Parallel()

	_, err := registry.New(
		git.Credential{
			Platform: "sourceforge",
			Token:    "tok",
		},
		testRepo("sourceforge"),
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown platform")
}
