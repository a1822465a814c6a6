package git_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-aiservices-bu/grimoire/gitops/git"
)

func TestParseRepoURL_strips_git_suffix(t *testing.T) {
	t.Parallel()

	ref, err := git.ParseRepoURL(
		"https://github.com/acme/widgets.git",
	)

	require.NoError(t, err)
	assert.Equal(t, "acme", ref.Owner)
	assert.Equal(t, "widgets", ref.Name)
	assert.Equal(t, git.PlatformGitHub, ref.Platform)
	assert.Equal(
		t,
		"https://github.com/acme/widgets",
		ref.URL,
	)
}

func TestParseRepoURL_guesses_gitlab(t *testing.T) {
	t.Parallel()

	ref, err := git.ParseRepoURL(
		"https://gitlab.com/group/project",
	)

	require.NoError(t, err)
	assert.Equal(t, git.PlatformGitLab, ref.Platform)
	assert.Equal(t, "group/project", ref.FullName())
}

func TestParseRepoURL_unknown_host_defaults_to_gitlab(
	t *testing.T,
) {
	t.Parallel()

	ref, err := git.ParseRepoURL(
		"https://git.corp.example.com/team/repo",
	)

	require.NoError(t, err)
	assert.Equal(t, git.PlatformGitLab, ref.Platform)
}

func TestParseRepoURL_too_few_segments(t *testing.T) {
	t.Parallel()

	_, err := git.ParseRepoURL(
		"https://github.com/acme",
	)

	var invalid *git.InvalidRepoURLError

	require.ErrorAs(t, err, &invalid)
	assert.Equal(
		t, "https://github.com/acme", invalid.URL,
	)
}

func TestParseRepoURL_not_absolute(t *testing.T) {
	t.Parallel()

	_, err := git.ParseRepoURL("acme/widgets")

	var invalid *git.InvalidRepoURLError

	assert.ErrorAs(t, err, &invalid)
}

func TestResolveBaseURL_github_public(t *testing.T) {
	t.Parallel()

	base, err := git.ResolveBaseURL(
		git.PlatformGitHub,
		"",
		"https://github.com/acme/widgets",
	)

	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com", base)
}

func TestResolveBaseURL_github_enterprise(
	t *testing.T,
) {
	t.Parallel()

	base, err := git.ResolveBaseURL(
		git.PlatformGitHub,
		"https://git.corp.example.com",
		"",
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		"https://git.corp.example.com/api/v3",
		base,
	)
}

func TestResolveBaseURL_github_enterprise_from_repo(
	t *testing.T,
) {
	t.Parallel()

	base, err := git.ResolveBaseURL(
		git.PlatformGitHub,
		"",
		"https://git.corp.example.com/acme/widgets",
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		"https://git.corp.example.com/api/v3",
		base,
	)
}

func TestResolveBaseURL_gitlab_public(t *testing.T) {
	t.Parallel()

	base, err := git.ResolveBaseURL(
		git.PlatformGitLab, "", "",
	)

	require.NoError(t, err)
	assert.Equal(
		t, "https://gitlab.com/api/v4", base,
	)
}

func TestResolveBaseURL_gitlab_self_hosted(
	t *testing.T,
) {
	t.Parallel()

	base, err := git.ResolveBaseURL(
		git.PlatformGitLab,
		"https://gitlab.corp.example.com",
		"",
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		"https://gitlab.corp.example.com/api/v4",
		base,
	)
}

func TestResolveBaseURL_gitea_requires_server_url(
	t *testing.T,
) {
	t.Parallel()

	_, err := git.ResolveBaseURL(
		git.PlatformGitea, "", "",
	)

	var cfgErr *git.ConfigurationError

	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(
		t, git.PlatformGitea, cfgErr.Platform,
	)
}

func TestResolveBaseURL_gitea_with_server_url(
	t *testing.T,
) {
	t.Parallel()

	base, err := git.ResolveBaseURL(
		git.PlatformGitea,
		"https://gitea.example.com/",
		"",
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		"https://gitea.example.com/api/v1",
		base,
	)
}

func TestAuthHeaders_gitlab(t *testing.T) {
	t.Parallel()

	headers := git.AuthHeaders(
		git.PlatformGitLab, "tok123",
	)

	assert.Equal(
		t, "tok123", headers["Private-Token"],
	)
	assert.NotContains(t, headers, "Authorization")
}

func TestAuthHeaders_github(t *testing.T) {
	t.Parallel()

	headers := git.AuthHeaders(
		git.PlatformGitHub, "tok123",
	)

	assert.Equal(
		t, "token tok123", headers["Authorization"],
	)
	assert.Equal(
		t,
		"application/vnd.github.v3+json",
		headers["Accept"],
	)
}

func TestAuthHeaders_gitea(t *testing.T) {
	t.Parallel()

	headers := git.AuthHeaders(
		git.PlatformGitea, "tok123",
	)

	assert.Equal(
		t, "token tok123", headers["Authorization"],
	)
	assert.Equal(
		t, "application/json", headers["Accept"],
	)
}

func TestPlatform_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, git.PlatformGitHub.Valid())
	assert.True(t, git.PlatformGitLab.Valid())
	assert.True(t, git.PlatformGitea.Valid())
	assert.False(t, git.Platform("svn").Valid())
}

func TestAPIError_message(t *testing.T) {
	t.Parallel()

	err := &git.APIError{
		Platform:   git.PlatformGitea,
		Operation:  "creating branch",
		StatusCode: 500,
		Body:       "boom",
	}

	assert.ErrorContains(
		t, err, "failed against gitea",
	)
	assert.ErrorContains(t, err, "500")
}

func TestEmptyRepositoryError_actionable(t *testing.T) {
	t.Parallel()

	err := error(&git.EmptyRepositoryError{
		Repo: git.RepoRef{
			Owner: "acme",
			Name:  "widgets",
		},
	})

	assert.ErrorContains(t, err, "initial commit")

	var empty *git.EmptyRepositoryError

	assert.True(t, errors.As(err, &empty))
}
