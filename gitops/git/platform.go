package git

import (
	"net/url"
	"strings"
)

// Public platform API endpoints.
const (
	githubPublicAPI = "https://api.github.com"
	gitlabPublicAPI = "https://gitlab.com/api/v4"
)

// ParseRepoURL parses a repository URL into a RepoRef.
// A trailing ".git" is stripped and the path must
// contain at least two non-empty segments (owner and
// name). The Platform field is guessed from the host:
// github.com maps to github, gitlab.com to gitlab, and
// any other host defaults to gitlab. The guess is
// advisory; operations trust the Credential's platform.
func ParseRepoURL(raw string) (RepoRef, error) {
	trimmed := strings.TrimSuffix(raw, ".git")

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return RepoRef{}, &InvalidRepoURLError{
			URL:    raw,
			Reason: "not an absolute url",
		}
	}

	segments := splitPath(parsed.Path)
	if len(segments) < 2 {
		return RepoRef{}, &InvalidRepoURLError{
			URL: raw,
			Reason: "path must contain owner " +
				"and repository name",
		}
	}

	platform := PlatformGitLab

	switch {
	case strings.Contains(parsed.Host, "github.com"):
		platform = PlatformGitHub
	case strings.Contains(parsed.Host, "gitlab.com"):
		platform = PlatformGitLab
	}

	return RepoRef{
		Platform: platform,
		Owner:    segments[0],
		Name:     segments[1],
		URL:      trimmed,
	}, nil
}

// ResolveBaseURL returns the API base URL for the
// platform. serverURL takes precedence over the host
// of repoURL; github falls back to the public API when
// neither indicates an Enterprise host, gitlab falls
// back to gitlab.com, and gitea requires an explicit
// server URL.
func ResolveBaseURL(
	platform Platform,
	serverURL string,
	repoURL string,
) (string, error) {
	switch platform {
	case PlatformGitHub:
		origin := originOf(serverURL, repoURL)
		if origin == "" ||
			strings.Contains(origin, "github.com") {
			return githubPublicAPI, nil
		}

		// GitHub Enterprise.
		return origin + "/api/v3", nil

	case PlatformGitLab:
		origin := originOf(serverURL, repoURL)
		if origin == "" ||
			strings.Contains(origin, "gitlab.com") {
			return gitlabPublicAPI, nil
		}

		return origin + "/api/v4", nil

	case PlatformGitea:
		if serverURL == "" {
			return "", &ConfigurationError{
				Platform: PlatformGitea,
				Reason: "server url is required; " +
					"gitea has no public instance",
			}
		}

		base := strings.TrimSuffix(serverURL, "/")

		return base + "/api/v1", nil

	default:
		return "", &ConfigurationError{
			Platform: platform,
			Reason:   "unknown platform",
		}
	}
}

// AuthHeaders returns the request headers that
// authenticate token against the platform. GitHub and
// Gitea use a bearer-style token Authorization header;
// GitLab uses its Private-Token header instead.
func AuthHeaders(
	platform Platform,
	token string,
) map[string]string {
	if platform == PlatformGitLab {
		return map[string]string{
			"Private-Token": token,
			"Accept":        "application/json",
		}
	}

	accept := "application/json"
	if platform == PlatformGitHub {
		accept = "application/vnd.github.v3+json"
	}

	return map[string]string{
		"Authorization": "token " + token,
		"Accept":        accept,
	}
}

// originOf returns the scheme and host of serverURL
// when set, else of repoURL, else empty. A URL without
// a scheme gets https.
func originOf(serverURL, repoURL string) string {
	for _, raw := range []string{serverURL, repoURL} {
		if raw == "" {
			continue
		}

		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			continue
		}

		scheme := parsed.Scheme
		if scheme == "" {
			scheme = "https"
		}

		return scheme + "://" + parsed.Host
	}

	return ""
}

// splitPath splits a URL path into its non-empty
// segments.
func splitPath(path string) []string {
	var segments []string

	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	return segments
}
