// Package registry constructs the platform-specific
// git.Provider for a stored credential and repository
// pair.
package registry

import (
	"fmt"

	"github.com/rh-aiservices-bu/grimoire/gitops/git"
	"github.com/rh-aiservices-bu/grimoire/gitops/git/gitea"
	"github.com/rh-aiservices-bu/grimoire/gitops/git/github"
	"github.com/rh-aiservices-bu/grimoire/gitops/git/gitlab"
)

// New creates a git.Provider for the given credential
// and repository. The credential's platform is
// authoritative; the platform guessed from the
// repository URL is advisory only.
//
// Pattern: Factory -- selects platform implementation
// at runtime.
func New(
	cred git.Credential,
	repo git.RepoRef,
) (git.Provider, error) {
	const errCtx = "creating git provider"

	switch cred.Platform {
	case git.PlatformGitHub:
		p, err := github.NewProvider(github.Config{
			Repo:        repo,
			AccessToken: cred.Token,
			ServerURL:   cred.ServerURL,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	case git.PlatformGitLab:
		p, err := gitlab.NewProvider(gitlab.Config{
			Repo:        repo,
			AccessToken: cred.Token,
			ServerURL:   cred.ServerURL,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	case git.PlatformGitea:
		p, err := gitea.NewProvider(gitea.Config{
			Repo:        repo,
			AccessToken: cred.Token,
			ServerURL:   cred.ServerURL,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	default:
		return nil, fmt.Errorf(
			"%s: unknown platform %q",
			errCtx,
			cred.Platform,
		)
	}
}
