// Package git defines the platform-agnostic core of the git
// integration layer: repository references, credentials, normalized
// operation results, and a strategy interface for performing content
// operations across different git hosting platforms.
//
// The Provider interface abstracts branch, file, pull request, and
// commit history operations. Implementations exist for GitHub,
// GitLab, and Gitea in sub-packages; the registry sub-package selects
// one from a Credential. All platform-specific quirks (base64 vs raw
// content bodies, PR vs MR terminology, iid vs number) stay inside
// the adapter packages.
//
// ParseRepoURL, ResolveBaseURL, and AuthHeaders hold the per-platform
// URL and authentication rules shared by the adapters.
package git
