package git

import "fmt"

// InvalidRepoURLError reports a repository URL that
// cannot be parsed into owner and name. Unrecoverable;
// surfaced to the user as-is.
type InvalidRepoURLError struct {
	// URL is the offending repository URL.
	URL string
	// Reason describes what was wrong with it.
	Reason string
}

// Error implements the error interface.
func (e *InvalidRepoURLError) Error() string {
	return fmt.Sprintf(
		"invalid repository url %q: %s",
		e.URL, e.Reason,
	)
}

// ConfigurationError reports missing configuration
// required for a platform, such as the mandatory
// server URL for gitea.
type ConfigurationError struct {
	Platform Platform
	Reason   string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf(
		"%s configuration: %s",
		e.Platform, e.Reason,
	)
}

// EmptyRepositoryError reports a branch creation
// attempt against a repository with no commits. This
// is a user-fixable precondition, not a generic API
// failure: the repository needs an initial commit
// before branches can be created from it.
type EmptyRepositoryError struct {
	Repo RepoRef
}

// Error implements the error interface.
func (e *EmptyRepositoryError) Error() string {
	return fmt.Sprintf(
		"repository %s is empty: "+
			"add an initial commit before "+
			"promoting prompts to it",
		e.Repo.FullName(),
	)
}

// NotFoundError reports a missing resource, such as a
// file path absent from a ref. Callers treat it as
// "no value" rather than a failure.
type NotFoundError struct {
	Platform Platform
	Resource string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf(
		"%s: %s not found",
		e.Platform, e.Resource,
	)
}

// APIError reports a non-2xx platform response. It
// carries the upstream status and body for support
// diagnosis; this layer performs no retries.
type APIError struct {
	Platform   Platform
	Operation  string
	StatusCode int
	Body       string
}

// Error implements the error interface. The message
// deliberately collapses to a generic "operation
// failed against platform" form; the status and body
// remain available on the struct.
func (e *APIError) Error() string {
	return fmt.Sprintf(
		"%s failed against %s: status %d",
		e.Operation, e.Platform, e.StatusCode,
	)
}
