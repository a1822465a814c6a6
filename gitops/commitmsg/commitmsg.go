// Package commitmsg builds the commit messages written
// by content operations and classifies existing ones
// for history annotation.
//
// Classification is string containment against known
// markers. It is best-effort and presentation-only:
// it never fails and must never drive control flow.
package commitmsg

import (
	"strings"

	"github.com/valyala/fasttemplate"
)

// Kind labels what a commit most likely was.
type Kind string

const (
	// KindProjectInit is the initial folder
	// structure commit.
	KindProjectInit Kind = "project-init"
	// KindPRMerge is a production prompt update
	// that went through a pull request.
	KindPRMerge Kind = "pr-merge"
	// KindDirectCommit is anything else, typically
	// a test settings write.
	KindDirectCommit Kind = "direct-commit"
)

const (
	initMarker = "✨"
	prodMarker = "🚀"
)

const (
	initTemplate = "✨ Initialize project " +
		"structure for {project}"
	prodTemplate = "🚀 {action} production " +
		"prompt for {project}"
	testTemplate = "Update test prompt for {project}"
)

func render(
	template string,
	vars map[string]any,
) string {
	return fasttemplate.ExecuteString(
		template, "{", "}", vars,
	)
}

// ProjectInit returns the commit message for the
// initial project structure.
func ProjectInit(project string) string {
	return render(initTemplate, map[string]any{
		"project": project,
	})
}

// ProdUpdate returns the commit message for a
// production prompt write. update selects between the
// create and update wording.
func ProdUpdate(project string, update bool) string {
	action := "Create"
	if update {
		action = "Update"
	}

	return render(prodTemplate, map[string]any{
		"action":  action,
		"project": project,
	})
}

// TestUpdate returns the plain commit message for a
// test settings write.
func TestUpdate(project string) string {
	return render(testTemplate, map[string]any{
		"project": project,
	})
}

// Classify maps a commit message to its most likely
// kind. Unrecognized messages fall back to
// KindDirectCommit rather than erroring.
func Classify(message string) Kind {
	switch {
	case strings.Contains(message, initMarker):
		return KindProjectInit
	case strings.Contains(message, prodMarker):
		return KindPRMerge
	default:
		return KindDirectCommit
	}
}
