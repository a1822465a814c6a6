// Package snapshot defines the prompt snapshot stored
// in git and the path convention that ties a project
// and model provider to the files tracking it.
//
// The JSON field names and the path layout are an
// external contract: other tools read these
// repositories directly and depend on both.
package snapshot

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/valyala/fasttemplate"
)

// Snapshot is one prompt configuration as written to
// and read from a repository.
type Snapshot struct {
	UserPrompt   string            `json:"user_prompt"`
	SystemPrompt string            `json:"system_prompt"`
	Temperature  float64           `json:"temperature"`
	MaxLen       int               `json:"max_len"`
	TopP         float64           `json:"top_p"`
	TopK         int               `json:"top_k"`
	Variables    map[string]string `json:"variables"`
	CreatedAt    string            `json:"created_at"`
}

// Encode serializes the snapshot as pretty-printed
// JSON, the form committed to repositories.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf(
			"encoding snapshot: %w", err,
		)
	}

	return data, nil
}

// Decode parses a snapshot from its committed JSON
// form.
func Decode(data []byte) (*Snapshot, error) {
	var snap Snapshot

	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf(
			"decoding snapshot: %w", err,
		)
	}

	return &snap, nil
}

const (
	prodPathTemplate = "{project}/{provider}/" +
		"prompt_prod.json"
	testPathTemplate = "{project}/{provider}/" +
		"prompt_test.json"
	dirPathTemplate = "{project}/{provider}/.gitkeep"
)

func renderPath(
	template, project, provider string,
) string {
	return fasttemplate.ExecuteString(
		template, "{", "}",
		map[string]any{
			"project":  project,
			"provider": provider,
		},
	)
}

// ProdPath returns the repository path of the
// production prompt for a project and provider.
func ProdPath(project, provider string) string {
	return renderPath(
		prodPathTemplate, project, provider,
	)
}

// TestPath returns the repository path of the test
// settings for a project and provider.
func TestPath(project, provider string) string {
	return renderPath(
		testPathTemplate, project, provider,
	)
}

// KeepPath returns the placeholder path committed when
// a project's folder structure is first created.
func KeepPath(project, provider string) string {
	return renderPath(
		dirPathTemplate, project, provider,
	)
}

// Slug turns a project name into its branch-name form:
// lowercased with spaces replaced by hyphens.
func Slug(project string) string {
	return strings.ReplaceAll(
		strings.ToLower(project), " ", "-",
	)
}
