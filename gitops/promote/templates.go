package promote

import (
	"strconv"

	"github.com/valyala/fasttemplate"

	"github.com/rh-aiservices-bu/grimoire/gitops/snapshot"
)

const initTitleTemplate = "✨ Initialize " +
	"project: {project}"

const initBodyTemplate = "This PR creates the " +
	"initial folder structure for the " +
	"**{project}** project.\n\n" +
	"**Folder structure:**\n" +
	"```\n" +
	"{project}/\n" +
	"└── {provider}/\n" +
	"    └── .gitkeep\n" +
	"```\n\n" +
	"After merging this PR, you can start tagging " +
	"prompts as production to automatically create " +
	"prompt files in this structure."

const prodTitleTemplate = "🚀 {action} " +
	"production prompt for {project}"

const prodBodyTemplate = "This PR {verb} the " +
	"production prompt for **{project}** with " +
	"model **{provider}**.\n\n" +
	"**Prompt Details:**\n" +
	"- User Prompt: {user_prompt}\n" +
	"- System Prompt: {system_prompt}\n" +
	"- Temperature: {temperature}\n" +
	"- Max Length: {max_len}\n\n" +
	"**File:** `{path}`"

func render(template string, vars map[string]any) string {
	return fasttemplate.ExecuteString(
		template, "{", "}", vars,
	)
}

func initPRTitle(project string) string {
	return render(initTitleTemplate, map[string]any{
		"project": project,
	})
}

func initPRBody(project, provider string) string {
	return render(initBodyTemplate, map[string]any{
		"project":  project,
		"provider": provider,
	})
}

func prodPRTitle(project string, update bool) string {
	action := "Create"
	if update {
		action = "Update"
	}

	return render(prodTitleTemplate, map[string]any{
		"action":  action,
		"project": project,
	})
}

type prodPRDetails struct {
	project  string
	provider string
	path     string
	update   bool
	snap     *snapshot.Snapshot
}

func prodPRBody(d prodPRDetails) string {
	verb := "creates"
	if d.update {
		verb = "updates"
	}

	systemPrompt := truncate(d.snap.SystemPrompt, 100)
	if systemPrompt == "" {
		systemPrompt = "None"
	}

	return render(prodBodyTemplate, map[string]any{
		"verb":     verb,
		"project":  d.project,
		"provider": d.provider,
		"user_prompt": truncate(
			d.snap.UserPrompt, 100,
		),
		"system_prompt": systemPrompt,
		"temperature": formatFloat(
			d.snap.Temperature,
		),
		"max_len": formatInt(d.snap.MaxLen),
		"path":    d.path,
	})
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max] + "..."
}
