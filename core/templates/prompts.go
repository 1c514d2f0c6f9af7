// Package templates renders the task instructions sent alongside
// transcript text. Prompts are text/template over typed data rather than
// ad-hoc string concatenation.
package templates

import (
	"strings"
	"text/template"
)

// TaskData is the full set of variables any task prompt may reference.
// Not every field is populated for every task.
type TaskData struct {
	Text      string
	Language  string
	MaxLength int
}

type Prompt struct {
	System string
	User   string
}

const (
	translationSystem = "You are a professional translator. Translate the text into {{.Language}}, " +
		"keeping the original tone and context. Keep technical terms in their " +
		"original form where appropriate."
	translationUser = "Translate the following text:\n\n{{.Text}}"

	summarySystem = "You are an assistant that summarizes meetings. Produce a clear, concise " +
		"summary covering:\n" +
		"1. Main points discussed\n" +
		"2. Decisions made\n" +
		"3. Actions to take\n" +
		"4. Next steps"
	summaryUser = "Summarize the following meeting transcript, in roughly {{.MaxLength}} characters:\n\n{{.Text}}"

	actionItemsSystem = "You are an assistant that analyzes meetings. Identify and extract " +
		"actionable items, decisions made, and key points."
	actionItemsUser = "Analyze the following transcript and extract:\n" +
		"1. Actionable items (tasks, owners)\n" +
		"2. Decisions made\n" +
		"3. Key points discussed\n\n{{.Text}}"

	topicsSystem = "You are a content analysis expert. Identify and list the main topics " +
		"discussed in the meeting transcript."
	topicsUser = "List the main topics discussed in the following transcript, one per line:\n\n{{.Text}}"
)

var tasks = map[string]struct{ system, user *template.Template }{
	"translation":  {mustParse("translation/system", translationSystem), mustParse("translation/user", translationUser)},
	"summary":      {mustParse("summary/system", summarySystem), mustParse("summary/user", summaryUser)},
	"action_items": {mustParse("action_items/system", actionItemsSystem), mustParse("action_items/user", actionItemsUser)},
	"topics":       {mustParse("topics/system", topicsSystem), mustParse("topics/user", topicsUser)},
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

func render(t *template.Template, data TaskData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Translation renders the prompt pair asking for text translated into
// targetLanguage.
func Translation(text, targetLanguage string) (Prompt, error) {
	return renderTask("translation", TaskData{Text: text, Language: targetLanguage})
}

// Summary renders the meeting summary prompt pair.
func Summary(text string, maxLength int) (Prompt, error) {
	return renderTask("summary", TaskData{Text: text, MaxLength: maxLength})
}

// ActionItems renders the actionable-items prompt pair.
func ActionItems(text string) (Prompt, error) {
	return renderTask("action_items", TaskData{Text: text})
}

// Topics renders the topic-extraction prompt pair.
func Topics(text string) (Prompt, error) {
	return renderTask("topics", TaskData{Text: text})
}

func renderTask(name string, data TaskData) (Prompt, error) {
	t := tasks[name]
	system, err := render(t.system, data)
	if err != nil {
		return Prompt{}, err
	}
	user, err := render(t.user, data)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: system, User: user}, nil
}
