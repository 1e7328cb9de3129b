package summarize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// variablePattern matches a {variable_name} placeholder, mirroring
// original_source's prompt_template.rs variable syntax.
var variablePattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// PromptVariable documents one placeholder a PromptTemplate expects.
type PromptVariable struct {
	Name         string
	Description  string
	Required     bool
	DefaultValue string
}

// PromptTemplate is a versioned, named prompt with variable placeholders,
// rendered against a turn's or session's content before being sent to a
// TextGenerator. PromptVersion (see model.TurnSummary) is
// this template's Version field at generation time, so a later prompt
// change never silently reinterprets an already-generated summary.
type PromptTemplate struct {
	ID          string
	Name        string
	Description string
	Template    string
	Variables   []PromptVariable
	Version     int
	IsBuiltin   bool
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// Render substitutes each variable's provided or default value into the
// template, erroring if a required variable is missing or the rendered
// text still contains an unresolved placeholder.
func (t PromptTemplate) Render(values map[string]string) (string, error) {
	rendered := t.Template
	for _, v := range t.Variables {
		value, provided := values[v.Name]
		switch {
		case provided:
		case v.DefaultValue != "":
			value = v.DefaultValue
		case v.Required:
			return "", fmt.Errorf("chatvault: prompt template %q: required variable %q not provided", t.ID, v.Name)
		default:
			continue
		}
		rendered = strings.ReplaceAll(rendered, "{"+v.Name+"}", value)
	}
	if m := variablePattern.FindStringSubmatch(rendered); m != nil {
		return "", fmt.Errorf("chatvault: prompt template %q: unresolved variable %q", t.ID, m[1])
	}
	return rendered, nil
}

// TurnSummaryPromptVersion1 is the built-in template used to generate a
// turn's intent/action/summary enrichment.
var TurnSummaryPromptVersion1 = PromptTemplate{
	ID:          "turn-summary",
	Name:        "Turn Summary",
	Description: "Summarizes one user-initiated dialogue turn",
	Template: "Summarize this exchange in 1-2 sentences, stating the user's intent and the " +
		"assistant's action.\n\nUser:\n{user_content}\n\nAssistant:\n{assistant_content}",
	Variables: []PromptVariable{
		{Name: "user_content", Description: "First user message in the turn", Required: true},
		{Name: "assistant_content", Description: "First assistant message in the turn", Required: false, DefaultValue: "(no response)"},
	},
	Version:   1,
	IsBuiltin: true,
}

// SessionSummaryPromptVersion1 is the built-in template used to generate a
// whole-session enrichment from its turn summaries.
var SessionSummaryPromptVersion1 = PromptTemplate{
	ID:          "session-summary",
	Name:        "Session Summary",
	Description: "Summarizes a whole session from its turn summaries",
	Template: "Given these turn summaries from one coding session, write a short title, a " +
		"1-paragraph summary, the primary goal, and the outcome.\n\n{turn_summaries}",
	Variables: []PromptVariable{
		{Name: "turn_summaries", Description: "Newline-joined turn summaries", Required: true},
	},
	Version:   1,
	IsBuiltin: true,
}
