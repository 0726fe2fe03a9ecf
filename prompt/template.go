// Package prompt turns role-tagged templates into message lists.
//
// A template is plain text divided into sections by uppercase role tags:
//
//	SYSTEM: You are a librarian.
//	USER: Recommend a {genre} book.
//
// Recognized tags are SYSTEM:, USER:, ASSISTANT:, TOOL:, and MESSAGES:.
// A template with no tags at all renders as a single user message.
// Placeholders in braces are substituted from the variable map at render
// time. The MESSAGES: tag injects an existing message list mid-template,
// which is how multi-turn history gets spliced into a templated call.
package prompt

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aschepis/switchboard/llm"
)

var (
	roleTagRe     = regexp.MustCompile(`(?m)^(SYSTEM|USER|ASSISTANT|TOOL|MESSAGES):`)
	placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)
)

// section is one role-tagged span of the template.
type section struct {
	role string // lowercased tag
	body string
}

// Template is a parsed prompt template. Parse once, render many times.
type Template struct {
	raw      string
	sections []section
}

// Parse parses a role-tagged template. The template is dedented and
// trimmed first so indented string literals read naturally.
func Parse(template string) *Template {
	cleaned := strings.TrimSpace(dedent(template))

	t := &Template{raw: cleaned}
	tags := roleTagRe.FindAllStringSubmatchIndex(cleaned, -1)
	for i, tag := range tags {
		end := len(cleaned)
		if i+1 < len(tags) {
			end = tags[i+1][0]
		}
		t.sections = append(t.sections, section{
			role: strings.ToLower(cleaned[tag[2]:tag[3]]),
			body: cleaned[tag[1]:end],
		})
	}
	return t
}

// Variables returns the distinct placeholder names in the template, in
// order of first appearance.
func (t *Template) Variables() []string {
	seen := make(map[string]bool)
	var names []string
	for _, match := range placeholderRe.FindAllStringSubmatch(t.raw, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}

// Render substitutes variables and returns the resulting messages. Sections
// that render to empty content are dropped. A template with no role tags
// becomes a single user message.
func (t *Template) Render(vars map[string]interface{}) ([]llm.Message, error) {
	if len(t.sections) == 0 {
		content, err := substitute(t.raw, vars)
		if err != nil {
			return nil, err
		}
		return []llm.Message{llm.NewTextMessage(llm.RoleUser, content)}, nil
	}

	var messages []llm.Message
	for _, sec := range t.sections {
		if sec.role == "messages" {
			injected, err := injectMessages(sec.body, vars)
			if err != nil {
				return nil, err
			}
			messages = append(messages, injected...)
			continue
		}

		content, err := substitute(strings.TrimSpace(dedent(sec.body)), vars)
		if err != nil {
			return nil, err
		}
		if content == "" {
			continue
		}
		messages = append(messages, llm.NewTextMessage(llm.MessageRole(sec.role), content))
	}
	return messages, nil
}

// Bind returns a prompt function that renders the template with the given
// variables when invoked.
func (t *Template) Bind(vars map[string]interface{}) llm.PromptFunc {
	return func(context.Context) (interface{}, error) {
		messages, err := t.Render(vars)
		if err != nil {
			return nil, err
		}
		return messages, nil
	}
}

// Render is a one-shot convenience for Parse followed by Render.
func Render(template string, vars map[string]interface{}) ([]llm.Message, error) {
	return Parse(template).Render(vars)
}

// injectMessages resolves a MESSAGES: section. The body must contain exactly
// one placeholder whose value is a message list.
func injectMessages(body string, vars map[string]interface{}) ([]llm.Message, error) {
	names := placeholderRe.FindAllStringSubmatch(body, -1)
	if len(names) != 1 {
		return nil, fmt.Errorf("MESSAGES section must reference exactly one variable")
	}
	name := names[0][1]
	value, ok := vars[name]
	if !ok {
		return nil, fmt.Errorf("MESSAGES variable %q not provided", name)
	}
	messages, ok := value.([]llm.Message)
	if !ok {
		return nil, fmt.Errorf("MESSAGES variable %q is not a message list", name)
	}
	return messages, nil
}

// substitute replaces {name} placeholders from the variable map. A
// placeholder with no matching variable is an error.
func substitute(text string, vars map[string]interface{}) (string, error) {
	var missing []string
	result := placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return formatValue(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template variables not provided: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// formatValue renders a variable for inclusion in prompt text. Lists join
// with newlines and nested lists join with blank lines, which keeps
// multi-document prompts readable.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, "\n")
	case [][]string:
		parts := make([]string, len(v))
		for i, inner := range v {
			parts[i] = strings.Join(inner, "\n")
		}
		return strings.Join(parts, "\n\n")
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, "\n")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// dedent strips the longest common leading whitespace from every non-blank
// line, mirroring how indented raw string literals are written in source.
func dedent(text string) string {
	lines := strings.Split(text, "\n")

	margin := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin <= 0 {
		return text
	}

	for i, line := range lines {
		if len(line) >= margin {
			lines[i] = line[margin:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}
