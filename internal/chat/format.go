package chat

import (
	"sort"
	"strings"
)

// TeachingContexts are the focus areas a teacher can pin a question to.
var TeachingContexts = map[string]string{
	"lesson_planning": "Help with creating effective lesson plans",
	"assessment":      "Guidance on assessment methods and rubrics",
	"methodology":     "Teaching methodology and best practices",
	"differentiation": "Strategies for differentiated instruction",
	"feedback":        "How to provide effective feedback",
	"resources":       "Educational resources and materials",
}

type ContextInfo struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

// Contexts lists TeachingContexts sorted by key.
func Contexts() []ContextInfo {
	out := make([]ContextInfo, 0, len(TeachingContexts))
	for k, v := range TeachingContexts {
		out = append(out, ContextInfo{Key: k, Description: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

const promptTemplate = `As an expert teacher assistant, help with this question: %s

Key areas of expertise:
1. Educational pedagogy and teaching methodologies
2. Assessment strategies and feedback techniques
3. Curriculum development and lesson planning
4. Student engagement and classroom management
5. Educational technology and resources
6. Differentiated instruction strategies

Provide practical, actionable advice based on modern educational research.
Include specific examples and resources when relevant.
Format your response in clear paragraphs with proper spacing.`

var headingPrefixes = []string{"How to", "Tips for", "Steps to"}

var highlights = strings.NewReplacer(
	"[Important]", "**Important:**",
	"[Tip]", "**Tip:**",
	"[Example]", "**Example:**",
)

// FormatTeachingResponse turns a plain model reply into markdown: how-to
// paragraphs become headings, bullets are normalised to "-", bracketed
// labels are bolded and blank lines are dropped.
func FormatTeachingResponse(response string) string {
	paragraphs := strings.Split(strings.TrimSpace(strings.ReplaceAll(response, "\r\n", "\n")), "\n\n")
	formatted := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		switch {
		case hasAnyPrefix(p, headingPrefixes):
			p = "### " + p
		case strings.HasPrefix(p, "-") || strings.HasPrefix(p, "•"):
			lines := strings.Split(p, "\n")
			for i, l := range lines {
				lines[i] = strings.TrimSpace(l)
			}
			p = strings.ReplaceAll(strings.Join(lines, "\n"), "•", "-")
		}
		formatted = append(formatted, highlights.Replace(p))
	}

	lines := strings.Split(strings.Join(formatted, "\n\n"), "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// ExtractResources returns the lines following the first "resources:" marker
// up to the next blank line, with bullet markers removed.
func ExtractResources(response string) []string {
	lower := strings.ToLower(response)
	idx := strings.Index(lower, "resources:")
	if idx < 0 {
		return nil
	}
	section := response[idx+len("resources:"):]
	if end := strings.Index(section, "\n\n"); end >= 0 {
		section = section[:end]
	}
	out := make([]string, 0)
	for _, l := range strings.Split(section, "\n") {
		l = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), "-•*"))
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
