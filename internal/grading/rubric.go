package grading

import (
	"sort"
	"strings"
)

var rubrics = map[string][]string{
	"math": {
		"Correct final answer with units where relevant",
		"Complete working: every step that leads to the answer is shown",
		"Correct use of notation, formulas and theorems",
		"Partial credit for a correct method with arithmetic slips",
	},
	"science": {
		"Scientific accuracy of facts, definitions and laws",
		"Correct use of scientific vocabulary and units",
		"Quality of explanation: cause and effect, reasoning from evidence",
		"Diagrams and experimental procedure labelled and complete",
	},
	"language": {
		"Grammar, spelling and punctuation",
		"Organisation: clear introduction, body and conclusion",
		"Relevance and depth of ideas, supported by examples or quotations",
		"Vocabulary and style appropriate to the task",
	},
	"social": {
		"Factual accuracy of dates, events and people",
		"Analysis of causes, consequences and multiple perspectives",
		"Use of evidence and sources",
		"Clear structure and argument",
	},
	"computing": {
		"Correctness of the algorithm or program logic",
		"Handling of edge cases and input validation",
		"Readability: naming, structure and comments",
		"Efficiency and appropriate choice of data structures",
	},
	"default": {
		"Accuracy and correctness of answers",
		"Completeness: every part of each question is addressed",
		"Clarity of explanation and presentation",
		"Evidence of understanding beyond recall",
	},
}

var subjectAliases = map[string]string{
	"math":             "math",
	"maths":            "math",
	"mathematics":      "math",
	"algebra":          "math",
	"geometry":         "math",
	"calculus":         "math",
	"science":          "science",
	"physics":          "science",
	"chemistry":        "science",
	"biology":          "science",
	"english":          "language",
	"language":         "language",
	"literature":       "language",
	"hindi":            "language",
	"history":          "social",
	"geography":        "social",
	"civics":           "social",
	"social studies":   "social",
	"social science":   "social",
	"economics":        "social",
	"computer science": "computing",
	"computers":        "computing",
	"programming":      "computing",
	"informatics":      "computing",
}

// aliasesByLength makes substring matches deterministic, longest alias first.
var aliasesByLength = func() []string {
	out := make([]string, 0, len(subjectAliases))
	for k := range subjectAliases {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// RubricFor returns the marking criteria for subject, falling back to a generic rubric.
func RubricFor(subject string) []string {
	key := strings.ToLower(strings.TrimSpace(subject))
	if family, ok := subjectAliases[key]; ok {
		return rubrics[family]
	}
	for _, alias := range aliasesByLength {
		if strings.Contains(key, alias) {
			return rubrics[subjectAliases[alias]]
		}
	}
	return rubrics["default"]
}
