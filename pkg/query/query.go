// Package query builds search rules for the provider's query language.
package query

import (
	"slices"
	"strings"
)

// SupportedLanguages lists the language codes the provider accepts in lang: filters.
var SupportedLanguages = []string{
	"en", "ar", "bn", "cs", "da", "de", "el", "es", "fa", "fi", "fil", "fr",
	"he", "hi", "hu", "id", "it", "ja", "ko", "msa", "nl", "no", "pl", "pt",
	"ro", "ru", "sv", "th", "tr", "uk", "ur", "vi", "zh-c", "zh-tw",
}

// DefaultKeywords is the keyword rule collected when none is configured.
var DefaultKeywords = [][]string{
	{"coronavirus"},
	{"covid"},
	{"covid19"},
	{"covid-19"},
	{"pandemic"},
	{"vaccine"},
	{"lockdown"},
}

// BaselineTerms are common English words. A rule of one group per term
// matches a broad sample that serves as the sentiment baseline.
var BaselineTerms = []string{
	"the", "i", "to", "a", "and", "is", "in", "it", "you", "of",
	"for", "on", "my", "that", "at", "with", "me", "do", "have", "just",
	"this", "be", "so", "are", "not",
}

// BaselineGroups returns BaselineTerms as OR-ed single-term groups.
func BaselineGroups() [][]string {
	groups := make([][]string, 0, len(BaselineTerms))
	for _, term := range BaselineTerms {
		groups = append(groups, []string{term})
	}
	return groups
}

// Build joins groups with OR and the terms of a group with AND (a space).
// Blank terms and terms containing a backslash or colon are dropped, and a group
// left empty is skipped. Terms are quoted unless they contain a hyphen, which
// the query language treats as an operator.
func Build(groups [][]string) string {
	var rules []string
	for _, group := range groups {
		var terms []string
		for _, term := range group {
			term = strings.TrimSpace(term)
			if term == "" || strings.ContainsAny(term, `\:`) {
				continue
			}
			if !strings.Contains(term, "-") {
				term = `"` + term + `"`
			}
			terms = append(terms, term)
		}
		if len(terms) == 0 {
			continue
		}
		rules = append(rules, "("+strings.Join(terms, " ")+")")
	}
	return strings.Join(rules, " OR ")
}

// WithLanguages restricts rule to the given languages. Unsupported codes are
// ignored; with none left the rule is returned unchanged.
func WithLanguages(rule string, langs []string) string {
	var filters []string
	for _, lang := range langs {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if !slices.Contains(SupportedLanguages, lang) {
			continue
		}
		filter := "lang:" + lang
		if !slices.Contains(filters, filter) {
			filters = append(filters, filter)
		}
	}
	if len(filters) == 0 || rule == "" {
		return rule
	}
	return "(" + rule + ") (" + strings.Join(filters, " OR ") + ")"
}

// ParseTerms splits operator input into groups. Groups are separated by
// commas and terms within a group by whitespace, so "covid vaccine, lockdown"
// means (covid AND vaccine) OR lockdown.
func ParseTerms(input string) [][]string {
	var groups [][]string
	for _, part := range strings.Split(input, ",") {
		terms := strings.Fields(part)
		if len(terms) > 0 {
			groups = append(groups, terms)
		}
	}
	return groups
}
