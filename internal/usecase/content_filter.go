package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultBlockedTerms are local slang insults masked in chat messages.
var DefaultBlockedTerms = []string{
	"mumu", "werey", "ode", "olodo", "ashawo", "oloshi", "ewu", "mugu", "yeye", "agbaya",
}

// ContentFilter masks whole-word, case-insensitive matches of its terms with
// one asterisk per character.
type ContentFilter struct {
	pattern *regexp.Regexp
}

func NewContentFilter(terms []string) *ContentFilter {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return &ContentFilter{}
	}
	return &ContentFilter{
		pattern: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

func (f *ContentFilter) Apply(content string) string {
	if f == nil || f.pattern == nil {
		return content
	}
	return f.pattern.ReplaceAllStringFunc(content, func(match string) string {
		return strings.Repeat("*", utf8.RuneCountInString(match))
	})
}

// Contains reports whether content has at least one blocked term.
func (f *ContentFilter) Contains(content string) bool {
	return f != nil && f.pattern != nil && f.pattern.MatchString(content)
}
