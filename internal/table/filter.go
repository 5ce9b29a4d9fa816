package table

import (
	"fmt"
	"regexp"
	"strings"
)

// SearchMode selects how a search pattern is interpreted.
type SearchMode string

const (
	// SearchWildcard treats * and ? as wildcards; anything else is literal
	SearchWildcard SearchMode = "wildcard"
	// SearchWholeWord matches the pattern as a whole word
	SearchWholeWord SearchMode = "word"
	// SearchRegex uses the pattern as a regular expression
	SearchRegex SearchMode = "regex"
)

// Search filters rows to those with at least one cell matching Pattern.
// An empty pattern matches every row.
type Search struct {
	Pattern       string     `json:"pattern"`
	Mode          SearchMode `json:"mode"`
	CaseSensitive bool       `json:"caseSensitive"`
}

// ParseSearchMode maps a query value to a mode; empty means wildcard.
func ParseSearchMode(s string) (SearchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wildcard", "plain":
		return SearchWildcard, nil
	case "word", "wholeword", "whole-word":
		return SearchWholeWord, nil
	case "regex", "regexp":
		return SearchRegex, nil
	default:
		return "", fmt.Errorf("unknown search mode %q", s)
	}
}

// compile turns a search into a regular expression, or nil when it
// matches everything. An invalid regex is returned as an error and never
// applied.
func (s Search) compile() (*regexp.Regexp, error) {
	if s.Pattern == "" {
		return nil, nil
	}

	var expr string
	switch s.Mode {
	case SearchRegex:
		expr = s.Pattern
	case SearchWholeWord:
		expr = `\b` + regexp.QuoteMeta(s.Pattern) + `\b`
	default:
		expr = wildcardToRegex(s.Pattern)
	}
	if !s.CaseSensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}
	return re, nil
}

func wildcardToRegex(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
