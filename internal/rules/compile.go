package rules

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-ini/ini"
)

// Condition decides how a rule's patterns combine.
type Condition string

const (
	// MatchAny fires when at least one pattern is found
	MatchAny Condition = "any"
	// MatchAll fires only when every pattern is found
	MatchAll Condition = "all"
)

// Rule is one compiled rule. Its identifier is the INI section name.
type Rule struct {
	ID        string
	Source    string
	Condition Condition
	literals  [][]byte
	regexps   []*regexp.Regexp
}

func (r *Rule) patternCount() int {
	return len(r.literals) + len(r.regexps)
}

// matches evaluates the rule against file content.
func (r *Rule) matches(data []byte) bool {
	found := 0
	for _, lit := range r.literals {
		if bytes.Contains(data, lit) {
			if r.Condition == MatchAny {
				return true
			}
			found++
		} else if r.Condition == MatchAll {
			return false
		}
	}
	for _, re := range r.regexps {
		if re.Match(data) {
			if r.Condition == MatchAny {
				return true
			}
			found++
		} else if r.Condition == MatchAll {
			return false
		}
	}
	return r.Condition == MatchAll && found == r.patternCount()
}

// ruleSet is an immutable compiled set, swapped in atomically.
type ruleSet struct {
	rules   []*Rule
	sources []string
}

var loadOptions = ini.LoadOptions{
	AllowShadows:        true,
	IgnoreInlineComment: true,
}

// compileSources parses every source in order. A source that fails to
// parse is reported and skipped; the others still compile.
func compileSources(sources []string) (*ruleSet, Diagnostics) {
	var diags Diagnostics
	set := &ruleSet{}
	seen := make(map[string]string)

	for _, src := range sources {
		f, err := ini.LoadSources(loadOptions, src)
		if err != nil {
			diags.add(LevelError, src, "compilation error: %v", err)
			continue
		}

		compiled := 0
		for _, sec := range f.Sections() {
			name := sec.Name()
			if name == ini.DefaultSection {
				if len(sec.Keys()) > 0 {
					diags.add(LevelWarning, src, "%d keys outside a rule section ignored", len(sec.Keys()))
				}
				continue
			}

			if prev, dup := seen[name]; dup {
				diags.add(LevelWarning, src, "duplicate rule identifier %q, already defined in %s", name, prev)
				continue
			}

			rule, err := compileRule(src, sec, &diags)
			if err != nil {
				diags.add(LevelError, src, "rule %q: %v", name, err)
				continue
			}

			seen[name] = src
			set.rules = append(set.rules, rule)
			compiled++
		}

		set.sources = append(set.sources, src)
		diags.add(LevelSuccess, src, "compiled %d rules", compiled)
	}

	return set, diags
}

func compileRule(src string, sec *ini.Section, diags *Diagnostics) (*Rule, error) {
	rule := &Rule{ID: sec.Name(), Source: src, Condition: MatchAny}

	for _, key := range sec.Keys() {
		switch strings.ToLower(key.Name()) {
		case "text":
			for _, v := range key.ValueWithShadows() {
				if v == "" {
					return nil, fmt.Errorf("empty text pattern")
				}
				rule.literals = append(rule.literals, []byte(v))
			}
		case "hex":
			for _, v := range key.ValueWithShadows() {
				b, err := hex.DecodeString(strings.ReplaceAll(v, " ", ""))
				if err != nil {
					return nil, fmt.Errorf("invalid hex pattern %q: %w", v, err)
				}
				if len(b) == 0 {
					return nil, fmt.Errorf("empty hex pattern")
				}
				rule.literals = append(rule.literals, b)
			}
		case "regex":
			for _, v := range key.ValueWithShadows() {
				re, err := regexp.Compile(v)
				if err != nil {
					return nil, fmt.Errorf("invalid regex pattern: %w", err)
				}
				rule.regexps = append(rule.regexps, re)
			}
		case "condition":
			switch Condition(strings.ToLower(key.String())) {
			case MatchAny:
				rule.Condition = MatchAny
			case MatchAll:
				rule.Condition = MatchAll
			default:
				return nil, fmt.Errorf("unknown condition %q (want any or all)", key.String())
			}
		default:
			diags.add(LevelWarning, src, "rule %q: unknown key %q ignored", sec.Name(), key.Name())
		}
	}

	if rule.patternCount() == 0 {
		return nil, fmt.Errorf("no patterns")
	}
	return rule, nil
}
