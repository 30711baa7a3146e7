package patterns

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Rule is a single named detection pattern, compiled at load time.
type Rule struct {
	Name string
	Expr string
	re   *regexp.Regexp
}

// Match reports whether the rule matches the given content.
func (r *Rule) Match(content []byte) bool {
	return r.re.Match(content)
}

// Set is an ordered, immutable collection of rules. Evaluation order is
// insertion order and every rule is tested against the content.
type Set struct {
	rules []Rule
}

// Built-in rules, in evaluation order.
var builtins = []Rule{
	{Name: "Aadhaar", Expr: `\b\d{4}\s\d{4}\s\d{4}\b`},
	{Name: "Email", Expr: `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`},
	{Name: "Credit Card", Expr: `\b(?:\d[ \-]*?){13,16}\b`},
	{Name: "Confidential", Expr: `(?i)\b(confidential|secret|restricted)\b`},
}

// Load compiles the active rule set: built-ins filtered by the
// include/exclude lists, plus custom name→regex entries appended in name
// order. A pattern that fails to compile is a configuration error.
func Load(include, exclude []string, custom map[string]string) (*Set, error) {
	included := func(name string) bool {
		if containsFold(exclude, name) {
			return false
		}
		if len(include) == 0 {
			return true
		}
		return containsFold(include, name)
	}

	set := &Set{}
	seen := make(map[string]bool)
	for _, b := range builtins {
		if !included(b.Name) {
			continue
		}
		re, err := regexp.Compile(b.Expr)
		if err != nil {
			return nil, fmt.Errorf("built-in pattern %q: %w", b.Name, err)
		}
		set.rules = append(set.rules, Rule{Name: b.Name, Expr: b.Expr, re: re})
		seen[b.Name] = true
	}

	names := make([]string, 0, len(custom))
	for name := range custom {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("custom pattern %q collides with an existing rule", name)
		}
		re, err := regexp.Compile(custom[name])
		if err != nil {
			return nil, fmt.Errorf("custom pattern %q: %w", name, err)
		}
		set.rules = append(set.rules, Rule{Name: name, Expr: custom[name], re: re})
		seen[name] = true
	}

	if len(set.rules) == 0 {
		return nil, fmt.Errorf("no detection patterns active")
	}
	return set, nil
}

// MatchAll returns the names of every rule matching the content, in rule
// order. No cross-rule short circuit: all rules are evaluated.
func (s *Set) MatchAll(content []byte) []string {
	var matched []string
	for i := range s.rules {
		if s.rules[i].Match(content) {
			matched = append(matched, s.rules[i].Name)
		}
	}
	return matched
}

// Names returns the rule names in evaluation order.
func (s *Set) Names() []string {
	names := make([]string, len(s.rules))
	for i := range s.rules {
		names[i] = s.rules[i].Name
	}
	return names
}

// Len returns the number of active rules.
func (s *Set) Len() int {
	return len(s.rules)
}

func containsFold(items []string, value string) bool {
	for _, item := range items {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
