// Package scope maps a user's email address to the permission scope stamped on issued tokens.
package scope

import (
	"fmt"
	"strings"
)

// Rule assigns Scope to every email containing Match.
type Rule struct {
	Match string `yaml:"match"`
	Scope string `yaml:"scope"`
}

// ParseRules parses "substring:scope" entries. Order is preserved; a repeated
// substring updates the scope of its first occurrence.
func ParseRules(entries []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(entries))
	index := make(map[string]int, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		match, scope, ok := strings.Cut(entry, ":")
		if !ok || match == "" || scope == "" || strings.Contains(scope, ":") {
			return nil, fmt.Errorf("invalid scope rule %q: expected <email-substring>:<scope>", entry)
		}
		if i, seen := index[match]; seen {
			rules[i].Scope = scope
			continue
		}
		index[match] = len(rules)
		rules = append(rules, Rule{Match: match, Scope: scope})
	}
	return rules, nil
}

// Resolver resolves scopes. It is immutable and safe for concurrent use.
type Resolver struct {
	scopes []string
	rules  []Rule
}

// NewResolver copies scopes and rules into a new Resolver.
func NewResolver(scopes []string, rules []Rule) *Resolver {
	return &Resolver{
		scopes: append([]string(nil), scopes...),
		rules:  append([]Rule(nil), rules...),
	}
}

// Enabled reports whether any scope is configured. Tokens carry a scope only when it is.
func (r *Resolver) Enabled() bool {
	return r != nil && len(r.scopes) > 0
}

// Scopes returns the configured scope list.
func (r *Resolver) Scopes() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.scopes...)
}

// Resolve returns the scope for email. With no scopes configured it returns false.
// The first rule whose Match is a substring of email wins; otherwise the first
// configured scope is the default.
func (r *Resolver) Resolve(email string) (string, bool) {
	if !r.Enabled() {
		return "", false
	}
	for _, rule := range r.rules {
		if strings.Contains(email, rule.Match) {
			return rule.Scope, true
		}
	}
	return r.scopes[0], true
}

// UnknownScopes lists rule scopes that do not appear in the scope list.
func (r *Resolver) UnknownScopes() []string {
	if r == nil {
		return nil
	}
	known := make(map[string]struct{}, len(r.scopes))
	for _, s := range r.scopes {
		known[s] = struct{}{}
	}
	var unknown []string
	for _, rule := range r.rules {
		if _, ok := known[rule.Scope]; !ok {
			unknown = append(unknown, rule.Scope)
		}
	}
	return unknown
}
