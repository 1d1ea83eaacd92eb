package rules

import (
	"fmt"
	"slices"
	"sort"
)

// Collection is an ordered set of rules.
type Collection struct {
	rules []Rule
}

// NewCollection creates a collection from rules. Duplicate ids are an
// error.
func NewCollection(rules ...Rule) (*Collection, error) {
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if _, ok := seen[r.ID()]; ok {
			return nil, fmt.Errorf("duplicate rule id %s", r.ID())
		}
		seen[r.ID()] = struct{}{}
	}
	return &Collection{rules: slices.Clone(rules)}, nil
}

// Default returns the built-in rules.
func Default() *Collection {
	return &Collection{rules: []Rule{
		NewEasyInstall(),
		NewYumHasVersion(),
		NewTaskHasName(),
		NewCustomModule(),
	}}
}

// All returns the rules sorted by id.
func (c *Collection) All() []Rule {
	out := slices.Clone(c.rules)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of rules.
func (c *Collection) Len() int { return len(c.rules) }

// Get returns the rule with id.
func (c *Collection) Get(id string) (Rule, bool) {
	for _, r := range c.rules {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// Select returns the rules matching any of tags (all rules when tags is
// empty) minus those whose id or tag appears in skip. Entries of tags may
// also be rule ids.
func (c *Collection) Select(tags, skip []string) *Collection {
	out := &Collection{}
	for _, r := range c.rules {
		if matchesAny(r, skip) {
			continue
		}
		if len(tags) > 0 && !matchesAny(r, tags) {
			continue
		}
		out.rules = append(out.rules, r)
	}
	return out
}

func matchesAny(r Rule, selectors []string) bool {
	for _, s := range selectors {
		if s == r.ID() || HasTag(r, s) {
			return true
		}
	}
	return false
}
