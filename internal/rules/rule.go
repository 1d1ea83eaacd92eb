// Package rules contains the built-in task rules and the collection used to
// select them.
package rules

import (
	"slices"

	"github.com/metalagman/playlint/internal/task"
)

// Kind is the kind of file a task was read from.
type Kind string

const (
	KindPlaybook Kind = "playbook"
	KindTasks    Kind = "tasks"
	KindHandlers Kind = "handlers"
)

// File describes the file a task belongs to.
type File struct {
	Path string
	Kind Kind
	// BaseDir is the playbook directory used to render expressions.
	BaseDir string
	// Vars is the variable context available to the file's tasks.
	Vars map[string]any
}

// Rule is a single check evaluated against every normalized task.
type Rule interface {
	ID() string
	ShortDesc() string
	Description() string
	Tags() []string
	// MatchTask returns matched=true on a violation. An empty message means
	// the short description should be reported.
	MatchTask(file File, t task.Task) (message string, matched bool)
}

// Metadata is the static description shared by the built-in rules.
type Metadata struct {
	RuleID   string
	Short    string
	Long     string
	RuleTags []string
}

func (m Metadata) ID() string          { return m.RuleID }
func (m Metadata) ShortDesc() string   { return m.Short }
func (m Metadata) Description() string { return m.Long }
func (m Metadata) Tags() []string      { return m.RuleTags }

// HasTag reports whether r carries tag.
func HasTag(r Rule, tag string) bool {
	return slices.Contains(r.Tags(), tag)
}
