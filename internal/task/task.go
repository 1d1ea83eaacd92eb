// Package task normalizes playbook tasks into a single canonical shape.
//
// A task can be written as a module key (`git: repo=x`), an action string
// (`action: git repo=x`), an action mapping (`action: {module: git}`) or any
// of those with a sibling `args` mapping. Normalize turns all of them into a
// Task holding one `action` mapping that rules can inspect uniformly.
package task

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

const (
	// ActionKey holds the canonical action after normalization.
	ActionKey = "action"
	// ModuleKey records the module name inside a normalized action. A
	// module may expose its own parameter called "module", so the name is
	// stored under a key no module uses.
	ModuleKey = "__ansible_module__"
	// ArgumentsKey holds the positional arguments of a normalized action.
	ArgumentsKey = "module_arguments"
	// LineKey and FileKey are injected by the loader into every mapping.
	LineKey = "__line__"
	FileKey = "__file__"
)

// ErrDataShape is wrapped by every DataShapeError.
var ErrDataShape = errors.New("unrecognized data shape")

// DataShapeError reports a task or block whose structure is ambiguous or
// contradictory.
type DataShapeError struct {
	File   string
	Line   int
	Reason string
}

func (e *DataShapeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Reason)
	}
	return e.Reason
}

func (e *DataShapeError) Unwrap() error { return ErrDataShape }

func shapeError(file string, record map[string]any, format string, args ...any) error {
	return &DataShapeError{File: file, Line: lineOf(record), Reason: fmt.Sprintf(format, args...)}
}

func lineOf(record map[string]any) int {
	if record == nil {
		return 0
	}
	line, err := cast.ToIntE(record[LineKey])
	if err != nil {
		return 0
	}
	return line
}

// Task is a single playbook task keyed by task-level keywords.
type Task map[string]any

// Action is the canonical invocation stored under ActionKey.
type Action map[string]any

// Name returns the task name, if any.
func (t Task) Name() (string, bool) {
	v, ok := t["name"]
	if !ok || v == nil {
		return "", false
	}
	name := cast.ToString(v)
	return name, name != ""
}

// Line returns the source line recorded by the loader, or 0.
func (t Task) Line() int {
	return lineOf(t)
}

// Action returns the normalized action, or nil for a task that has not been
// normalized.
func (t Task) Action() Action {
	switch a := t[ActionKey].(type) {
	case Action:
		return a
	case map[string]any:
		return Action(a)
	}
	return nil
}

// Module returns the module name of a normalized action.
func (a Action) Module() string {
	return cast.ToString(a[ModuleKey])
}

// Arguments returns the positional arguments of a normalized action.
func (a Action) Arguments() []string {
	switch args := a[ArgumentsKey].(type) {
	case []string:
		return args
	case nil:
		return nil
	default:
		return cast.ToStringSlice(args)
	}
}

// Get returns a keyword argument rendered as a string.
func (a Action) Get(key string) (string, bool) {
	if key == ModuleKey || key == ArgumentsKey {
		return "", false
	}
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v), true
	}
	return s, true
}

// Keywords returns the keyword arguments of the action.
func (a Action) Keywords() map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		if k == ModuleKey || k == ArgumentsKey {
			continue
		}
		out[k] = v
	}
	return out
}

// ToString renders a normalized task for humans: its name when set,
// otherwise the module followed by sorted keyword and positional arguments.
func ToString(t Task) string {
	if name, ok := t.Name(); ok {
		return name
	}
	action := t.Action()
	if action == nil {
		return ""
	}
	keys := make([]string, 0, len(action))
	for k := range action.Keywords() {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+len(action.Arguments())+1)
	parts = append(parts, action.Module())
	for _, k := range keys {
		v, _ := action.Get(k)
		parts = append(parts, k+"="+v)
	}
	parts = append(parts, action.Arguments()...)
	return strings.Join(parts, " ")
}
