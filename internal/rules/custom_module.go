package rules

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/metalagman/playlint/internal/task"
)

// CustomModule recommends a dedicated module over command and shell tasks.
type CustomModule struct {
	Metadata
}

// NewCustomModule creates the command/shell rule.
func NewCustomModule() *CustomModule {
	return &CustomModule{Metadata{
		RuleID: "ANSIBLE1007",
		Short:  "Recommend replacing command/shell with custom module",
		Long: "Executing a command or shell not recommended. " +
			"Consider creating a new custom module if ansible " +
			"doesn't provide the module you need.",
		RuleTags: []string{"resources"},
	}}
}

func (r *CustomModule) MatchTask(_ File, t task.Task) (string, bool) {
	action := t.Action()
	command := action.Module()
	if command != "command" && command != "shell" {
		return "", false
	}
	executable := executableOf(action)
	if executable == "" {
		return "", true
	}
	return fmt.Sprintf("create custom module for %s used in place of %s module", executable, command), true
}

// executableOf returns the program a command or shell task runs, taken from
// the first positional argument or the cmd parameter.
func executableOf(action task.Action) string {
	line := ""
	if args := action.Arguments(); len(args) > 0 {
		line = args[0]
	} else if cmd, ok := action.Get("cmd"); ok {
		line = cmd
	}
	fields := task.SplitArgs(line)
	if len(fields) == 0 {
		return ""
	}
	return filepath.Base(strings.Trim(fields[0], `'"`))
}
