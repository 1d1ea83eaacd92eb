package rules

import "github.com/metalagman/playlint/internal/task"

// EasyInstall flags the easy_install module.
type EasyInstall struct {
	Metadata
}

// NewEasyInstall creates the easy_install rule.
func NewEasyInstall() *EasyInstall {
	return &EasyInstall{Metadata{
		RuleID: "ANSIBLE1002",
		Short:  "easy_install not recommended tool",
		Long: "easy_install is not a recommended tool for installing " +
			"to production machines. Switch this task to use pip or yum.",
		RuleTags: []string{"repeatability"},
	}}
}

func (r *EasyInstall) MatchTask(_ File, t task.Task) (string, bool) {
	return "", t.Action().Module() == "easy_install"
}
