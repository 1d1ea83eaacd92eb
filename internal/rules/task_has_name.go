package rules

import "github.com/metalagman/playlint/internal/task"

// TaskHasName flags tasks without a name key. An empty name counts as a
// name. include and fail tasks are exempt.
type TaskHasName struct {
	Metadata
}

// NewTaskHasName creates the task name rule.
func NewTaskHasName() *TaskHasName {
	return &TaskHasName{Metadata{
		RuleID:   "ANSIBLE1004",
		Short:    "Tasks must have name",
		Long:     "Tasks must have name",
		RuleTags: []string{"productivity"},
	}}
}

func (r *TaskHasName) MatchTask(_ File, t task.Task) (string, bool) {
	switch t.Action().Module() {
	case "include", "fail":
		return "", false
	}
	_, ok := t["name"]
	return "", !ok
}
