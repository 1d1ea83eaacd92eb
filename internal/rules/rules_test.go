package rules

import (
	"testing"

	"github.com/metalagman/playlint/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalized(t *testing.T, raw task.Task) task.Task {
	t.Helper()
	out, err := task.Normalize(raw, "tasks.yml")
	require.NoError(t, err)
	return out
}

func TestTaskHasName(t *testing.T) {
	t.Parallel()

	rule := NewTaskHasName()
	file := File{Path: "tasks.yml", Kind: KindTasks}

	_, matched := rule.MatchTask(file, normalized(t, task.Task{"command": "whoami"}))
	assert.True(t, matched)

	_, matched = rule.MatchTask(file, normalized(t, task.Task{"name": "who", "command": "whoami"}))
	assert.False(t, matched)

	_, matched = rule.MatchTask(file, normalized(t, task.Task{"name": "", "command": "whoami"}))
	assert.False(t, matched)

	_, matched = rule.MatchTask(file, normalized(t, task.Task{"name": nil, "command": "whoami"}))
	assert.False(t, matched)

	_, matched = rule.MatchTask(file, normalized(t, task.Task{"include": "other.yml"}))
	assert.False(t, matched)

	_, matched = rule.MatchTask(file, normalized(t, task.Task{"fail": map[string]any{"msg": "stop"}}))
	assert.False(t, matched)
}

func TestEasyInstall(t *testing.T) {
	t.Parallel()

	rule := NewEasyInstall()
	_, matched := rule.MatchTask(File{}, normalized(t, task.Task{"easy_install": "name=pip"}))
	assert.True(t, matched)

	_, matched = rule.MatchTask(File{}, normalized(t, task.Task{"pip": "name=requests"}))
	assert.False(t, matched)
}

func TestYumHasVersion(t *testing.T) {
	t.Parallel()

	rule := NewYumHasVersion()
	file := File{Path: "site.yml", BaseDir: "/srv/play", Vars: map[string]any{
		"httpd_pkg":  "httpd-2.4.6",
		"loose_name": "nginx",
	}}

	tests := []struct {
		name    string
		raw     task.Task
		matched bool
		message string
	}{
		{"unversioned", task.Task{"yum": "name=httpd state=present"}, true, "Yum package httpd should be installed with explicit version"},
		{"versioned", task.Task{"yum": "name=httpd-2.4.6 state=present"}, false, ""},
		{"wildcard", task.Task{"yum": "name=httpd*"}, false, ""},
		{"unresolved variable", task.Task{"yum": "name={{ pkg }}"}, false, ""},
		{"resolved versioned variable", task.Task{"yum": "name={{ httpd_pkg }}"}, false, ""},
		{"resolved unversioned variable", task.Task{"yum": "name={{ loose_name }}"}, true, "Yum package nginx should be installed with explicit version"},
		{"list of names", task.Task{"yum": map[string]any{"name": []any{"git-2.1.0", "vim"}}}, true, "Yum package vim should be installed with explicit version"},
		{"comma list", task.Task{"yum": "name=git-2.1.0,curl-7.29.0"}, false, ""},
		{"absent", task.Task{"yum": "name=httpd state=absent"}, false, ""},
		{"other module", task.Task{"apt": "name=httpd"}, false, ""},
		{"no name", task.Task{"yum": "list=installed"}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			message, matched := rule.MatchTask(file, normalized(t, tt.raw))
			assert.Equal(t, tt.matched, matched)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestCustomModule(t *testing.T) {
	t.Parallel()

	rule := NewCustomModule()

	message, matched := rule.MatchTask(File{}, normalized(t, task.Task{"command": "chdir=/tmp /usr/bin/make install"}))
	assert.True(t, matched)
	assert.Equal(t, "create custom module for make used in place of command module", message)

	message, matched = rule.MatchTask(File{}, normalized(t, task.Task{"shell": map[string]any{"cmd": "/bin/echo hi"}}))
	assert.True(t, matched)
	assert.Equal(t, "create custom module for echo used in place of shell module", message)

	message, matched = rule.MatchTask(File{}, normalized(t, task.Task{"shell": nil}))
	assert.True(t, matched)
	assert.Empty(t, message)

	_, matched = rule.MatchTask(File{}, normalized(t, task.Task{"copy": "src=a dest=b"}))
	assert.False(t, matched)
}

func TestCollection_Select(t *testing.T) {
	t.Parallel()

	all := Default()
	require.Equal(t, 4, all.Len())

	ids := func(c *Collection) []string {
		var out []string
		for _, r := range c.All() {
			out = append(out, r.ID())
		}
		return out
	}

	assert.Equal(t, []string{"ANSIBLE1002", "ANSIBLE1003", "ANSIBLE1004", "ANSIBLE1007"}, ids(all))
	assert.Equal(t, []string{"ANSIBLE1002", "ANSIBLE1003"}, ids(all.Select([]string{"repeatability"}, nil)))
	assert.Equal(t, []string{"ANSIBLE1003"}, ids(all.Select([]string{"repeatability"}, []string{"ANSIBLE1002"})))
	assert.Equal(t, []string{"ANSIBLE1004", "ANSIBLE1007"}, ids(all.Select(nil, []string{"repeatability"})))
	assert.Equal(t, []string{"ANSIBLE1007"}, ids(all.Select([]string{"ANSIBLE1007"}, nil)))

	rule, ok := all.Get("ANSIBLE1004")
	require.True(t, ok)
	assert.Equal(t, "Tasks must have name", rule.ShortDesc())
}

func TestNewCollection_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := NewCollection(NewTaskHasName(), NewTaskHasName())
	assert.Error(t, err)
}
