package playbook

import (
	"os"
	"path/filepath"

	"github.com/metalagman/playlint/internal/rules"
	"github.com/metalagman/playlint/internal/task"
	"github.com/metalagman/playlint/internal/templating"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Child is a file referenced by another file.
type Child struct {
	Path string
	Kind rules.Kind
}

var includeModules = map[string]struct{}{
	"include":       {},
	"include_tasks": {},
	"import_tasks":  {},
}

var roleModules = map[string]struct{}{
	"include_role": {},
	"import_role":  {},
}

// Children returns the files referenced by the document: imported
// playbooks, roles of its plays and task files included by the normalized
// tasks. Paths that cannot be rendered with vars are skipped.
func (d *Document) Children(tasks []task.Task, vars map[string]any) []Child {
	var out []Child
	base := d.BaseDir()

	if d.Kind == rules.KindPlaybook {
		for _, item := range d.Items {
			play, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"import_playbook", "include"} {
				if ref, ok := play[key].(string); ok {
					if p, ok := resolve(base, ref, vars); ok {
						out = append(out, Child{Path: p, Kind: rules.KindPlaybook})
					}
				}
			}
			roles, _ := play["roles"].([]any)
			for _, role := range roles {
				out = append(out, roleChildren(base, roleName(role), vars)...)
			}
		}
	}

	for _, t := range tasks {
		action := t.Action()
		module := action.Module()
		if _, ok := includeModules[module]; ok {
			ref := ""
			if args := action.Arguments(); len(args) > 0 {
				ref = args[0]
			} else if file, ok := action.Get("file"); ok {
				ref = file
			}
			kind := rules.KindTasks
			if d.Kind == rules.KindHandlers {
				kind = rules.KindHandlers
			}
			if p, ok := resolve(base, ref, vars); ok {
				out = append(out, Child{Path: p, Kind: kind})
			}
			continue
		}
		if _, ok := roleModules[module]; ok {
			name, _ := action.Get("name")
			out = append(out, roleChildren(base, name, vars)...)
		}
	}
	return out
}

func roleName(v any) string {
	if m, ok := v.(map[string]any); ok {
		if name, ok := m["role"]; ok {
			return cast.ToString(name)
		}
		return cast.ToString(m["name"])
	}
	return cast.ToString(v)
}

func roleChildren(base, name string, vars map[string]any) []Child {
	if name == "" {
		return nil
	}
	name = templating.Render(base, name, vars)
	if templating.HasTemplate(name) {
		return nil
	}
	dir := name
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(base, "roles", name)
		if _, err := os.Stat(dir); err != nil {
			dir = filepath.Join(base, name)
		}
	}
	var out []Child
	for _, section := range []struct {
		dir  string
		kind rules.Kind
	}{{"tasks", rules.KindTasks}, {"handlers", rules.KindHandlers}} {
		for _, ext := range []string{".yml", ".yaml"} {
			p := filepath.Join(dir, section.dir, "main"+ext)
			if _, err := os.Stat(p); err == nil {
				out = append(out, Child{Path: p, Kind: section.kind})
				break
			}
		}
	}
	return out
}

func resolve(base, ref string, vars map[string]any) (string, bool) {
	if ref == "" {
		return "", false
	}
	rendered := templating.Render(base, ref, vars)
	if templating.HasTemplate(rendered) {
		log.Debug().Str("path", ref).Msg("skipping include with unresolved path")
		return "", false
	}
	if !filepath.IsAbs(rendered) {
		rendered = filepath.Join(base, rendered)
	}
	return filepath.Clean(rendered), true
}

// LoadVars returns the play variables merged with the contents of any
// vars_files that can be resolved and read.
func (d *Document) LoadVars() map[string]any {
	vars := d.Vars()
	if d.Kind != rules.KindPlaybook {
		return vars
	}
	base := d.BaseDir()
	for _, item := range d.Items {
		play, ok := item.(map[string]any)
		if !ok {
			continue
		}
		files, _ := play["vars_files"].([]any)
		for _, f := range files {
			p, ok := resolve(base, cast.ToString(f), vars)
			if !ok {
				continue
			}
			data, err := os.ReadFile(p)
			if err != nil {
				log.Debug().Err(err).Str("path", p).Msg("vars file not readable")
				continue
			}
			var loaded map[string]any
			if err := yaml.Unmarshal(data, &loaded); err != nil {
				log.Warn().Err(err).Str("path", p).Msg("vars file not parseable")
				continue
			}
			for k, v := range loaded {
				vars[k] = v
			}
		}
	}
	return vars
}
