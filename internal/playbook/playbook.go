// Package playbook loads playbook and task files and flattens them into
// task lists.
package playbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/metalagman/playlint/internal/rules"
	"github.com/metalagman/playlint/internal/task"
	"gopkg.in/yaml.v3"
)

var (
	playKeys      = []string{"hosts", "import_playbook", "include", "roles", "tasks", "pre_tasks", "post_tasks"}
	taskListKeys  = []string{"pre_tasks", "tasks", "post_tasks", "handlers"}
	blockSections = []string{"block", "rescue", "always"}
)

// Document is a parsed YAML file.
type Document struct {
	Path string
	Kind rules.Kind
	// Items is the top-level list of plays or tasks.
	Items []any
}

// Load reads and parses the file at path. An empty kind is detected from
// the content.
func Load(path string, kind rules.Kind) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, data, kind)
}

// Parse parses YAML data read from path.
func Parse(path string, data []byte, kind rules.Kind) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var root yaml.Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return &Document{Path: path, Kind: detectKind(path, nil, kind)}, nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	value, err := fromNode(&root, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	var items []any
	switch v := value.(type) {
	case nil:
	case []any:
		items = v
	default:
		return nil, &task.DataShapeError{File: path, Line: root.Line, Reason: "top level must be a list of plays or tasks"}
	}
	return &Document{Path: path, Kind: detectKind(path, items, kind), Items: items}, nil
}

func detectKind(path string, items []any, kind rules.Kind) rules.Kind {
	if kind != "" {
		return kind
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, k := range playKeys {
			if _, ok := m[k]; ok {
				return rules.KindPlaybook
			}
		}
	}
	if strings.Contains(filepath.ToSlash(path), "/handlers/") {
		return rules.KindHandlers
	}
	return rules.KindTasks
}

// Tasks returns the raw tasks of the document with blocks flattened.
func (d *Document) Tasks() ([]task.Task, error) {
	items := d.Items
	if d.Kind == rules.KindPlaybook {
		var collected []any
		for _, key := range taskListKeys {
			extracted, err := task.ExtractFromList(d.Items, []string{key})
			if err != nil {
				return nil, err
			}
			collected = append(collected, extracted...)
		}
		items = collected
	}
	return flatten(d.Path, items)
}

func flatten(path string, items []any) ([]task.Task, error) {
	var out []task.Task
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &task.DataShapeError{File: path, Reason: fmt.Sprintf("task must be a mapping, got %T", item)}
		}
		if _, isBlock := m["block"]; !isBlock {
			out = append(out, task.Task(m))
			continue
		}
		for _, section := range blockSections {
			nested, err := task.ExtractFromList([]any{m}, []string{section})
			if err != nil {
				return nil, err
			}
			tasks, err := flatten(path, nested)
			if err != nil {
				return nil, err
			}
			out = append(out, tasks...)
		}
	}
	return out, nil
}

// Vars returns the play-level variables of a playbook. Later plays
// override earlier ones.
func (d *Document) Vars() map[string]any {
	vars := map[string]any{}
	if d.Kind != rules.KindPlaybook {
		return vars
	}
	for _, item := range d.Items {
		play, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if pv, ok := play["vars"].(map[string]any); ok {
			for k, v := range pv {
				if k == task.LineKey || k == task.FileKey {
					continue
				}
				vars[k] = v
			}
		}
	}
	return vars
}

// BaseDir is the directory relative paths in the document resolve against.
func (d *Document) BaseDir() string {
	return filepath.Dir(d.Path)
}
