package playbook

import (
	"fmt"

	"github.com/metalagman/playlint/internal/task"
	"gopkg.in/yaml.v3"
)

// fromNode converts a YAML node into plain Go values. Every mapping gets the
// line it starts on and the file it came from.
func fromNode(n *yaml.Node, path string) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0], path)
	case yaml.AliasNode:
		return fromNode(n.Alias, path)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c, path)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := map[string]any{
			task.LineKey: n.Line,
			task.FileKey: path,
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Tag == "!!merge" {
				if err := merge(out, v, path); err != nil {
					return nil, err
				}
				continue
			}
			var key string
			if err := k.Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: decode key: %w", k.Line, err)
			}
			value, err := fromNode(v, path)
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: decode scalar: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
}

// merge applies a `<<` merge key. Keys already set are kept.
func merge(dst map[string]any, n *yaml.Node, path string) error {
	sources := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		sources = n.Content
	}
	for _, src := range sources {
		v, err := fromNode(src, path)
		if err != nil {
			return err
		}
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("line %d: merge value is not a mapping", src.Line)
		}
		for k, val := range m {
			if k == task.LineKey || k == task.FileKey {
				continue
			}
			if _, exists := dst[k]; !exists {
				dst[k] = val
			}
		}
	}
	return nil
}
