package task

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Form identifies how a task names the module it invokes.
type Form int

const (
	// EmptyForm is a task without a module key or action.
	EmptyForm Form = iota
	// ModuleKeyForm is `module: params`.
	ModuleKeyForm
	// ActionMappingForm is `action: {module: name, ...}`.
	ActionMappingForm
	// ActionStringForm is `action: name params`.
	ActionStringForm
)

func (f Form) String() string {
	switch f {
	case ModuleKeyForm:
		return "module-key"
	case ActionMappingForm:
		return "action-mapping"
	case ActionStringForm:
		return "action-string"
	default:
		return "empty"
	}
}

// reservedKeys are task-level keywords. Any other key names a module.
var reservedKeys = map[string]struct{}{
	"action": {}, "local_action": {}, "args": {},
	"name": {}, "tags": {}, "when": {}, "notify": {}, "listen": {},
	"register": {}, "loop": {}, "loop_control": {}, "until": {}, "retries": {}, "delay": {},
	"vars": {}, "environment": {}, "ignore_errors": {}, "ignore_unreachable": {},
	"changed_when": {}, "failed_when": {}, "no_log": {}, "run_once": {},
	"become": {}, "become_user": {}, "become_method": {}, "become_flags": {}, "become_exe": {},
	"sudo": {}, "sudo_user": {}, "su": {}, "su_user": {},
	"delegate_to": {}, "delegate_facts": {}, "connection": {}, "remote_user": {}, "port": {},
	"async": {}, "poll": {}, "throttle": {}, "timeout": {},
	"check_mode": {}, "diff": {}, "always_run": {}, "any_errors_fatal": {},
	"debugger": {}, "module_defaults": {}, "collections": {}, "first_available_file": {},
	LineKey: {}, FileKey: {},
}

// IsReserved reports whether key is a task-level keyword rather than a
// module name.
func IsReserved(key string) bool {
	if _, ok := reservedKeys[key]; ok {
		return true
	}
	return strings.HasPrefix(key, "with_")
}

// Classify determines the form of a raw task and the key that names its
// module or action.
func Classify(t Task, file string) (Form, string, error) {
	var modules []string
	for k := range t {
		if !IsReserved(k) {
			modules = append(modules, k)
		}
	}
	sort.Strings(modules)

	actionKey := ""
	for _, k := range []string{"action", "local_action"} {
		if _, ok := t[k]; !ok {
			continue
		}
		if actionKey != "" {
			return EmptyForm, "", shapeError(file, t, "task has both action and local_action")
		}
		actionKey = k
	}

	switch {
	case len(modules) > 1:
		return EmptyForm, "", shapeError(file, t, "task has conflicting module keys: %s", strings.Join(modules, ", "))
	case len(modules) == 1 && actionKey != "":
		return EmptyForm, "", shapeError(file, t, "task has both %s and module key %q", actionKey, modules[0])
	case len(modules) == 1:
		return ModuleKeyForm, modules[0], nil
	case actionKey == "":
		return EmptyForm, "", nil
	}

	switch v := t[actionKey].(type) {
	case string, nil:
		return ActionStringForm, actionKey, nil
	default:
		if _, ok := asMapping(v); ok {
			return ActionMappingForm, actionKey, nil
		}
		return EmptyForm, "", shapeError(file, t, "%s must be a string or a mapping", actionKey)
	}
}

// Normalize converts a raw task into its canonical form. The input is not
// modified. file is only used to annotate errors.
func Normalize(t Task, file string) (Task, error) {
	form, key, err := Classify(t, file)
	if err != nil {
		return nil, err
	}

	var (
		module string
		args   = []string{}
		kwargs = map[string]any{}
	)
	switch form {
	case ModuleKeyForm:
		module = key
		if args, kwargs, err = moduleParams(t[key], file, t); err != nil {
			return nil, err
		}
	case ActionMappingForm:
		m, _ := asMapping(t[key])
		// An already normalized action names its module under the marker
		// key, leaving `module` free to be an ordinary parameter.
		nameKey := "module"
		if _, ok := m[ModuleKey]; ok {
			nameKey = ModuleKey
		}
		module = cast.ToString(m[nameKey])
		if module == "" && nameKey == "module" {
			return nil, shapeError(file, t, "%s mapping has no module", key)
		}
		for k, v := range m {
			switch k {
			case nameKey:
			case ArgumentsKey:
				if v != nil {
					if args, err = cast.ToStringSliceE(v); err != nil {
						return nil, shapeError(file, t, "%s must be a list of strings", ArgumentsKey)
					}
				}
			default:
				kwargs[k] = v
			}
		}
	case ActionStringForm:
		var kv map[string]string
		module, args, kv = Tokenize(cast.ToString(t[key]))
		for k, v := range kv {
			kwargs[k] = v
		}
	}

	if raw, ok := t["args"]; ok && raw != nil {
		extra, ok := asMapping(raw)
		if !ok {
			return nil, shapeError(file, t, "args must be a mapping")
		}
		for k, v := range extra {
			if _, exists := kwargs[k]; !exists {
				kwargs[k] = v
			}
		}
	}

	out := make(Task, len(t))
	for k, v := range t {
		if k == key || k == "args" || k == "action" || k == "local_action" {
			continue
		}
		out[k] = v
	}
	if key == "local_action" {
		if _, ok := out["delegate_to"]; !ok {
			out["delegate_to"] = "localhost"
		}
	}

	action := make(Action, len(kwargs)+2)
	for k, v := range kwargs {
		action[k] = v
	}
	action[ModuleKey] = module
	action[ArgumentsKey] = args
	out[ActionKey] = action
	return out, nil
}

func moduleParams(v any, file string, t Task) ([]string, map[string]any, error) {
	kwargs := map[string]any{}
	switch p := v.(type) {
	case nil:
		return []string{}, kwargs, nil
	case string:
		args, kv := ParseArguments(p)
		for k, val := range kv {
			kwargs[k] = val
		}
		return args, kwargs, nil
	case []any, []string:
		return nil, nil, shapeError(file, t, "module parameters must be a string or a mapping")
	}
	if m, ok := asMapping(v); ok {
		args := []string{}
		for k, val := range m {
			kwargs[k] = val
		}
		return args, kwargs, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil, nil, shapeError(file, t, "module parameters must be a string or a mapping")
	}
	args, kv := ParseArguments(s)
	for k, val := range kv {
		kwargs[k] = val
	}
	return args, kwargs, nil
}

func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Action:
		return m, true
	case Task:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	case map[any]any:
		out, err := cast.ToStringMapE(m)
		return out, err == nil
	}
	return nil, false
}
