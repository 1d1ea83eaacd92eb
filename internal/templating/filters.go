package templating

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// filterAliases maps playbook filter names to sprig functions that already
// take the piped value as their last argument.
var filterAliases = map[string]string{
	"d":         "default",
	"b64encode": "b64enc",
	"b64decode": "b64dec",
	"unique":    "uniq",
}

// filterFuncs returns sprig's function map extended with the filters
// playbooks use most.
func filterFuncs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	for alias, target := range filterAliases {
		if fn, ok := funcs[target]; ok {
			funcs[alias] = fn
		}
	}
	funcs["lookupVar"] = lookupVar
	funcs["emitValue"] = emitValue
	funcs["to_json"] = toJSON
	funcs["to_nice_json"] = toNiceJSON
	funcs["from_json"] = fromJSON
	funcs["to_yaml"] = toYAML
	funcs["to_nice_yaml"] = toYAML
	funcs["basename"] = func(v any) string { return filepath.Base(cast.ToString(v)) }
	funcs["dirname"] = func(v any) string { return filepath.Dir(cast.ToString(v)) }
	funcs["expanduser"] = func(v any) string { return cast.ToString(v) }
	funcs["quote"] = shellQuote
	funcs["bool"] = cast.ToBoolE
	funcs["int"] = cast.ToIntE
	funcs["float"] = cast.ToFloat64E
	funcs["string"] = cast.ToStringE
	funcs["length"] = length
	funcs["count"] = length
	funcs["regex_replace"] = regexReplace
	funcs["mandatory"] = mandatory
	return funcs
}

// lookupVar resolves a dotted path without failing on missing keys, so
// that a following default filter can supply the value.
func lookupVar(data map[string]any, path ...string) any {
	var cur any = data
	for _, key := range path {
		m, err := cast.ToStringMapE(cur)
		if err != nil {
			return nil
		}
		v, ok := m[key]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

var errNoValue = errors.New("expression has no value")

// emitValue formats the result of an expression. Null values leave the
// expression unresolved; containers are written as JSON and booleans as
// True/False.
func emitValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", errNoValue
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return toJSON(v)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", errNoValue
		}
	}
	return cast.ToStringE(v)
}

func toJSON(v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("to_json: %w", err)
	}
	return string(out), nil
}

func toNiceJSON(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "", fmt.Errorf("to_nice_json: %w", err)
	}
	return string(out), nil
}

func fromJSON(v any) (any, error) {
	var out any
	if err := json.Unmarshal([]byte(cast.ToString(v)), &out); err != nil {
		return nil, fmt.Errorf("from_json: %w", err)
	}
	return out, nil
}

func toYAML(v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("to_yaml: %w", err)
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

func shellQuote(v any) string {
	s := cast.ToString(v)
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func length(v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return len([]rune(rv.String())), nil
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), nil
	}
	return 0, fmt.Errorf("length: unsupported type %T", v)
}

func regexReplace(pattern, replacement string, v any) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("regex_replace: %w", err)
	}
	return re.ReplaceAllString(cast.ToString(v), replacement), nil
}

var errMandatory = errors.New("mandatory variable not defined")

func mandatory(v any) (any, error) {
	if v == nil {
		return nil, errMandatory
	}
	return v, nil
}
