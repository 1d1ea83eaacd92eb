package task

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"
)

// ExtractFromList collects the sequences stored under keys in each record
// and flattens them one level. For every record the first key present
// wins. Absent, nil and empty values contribute nothing; any other
// non-sequence value is a DataShapeError.
func ExtractFromList(records []any, keys []string) ([]any, error) {
	results := []any{}
	for _, record := range records {
		m, ok := asMapping(record)
		if !ok {
			continue
		}
		for _, key := range keys {
			value, present := m[key]
			if !present {
				continue
			}
			items, err := asSequence(value)
			if err != nil {
				file := cast.ToString(m[FileKey])
				return nil, shapeError(file, m, "%s: %v", key, err)
			}
			results = append(results, items...)
			break
		}
	}
	return results, nil
}

func asSequence(v any) ([]any, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return s, nil
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, nil
	case string:
		if s == "" {
			return nil, nil
		}
		return nil, fmt.Errorf("expected a list, got string %q", s)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	case reflect.Map:
		if rv.Len() == 0 {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected a list, got %T", v)
}
