package config

import (
	"strings"
	"testing"
)

func TestValidateSettings_AcceptsKnownKeys(t *testing.T) {
	t.Parallel()

	settings := map[string]any{
		"skip_list":     []any{"ANSIBLE1004"},
		"tags":          []any{"repeatability"},
		"exclude_paths": []any{"vendor/"},
		"format":        "parseable",
		"parallelism":   4,
		"extra_vars":    map[string]any{"pkg": "httpd"},
		"history":       map[string]any{"path": "h.db", "keep_last": 10},
	}
	if err := ValidateSettings(settings); err != nil {
		t.Fatalf("ValidateSettings returned error: %v", err)
	}
}

func TestValidateSettings_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	err := ValidateSettings(map[string]any{"skiplist": []any{"x"}})
	if err == nil {
		t.Fatal("ValidateSettings returned nil error, want error")
	}
	if !strings.Contains(err.Error(), "skiplist") {
		t.Fatalf("error = %q, want mention of skiplist", err)
	}
}

func TestValidateSettings_RejectsBadFormat(t *testing.T) {
	t.Parallel()

	if err := ValidateSettings(map[string]any{"format": "xml"}); err == nil {
		t.Fatal("ValidateSettings returned nil error, want error")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{Tags: []string{"a"}, SkipList: []string{"b"}}).Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if err := (Config{Tags: []string{"a"}, SkipList: []string{"a"}}).Validate(); err == nil {
		t.Fatal("Validate returned nil error for overlapping tags and skip_list")
	}
	if err := (Config{Parallelism: -1}).Validate(); err == nil {
		t.Fatal("Validate returned nil error for negative parallelism")
	}
}
