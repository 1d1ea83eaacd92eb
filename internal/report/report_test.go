package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/metalagman/playlint/internal/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *lint.Result {
	return &lint.Result{
		Matches: []lint.Match{{
			RuleID:    "ANSIBLE1004",
			ShortDesc: "Tasks must have name",
			Tags:      []string{"productivity"},
			File:      "site.yml",
			Line:      5,
			Message:   "Tasks must have name",
			Task:      "fail msg=unicode é ô à",
			Kind:      "playbook",
		}},
		Errors: []lint.FileError{{File: "broken.yml", Line: 2, Err: errors.New("task has conflicting module keys: git, yum")}},
	}
}

func TestWriter_Default(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatDefault, false).Write(sampleResult()))
	assert.Equal(t, "[ANSIBLE1004] Tasks must have name\nsite.yml:5\nTask/Handler: fail msg=unicode é ô à\n\n"+
		"broken.yml:2: error: task has conflicting module keys: git, yum\n", buf.String())
}

func TestWriter_Parseable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatParseable, true).Write(sampleResult()))
	assert.Equal(t, "site.yml:5: [ANSIBLE1004] Tasks must have name\n"+
		"broken.yml:2: error: task has conflicting module keys: git, yum\n", buf.String())
}

func TestWriter_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatJSON, false).Write(sampleResult()))

	var got struct {
		Matches []map[string]any `json:"matches"`
		Errors  []map[string]any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Matches, 1)
	assert.Equal(t, "ANSIBLE1004", got.Matches[0]["rule"])
	assert.Equal(t, "fail msg=unicode é ô à", got.Matches[0]["task"])
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "broken.yml", got.Errors[0]["file"])
}

func TestWriter_JSONEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatJSON, false).Write(&lint.Result{}))
	assert.JSONEq(t, `{"matches": [], "errors": []}`, buf.String())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatDefault, f)

	f, err = ParseFormat("parseable")
	require.NoError(t, err)
	assert.Equal(t, FormatParseable, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
