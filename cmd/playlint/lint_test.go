package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

const unnamedTasks = `- hosts: all
  tasks:
    - command: easy_install requests
    - name: install httpd
      yum: name=httpd state=present
`

func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLintCmd_ReportsMatches(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := writeTestFile(filepath.Join(dir, "site.yml"), unnamedTasks); err != nil {
		t.Fatalf("write playbook: %v", err)
	}

	out, err := executeCmd(t, "lint", "--format", "parseable", "site.yml")
	if !errors.Is(err, errLintFailed) {
		t.Fatalf("lint error = %v, want errLintFailed", err)
	}
	for _, want := range []string{
		"site.yml:3: [ANSIBLE1007] create custom module for easy_install used in place of command module",
		"site.yml:3: [ANSIBLE1004]",
		"site.yml:4: [ANSIBLE1003] Yum package httpd should be installed with explicit version",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output = %q, want it to contain %q", out, want)
		}
	}
}

func TestLintCmd_SkipAndExtraVars(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := writeTestFile(filepath.Join(dir, "site.yml"), `- hosts: all
  tasks:
    - name: install package
      yum: name={{ pkg }} state=present
`); err != nil {
		t.Fatalf("write playbook: %v", err)
	}

	out, err := executeCmd(t, "lint", "-f", "parseable", "site.yml")
	if err != nil || out != "" {
		t.Fatalf("lint with unresolved name = (%q, %v), want no matches", out, err)
	}

	out, err = executeCmd(t, "lint", "-f", "parseable", "-e", "pkg=httpd", "site.yml")
	if !errors.Is(err, errLintFailed) {
		t.Fatalf("lint error = %v, want errLintFailed", err)
	}
	if want := "site.yml:3: [ANSIBLE1003] Yum package httpd should be installed with explicit version\n"; out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}

	out, err = executeCmd(t, "lint", "-f", "parseable", "-e", "pkg=httpd", "-x", "repeatability", "site.yml")
	if err != nil || out != "" {
		t.Fatalf("lint with skip = (%q, %v), want no matches", out, err)
	}
}

func TestLintCmd_RejectsBadExtraVar(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := writeTestFile(filepath.Join(dir, "site.yml"), unnamedTasks); err != nil {
		t.Fatalf("write playbook: %v", err)
	}

	if _, err := executeCmd(t, "lint", "-e", "novalue", "site.yml"); err == nil || errors.Is(err, errLintFailed) {
		t.Fatalf("lint error = %v, want extra var error", err)
	}
}

func TestLintCmd_RecordAndHistory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := writeTestFile(filepath.Join(dir, "site.yml"), unnamedTasks); err != nil {
		t.Fatalf("write playbook: %v", err)
	}

	if _, err := executeCmd(t, "lint", "--record", "-f", "json", "site.yml"); !errors.Is(err, errLintFailed) {
		t.Fatalf("lint error = %v, want errLintFailed", err)
	}
	out, err := executeCmd(t, "history", "list", "--rules")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "site.yml") || !strings.Contains(out, "ANSIBLE1004") {
		t.Fatalf("history output = %q, want recorded run", out)
	}
	if _, err := executeCmd(t, "history", "prune", "--keep-last", "1"); err != nil {
		t.Fatalf("history prune: %v", err)
	}
}

func TestRulesCmd(t *testing.T) {
	out, err := executeCmd(t, "rules", "list")
	if err != nil {
		t.Fatalf("rules list: %v", err)
	}
	for _, id := range []string{"ANSIBLE1002", "ANSIBLE1003", "ANSIBLE1004", "ANSIBLE1007"} {
		if !strings.Contains(out, id) {
			t.Fatalf("rules list = %q, want %s", out, id)
		}
	}

	out, err = executeCmd(t, "rules", "describe", "ANSIBLE1004")
	if err != nil {
		t.Fatalf("rules describe: %v", err)
	}
	if !strings.Contains(out, "Tasks must have name") {
		t.Fatalf("rules describe = %q, want short description", out)
	}

	if _, err := executeCmd(t, "rules", "describe", "NOPE"); err == nil {
		t.Fatal("rules describe NOPE returned nil error, want error")
	}
}
