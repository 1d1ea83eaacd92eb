// Package lint runs rules over playbooks and the files they reference.
package lint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/metalagman/playlint/internal/playbook"
	"github.com/metalagman/playlint/internal/rules"
	"github.com/metalagman/playlint/internal/task"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Match is a rule violation.
type Match struct {
	RuleID    string     `json:"rule"`
	ShortDesc string     `json:"short_description"`
	Tags      []string   `json:"tags"`
	File      string     `json:"file"`
	Line      int        `json:"line"`
	Message   string     `json:"message"`
	Task      string     `json:"task"`
	Kind      rules.Kind `json:"kind"`
}

// FileError is a file or task that could not be linted.
type FileError struct {
	File string `json:"file"`
	Line int    `json:"line,omitempty"`
	Err  error  `json:"-"`
}

func (e FileError) Error() string {
	return e.Err.Error()
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a lint run.
type Result struct {
	Files   []string
	Matches []Match
	Errors  []FileError
}

// Failed reports whether the run found violations or unreadable files.
func (r *Result) Failed() bool {
	return len(r.Matches) > 0 || len(r.Errors) > 0
}

// Options configure a Runner.
type Options struct {
	Rules *rules.Collection
	// Exclude holds path prefixes or doublestar patterns to skip.
	Exclude []string
	// Parallelism bounds the number of files linted at once.
	Parallelism int
	// ExtraVars are available to every file and override play vars.
	ExtraVars map[string]any
}

// Runner lints playbooks.
type Runner struct {
	opts Options
}

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	if opts.Rules == nil {
		opts.Rules = rules.Default()
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Runner{opts: opts}
}

type pending struct {
	path string
	kind rules.Kind
	vars map[string]any
}

type fileResult struct {
	matches  []Match
	errors   []FileError
	children []pending
}

// Run lints paths and every file they reference. Files are processed
// breadth first; each level is linted concurrently.
func (r *Runner) Run(ctx context.Context, paths []string) (*Result, error) {
	res := &Result{}
	visited := map[string]struct{}{}
	var queue []pending
	enqueue := func(p pending) {
		abs, err := filepath.Abs(p.path)
		if err != nil {
			abs = p.path
		}
		if _, ok := visited[abs]; ok {
			return
		}
		visited[abs] = struct{}{}
		if r.excluded(p.path) {
			log.Debug().Str("file", p.path).Msg("excluded")
			return
		}
		queue = append(queue, p)
	}
	for _, p := range paths {
		enqueue(pending{path: p})
	}

	for len(queue) > 0 {
		wave := queue
		queue = nil
		results := make([]fileResult, len(wave))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Parallelism)
		for i, item := range wave {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = r.lintFile(item)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("lint files: %w", err)
		}

		for i, fr := range results {
			res.Files = append(res.Files, wave[i].path)
			res.Matches = append(res.Matches, fr.matches...)
			res.Errors = append(res.Errors, fr.errors...)
			for _, child := range fr.children {
				if _, err := os.Stat(child.path); err != nil {
					log.Warn().Str("file", wave[i].path).Str("child", child.path).Msg("referenced file not found")
					continue
				}
				enqueue(child)
			}
		}
	}

	res.Matches = dedupe(res.Matches)
	sort.SliceStable(res.Matches, func(i, j int) bool {
		a, b := res.Matches[i], res.Matches[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.RuleID < b.RuleID
	})
	return res, nil
}

func (r *Runner) lintFile(item pending) fileResult {
	var out fileResult
	doc, err := playbook.Load(item.path, item.kind)
	if err != nil {
		out.errors = append(out.errors, fileError(item.path, err))
		return out
	}
	log.Debug().Str("file", item.path).Str("kind", string(doc.Kind)).Msg("linting")

	vars := map[string]any{}
	for k, v := range item.vars {
		vars[k] = v
	}
	for k, v := range doc.LoadVars() {
		vars[k] = v
	}
	for k, v := range r.opts.ExtraVars {
		vars[k] = v
	}

	raw, err := doc.Tasks()
	if err != nil {
		out.errors = append(out.errors, fileError(item.path, err))
		return out
	}

	file := rules.File{Path: item.path, Kind: doc.Kind, BaseDir: doc.BaseDir(), Vars: vars}
	tasks := make([]task.Task, 0, len(raw))
	for _, rt := range raw {
		t, err := task.Normalize(rt, item.path)
		if err != nil {
			out.errors = append(out.errors, fileError(item.path, err))
			continue
		}
		tasks = append(tasks, t)
		out.matches = append(out.matches, r.matchTask(file, t)...)
	}

	for _, child := range doc.Children(tasks, vars) {
		out.children = append(out.children, pending{path: child.Path, kind: child.Kind, vars: vars})
	}
	return out
}

func (r *Runner) matchTask(file rules.File, t task.Task) []Match {
	var out []Match
	for _, rule := range r.opts.Rules.All() {
		message, matched := rule.MatchTask(file, t)
		if !matched {
			continue
		}
		if message == "" {
			message = rule.ShortDesc()
		}
		out = append(out, Match{
			RuleID:    rule.ID(),
			ShortDesc: rule.ShortDesc(),
			Tags:      rule.Tags(),
			File:      file.Path,
			Line:      t.Line(),
			Message:   message,
			Task:      task.ToString(t),
			Kind:      file.Kind,
		})
	}
	return out
}

func fileError(path string, err error) FileError {
	fe := FileError{File: path, Err: err}
	var shape *task.DataShapeError
	if errors.As(err, &shape) {
		fe.Line = shape.Line
	}
	return fe
}

func (r *Runner) excluded(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rel := filepath.ToSlash(filepath.Clean(path))
	for _, pattern := range r.opts.Exclude {
		if absPattern, err := filepath.Abs(pattern); err == nil {
			if abs == absPattern || strings.HasPrefix(abs, absPattern+string(filepath.Separator)) {
				return true
			}
		}
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, filepath.Base(path)); err == nil && ok {
			return true
		}
	}
	return false
}

func dedupe(matches []Match) []Match {
	type key struct {
		rule, file, message string
		line                int
	}
	seen := make(map[key]struct{}, len(matches))
	out := matches[:0]
	for _, m := range matches {
		k := key{m.RuleID, m.File, m.Message, m.Line}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	return out
}
