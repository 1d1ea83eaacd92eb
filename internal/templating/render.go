// Package templating substitutes `{{ ... }}` expressions in playbook
// strings on a best-effort basis.
//
// Playbooks reference variables that only exist at run time, so rendering
// never fails: if any expression in a string cannot be resolved the string
// is returned untouched.
package templating

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

const defaultCacheSize = 512

// Result is the outcome of rendering a string.
type Result struct {
	text     string
	resolved bool
}

// Rendered wraps a fully substituted string.
func Rendered(text string) Result { return Result{text: text, resolved: true} }

// Unresolved wraps the original string of a failed rendering.
func Unresolved(original string) Result { return Result{text: original} }

// String returns the rendered text, or the original text when unresolved.
func (r Result) String() string { return r.text }

// Resolved reports whether every expression was substituted.
func (r Result) Resolved() bool { return r.resolved }

// Renderer evaluates template expressions. It is safe for concurrent use.
type Renderer struct {
	funcs template.FuncMap
	cache *lru.Cache[string, *template.Template]
}

// NewRenderer creates a renderer that keeps up to size compiled
// expressions.
func NewRenderer(size int) (*Renderer, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, *template.Template](size)
	if err != nil {
		return nil, fmt.Errorf("create expression cache: %w", err)
	}
	return &Renderer{funcs: filterFuncs(), cache: cache}, nil
}

var defaultRenderer = func() *Renderer {
	r, err := NewRenderer(defaultCacheSize)
	if err != nil {
		panic(err)
	}
	return r
}()

// Render substitutes expressions in text using vars and an implicit
// playbook_dir bound to basePath. The original text is returned if any
// expression cannot be resolved.
func Render(basePath, text string, vars map[string]any) string {
	return defaultRenderer.Evaluate(basePath, text, vars).String()
}

// Evaluate is Render without collapsing the result.
func Evaluate(basePath, text string, vars map[string]any) Result {
	return defaultRenderer.Evaluate(basePath, text, vars)
}

// HasTemplate reports whether s contains template markers.
func HasTemplate(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%") || strings.Contains(s, "{#")
}

// Render substitutes expressions in text. See the package-level Render.
func (r *Renderer) Render(basePath, text string, vars map[string]any) string {
	return r.Evaluate(basePath, text, vars).String()
}

// Evaluate substitutes every expression in text or reports the text as
// unresolved.
func (r *Renderer) Evaluate(basePath, text string, vars map[string]any) Result {
	if !HasTemplate(text) {
		return Rendered(text)
	}
	if strings.Contains(text, "{%") || strings.Contains(text, "{#") {
		return Unresolved(text)
	}

	data := make(map[string]any, len(vars)+1)
	data["playbook_dir"] = basePath
	for k, v := range vars {
		data[k] = v
	}

	var out strings.Builder
	rest := text
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			out.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end < 0 {
			return Unresolved(text)
		}
		expr := rest[start+2 : start+2+end]
		value, err := r.eval(expr, data)
		if err != nil {
			log.Debug().Err(err).Str("expr", expr).Msg("template expression left unresolved")
			return Unresolved(text)
		}
		out.WriteString(rest[:start])
		out.WriteString(value)
		rest = rest[start+2+end+2:]
	}
	return Rendered(out.String())
}

func (r *Renderer) eval(expr string, data map[string]any) (string, error) {
	tmpl, err := r.compile(expr)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute expression: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) compile(expr string) (*template.Template, error) {
	key := strings.TrimSpace(expr)
	if tmpl, ok := r.cache.Get(key); ok {
		return tmpl, nil
	}
	action, err := translate(key)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("expr").Option("missingkey=error").Funcs(r.funcs).Parse("{{ emitValue (" + action + ") }}")
	if err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	r.cache.Add(key, tmpl)
	return tmpl, nil
}
