// Package prompt loads and renders the stage prompt templates.
//
// Prompts are plain text/template files resolved in order from
// .agentflow/prompts/ in the project, prompts/ in the project, and finally
// the defaults embedded in the binary. Deployments override a stage prompt
// by dropping a same-named .txt file into one of the search directories.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Default stage prompt names.
const (
	Analyze = "analyze"
	Gather  = "gather"
	Plan    = "plan"
	Revise  = "revise"
	Execute = "execute"
	Review  = "review"
)

// embeddedPrompts holds the default stage prompts.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

const promptExt = ".txt"

// Loader resolves prompt templates across search directories and the
// embedded defaults. It is safe for concurrent use.
type Loader struct {
	dirs    []string
	funcMap template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewLoader creates a prompt loader rooted at the given project directory.
// It searches .agentflow/prompts/ and prompts/ under the project before
// falling back to the embedded defaults. An empty projectDir uses only the
// embedded defaults.
func NewLoader(projectDir string) *Loader {
	l := &Loader{
		cache:   make(map[string]*template.Template),
		funcMap: defaultFuncMap(),
	}
	if projectDir != "" {
		l.dirs = []string{
			filepath.Join(projectDir, ".agentflow", "prompts"),
			filepath.Join(projectDir, "prompts"),
		}
	}
	return l
}

// AddSearchDir prepends a directory to the search order.
func (l *Loader) AddSearchDir(dir string) {
	l.dirs = append([]string{dir}, l.dirs...)
}

// AddFunc registers a custom template function. Call before the first
// Render; cached templates keep the funcs they were parsed with.
func (l *Loader) AddFunc(name string, fn any) {
	l.funcMap[name] = fn
}

// Load returns a prompt rendered with no variables.
func (l *Loader) Load(name string) (string, error) {
	return l.Render(name, nil)
}

// Render resolves, parses, and executes the named prompt template.
func (l *Loader) Render(name string, vars map[string]any) (string, error) {
	tmpl, err := l.template(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// Exists reports whether the named prompt can be resolved.
func (l *Loader) Exists(name string) bool {
	_, err := l.resolve(name)
	return err == nil
}

// List returns the names of every resolvable prompt, sorted.
func (l *Loader) List() ([]string, error) {
	seen := make(map[string]bool)

	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		collectPromptNames(entries, seen)
	}

	if entries, err := embeddedPrompts.ReadDir("prompts"); err == nil {
		collectPromptNames(entries, seen)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func collectPromptNames(entries []fs.DirEntry, seen map[string]bool) {
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), promptExt) {
			continue
		}
		seen[strings.TrimSuffix(entry.Name(), promptExt)] = true
	}
}

// ClearCache drops all parsed templates, forcing re-resolution.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*template.Template)
	l.mu.Unlock()
}

func (l *Loader) template(name string) (*template.Template, error) {
	l.mu.RLock()
	tmpl, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	content, err := l.resolve(name)
	if err != nil {
		return nil, err
	}

	tmpl, err = template.New(name).Funcs(l.funcMap).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = tmpl
	l.mu.Unlock()
	return tmpl, nil
}

// resolve finds the raw prompt text, search dirs first, embedded last.
func (l *Loader) resolve(name string) (string, error) {
	filename := name + promptExt

	for _, dir := range l.dirs {
		if data, err := os.ReadFile(filepath.Join(dir, filename)); err == nil {
			return string(data), nil
		}
	}

	data, err := embeddedPrompts.ReadFile("prompts/" + filename)
	if err != nil {
		return "", fmt.Errorf("prompt not found: %s", name)
	}
	return string(data), nil
}

func defaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"join":     strings.Join,
		"trim":     strings.TrimSpace,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"title":    cases.Title(language.English).String,
		"contains": strings.Contains,
		"indent":   indent,
		"default":  orDefault,
	}
}

// indent prefixes every non-empty line with n spaces.
func indent(n int, s string) string {
	if s == "" {
		return s
	}
	prefix := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// orDefault substitutes fallback for nil or empty-string values.
func orDefault(fallback, value any) any {
	if value == nil {
		return fallback
	}
	if s, ok := value.(string); ok && s == "" {
		return fallback
	}
	return value
}
