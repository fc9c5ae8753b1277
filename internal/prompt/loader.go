package prompt

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"text/template"
)

// Data holds the template variables available to every phase prompt.
type Data struct {
	ItemID           string
	Title            string
	Overview         string
	State            string
	ItemDir          string
	ResearchPath     string
	PlanPath         string
	PRDPath          string
	Branch           string
	BaseBranch       string
	PRURL            string
	CompletionSignal string
	PendingStories   []Story
}

// Story is a user story still to be implemented.
type Story struct {
	ID    string
	Title string
}

// Loader resolves and caches phase templates.
type Loader struct {
	overrideDir string
	cache       map[string]*template.Template
	mu          sync.RWMutex
}

// NewLoader creates a loader that prefers templates in overrideDir. An
// empty overrideDir uses only the embedded defaults.
func NewLoader(overrideDir string) *Loader {
	return &Loader{
		overrideDir: overrideDir,
		cache:       make(map[string]*template.Template),
	}
}

// ForRepo returns a loader with overrides from <basePath>/.wreckit/prompts.
func ForRepo(basePath string) *Loader {
	return NewLoader(filepath.Join(basePath, ".wreckit", "prompts"))
}

func (l *Loader) loadContent(name string) ([]byte, error) {
	if l.overrideDir != "" {
		if data, err := os.ReadFile(filepath.Join(l.overrideDir, name)); err == nil {
			return data, nil
		}
	}
	return fs.ReadFile(embeddedFS, "templates/"+name)
}

func (l *Loader) load(phase string) (*template.Template, error) {
	l.mu.RLock()
	tmpl, ok := l.cache[phase]
	l.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	name := phase + ".md"
	content, err := l.loadContent(name)
	if err != nil {
		return nil, fmt.Errorf("no prompt template for phase %q: %w", phase, err)
	}

	tmpl, err = template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("compile prompt %s: %w", name, err)
	}

	l.mu.Lock()
	l.cache[phase] = tmpl
	l.mu.Unlock()
	return tmpl, nil
}

// Render executes the template for a phase.
func (l *Loader) Render(phase string, data Data) (string, error) {
	tmpl, err := l.load(phase)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", phase, err)
	}
	return buf.String(), nil
}

// Default returns the embedded template for a phase.
func Default(phase string) ([]byte, error) {
	data, err := fs.ReadFile(embeddedFS, "templates/"+phase+".md")
	if err != nil {
		return nil, fmt.Errorf("no prompt template for phase %q: %w", phase, err)
	}
	return data, nil
}
