package formatters

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"text/template"
)

type TemplateManager struct {
	templates map[string]*template.Template
	funcs     template.FuncMap
	mu        sync.RWMutex
}

func NewTemplateManager(funcs template.FuncMap) *TemplateManager {
	return &TemplateManager{
		templates: make(map[string]*template.Template),
		funcs:     funcs,
	}
}

func (tm *TemplateManager) Register(name, tpl string) error {
	parsed, err := tm.parse(name, tpl)
	if err != nil {
		return err
	}
	tm.mu.Lock()
	tm.templates[name] = parsed
	tm.mu.Unlock()
	return nil
}

// LoadDir registers every *.tmpl file under dir by its base name, replacing
// built-in templates of the same name.
func (tm *TemplateManager) LoadDir(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".tmpl" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %q: %w", path, err)
		}
		return tm.Register(d.Name(), string(b))
	})
}

func (tm *TemplateManager) Get(name string) (*template.Template, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	t, ok := tm.templates[name]
	return t, ok
}

func (tm *TemplateManager) parse(name, tpl string) (*template.Template, error) {
	t := template.New(name)
	if tm.funcs != nil {
		t = t.Funcs(tm.funcs)
	}
	parsed, err := t.Parse(tpl)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", name, err)
	}
	return parsed, nil
}
