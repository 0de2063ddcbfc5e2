package html

import (
	"bytes"
	"fmt"
	"io/fs"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// engine is a pongo2 template set with a compiled template cache.
type engine struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
}

func newEngine(files fs.FS, globals pongo2.Context) *engine {
	set := pongo2.NewSet("formkit", pongo2.NewFSLoader(files))
	if set.Globals == nil {
		set.Globals = make(pongo2.Context)
	}
	set.Globals.Update(globals)
	return &engine{
		set:       set,
		templates: make(map[string]*pongo2.Template),
	}
}

func (e *engine) render(name string, data pongo2.Context) ([]byte, error) {
	tmpl, err := e.template(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(data, &buf); err != nil {
		return nil, fmt.Errorf("html: execute template %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (e *engine) template(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.templates[name]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.templates[name]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("html: load template %q: %w", name, err)
	}
	e.templates[name] = tmpl
	return tmpl, nil
}
