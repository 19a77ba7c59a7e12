package display

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pixil98/go-errors"
)

// templateFuncs provides utility functions for templates.
var templateFuncs = func() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["capitalize"] = Capitalize
	return funcs
}()

// Expand expands a template string using the provided data.
// The data can be any struct - templates access fields via {{ .FieldName }}.
func Expand(tmplStr string, data any) (string, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	return execute(tmpl, data)
}

// Templates is a set of named templates parsed up front.
type Templates struct {
	tmpls map[string]*template.Template
}

// NewTemplates parses every source template. All parse failures are reported.
func NewTemplates(sources map[string]string) (*Templates, error) {
	t := &Templates{tmpls: make(map[string]*template.Template, len(sources))}

	el := errors.NewErrorList()
	for name, src := range sources {
		tmpl, err := template.New(name).Funcs(templateFuncs).Parse(src)
		if err != nil {
			el.Add(fmt.Errorf("parsing template %q: %w", name, err))
			continue
		}
		t.tmpls[name] = tmpl
	}

	if err := el.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Has reports whether a template called name exists.
func (t *Templates) Has(name string) bool {
	_, ok := t.tmpls[name]
	return ok
}

// Names returns the template names.
func (t *Templates) Names() []string {
	return slices.Sorted(maps.Keys(t.tmpls))
}

// Render executes the named template with data.
func (t *Templates) Render(name string, data any) (string, error) {
	tmpl, ok := t.tmpls[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	return execute(tmpl, data)
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}
