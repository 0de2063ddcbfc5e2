package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/validation"
	"github.com/goliatone/go-formkit/pkg/widgets"
)

// Format selects the document syntax. FormatAuto tries JSON, then YAML.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Options wires the registries used while loading.
type Options struct {
	// Validators resolves async validator names. Nil uses
	// validation.NewRegistry().
	Validators *validation.Registry
	// Widgets infers missing widget kinds. Nil uses widgets.NewRegistry().
	Widgets *widgets.Registry
	// Decorators run after widget inference, before validation.
	Decorators []model.Decorator
}

// Definition is a loaded, validated form document.
type Definition struct {
	Title         string
	Source        string
	Items         []model.Item
	InitialValues map[string]any
	ShowReset     bool
	ShowClear     bool
	Trigger       form.Trigger
	AsyncTimeout  time.Duration
}

// FormOptions converts the document settings into form options.
func (d *Definition) FormOptions() []form.Option {
	opts := []form.Option{
		form.WithShowReset(d.ShowReset),
		form.WithShowClear(d.ShowClear),
		form.WithTrigger(d.Trigger),
	}
	if len(d.InitialValues) > 0 {
		opts = append(opts, form.WithInitialValues(d.InitialValues))
	}
	if d.AsyncTimeout > 0 {
		opts = append(opts, form.WithAsyncTimeout(d.AsyncTimeout))
	}
	return opts
}

// NewForm builds a form from the definition. extra options are applied after
// the document's own settings.
func (d *Definition) NewForm(extra ...form.Option) (*form.Form, error) {
	return form.New(d.Items, append(d.FormOptions(), extra...)...)
}

// LoadFile reads and loads the document at path. The extension picks the
// format; unknown extensions are auto-detected.
func LoadFile(path string, opts Options) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	format := FormatAuto
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
		format = FormatYAML
	}
	def, err := load(data, format, path, opts)
	if err != nil {
		return nil, err
	}
	return def, nil
}

// Load parses data as a form document.
func Load(data []byte, format Format, opts Options) (*Definition, error) {
	return load(data, format, "<inline>", opts)
}

func load(data []byte, format Format, source string, opts Options) (*Definition, error) {
	doc, err := parseDocument(data, format, source)
	if err != nil {
		return nil, err
	}

	validators := opts.Validators
	if validators == nil {
		validators = validation.NewRegistry()
	}
	items := make([]model.Item, 0, len(doc.Items))
	for idx, raw := range doc.Items {
		item, err := buildItem(raw, validators)
		if err != nil {
			return nil, fmt.Errorf("config: %s: item %d: %w", source, idx, err)
		}
		items = append(items, item)
	}

	wreg := opts.Widgets
	if wreg == nil {
		wreg = widgets.NewRegistry()
	}
	decorators := append([]model.Decorator{wreg}, opts.Decorators...)
	for _, decorator := range decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(items); err != nil {
			return nil, fmt.Errorf("config: %s: decorate: %w", source, err)
		}
	}

	if err := model.ValidateItems(items); err != nil {
		return nil, fmt.Errorf("config: %s: %w", source, err)
	}

	def := &Definition{
		Title:         doc.Title,
		Source:        source,
		Items:         items,
		InitialValues: doc.InitialValues,
		ShowReset:     boolOr(doc.ShowReset, true),
		ShowClear:     boolOr(doc.ShowClear, true),
	}
	switch strings.ToLower(strings.TrimSpace(doc.ValidateTrigger)) {
	case "", "change", "onchange":
		def.Trigger = form.TriggerChange
	case "blur", "onblur":
		def.Trigger = form.TriggerBlur
	default:
		return nil, fmt.Errorf("config: %s: unknown validateTrigger %q", source, doc.ValidateTrigger)
	}
	if doc.AsyncTimeout != "" {
		d, err := time.ParseDuration(doc.AsyncTimeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("config: %s: invalid asyncTimeout %q", source, doc.AsyncTimeout)
		}
		def.AsyncTimeout = d
	}
	return def, nil
}

func parseDocument(data []byte, format Format, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("config: file %s is empty", source)
	}

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return documentFile{}, fmt.Errorf("config: parse %s: %w", source, err)
		}
		return doc, nil
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return documentFile{}, fmt.Errorf("config: parse %s: %w", source, err)
		}
		return doc, nil
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	return documentFile{}, fmt.Errorf("config: parse %s: invalid JSON or YAML", source)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
