// Package html renders form views as server-side HTML using pongo2 templates.
// Help text is sanitised with bluemonday; go-theme CSS variables are emitted
// as a scoped style block.
package html

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/render"
	"github.com/goliatone/go-formkit/pkg/validation"
)

//go:embed templates/*.tpl
var defaultTemplates embed.FS

const (
	// Name is the registry name of the renderer.
	Name = "html"

	// DefaultPendingLabel is shown next to fields awaiting async validation.
	DefaultPendingLabel = "校验中…"

	// StylesheetAsset is resolved through the theme's AssetURL.
	StylesheetAsset = "formkit.css"
)

// Option customises the renderer.
type Option func(*Renderer)

// WithTemplatesFS replaces the embedded templates. The filesystem must
// provide form.tpl, field.tpl and group.tpl.
func WithTemplatesFS(files fs.FS) Option {
	return func(r *Renderer) {
		if files != nil {
			r.templates = files
		}
	}
}

// WithPolicy replaces the help text sanitisation policy.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(r *Renderer) {
		if policy != nil {
			r.policy = policy
		}
	}
}

// WithPendingLabel overrides DefaultPendingLabel.
func WithPendingLabel(label string) Option {
	return func(r *Renderer) {
		if label = strings.TrimSpace(label); label != "" {
			r.pendingLabel = label
		}
	}
}

// Renderer implements render.Renderer for browsers.
type Renderer struct {
	templates    fs.FS
	policy       *bluemonday.Policy
	pendingLabel string
	engine       *engine
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a Renderer.
func New(options ...Option) (*Renderer, error) {
	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("html: embedded templates: %w", err)
	}
	r := &Renderer{
		templates:    sub,
		policy:       bluemonday.UGCPolicy(),
		pendingLabel: DefaultPendingLabel,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	r.engine = newEngine(r.templates, pongo2.Context{"renderer": Name})
	return r, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the HTML form for view.
func (r *Renderer) Render(ctx context.Context, view form.View, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	errs := render.CollectErrors(view, opts.Errors)

	items := make([]map[string]any, 0, len(view.Items))
	for _, item := range view.Items {
		switch {
		case item.Field != nil:
			fv, err := r.fieldContext(*item.Field, errs)
			if err != nil {
				return nil, err
			}
			items = append(items, map[string]any{"field": fv})
		case item.Group != nil:
			gv, err := r.groupContext(*item.Group, errs)
			if err != nil {
				return nil, err
			}
			items = append(items, map[string]any{"group": gv})
		}
	}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "POST"
	}

	data := pongo2.Context{
		"title":         opts.Title,
		"action":        opts.Action,
		"method":        method,
		"items":         items,
		"hidden_fields": render.SortedHiddenFields(opts.HiddenFields),
		"form_errors":   errs.Form,
		"show_reset":    view.ShowReset,
		"show_clear":    view.ShowClear,
		"theme":         themeContext(opts.Theme),
		"controls": map[string]any{
			"action": render.ActionFieldName,
			"add":    render.AddFieldName,
			"remove": render.RemoveFieldName,
			"submit": string(render.ActionSubmit),
			"reset":  string(render.ActionReset),
			"clear":  string(render.ActionClear),
		},
		"labels": map[string]any{
			"submit":  view.SubmitLabel,
			"reset":   view.ResetLabel,
			"clear":   view.ClearLabel,
			"pending": r.pendingLabel,
		},
	}
	return r.engine.render("form.tpl", data)
}

type htmlControl struct {
	control   string
	inputType string
}

// control maps every widget kind to its HTML control.
func control(kind model.WidgetKind) (htmlControl, error) {
	switch kind {
	case model.WidgetText:
		return htmlControl{control: "input", inputType: "text"}, nil
	case model.WidgetSecret:
		return htmlControl{control: "input", inputType: "password"}, nil
	case model.WidgetDate:
		return htmlControl{control: "input", inputType: "date"}, nil
	case model.WidgetChoice:
		return htmlControl{control: "select"}, nil
	case model.WidgetMultiline:
		return htmlControl{control: "textarea"}, nil
	default:
		return htmlControl{}, fmt.Errorf("html: unsupported widget kind %q", kind)
	}
}

func (r *Renderer) fieldContext(fv form.FieldView, errs render.ErrorMapping) (map[string]any, error) {
	ctl, err := control(fv.Widget)
	if err != nil {
		return nil, fmt.Errorf("%w (field %s)", err, fv.Path)
	}

	value := fv.Input
	if fv.Widget == model.WidgetSecret {
		value = ""
	}

	options := make([]map[string]any, 0, len(fv.Options))
	for _, opt := range fv.Options {
		options = append(options, map[string]any{
			"label":    opt.Label,
			"value":    opt.Value.Text(),
			"selected": !fv.Value.IsAbsent() && fv.Value.Option().Equal(opt.Value),
		})
	}

	var help any
	if strings.TrimSpace(fv.Help) != "" {
		help = pongo2.AsSafeValue(r.policy.Sanitize(fv.Help))
	}

	status := fv.State.Status
	if status == "" {
		status = validation.StatusUntouched
	}

	return map[string]any{
		"id":          fieldID(fv.Path),
		"path":        fv.Path,
		"name":        fv.Name,
		"label":       fv.Label,
		"widget":      string(fv.Widget),
		"control":     ctl.control,
		"input_type":  ctl.inputType,
		"required":    fv.Required,
		"value":       value,
		"placeholder": fv.Placeholder,
		"help":        help,
		"options":     options,
		"status":      string(status),
		"errors":      errs.Fields[fv.Path],
	}, nil
}

func (r *Renderer) groupContext(gv form.GroupView, errs render.ErrorMapping) (map[string]any, error) {
	instances := make([]map[string]any, 0, len(gv.Instances))
	for _, inst := range gv.Instances {
		fields := make([]map[string]any, 0, len(inst.Fields))
		for _, fv := range inst.Fields {
			ctx, err := r.fieldContext(fv, errs)
			if err != nil {
				return nil, err
			}
			fields = append(fields, ctx)
		}
		instances = append(instances, map[string]any{
			"key":    inst.Key,
			"ref":    render.InstanceRef(gv.Name, inst.Key),
			"index":  inst.Index,
			"fields": fields,
		})
	}
	return map[string]any{
		"name":         gv.Name,
		"label":        gv.Label,
		"add_label":    gv.AddLabel,
		"remove_label": gv.RemoveLabel,
		"instances":    instances,
	}, nil
}

func fieldID(path string) string {
	return "fk-" + strings.ReplaceAll(path, ".", "-")
}

func themeContext(cfg *theme.RendererConfig) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	out := map[string]any{
		"name":    cfg.Theme,
		"variant": cfg.Variant,
	}
	if css := cssVarsStyle(cfg.CSSVars); css != "" {
		out["css_vars"] = pongo2.AsSafeValue(css)
	}
	if cfg.AssetURL != nil {
		if href := cfg.AssetURL(StylesheetAsset); href != "" {
			out["stylesheet"] = href
		}
	}
	return out
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(".formkit {")
	for _, key := range keys {
		if !strings.HasPrefix(key, "--") || strings.ContainsAny(vars[key], "<>{};") {
			continue
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(vars[key])
		b.WriteString(";")
	}
	b.WriteString(" }")
	return b.String()
}
