// Package tui fills forms from a terminal. Fill walks the mounted fields in
// layout order through a PromptDriver, feeding answers to the form so that
// validation, visibility and array groups behave exactly as in a browser.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/render"
	"github.com/goliatone/go-formkit/pkg/validation"
)

// Name is the registry name of the renderer.
const Name = "tui"

// DoneLabel finishes editing an array group.
const DoneLabel = "完成"

// Renderer fills forms interactively and summarises form views as text.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	maxAttempts       int
	logger            *log.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		theme:        DefaultTheme(),
		maxAttempts:  DefaultMaxAttempts,
		logger:       log.New(io.Discard, "", 0),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	switch r.outputFormat {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unknown output format %q", r.outputFormat)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports the format of Render.
func (r *Renderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

// Render summarises view as styled text, one line per mounted field.
func (r *Renderer) Render(ctx context.Context, view form.View, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	errs := render.CollectErrors(view, opts.Errors)

	var b strings.Builder
	if opts.Title != "" {
		b.WriteString(r.theme.Title.Render(opts.Title))
		b.WriteString("\n")
	}
	for _, message := range errs.Form {
		b.WriteString(r.theme.Error.Render("! " + message))
		b.WriteString("\n")
	}
	for _, item := range view.Items {
		switch {
		case item.Field != nil:
			r.writeField(&b, "", *item.Field, errs)
		case item.Group != nil:
			g := item.Group
			b.WriteString(r.theme.Label.Render(fmt.Sprintf("%s (%d)", displayGroup(*g), len(g.Instances))))
			b.WriteString("\n")
			for _, inst := range g.Instances {
				b.WriteString(r.theme.Muted.Render(fmt.Sprintf("  #%d", inst.Index+1)))
				b.WriteString("\n")
				for _, fv := range inst.Fields {
					r.writeField(&b, "    ", fv, errs)
				}
			}
		}
	}
	return []byte(b.String()), nil
}

func (r *Renderer) writeField(b *strings.Builder, indent string, fv form.FieldView, errs render.ErrorMapping) {
	value := fv.Input
	if fv.Widget == model.WidgetSecret && value != "" {
		value = "******"
	}
	if fv.Widget == model.WidgetChoice {
		value = optionLabel(fv)
	}
	b.WriteString(indent)
	b.WriteString(r.theme.Label.Render(displayLabel(fv) + ":"))
	if value != "" {
		b.WriteString(" ")
		b.WriteString(value)
	}
	if status := r.status(fv.State); status != "" {
		b.WriteString(" ")
		b.WriteString(status)
	}
	b.WriteString("\n")
	for _, message := range errs.Fields[fv.Path] {
		if fv.State.Status == validation.StatusInvalid && message == fv.State.Message {
			continue
		}
		b.WriteString(indent)
		b.WriteString(r.theme.Error.Render("  " + message))
		b.WriteString("\n")
	}
}

func (r *Renderer) status(st validation.State) string {
	switch st.Status {
	case validation.StatusValid:
		return r.theme.Valid.Render("✓")
	case validation.StatusPending:
		return r.theme.Pending.Render("…")
	case validation.StatusInvalid:
		return r.theme.Error.Render("✗ " + st.Message)
	default:
		return ""
	}
}

// Collect fills f, submits it and serializes the snapshot in the configured
// output format.
func (r *Renderer) Collect(ctx context.Context, f *form.Form) ([]byte, error) {
	snap, err := r.Fill(ctx, f)
	if err != nil {
		return nil, err
	}
	return r.serialize(snap)
}

// Fill prompts every mounted field, then submits. A refused submit re-prompts
// the offending field, up to the configured number of rounds.
func (r *Renderer) Fill(ctx context.Context, f *form.Form) (form.Snapshot, error) {
	if f == nil {
		return form.Snapshot{}, errors.New("tui: form is nil")
	}
	if err := r.walk(ctx, f); err != nil {
		return form.Snapshot{}, err
	}
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		snap, err := f.Submit(ctx)
		if err == nil {
			return snap, nil
		}
		var submitErr *form.SubmitError
		if !errors.As(err, &submitErr) || submitErr.Err != nil {
			return form.Snapshot{}, err
		}
		r.logger.Printf("tui: submit refused at %s: %s", submitErr.Path, submitErr.Message)
		fv, ok := findField(f.View(), submitErr.Path)
		if !ok {
			return form.Snapshot{}, err
		}
		if err := r.promptField(ctx, f, fv); err != nil {
			return form.Snapshot{}, err
		}
	}
	return form.Snapshot{}, ErrTooManyAttempts
}

// walk recomputes the view after every answer so fields mounted by a
// visibility change are prompted in their layout position.
func (r *Renderer) walk(ctx context.Context, f *form.Form) error {
	done := make(map[string]bool)
	groupsDone := make(map[string]bool)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		field, group := nextStep(f.View(), done, groupsDone)
		switch {
		case field != nil:
			if err := r.promptField(ctx, f, *field); err != nil {
				return err
			}
			done[field.Path] = true
		case group != nil:
			finished, err := r.editGroup(ctx, f, *group)
			if err != nil {
				return err
			}
			groupsDone[group.Name] = finished
		default:
			return nil
		}
	}
}

func nextStep(view form.View, done, groupsDone map[string]bool) (*form.FieldView, *form.GroupView) {
	for _, item := range view.Items {
		switch {
		case item.Field != nil:
			if !done[item.Field.Path] {
				return item.Field, nil
			}
		case item.Group != nil:
			for _, inst := range item.Group.Instances {
				for i := range inst.Fields {
					if !done[inst.Fields[i].Path] {
						return &inst.Fields[i], nil
					}
				}
			}
			if !groupsDone[item.Group.Name] {
				return nil, item.Group
			}
		}
	}
	return nil, nil
}

// editGroup offers add, remove and done. It reports whether the user is
// finished with the group.
func (r *Renderer) editGroup(ctx context.Context, f *form.Form, g form.GroupView) (bool, error) {
	options := []string{g.AddLabel}
	for _, inst := range g.Instances {
		options = append(options, fmt.Sprintf("%s #%d", g.RemoveLabel, inst.Index+1))
	}
	options = append(options, DoneLabel)

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      displayGroup(g),
		Options:      options,
		DefaultIndex: len(options) - 1,
	})
	if err != nil {
		return false, err
	}
	switch {
	case idx == 0:
		_, err := f.AddInstance(g.Name)
		return false, err
	case idx > 0 && idx <= len(g.Instances):
		return false, f.RemoveInstance(g.Name, g.Instances[idx-1].Key)
	case idx == len(options)-1:
		return true, nil
	default:
		_ = r.driver.Info(ctx, r.theme.Error.Render(fmt.Sprintf("invalid selection %d", idx)))
		return false, nil
	}
}

func (r *Renderer) promptField(ctx context.Context, f *form.Form, fv form.FieldView) error {
	path := model.ParsePath(fv.Path)
	for {
		raw, err := r.ask(ctx, fv)
		if err != nil {
			return err
		}
		if err := f.SetInput(path, raw); err != nil {
			var invalid *validation.ValidationError
			if !errors.As(err, &invalid) {
				return err
			}
			_ = r.driver.Info(ctx, r.theme.Error.Render(invalid.Message))
			continue
		}
		if err := f.Blur(path); err != nil {
			return err
		}
		st, err := f.State(path)
		if err != nil {
			return err
		}
		if st.Status == validation.StatusPending {
			_ = r.driver.Info(ctx, r.theme.Pending.Render(displayLabel(fv)+" …"))
			if st, err = f.Await(ctx, path); err != nil {
				return err
			}
		}
		if st.Status == validation.StatusInvalid {
			_ = r.driver.Info(ctx, r.theme.Error.Render(st.Message))
			fv.Input = raw
			continue
		}
		return nil
	}
}

// ask maps every widget kind to a prompt.
func (r *Renderer) ask(ctx context.Context, fv form.FieldView) (string, error) {
	label := displayLabel(fv)
	help := fv.Help
	if help == "" {
		help = fv.Placeholder
	}
	switch fv.Widget {
	case model.WidgetText:
		return r.driver.Input(ctx, InputConfig{Message: label, Default: fv.Input, Help: help})
	case model.WidgetSecret:
		return r.driver.Password(ctx, InputConfig{Message: label, Help: help})
	case model.WidgetDate:
		if help == "" {
			help = "YYYY-MM-DD"
		}
		return r.driver.Input(ctx, InputConfig{Message: label, Default: fv.Input, Help: help})
	case model.WidgetMultiline:
		return r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: fv.Input, Help: help})
	case model.WidgetChoice:
		labels := make([]string, 0, len(fv.Options)+1)
		values := make([]string, 0, len(fv.Options)+1)
		if !fv.Required {
			labels = append(labels, "-")
			values = append(values, "")
		}
		current := -1
		for _, opt := range fv.Options {
			if !fv.Value.IsAbsent() && fv.Value.Option().Equal(opt.Value) {
				current = len(labels)
			}
			labels = append(labels, opt.Label)
			values = append(values, opt.Value.Text())
		}
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      labels,
			DefaultIndex: current,
			Help:         help,
		})
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= len(values) {
			return "", fmt.Errorf("tui: %s: selection %d out of range", fv.Path, idx)
		}
		return values[idx], nil
	default:
		return "", fmt.Errorf("tui: %s: unsupported widget kind %q", fv.Path, fv.Widget)
	}
}

func (r *Renderer) serialize(snap form.Snapshot) ([]byte, error) {
	if r.submitTransformer == nil && r.outputFormat == OutputFormatJSON {
		return json.Marshal(snap)
	}
	values := snap.Map()
	if r.submitTransformer != nil {
		var err error
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		out := url.Values{}
		flatten("", values, out)
		return []byte(out.Encode()), nil
	case OutputFormatPrettyText:
		var b strings.Builder
		writePretty(&b, "", values)
		return []byte(b.String()), nil
	default:
		return json.Marshal(values)
	}
}

func findField(view form.View, path string) (form.FieldView, bool) {
	for _, item := range view.Items {
		switch {
		case item.Field != nil:
			if item.Field.Path == path {
				return *item.Field, true
			}
		case item.Group != nil:
			for _, inst := range item.Group.Instances {
				for _, fv := range inst.Fields {
					if fv.Path == path {
						return fv, true
					}
				}
			}
		}
	}
	return form.FieldView{}, false
}

func displayLabel(fv form.FieldView) string {
	label := fv.Label
	if label == "" {
		label = fv.Name
	}
	if fv.Required {
		label += " *"
	}
	return label
}

func displayGroup(g form.GroupView) string {
	if g.Label != "" {
		return g.Label
	}
	return g.Name
}

func optionLabel(fv form.FieldView) string {
	if fv.Value.IsAbsent() {
		return ""
	}
	for _, opt := range fv.Options {
		if fv.Value.Option().Equal(opt.Value) {
			return opt.Label
		}
	}
	return fv.Input
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			flatten(joinKey(prefix, key), v[key], out)
		}
	case []map[string]any:
		for idx, record := range v {
			flatten(fmt.Sprintf("%s.%d", prefix, idx), record, out)
		}
	case nil:
	default:
		out.Set(prefix, scalar(v))
	}
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			writePretty(b, joinKey(prefix, key), v[key])
		}
	case []map[string]any:
		for idx, record := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), record)
		}
	case nil:
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%s\n", prefix, scalar(v))
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func scalar(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(model.DateLayout)
	default:
		return fmt.Sprint(t)
	}
}
