package render

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/validation"
)

// ErrorMapping splits feedback into field-level and form-level messages
// keyed by the dotted paths used in form views.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// CollectErrors gathers the invalid field states of view and merges payload
// on top. Payload keys may use positional paths ("dependents.0.name"),
// bracket or slash notation; unknown paths become form-level messages so
// nothing is lost.
func CollectErrors(view form.View, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	positional := make(map[string]string)

	visit := func(fv form.FieldView, alias string) {
		if alias != "" {
			positional[alias] = fv.Path
		}
		positional[fv.Path] = fv.Path
		if fv.State.Status == validation.StatusInvalid && fv.State.Message != "" {
			mapping.Fields[fv.Path] = append(mapping.Fields[fv.Path], fv.State.Message)
		}
	}
	for _, item := range view.Items {
		switch {
		case item.Field != nil:
			visit(*item.Field, "")
		case item.Group != nil:
			for _, inst := range item.Group.Instances {
				for _, fv := range inst.Fields {
					visit(fv, joinPath(item.Group.Name, strconv.Itoa(inst.Index), fv.Name))
				}
			}
		}
	}

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		key := strings.Join(parsePathSegments(rawPath), ".")
		if isFormLevelKey(rawPath) || key == "" {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		path, ok := positional[key]
		if !ok {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[path] = normalizeMessages(append(mapping.Fields[path], normalized...))
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimPrefix(clean, "#/")
	clean = strings.TrimPrefix(clean, "$.")
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = strings.TrimLeft(clean, "#/.$")
	}

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if segment := strings.TrimSpace(part); segment != "" {
			out = append(out, segment)
		}
	}
	return out
}

func joinPath(parts ...string) string {
	return strings.Join(parts, ".")
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
