package render

import theme "github.com/goliatone/go-theme"

// RenderOptions describe per-request data that renderers can use to customise
// their output without touching the form itself.
type RenderOptions struct {
	// Title is shown above the form when set.
	Title string
	// Action and Method describe where browser submissions go. Method
	// defaults to POST.
	Action string
	Method string
	// HiddenFields are emitted as hidden inputs (CSRF tokens, session ids).
	HiddenFields map[string]string
	// Errors surfaces extra feedback keyed by field path; "" holds form-level
	// messages. Field states already present in the view are rendered too.
	Errors map[string][]string
	// Theme carries go-theme tokens and CSS variables.
	Theme *theme.RendererConfig
}
