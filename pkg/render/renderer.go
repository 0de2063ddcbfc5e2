// Package render defines the widget rendering capability: renderers turn a
// form view into bytes for a given medium.
package render

import (
	"context"

	"github.com/goliatone/go-formkit/pkg/form"
)

// Renderer converts a form view into a byte representation (HTML, terminal
// text, etc.).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view form.View, options RenderOptions) ([]byte, error)
}
