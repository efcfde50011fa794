// Package render turns canonical representations into final output strings.
//
// Renderers are pure: same representation in, same string out, no model
// calls and no shared state. Lookup goes through a [Registry]; an
// unregistered format is an error, not a silent passthrough.
package render

import (
	"github.com/calebcgates/llmstruct"
)

// Renderer produces final output text for the formats it handles.
type Renderer interface {
	// CanHandle reports whether this renderer covers the format tag.
	CanHandle(format llmstruct.Format) bool

	// Render produces the final output string. Renderers never return an
	// empty string without an error.
	Render(
		rep *llmstruct.CanonicalRepresentation,
		format llmstruct.Format,
		intent llmstruct.Intent,
	) (string, error)
}

// Registry resolves format tags to renderers. Resolution walks the
// registered renderers in order; custom renderers registered with
// [Registry.Register] are consulted before the defaults.
type Registry struct {
	renderers []Renderer
}

// NewRegistry creates a registry with the default renderers for every
// format in langs.
func NewRegistry(langs *llmstruct.LanguageTable) *Registry {
	return &Registry{renderers: []Renderer{
		&dataRenderer{},
		&markupRenderer{},
		&codeRenderer{langs: langs},
		&textRenderer{},
	}}
}

// Register adds a renderer that takes precedence over previously registered
// ones for the formats it handles.
func (r *Registry) Register(renderer Renderer) {
	r.renderers = append([]Renderer{renderer}, r.renderers...)
}

// For returns the renderer for a format, or [llmstruct.ErrNoRenderer].
func (r *Registry) For(format llmstruct.Format) (Renderer, error) {
	for _, renderer := range r.renderers {
		if renderer.CanHandle(format) {
			return renderer, nil
		}
	}
	return nil, llmstruct.ErrNoRenderer
}

// Render resolves the renderer for a format and renders the representation.
func (r *Registry) Render(
	rep *llmstruct.CanonicalRepresentation,
	format llmstruct.Format,
	intent llmstruct.Intent,
) (string, error) {
	renderer, err := r.For(format)
	if err != nil {
		return "", err
	}
	return renderer.Render(rep, format, intent)
}
