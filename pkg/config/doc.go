// Package config loads declarative form documents (YAML or JSON) into field
// descriptors and form options. Async validators are referenced by name and
// resolved through a validation.Registry; widget kinds left out of the
// document are inferred by a widgets.Registry.
package config
