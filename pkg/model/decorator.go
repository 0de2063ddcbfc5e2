package model

// Decorator enriches descriptors after they are declared but before a form is
// constructed (for example inferring the widget kind of config-driven fields).
type Decorator interface {
	Decorate(items []Item) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(items []Item) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(items []Item) error {
	return fn(items)
}
