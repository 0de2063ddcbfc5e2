package config

// documentFile is the on-disk shape of a form document.
type documentFile struct {
	Title           string         `json:"title" yaml:"title"`
	Items           []itemFile     `json:"items" yaml:"items"`
	InitialValues   map[string]any `json:"initialValues" yaml:"initialValues"`
	ShowReset       *bool          `json:"showReset" yaml:"showReset"`
	ShowClear       *bool          `json:"showClear" yaml:"showClear"`
	ValidateTrigger string         `json:"validateTrigger" yaml:"validateTrigger"`
	AsyncTimeout    string         `json:"asyncTimeout" yaml:"asyncTimeout"`
}

// itemFile is either a field or, when Fields is set, an array group.
type itemFile struct {
	Name        string       `json:"name" yaml:"name"`
	Label       string       `json:"label" yaml:"label"`
	Widget      string       `json:"widget" yaml:"widget"`
	Required    string       `json:"required" yaml:"required"`
	Rules       []ruleFile   `json:"rules" yaml:"rules"`
	Async       string       `json:"async" yaml:"async"`
	Options     []optionFile `json:"options" yaml:"options"`
	Placeholder string       `json:"placeholder" yaml:"placeholder"`
	Help        string       `json:"help" yaml:"help"`

	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	VisibleWhen  string   `json:"visibleWhen" yaml:"visibleWhen"`

	Fields      []itemFile `json:"fields" yaml:"fields"`
	AddLabel    string     `json:"addLabel" yaml:"addLabel"`
	RemoveLabel string     `json:"removeLabel" yaml:"removeLabel"`
}

type ruleFile struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Value   any    `json:"value" yaml:"value"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

type optionFile struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}
