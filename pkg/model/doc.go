// Package model defines the declarative vocabulary the form engine consumes.
// A form is an ordered list of Items; each Item is either a plain Field or an
// ArrayGroup whose Fields act as templates for every repeated instance.
//
// Field values are carried as Value, a closed union of absent, string,
// number, date and choice payloads. Raw widget input crosses into the model
// through ParseInput so the rest of the engine never handles untyped data.
// Descriptors are validated once at construction; Validate and ValidateItems
// return *ConfigError for malformed configuration (for example a choice field
// without options, or a visibility rule reading an undeclared dependency).
package model
