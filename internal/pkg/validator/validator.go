package validator

// Validator validates structs using their `validate` tags.
type Validator interface {
	// Validate returns nil when data satisfies every rule, otherwise an error
	// describing each failing field.
	Validate(data any) error
}
