package schema

import "fmt"

// SchemaError reports a field value that does not conform to the registry,
// such as an unknown discipline or status code in ingested metadata.
// Schema errors are raised before any graph mutation.
type SchemaError struct {
	Kind   Kind
	Field  string
	Value  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s.%s=%q: %s", e.Kind, e.Field, e.Value, e.Reason)
}

// ValidationError reports a violated graph invariant, such as a supersession
// cycle or a duplicate version. Validation errors are raised to the immediate
// caller and never silently swallowed.
type ValidationError struct {
	Kind   Kind
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s=%q: %s", e.Kind, e.Field, e.Value, e.Reason)
}
