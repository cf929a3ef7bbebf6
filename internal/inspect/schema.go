package inspect

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaResource = "schema.json"

// ErrInvalidSchema indicates a schema document that does not compile.
var ErrInvalidSchema = errors.New("invalid schema")

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}

	return strings.Join(messages, "; ")
}

// Schema is a compiled JSON Schema.
type Schema struct {
	schema *jsonschema.Schema
}

// CompileSchema compiles a JSON Schema document.
func CompileSchema(document []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource(schemaResource, bytes.NewReader(document)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	schema, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	return &Schema{schema: schema}, nil
}

// Validate checks content against the schema. A body that is not JSON is
// reported as ErrNotJSON; schema violations as ValidationErrors, one entry per
// failing location.
func (s *Schema) Validate(content []byte) error {
	var document any
	if err := json.Unmarshal(content, &document); err != nil {
		return fmt.Errorf("%w: %w", ErrNotJSON, err)
	}

	err := s.schema.Validate(document)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		return flatten(validationErr)
	}

	return ValidationErrors{err}
}

// flatten collects the leaf causes of a validation error.
func flatten(err *jsonschema.ValidationError) ValidationErrors {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}

		return ValidationErrors{fmt.Errorf("validation error at %s: %s", location, err.Message)}
	}

	var errs ValidationErrors
	for _, cause := range err.Causes {
		errs = append(errs, flatten(cause)...)
	}

	return errs
}
