package workload

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidWorkload is returned when a document does not match the workload schema.
var ErrInvalidWorkload = errors.New("invalid workload")

//go:embed schema.json
var schemaJSON []byte

// Problem is a single schema violation.
type Problem struct {
	Field       string
	Description string
}

// ValidationError lists every schema violation of a document.
type ValidationError struct {
	Problems []Problem
}

// Error implements error.
func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Problems))
	for _, problem := range ve.Problems {
		parts = append(parts, problem.Field+": "+problem.Description)
	}

	return fmt.Sprintf("%s: %s", ErrInvalidWorkload, strings.Join(parts, "; "))
}

// Unwrap makes ValidationError match ErrInvalidWorkload.
func (ve *ValidationError) Unwrap() error {
	return ErrInvalidWorkload
}

// Schema returns the embedded JSON schema.
func Schema() []byte {
	return schemaJSON
}

// Validate checks a decoded YAML or JSON document against the workload schema.
// Violations are reported as a *ValidationError.
func Validate(doc any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate workload: %w", err)
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{}

	for _, resultErr := range result.Errors() {
		validationErr.Problems = append(validationErr.Problems, Problem{
			Field:       resultErr.Field(),
			Description: resultErr.Description(),
		})
	}

	return validationErr
}
