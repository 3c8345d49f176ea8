package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	apperrors "studentservices-api/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema used to check API payloads before they
// are bound to Go structs.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile parses a JSON schema document.
func Compile(name, schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: s}, nil
}

// MustCompile is Compile for package-level schema vars.
func MustCompile(name, schemaJSON string) *Schema {
	s, err := Compile(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string { return s.name }

// ValidateBytes validates a raw JSON body. A nil return means the body is valid.
func (s *Schema) ValidateBytes(body []byte) *apperrors.StandardError {
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	return s.run(gojsonschema.NewBytesLoader(body))
}

// Validate validates an already decoded document (map, slice or struct).
func (s *Schema) Validate(doc interface{}) *apperrors.StandardError {
	return s.run(gojsonschema.NewGoLoader(doc))
}

func (s *Schema) run(loader gojsonschema.JSONLoader) *apperrors.StandardError {
	result, err := s.schema.Validate(loader)
	if err != nil {
		return apperrors.NewFieldError("body", "malformed JSON: "+err.Error())
	}
	if result.Valid() {
		return nil
	}

	fields := make([]apperrors.FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		fields = append(fields, apperrors.FieldError{
			Field:   fieldName(desc),
			Message: desc.Description(),
		})
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return apperrors.NewValidationError(fields)
}

// fieldName reports the offending property. gojsonschema attributes
// "required" failures to the parent object, so the property name is pulled
// from the error details instead.
func fieldName(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() == "required" {
		if p, ok := desc.Details()["property"].(string); ok {
			if field == "(root)" {
				return p
			}
			return field + "." + p
		}
	}
	return field
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{7,}$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone validates basic phone number format
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
