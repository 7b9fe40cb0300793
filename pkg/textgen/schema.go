package textgen

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// Schema describes the structured output requested from GenerateJSON.
type Schema struct {
	Name        string
	Description string
	JSON        *jsonschema.Schema

	resolved *jsonschema.Resolved
}

type SchemaOption interface {
	applyToSchema(*schemaOptions)
}

type schemaOptions struct {
	typeSchemas map[reflect.Type]*jsonschema.Schema
}

// WithTypeSchema overrides the schema inferred for Go type T, e.g. to
// restrict a string enum to its valid labels.
func WithTypeSchema[T any](s *jsonschema.Schema) SchemaOption {
	return &typeSchemaOption{t: reflect.TypeFor[T](), s: s}
}

type typeSchemaOption struct {
	t reflect.Type
	s *jsonschema.Schema
}

func (o *typeSchemaOption) applyToSchema(opts *schemaOptions) {
	opts.typeSchemas[o.t] = o.s
}

func NewSchema[T any](name, description string, opts ...SchemaOption) (*Schema, error) {
	o := &schemaOptions{typeSchemas: make(map[reflect.Type]*jsonschema.Schema)}
	for _, opt := range opts {
		opt.applyToSchema(o)
	}
	js, err := jsonschema.For[T](&jsonschema.ForOptions{
		TypeSchemas: o.typeSchemas,
	})
	if err != nil {
		return nil, fmt.Errorf("textgen: infer schema %s: %w", name, err)
	}
	if js.Description == "" {
		js.Description = description
	}
	resolved, err := js.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("textgen: resolve schema %s: %w", name, err)
	}
	return &Schema{
		Name:        name,
		Description: description,
		JSON:        js,
		resolved:    resolved,
	}, nil
}

func MustNewSchema[T any](name, description string, opts ...SchemaOption) *Schema {
	s, err := NewSchema[T](name, description, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks raw JSON against the schema. Malformed JSON is repaired
// first; the returned bytes are what was validated.
func (s *Schema) Validate(raw []byte) ([]byte, error) {
	var instance any
	fixed, err := unmarshalJSON(raw, &instance)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaViolation, s.Name, err)
	}
	if s.resolved != nil {
		if err := s.resolved.Validate(instance); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSchemaViolation, s.Name, err)
		}
	}
	return fixed, nil
}

// Decode validates raw against s and unmarshals it into T.
func Decode[T any](s *Schema, raw []byte) (T, error) {
	var v T
	fixed, err := s.Validate(raw)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(fixed, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrSchemaViolation, s.Name, err)
	}
	return v, nil
}

// unmarshalJSON unmarshals data into v, repairing it with jsonrepair when
// the first attempt fails with a syntax error. It returns the bytes that
// were finally decoded.
func unmarshalJSON(data []byte, v any) ([]byte, error) {
	err := json.Unmarshal(data, v)
	if err == nil {
		return data, nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, err := jsonrepair.JSONRepair(string(data))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fixed), v); err != nil {
			return nil, err
		}
		return []byte(fixed), nil
	}
	return nil, err
}
