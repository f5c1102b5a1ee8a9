package tool

import (
	"github.com/invopop/jsonschema"
)

// Param describes a single schema property in declaration order.
type Param struct {
	Name   string
	Schema *jsonschema.Schema
}

// ObjectSchema builds an object schema with ordered properties.
func ObjectSchema(params []Param, required ...string) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	for _, p := range params {
		props.Set(p.Name, p.Schema)
	}
	s := &jsonschema.Schema{
		Type:       "object",
		Properties: props,
	}
	if len(required) > 0 {
		s.Required = required
	}
	return s
}

// Closed marks an object schema as rejecting unknown properties.
func Closed(s *jsonschema.Schema) *jsonschema.Schema {
	s.AdditionalProperties = jsonschema.FalseSchema
	return s
}

func StringParam(name, description string) Param {
	return Param{Name: name, Schema: &jsonschema.Schema{Type: "string", Description: description}}
}

func BoolParam(name, description string) Param {
	return Param{Name: name, Schema: &jsonschema.Schema{Type: "boolean", Description: description}}
}

func ArrayParam(name, description string, items *jsonschema.Schema) Param {
	return Param{Name: name, Schema: &jsonschema.Schema{Type: "array", Description: description, Items: items}}
}

func ObjectParam(name string, schema *jsonschema.Schema) Param {
	return Param{Name: name, Schema: schema}
}
