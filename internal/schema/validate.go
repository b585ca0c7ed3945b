package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Compile compiles a JSON schema document registered under id.
func Compile(id string, schema []byte) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("schema is empty")
	}
	resourceID := schemaID(id)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceID, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceID)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// Validate checks value against a compiled schema. value is normalized through JSON first so
// Go ints and structs validate the same as decoded payloads.
func Validate(s *jsonschema.Schema, value any) error {
	payload, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("normalize payload: %w", err)
	}
	if err := s.Validate(payload); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

var (
	routingOnce sync.Once
	routing     *jsonschema.Schema
	routingErr  error
)

// ValidateRoutingRequest checks the fields the embedded solver reads.
func ValidateRoutingRequest(value any) error {
	routingOnce.Do(func() {
		routing, routingErr = Compile("routing-request", []byte(routingRequestSchema))
	})
	if routingErr != nil {
		return routingErr
	}
	return Validate(routing, value)
}

func normalizeValue(value any) (any, error) {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		data = b
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func schemaID(id string) string {
	if id == "" {
		id = "schema"
	}
	return "inmemory://" + id
}

const routingRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["vehicles", "jobs"],
  "definitions": {
    "location": {
      "oneOf": [
        {"type": "array", "items": {"type": "number"}, "minItems": 2},
        {"type": "object", "required": ["lat", "lng"],
         "properties": {"lat": {"type": "number"}, "lng": {"type": "number"}}}
      ]
    },
    "amount": {
      "oneOf": [
        {"type": "integer"},
        {"type": "array", "items": {"type": "integer"}}
      ]
    }
  },
  "properties": {
    "vehicles": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "start"],
        "properties": {
          "id": {"type": "integer"},
          "start": {"$ref": "#/definitions/location"},
          "end": {"$ref": "#/definitions/location"},
          "capacity": {"$ref": "#/definitions/amount"},
          "skills": {"type": "array", "items": {"type": "integer"}}
        }
      }
    },
    "jobs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "location"],
        "properties": {
          "id": {"type": "integer"},
          "location": {"$ref": "#/definitions/location"},
          "service": {"type": "integer", "minimum": 0},
          "delivery": {"$ref": "#/definitions/amount"},
          "pickup": {"$ref": "#/definitions/amount"},
          "skills": {"type": "array", "items": {"type": "integer"}},
          "priority": {"type": "integer"}
        }
      }
    },
    "matrix": {"type": "array", "items": {"type": "array", "items": {"type": "number"}}},
    "options": {"type": "object"}
  }
}`
