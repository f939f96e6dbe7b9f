package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const documentSchemaJSON = `{
  "type": "object",
  "properties": {
    "id": {"type": "string"},
    "document_id": {"type": "string"},
    "document_type": {"type": ["string", "null"]},
    "status": {"enum": ["pending", "processing", "completed", "failed", "confirmed"]},
    "extracted_data": {"type": ["object", "null"]},
    "error_messages": {"type": ["array", "null"], "items": {"type": "string"}}
  },
  "required": ["status"],
  "anyOf": [
    {"required": ["id"]},
    {"required": ["document_id"]}
  ]
}`

const fieldSchemaJSON = `{
  "type": "object",
  "additionalProperties": {
    "type": "array",
    "items": {
      "type": "object",
      "required": ["title", "fields"],
      "properties": {
        "title": {"type": "string"},
        "fields": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["key", "label"],
            "properties": {
              "key": {"type": "string", "minLength": 1},
              "label": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

// payloadValidator checks response bodies the lifecycle depends on before they are decoded.
type payloadValidator struct {
	document    *jsonschema.Schema
	fieldSchema *jsonschema.Schema
}

func newPayloadValidator() (*payloadValidator, error) {
	document, err := compileSchema("document.json", documentSchemaJSON)
	if err != nil {
		return nil, err
	}
	fieldSchema, err := compileSchema("field_schema.json", fieldSchemaJSON)
	if err != nil {
		return nil, err
	}
	return &payloadValidator{document: document, fieldSchema: fieldSchema}, nil
}

func compileSchema(name, source string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

func (v *payloadValidator) Document(raw []byte) error {
	return validateAgainst(v.document, raw)
}

// Envelope validates the document nested under key, as in {"message": ..., "document": {...}}.
func (v *payloadValidator) Envelope(key string) func([]byte) error {
	return func(raw []byte) error {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return fmt.Errorf("unmarshal envelope: %w", err)
		}
		nested, ok := envelope[key]
		if !ok {
			return fmt.Errorf("response has no %q object", key)
		}
		return validateAgainst(v.document, nested)
	}
}

func (v *payloadValidator) FieldSchema(raw []byte) error {
	return validateAgainst(v.fieldSchema, raw)
}

func validateAgainst(schema *jsonschema.Schema, raw []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
