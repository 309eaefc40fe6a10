package validation

import (
	"bytes"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/regraph/pkg/schema"
)

// snapshotSchemaJSON is the JSON Schema for inbound graph snapshots.
// Embedded as a constant to avoid filesystem dependencies.
const snapshotSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://regraph.dev/schemas/snapshot.json",
  "type": "object",
  "required": ["nodes", "edges"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "edges": {
      "type": "array",
      "items": { "$ref": "#/$defs/edge" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "node": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "position": {
          "type": "object",
          "properties": {
            "x": { "type": "number" },
            "y": { "type": "number" }
          },
          "additionalProperties": false
        },
        "data": {
          "type": "object",
          "properties": {
            "variant": {
              "type": "string",
              "enum": ["default", "branch", "end", "jump"]
            },
            "label": { "type": "string" },
            "branches": {
              "type": "array",
              "items": { "$ref": "#/$defs/branchSlot" }
            },
            "targetNodeId": { "type": "string" }
          },
          "additionalProperties": false
        }
      },
      "additionalProperties": false
    },
    "branchSlot": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "label": { "type": "string" },
        "condition": { "type": "string" }
      },
      "additionalProperties": false
    },
    "edge": {
      "type": "object",
      "required": ["id", "source", "target"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "source": { "type": "string", "minLength": 1 },
        "target": { "type": "string", "minLength": 1 },
        "sourceHandle": { "type": "string" },
        "targetHandle": { "type": "string" },
        "animated": { "type": "boolean" },
        "style": { "type": "object" },
        "label": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// SnapshotValidator validates raw snapshot JSON against the embedded
// schema. Safe for concurrent use once constructed.
type SnapshotValidator struct {
	snapshotSchema *jsonschema.Schema
}

// NewSnapshotValidator compiles the embedded snapshot schema.
func NewSnapshotValidator() (*SnapshotValidator, error) {
	c := jsonschema.NewCompiler()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(snapshotSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot schema: %w", err)
	}
	if err := c.AddResource("https://regraph.dev/schemas/snapshot.json", doc); err != nil {
		return nil, fmt.Errorf("add snapshot schema resource: %w", err)
	}

	compiled, err := c.Compile("https://regraph.dev/schemas/snapshot.json")
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}

	return &SnapshotValidator{snapshotSchema: compiled}, nil
}

// ValidateJSON checks raw snapshot bytes against the schema, returning a
// GraphError describing the first violation.
func (v *SnapshotValidator) ValidateJSON(data []byte) error {
	if len(data) == 0 {
		return schema.NewError(schema.ErrCodeValidation, "snapshot payload is empty")
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "snapshot payload is not valid JSON").WithCause(err)
	}

	if err := v.snapshotSchema.Validate(doc); err != nil {
		return schema.NewError(schema.ErrCodeValidation,
			fmt.Sprintf("snapshot does not match the expected shape: %v", err)).WithCause(err)
	}
	return nil
}
