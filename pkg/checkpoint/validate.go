package checkpoint

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// documentSchema is the JSON Schema every handoff document must satisfy on
// read. It is deliberately loose about context internals: the read path's
// contract is "absent on any failure", so the schema only pins down the
// fields the store and cleanup actually dereference.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "version", "created", "updated", "ttl", "project"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "version": {"type": "integer", "minimum": 1},
    "created": {"type": "string"},
    "updated": {"type": "string"},
    "ttl": {"type": "string"},
    "project": {
      "type": "object",
      "required": ["root", "hash"],
      "properties": {
        "root": {"type": "string"},
        "hash": {"type": "string"},
        "branch": {"type": "string"}
      }
    },
    "context": {
      "type": "object",
      "properties": {
        "state": {
          "type": "string",
          "enum": ["in_progress", "blocked", "ready_for_review", "completed"]
        },
        "files": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["path"],
            "properties": {
              "path": {"type": "string"},
              "role": {"type": "string"}
            }
          }
        }
      }
    },
    "todos": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["content", "status"],
        "properties": {
          "content": {"type": "string"},
          "status": {"type": "string", "enum": ["pending", "in_progress", "completed"]}
        }
      }
    }
  }
}`

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(documentSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling document schema: %w", err)
	}
	return schema, nil
})

// Validate checks raw document bytes against the document schema and the
// supported schema version. A nil return means the document is safe to use.
func Validate(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	result := schema.ValidateJSON(data)
	if !result.IsValid() {
		return fmt.Errorf("schema validation failed: %v", result.Errors)
	}

	var versioned struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &versioned); err != nil {
		return fmt.Errorf("reading document version: %w", err)
	}
	if versioned.Version > SchemaVersion {
		return fmt.Errorf("unsupported document version %d (max %d)", versioned.Version, SchemaVersion)
	}

	return nil
}

// Encode marshals a document for persistence. Indented output keeps the
// files greppable when debugging a wedged session by hand.
func Encode(cp *Checkpoint) ([]byte, error) {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return data, nil
}

// Decode validates and unmarshals raw document bytes. Callers implementing
// "absent on failure" semantics discard the error and keep the nil document.
func Decode(data []byte) (*Checkpoint, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	cp := &Checkpoint{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	return cp, nil
}
