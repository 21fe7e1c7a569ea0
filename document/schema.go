package document

import (
	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the structural contract for pipeline documents,
// checked before any unmarshaling. It pins shapes and types only; domain
// rules (known kinds, value ranges) are checked afterwards so their
// violations come back with domain wording. Top-level objects tolerate
// extra fields to stay forward-compatible within a major version.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "NeuroBlock pipeline document",
  "type": "object",
  "required": ["version", "name", "exported_at", "stages", "dataset", "preprocess", "feature", "split", "model"],
  "properties": {
    "version": {"type": "string", "pattern": "^[0-9]+\\.[0-9]+\\.[0-9]+$"},
    "name": {"type": "string", "minLength": 1},
    "exported_at": {"type": "string"},
    "stages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["kind", "position"],
        "properties": {
          "kind": {"type": "string"},
          "position": {
            "type": "object",
            "required": ["x", "y"],
            "properties": {
              "x": {"type": "integer"},
              "y": {"type": "integer"}
            }
          }
        }
      }
    },
    "dataset": {
      "oneOf": [
        {"type": "null"},
        {
          "type": "object",
          "required": ["file_name", "rows", "columns"],
          "properties": {
            "file_name": {"type": "string"},
            "rows": {"type": "integer"},
            "columns": {"type": "array", "items": {"type": "string"}},
            "column_types": {"type": "object", "additionalProperties": {"type": "string"}}
          }
        }
      ]
    },
    "preprocess": {
      "type": "object",
      "required": ["standardization", "normalization"],
      "properties": {
        "standardization": {"type": "boolean"},
        "normalization": {"type": "boolean"}
      }
    },
    "feature": {
      "type": "object",
      "required": ["handle_missing", "missing_strategy", "encode_categories", "encoding_method", "create_features"],
      "properties": {
        "handle_missing": {"type": "boolean"},
        "missing_strategy": {"type": "string"},
        "encode_categories": {"type": "boolean"},
        "encoding_method": {"type": "string"},
        "create_features": {"type": "boolean"},
        "feature_types": {"type": "array", "items": {"type": "string"}}
      }
    },
    "split": {
      "type": "object",
      "required": ["train_percent"],
      "properties": {
        "train_percent": {"type": "integer"}
      }
    },
    "model": {
      "type": "object",
      "required": ["type", "hyperparameters", "cross_validation", "grid_search"],
      "properties": {
        "type": {"type": "string"},
        "hyperparameters": {"type": ["object", "null"]},
        "cross_validation": {
          "type": "object",
          "required": ["enabled", "folds", "stratified", "shuffle"],
          "properties": {
            "enabled": {"type": "boolean"},
            "folds": {"type": "integer"},
            "stratified": {"type": "boolean"},
            "shuffle": {"type": "boolean"}
          }
        },
        "grid_search": {
          "type": "object",
          "required": ["enabled", "search_complete", "best_score"],
          "properties": {
            "enabled": {"type": "boolean"},
            "search_complete": {"type": "boolean"},
            "best_params": {"type": "object", "additionalProperties": {"type": "number"}},
            "best_score": {"type": "number"}
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// Schema returns the pipeline document JSON Schema. Tooling exports it
// so the frontend can validate documents before offering an import.
func Schema() string {
	return documentSchema
}

// validateShape checks raw bytes against the embedded schema and reports
// the first violation field-first, the way the rest of the import pipeline
// does.
func validateShape(raw []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return reject("Parse", "not valid JSON: %v", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return reject("Parse", "%s: %s", first.Field(), first.Description())
	}
	return nil
}
