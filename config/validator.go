package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/namestream/errors"
)

// configSchema is the draft-07 schema the raw config file is checked
// against before unmarshaling. Structural faults (wrong types, unknown
// sections) are reported with field paths instead of a bare decode error.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "server": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "port": {"type": "integer"},
        "read_timeout": {"type": ["string", "number"]},
        "write_timeout": {"type": ["string", "number"]},
        "shutdown_timeout": {"type": ["string", "number"]}
      }
    },
    "gateway": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "max_request_size": {"type": "integer"},
        "enable_cors": {"type": "boolean"},
        "cors_origins": {"type": "array", "items": {"type": "string"}},
        "rate_limit": {"type": "number"},
        "rate_burst": {"type": "integer"}
      }
    },
    "spill": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "dir": {"type": "string"},
        "memory_threshold": {"type": "integer"}
      }
    },
    "metrics": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "port": {"type": "integer"},
        "path": {"type": "string"}
      }
    }
  }
}`

// validateSchema checks the raw config document against configSchema
func validateSchema(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapInvalid(err, "Loader", "validateSchema", "parse config document")
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(details, "; ")),
			"Loader", "validateSchema", "validate config document")
	}

	return nil
}
