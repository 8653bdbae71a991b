// Package schemas embeds the JSON Schema documents shipped with the CLI.
package schemas

import _ "embed"

// ConfigSchemaJSON is the JSON Schema for .thinktwice.yaml files.
//
//go:embed config.schema.json
var ConfigSchemaJSON string
