// Package openapi embeds the HTTP API description.
package openapi

import _ "embed"

// Spec is the OpenAPI 3 document in YAML
//
//go:embed openapi.yaml
var Spec []byte
