// Package config provides the embedded default configuration for livedesk.
package config

import (
	_ "embed"
)

// DefaultConfigYAML is the embedded default configuration. Every key has a
// value here, so a user file only needs the keys it overrides. It is also
// what `livedesk config create` writes.
//
//go:embed livedesk.default.yaml
var DefaultConfigYAML []byte
