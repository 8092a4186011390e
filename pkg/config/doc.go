// Package config loads application configuration from RANKFORGE_* environment
// variables with sensible defaults for local development.
package config
