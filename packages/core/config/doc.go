// Package config handles configuration loading and management for shopspec.
//
// It provides functionality for:
//   - Loading configuration from .shopspec.json or .shopspec.yaml files
//   - Default configuration values
//   - Named environments whose variables feed suite references
package config
