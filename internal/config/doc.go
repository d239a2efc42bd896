// Package config loads the service configuration.
//
// Sources, lowest priority first:
//
//  1. Defaults in code
//  2. A YAML file (MEMGRID_CONFIG, or config/config.yaml when present)
//  3. Environment variables
//
// The result is validated with go-playground/validator struct tags plus a few
// cross-field rules. Watcher reloads the file on change so that the log level can be
// adjusted without a restart.
package config
