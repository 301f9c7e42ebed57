// Package config loads server settings from defaults, an optional
// config.yaml, a .env file and the process environment, in increasing
// order of precedence, and validates the result.
package config
