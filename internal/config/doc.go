// Package config loads, normalizes, and validates cuebridge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the CUEBRIDGE_API_TOKEN
// environment fallback. The Config type centralizes the knobs the relay
// daemon, the player session wiring, and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
