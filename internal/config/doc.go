// Package config loads, normalizes, and validates Cadence configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the CADENCE_CONFIG environment
// fallback. The Config type centralizes every knob the daemon and CLI need:
// data/log directories, extractor and classifier selection, and the worker's
// polling and backoff intervals.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical extractor/strategy names, and clear validation
// errors.
package config
