// Package config loads, normalizes, and validates sglxpipe configuration data.
//
// It supplies the defaults used by the recording rigs, expands user paths
// (including tilde shortcuts), reads TOML files, and honours the
// SGLXPIPE_CONFIG environment fallback. The Config type centralizes every
// constant the orchestrator needs: directory layout, CatGT command strings,
// sorter constants, region-specific thresholds, TPrime sync parameters, and
// the run log location.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical CAR modes, and clear validation errors.
package config
