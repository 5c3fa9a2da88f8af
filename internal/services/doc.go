// Package services defines shared utilities consumed by the pipeline stages
// and the external tool runners.
//
// Key responsibilities:
//   - Context helpers that stamp pipeline IDs, run names, probe indices, and
//     stage names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (external tool, validation, configuration, timeout) for the ledger and
//     the CLI.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
