// Package preflight provides readiness checks for the directories and
// external programs sglxpipe depends on.
//
// The `check` command prints every result. `run` calls RunAll before starting
// a batch and refuses to continue while any check fails.
package preflight
