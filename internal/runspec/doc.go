// Package runspec parses the run table: which runs, gates, triggers and
// probes to process, and which brain region each probe sits in.
package runspec
