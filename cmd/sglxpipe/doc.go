// Command sglxpipe drives the SpikeGLX preprocessing and sorting modules over
// a table of recording runs.
//
// Typical use:
//
//	sglxpipe config init
//	sglxpipe check
//	sglxpipe plan --runs runs.toml
//	sglxpipe run --runs runs.toml --resume
//	sglxpipe history --limit 20
//	sglxpipe logs catgt --follow
package main
