// Package pipeline sequences the external processing stages for a run table.
//
// For every run it derives the plan, then for each probe it writes the CatGT
// record and runs catGT_helper, reads the gfix edit rate from CatGT.log,
// writes the module record (copied into the probe data folder), runs the
// configured modules in order and appends a run log row. TPrime runs once per
// run after all probes. Stages run one at a time; the first failure stops the
// batch. A flock on the state directory keeps a second invocation out.
package pipeline
