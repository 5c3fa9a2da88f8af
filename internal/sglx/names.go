// Package sglx encodes the SpikeGLX and CatGT file naming conventions and
// inspects the files those tools leave behind.
package sglx

import (
	"path/filepath"
	"strconv"
)

// RunName returns the gate-decorated run name.
func RunName(name, gate string) string {
	return name + "_g" + gate
}

// ProbeFolder returns the per-probe folder name.
func ProbeFolder(name, gate, probe string) string {
	return RunName(name, gate) + "_imec" + probe
}

// RawProbeDir returns the acquisition folder of one probe.
func RawProbeDir(rawDir, name, gate, probe string) string {
	return filepath.Join(rawDir, RunName(name, gate), ProbeFolder(name, gate, probe))
}

// RawBinary returns the file name of one trigger's AP binary.
func RawBinary(name, gate, probe string, trigger int) string {
	return RunName(name, gate) + "_t" + strconv.Itoa(trigger) + ".imec" + probe + ".ap.bin"
}

// RawMeta returns the metadata file name paired with RawBinary.
func RawMeta(name, gate, probe string, trigger int) string {
	return RunName(name, gate) + "_t" + strconv.Itoa(trigger) + ".imec" + probe + ".ap.meta"
}

// CatGTRunDir returns the CatGT output folder of a run.
func CatGTRunDir(destDir, name, gate string) string {
	return filepath.Join(destDir, "catgt_"+RunName(name, gate))
}

// CatGTProbeDir returns the CatGT output folder of one probe (-out_prb_fld layout).
func CatGTProbeDir(destDir, name, gate, probe string) string {
	return filepath.Join(CatGTRunDir(destDir, name, gate), ProbeFolder(name, gate, probe))
}

// ConcatBinary returns the file name of the concatenated AP binary CatGT writes.
func ConcatBinary(name, gate, probe string) string {
	return RunName(name, gate) + "_tcat.imec" + probe + ".ap.bin"
}

// SorterOutputDir returns the sorter output folder inside a probe folder.
func SorterOutputDir(probeDir, probe string) string {
	return filepath.Join(probeDir, "imec"+probe+"_ks2")
}

// SyncExtract returns the CatGT sync-edge extraction argument for a probe.
func SyncExtract(probe, params string) string {
	return "-SY=" + probe + "," + params
}

// SessionID returns the per-probe session identifier used for record names.
func SessionID(name, probe string) string {
	return name + "_imec" + probe
}
