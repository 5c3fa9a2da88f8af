package logging

import "strings"

// FormatSubject builds the run/probe/stage subject string used in console output.
func FormatSubject(run, probe, stage string) string {
	run = strings.TrimSpace(run)
	probe = strings.TrimSpace(probe)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 2)
	switch {
	case run != "" && probe != "":
		parts = append(parts, run+" imec"+probe)
	case run != "":
		parts = append(parts, run)
	case probe != "":
		parts = append(parts, "imec"+probe)
	}
	if stage != "" {
		parts = append(parts, "("+stage+")")
	}
	return strings.Join(parts, " ")
}
