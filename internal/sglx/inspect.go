package sglx

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"sglxpipe/internal/services"
)

// Tool log file names written into the working directory by the external tools.
const (
	CatGTLog  = "CatGT.log"
	TPrimeLog = "Tprime.log"
	CWavesLog = "C_Waves.log"
)

// TriggerBounds scans a probe folder for <run>_t<N>.imec<probe>.ap.bin files
// and returns the lowest and highest N.
func TriggerBounds(dir, name, gate, probe string) (int, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrNotFound, "sglx", "trigger scan",
			fmt.Sprintf("read probe folder %s", dir), err)
	}
	prefix := RunName(name, gate) + "_t"
	suffix := ".imec" + probe + ".ap.bin"
	first, last := -1, -1
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		if !strings.HasPrefix(fileName, prefix) || !strings.HasSuffix(fileName, suffix) {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(fileName, prefix), suffix))
		if err != nil || index < 0 {
			continue
		}
		if first < 0 || index < first {
			first = index
		}
		if index > last {
			last = index
		}
	}
	if first < 0 {
		return 0, 0, services.Wrap(services.ErrNotFound, "sglx", "trigger scan",
			fmt.Sprintf("no %s*%s files in %s", prefix, suffix, dir), nil)
	}
	return first, last, nil
}

var gfixPattern = regexp.MustCompile(`^(\S+)\s+Gfix\s+prb\s+(\d+)\s+edits/sec\s+([-+0-9.eE]+)`)

// ParseGfixEdits reads the gfix edit rate of each probe of a run from a CatGT
// log. Probes without an entry report zero; the last entry wins.
func ParseGfixEdits(logPath, runName string, probes []string) (map[string]float64, error) {
	edits := make(map[string]float64, len(probes))
	wanted := make(map[string]struct{}, len(probes))
	for _, probe := range probes {
		edits[probe] = 0
		wanted[probe] = struct{}{}
	}

	file, err := os.Open(logPath)
	if err != nil {
		return edits, fmt.Errorf("open catgt log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, runName+" Gfix")
		if idx < 0 || (idx > 0 && line[idx-1] != ' ' && line[idx-1] != ']') {
			continue
		}
		match := gfixPattern.FindStringSubmatch(line[idx:])
		if match == nil || match[1] != runName {
			continue
		}
		if _, ok := wanted[match[2]]; !ok {
			continue
		}
		value, err := strconv.ParseFloat(match[3], 64)
		if err != nil {
			continue
		}
		edits[match[2]] = value
	}
	if err := scanner.Err(); err != nil {
		return edits, fmt.Errorf("scan catgt log: %w", err)
	}
	return edits, nil
}

// ToolLogs lists the tool logs removed before a batch starts.
func ToolLogs(workDir string, catgt, tprime bool) []string {
	var logs []string
	if catgt {
		logs = append(logs, filepath.Join(workDir, CatGTLog))
	}
	if tprime {
		logs = append(logs, filepath.Join(workDir, TPrimeLog))
	}
	return append(logs, filepath.Join(workDir, CWavesLog))
}
