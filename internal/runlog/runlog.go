// Package runlog maintains the CSV summary log under the destination
// directory: one row per processed probe session.
package runlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"sglxpipe/internal/config"
	"sglxpipe/internal/params"
)

// Stage columns that always appear in the header, in order. Modules outside
// this list are reported in the extra_modules column.
var timedColumns = []string{
	"catGT_helper",
	"kilosort_helper",
	"kilosort_postprocessing",
	"noise_templates",
	"psth_events",
	"mean_waveforms",
	"quality_metrics",
}

// Header returns the column names of the run log.
func Header() []string {
	header := []string{
		"timestamp", "pipeline_id", "session", "run", "gate", "triggers",
		"probe", "region", "gfix_edits_per_sec", "modules",
	}
	for _, column := range timedColumns {
		header = append(header, column+"_sec")
	}
	return append(header, "extra_modules", "total_sec")
}

// ModuleOutput pairs a stage with the output record that reports its execution time.
type ModuleOutput struct {
	Name string
	Path string
}

// Entry is one completed probe session.
type Entry struct {
	Timestamp  time.Time
	PipelineID string
	Session    string
	Run        string
	Gate       string
	Triggers   string
	Probe      string
	Region     string
	GfixEdits  float64
	Modules    []string
	Outputs    []ModuleOutput
}

// Prepare readies the log at path. Replace mode removes an existing log;
// a header is written whenever the file does not exist yet.
func Prepare(path, mode string) error {
	if mode == config.RunLogReplace {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove run log: %w", err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat run log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create run log directory: %w", err)
	}
	return writeRows(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, Header())
}

// Append writes entry as one row, reading each stage's execution time from its
// output record. Missing or unreadable records leave the cell blank.
func Append(path string, entry Entry) error {
	return writeRows(path, os.O_APPEND|os.O_WRONLY, Row(entry))
}

// Row renders entry in header order.
func Row(entry Entry) []string {
	times := make(map[string]float64, len(entry.Outputs))
	total := 0.0
	var extras []string
	for _, output := range entry.Outputs {
		secs, ok := executionTime(output.Path)
		if !ok {
			continue
		}
		times[output.Name] = secs
		total += secs
		if !isTimedColumn(output.Name) {
			extras = append(extras, output.Name+"="+formatFloat(secs))
		}
	}
	sort.Strings(extras)

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	row := []string{
		ts.UTC().Format(time.RFC3339),
		entry.PipelineID,
		entry.Session,
		entry.Run,
		entry.Gate,
		entry.Triggers,
		entry.Probe,
		entry.Region,
		formatFloat(entry.GfixEdits),
		strings.Join(entry.Modules, " "),
	}
	for _, column := range timedColumns {
		if secs, ok := times[column]; ok {
			row = append(row, formatFloat(secs))
		} else {
			row = append(row, "")
		}
	}
	return append(row, strings.Join(extras, ";"), formatFloat(total))
}

func writeRows(path string, flags int, rows ...[]string) error {
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		_ = file.Close()
		return fmt.Errorf("write run log: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close run log: %w", err)
	}
	return nil
}

func executionTime(path string) (float64, bool) {
	if strings.TrimSpace(path) == "" {
		return 0, false
	}
	out, err := params.ReadOutput(path)
	if err != nil || out.ExecutionTime == nil {
		return 0, false
	}
	return *out.ExecutionTime, true
}

func isTimedColumn(name string) bool {
	for _, column := range timedColumns {
		if column == name {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Read returns every row of the log including the header.
func Read(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}
