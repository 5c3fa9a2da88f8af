package runspec

import (
	"fmt"
	"strconv"
	"strings"

	"sglxpipe/internal/config"
	"sglxpipe/internal/services"
)

// Run describes one acquisition run exactly as authored in the run table.
type Run struct {
	Name     string   `toml:"name" yaml:"name"`
	Gate     string   `toml:"gate" yaml:"gate"`
	Triggers string   `toml:"triggers" yaml:"triggers"`
	Probes   string   `toml:"probes" yaml:"probes"`
	Regions  []string `toml:"regions" yaml:"regions"`
}

// Table is the ordered list of runs processed by one invocation.
type Table struct {
	Runs []Run `toml:"run" yaml:"runs"`
}

// RegionSet reports whether a region tag has parameter entries.
type RegionSet interface {
	KnownRegion(region string) bool
}

// RunName returns the gate-decorated run name, e.g. SC011_022319_g0.
func (r Run) RunName() string {
	return strings.TrimSpace(r.Name) + "_g" + strings.TrimSpace(r.Gate)
}

// ProbeList parses the probe string.
func (r Run) ProbeList() ([]string, error) {
	return ParseProbes(r.Probes)
}

// ProbeRegions returns the folded region tag for each probe. An empty region
// list assigns the default region to every probe.
func (r Run) ProbeRegions(probes []string) ([]string, error) {
	if len(r.Regions) == 0 {
		regions := make([]string, len(probes))
		for i := range regions {
			regions[i] = config.RegionDefault
		}
		return regions, nil
	}
	if len(r.Regions) != len(probes) {
		return nil, fmt.Errorf("run %s: %d regions for %d probes", r.Name, len(r.Regions), len(probes))
	}
	regions := make([]string, len(r.Regions))
	for i, region := range r.Regions {
		regions[i] = config.FoldRegion(region)
	}
	return regions, nil
}

// Validate checks a single run descriptor.
func (r Run) Validate(known RegionSet) error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return services.Wrap(services.ErrValidation, "runspec", "validate", "run name is required", nil)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsAny(name, " \t") {
		return services.Wrap(services.ErrValidation, "runspec", "validate",
			fmt.Sprintf("run %q: name must not contain path separators or whitespace", name), nil)
	}
	gate, err := strconv.Atoi(strings.TrimSpace(r.Gate))
	if err != nil || gate < 0 {
		return services.Wrap(services.ErrValidation, "runspec", "validate",
			fmt.Sprintf("run %s: gate %q must be a non-negative integer", name, r.Gate), nil)
	}
	if _, err := ParseTriggers(r.Triggers); err != nil {
		return services.Wrap(services.ErrValidation, "runspec", "validate",
			fmt.Sprintf("run %s", name), err)
	}
	probes, err := ParseProbes(r.Probes)
	if err != nil {
		return services.Wrap(services.ErrValidation, "runspec", "validate",
			fmt.Sprintf("run %s", name), err)
	}
	regions, err := r.ProbeRegions(probes)
	if err != nil {
		return services.Wrap(services.ErrValidation, "runspec", "validate", "region count mismatch", err)
	}
	if known != nil {
		for i, region := range regions {
			if !known.KnownRegion(region) {
				return services.Wrap(services.ErrValidation, "runspec", "validate",
					fmt.Sprintf("run %s: probe %s region %q has no parameter entry", name, probes[i], region), nil)
			}
		}
	}
	return nil
}

// Validate checks every run and rejects duplicate run names within a gate.
func (t Table) Validate(known RegionSet) error {
	if len(t.Runs) == 0 {
		return services.Wrap(services.ErrValidation, "runspec", "validate", "run table is empty", nil)
	}
	seen := make(map[string]struct{}, len(t.Runs))
	for _, run := range t.Runs {
		if err := run.Validate(known); err != nil {
			return err
		}
		key := run.RunName()
		if _, ok := seen[key]; ok {
			return services.Wrap(services.ErrValidation, "runspec", "validate",
				fmt.Sprintf("run %s listed twice", key), nil)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Filter returns the runs listed either by undecorated name or as
// <name>_g<gate>. An empty list keeps every run.
func (t Table) Filter(names []string) (Table, error) {
	if len(names) == 0 {
		return t, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[strings.TrimSpace(name)] = false
	}
	var out Table
	for _, run := range t.Runs {
		matched := false
		for _, key := range []string{strings.TrimSpace(run.Name), run.RunName()} {
			if _, ok := wanted[key]; ok {
				wanted[key] = true
				matched = true
			}
		}
		if matched {
			out.Runs = append(out.Runs, run)
		}
	}
	for name, matched := range wanted {
		if !matched {
			return Table{}, services.Wrap(services.ErrNotFound, "runspec", "filter",
				fmt.Sprintf("run %q is not in the run table", name), nil)
		}
	}
	return out, nil
}
