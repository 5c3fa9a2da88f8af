package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateCatGT(); err != nil {
		return err
	}
	if err := c.validateSorter(); err != nil {
		return err
	}
	if err := c.validateRegions(); err != nil {
		return err
	}
	if err := c.validateTPrime(); err != nil {
		return err
	}
	if err := c.validateRunLog(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	for key, value := range map[string]string{
		"paths.raw_dir":   c.Paths.RawDir,
		"paths.dest_dir":  c.Paths.DestDir,
		"paths.json_dir":  c.Paths.JSONDir,
		"paths.state_dir": c.Paths.StateDir,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

func (c *Config) validateTools() error {
	if strings.TrimSpace(c.Tools.Python) == "" {
		return errors.New("tools.python must be set")
	}
	if c.Tools.StageTimeoutSeconds < 0 {
		return errors.New("tools.stage_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateCatGT() error {
	switch c.CatGT.Mode {
	case CatGTPerProbe, CatGTPerRun:
	default:
		return fmt.Errorf("catgt.mode must be one of %s, %s (got %q)", CatGTPerProbe, CatGTPerRun, c.CatGT.Mode)
	}
	switch c.CatGT.CARMode {
	case "None", "gbldmx", "loccar":
	default:
		return fmt.Errorf("catgt.car_mode must be one of None, gbldmx, loccar (got %q)", c.CatGT.CARMode)
	}
	if c.CatGT.CARMode == "loccar" {
		if c.CatGT.LoccarMinUM <= 0 || c.CatGT.LoccarMaxUM <= 0 {
			return errors.New("catgt.loccar_min_um and catgt.loccar_max_um must be positive when car_mode is loccar")
		}
		if c.CatGT.LoccarMinUM >= c.CatGT.LoccarMaxUM {
			return errors.New("catgt.loccar_min_um must be less than catgt.loccar_max_um")
		}
	}
	if c.CatGT.NIPresent && strings.TrimSpace(c.CatGT.NIExtract) == "" {
		return errors.New("catgt.ni_extract must be set when catgt.ni_present is true")
	}
	return nil
}

func (c *Config) validateSorter() error {
	if err := ensurePositiveMap(map[string]int{
		"sorter.template_radius_um":  c.Sorter.TemplateRadiusUM,
		"sorter.whitening_radius_um": c.Sorter.WhiteningRadiusUM,
		"postprocess.c_waves_snr_um": c.Postprocess.CWavesSNRUM,
	}); err != nil {
		return err
	}
	if c.Sorter.MinFRGoodChannels < 0 {
		return errors.New("sorter.minfr_goodchannels must be >= 0")
	}
	return nil
}

func (c *Config) validateRegions() error {
	if _, ok := c.Regions.KSTh[RegionDefault]; !ok {
		return errors.New("regions.ks_th must define a default entry")
	}
	if _, ok := c.Regions.RefPerMS[RegionDefault]; !ok {
		return errors.New("regions.ref_per_ms must define a default entry")
	}
	for region, value := range c.Regions.KSTh {
		if value == "" {
			return fmt.Errorf("regions.ks_th.%s must not be empty", region)
		}
		if _, ok := c.Regions.RefPerMS[region]; !ok {
			return fmt.Errorf("region %q has a ks_th entry but no ref_per_ms entry", region)
		}
	}
	for region, value := range c.Regions.RefPerMS {
		if value <= 0 {
			return fmt.Errorf("regions.ref_per_ms.%s must be positive", region)
		}
		if _, ok := c.Regions.KSTh[region]; !ok {
			return fmt.Errorf("region %q has a ref_per_ms entry but no ks_th entry", region)
		}
	}
	return nil
}

func (c *Config) validateTPrime() error {
	if !c.TPrime.Enabled {
		return nil
	}
	if c.TPrime.SyncPeriod <= 0 {
		return errors.New("tprime.sync_period must be positive")
	}
	if c.TPrime.ToStreamSync == "" {
		return errors.New("tprime.to_stream_sync must be set when tprime.enabled is true")
	}
	if strings.ContainsAny(c.TPrime.ToStreamSync+c.TPrime.NIStreamSync, " \t") {
		return errors.New("tprime sync params must not contain spaces")
	}
	return nil
}

func (c *Config) validateRunLog() error {
	switch c.RunLog.Mode {
	case RunLogAppend, RunLogReplace:
	default:
		return fmt.Errorf("run_log.mode must be %q or %q (got %q)", RunLogAppend, RunLogReplace, c.RunLog.Mode)
	}
	if filepath.Base(c.RunLog.Name) != c.RunLog.Name {
		return errors.New("run_log.name must be a file name, not a path")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
