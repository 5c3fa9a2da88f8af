package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldRegion canonicalizes a brain region tag so table lookups ignore case
// and surrounding whitespace. A Caser keeps state, so each call builds its own.
func FoldRegion(region string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(region))
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeCatGT()
	c.normalizePostprocess()
	c.normalizeRegions()
	c.normalizeTPrime()
	c.normalizeRunLog()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.RawDir, err = expandPath(strings.TrimSpace(c.Paths.RawDir)); err != nil {
		return fmt.Errorf("paths.raw_dir: %w", err)
	}
	if c.Paths.DestDir, err = expandPath(strings.TrimSpace(c.Paths.DestDir)); err != nil {
		return fmt.Errorf("paths.dest_dir: %w", err)
	}
	if c.Paths.JSONDir, err = expandPath(strings.TrimSpace(c.Paths.JSONDir)); err != nil {
		return fmt.Errorf("paths.json_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("paths.work_dir: %w", err)
		}
		c.Paths.WorkDir = wd
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.Python = strings.TrimSpace(c.Tools.Python)
	if c.Tools.Python == "" {
		c.Tools.Python = defaultPython
	}
	flags := make([]string, 0, len(c.Tools.PythonFlags))
	for _, flag := range c.Tools.PythonFlags {
		if trimmed := strings.TrimSpace(flag); trimmed != "" {
			flags = append(flags, trimmed)
		}
	}
	c.Tools.PythonFlags = flags
	c.Tools.ModulePackage = strings.Trim(strings.TrimSpace(c.Tools.ModulePackage), ".")
	if c.Tools.ModulePackage == "" {
		c.Tools.ModulePackage = defaultModulePackage
	}
}

func (c *Config) normalizeCatGT() {
	c.CatGT.Mode = strings.ToLower(strings.TrimSpace(c.CatGT.Mode))
	if c.CatGT.Mode == "" {
		c.CatGT.Mode = CatGTPerProbe
	}
	mode := strings.TrimSpace(c.CatGT.CARMode)
	switch strings.ToLower(mode) {
	case "", "none":
		c.CatGT.CARMode = "None"
	case "gbldmx":
		c.CatGT.CARMode = "gbldmx"
	case "loccar":
		c.CatGT.CARMode = "loccar"
	default:
		c.CatGT.CARMode = mode
	}
	c.CatGT.Command = strings.Join(strings.Fields(c.CatGT.Command), " ")
	c.CatGT.LFPFilter = strings.Join(strings.Fields(c.CatGT.LFPFilter), " ")
	c.CatGT.NIExtract = strings.Join(strings.Fields(c.CatGT.NIExtract), " ")
	c.CatGT.ImecSyncParams = strings.TrimSpace(c.CatGT.ImecSyncParams)
	if c.CatGT.ImecSyncParams == "" {
		c.CatGT.ImecSyncParams = defaultImecSync
	}
}

func (c *Config) normalizePostprocess() {
	modules := make([]string, 0, len(c.Postprocess.Modules))
	seen := make(map[string]struct{}, len(c.Postprocess.Modules))
	for _, module := range c.Postprocess.Modules {
		module = strings.TrimSpace(module)
		if module == "" {
			continue
		}
		if _, ok := seen[module]; ok {
			continue
		}
		seen[module] = struct{}{}
		modules = append(modules, module)
	}
	c.Postprocess.Modules = modules
	c.Postprocess.EventExParam = strings.TrimSpace(c.Postprocess.EventExParam)
}

func (c *Config) normalizeRegions() {
	ksTh := make(map[string]string, len(c.Regions.KSTh))
	for region, value := range c.Regions.KSTh {
		ksTh[FoldRegion(region)] = strings.TrimSpace(value)
	}
	c.Regions.KSTh = ksTh
	refPer := make(map[string]float64, len(c.Regions.RefPerMS))
	for region, value := range c.Regions.RefPerMS {
		refPer[FoldRegion(region)] = value
	}
	c.Regions.RefPerMS = refPer
}

func (c *Config) normalizeTPrime() {
	c.TPrime.ToStreamSync = strings.TrimSpace(c.TPrime.ToStreamSync)
	c.TPrime.NIStreamSync = strings.TrimSpace(c.TPrime.NIStreamSync)
	if strings.EqualFold(c.TPrime.NIStreamSync, "none") {
		c.TPrime.NIStreamSync = ""
	}
}

func (c *Config) normalizeRunLog() {
	c.RunLog.Name = strings.TrimSpace(c.RunLog.Name)
	if c.RunLog.Name == "" {
		c.RunLog.Name = defaultRunLogName
	}
	c.RunLog.Mode = strings.ToLower(strings.TrimSpace(c.RunLog.Mode))
	if c.RunLog.Mode == "" {
		c.RunLog.Mode = RunLogAppend
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
