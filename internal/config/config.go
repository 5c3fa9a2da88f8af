package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"sglxpipe/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories the pipeline reads from and writes to.
type Paths struct {
	RawDir   string `toml:"raw_dir"`
	DestDir  string `toml:"dest_dir"`
	JSONDir  string `toml:"json_dir"`
	StateDir string `toml:"state_dir"`
	WorkDir  string `toml:"work_dir"`
}

// Tools describes how the external processing modules are launched.
type Tools struct {
	Python              string   `toml:"python"`
	PythonFlags         []string `toml:"python_flags"`
	ModulePackage       string   `toml:"module_package"`
	StageTimeoutSeconds int      `toml:"stage_timeout_seconds"`
}

// CatGT contains the acquisition-correction (filtering, CAR, gfix) settings.
// Mode selects one CatGT invocation per probe or one per run covering every probe.
type CatGT struct {
	Enabled        bool   `toml:"enabled"`
	Mode           string `toml:"mode"`
	CARMode        string `toml:"car_mode"`
	LoccarMinUM    int    `toml:"loccar_min_um"`
	LoccarMaxUM    int    `toml:"loccar_max_um"`
	Command        string `toml:"command"`
	LFP            bool   `toml:"lfp"`
	LFPFilter      string `toml:"lfp_filter"`
	NIPresent      bool   `toml:"ni_present"`
	NIExtract      string `toml:"ni_extract"`
	ImecSyncParams string `toml:"imec_sync_params"`
}

// Sorter contains spike-sorter parameters shared by every recording.
type Sorter struct {
	RemDup             int     `toml:"rem_dup"`
	SaveRez            int     `toml:"save_rez"`
	CopyFproc          int     `toml:"copy_fproc"`
	TemplateRadiusUM   int     `toml:"template_radius_um"`
	WhiteningRadiusUM  int     `toml:"whitening_radius_um"`
	MinFRGoodChannels  float64 `toml:"minfr_goodchannels"`
	FinalSplits        int     `toml:"final_splits"`
	LabelGood          int     `toml:"label_good"`
	CSBSeed            int     `toml:"csb_seed"`
	LTSeed             int     `toml:"lt_seed"`
	NoiseTemplateUseRF bool    `toml:"noise_template_use_rf"`
}

// Postprocess lists the sorter post-processing modules and their parameters.
type Postprocess struct {
	Modules      []string `toml:"modules"`
	CWavesSNRUM  int      `toml:"c_waves_snr_um"`
	EventExParam string   `toml:"event_ex_param"`
}

// Regions holds brain-region specific parameter tables. Both tables must
// carry a "default" entry.
type Regions struct {
	KSTh     map[string]string  `toml:"ks_th"`
	RefPerMS map[string]float64 `toml:"ref_per_ms"`
}

// TPrime contains the cross-stream alignment settings.
type TPrime struct {
	Enabled      bool    `toml:"enabled"`
	SyncPeriod   float64 `toml:"sync_period"`
	ToStreamSync string  `toml:"to_stream_sync"`
	NIStreamSync string  `toml:"ni_stream_sync"`
}

// RunLog controls the CSV summary log written under the destination directory.
type RunLog struct {
	Name string `toml:"name"`
	Mode string `toml:"mode"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sglxpipe.
//
// Configuration sections by subsystem:
//   - Paths: raw data, CatGT destination, configuration records, state
//   - Tools: python launcher for the processing modules
//   - CatGT: filtering, CAR, gfix and event extraction
//   - Sorter: spike sorter constants
//   - Postprocess: module list and their parameters
//   - Regions: brain-region specific thresholds
//   - TPrime: cross-stream time alignment
//   - RunLog: CSV summary log
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Tools       Tools       `toml:"tools"`
	CatGT       CatGT       `toml:"catgt"`
	Sorter      Sorter      `toml:"sorter"`
	Postprocess Postprocess `toml:"postprocess"`
	Regions     Regions     `toml:"regions"`
	TPrime      TPrime      `toml:"tprime"`
	RunLog      RunLog      `toml:"run_log"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "parse", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "normalize", resolvedPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "validate", resolvedPath, err)
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		if value, ok := os.LookupEnv(configEnvVar); ok {
			path = strings.TrimSpace(value)
		}
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, services.Wrap(services.ErrConfiguration, "config", "resolve path", path, err)
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, services.Wrap(services.ErrConfiguration, "config", "resolve path", expanded+" does not exist", nil)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, services.Wrap(services.ErrConfiguration, "config", "resolve path", expanded+" is a directory", nil)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sglxpipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
// The raw acquisition directory is never created; it must already exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DestDir, c.Paths.JSONDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RunLogPath returns the absolute path of the CSV summary log.
func (c *Config) RunLogPath() string {
	return filepath.Join(c.Paths.DestDir, c.RunLog.Name)
}

// LedgerPath returns the path of the stage ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockPath returns the path of the single-orchestrator lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "sglxpipe.lock")
}

// LogPath returns the application log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "sglxpipe.log")
}

// StageTimeout returns the per-stage subprocess timeout in seconds (0 disables).
func (c *Config) StageTimeout() int {
	if c.Tools.StageTimeoutSeconds < 0 {
		return 0
	}
	return c.Tools.StageTimeoutSeconds
}

// HasModule reports whether the named post-processing module is configured to run.
func (c *Config) HasModule(name string) bool {
	for _, module := range c.Postprocess.Modules {
		if module == name {
			return true
		}
	}
	return false
}

// KnownRegion reports whether both region tables define the region.
func (c *Config) KnownRegion(region string) bool {
	if _, ok := c.Regions.KSTh[region]; !ok {
		return false
	}
	_, ok := c.Regions.RefPerMS[region]
	return ok
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
