package config

const (
	configEnvVar         = "SGLXPIPE_CONFIG"
	defaultConfigPath    = "~/.config/sglxpipe/config.toml"
	defaultRawDir        = "~/ephys/raw"
	defaultDestDir       = "~/ephys/catgt"
	defaultJSONDir       = "~/ephys/json"
	defaultStateDir      = "~/.local/share/sglxpipe"
	defaultPython        = "python"
	defaultModulePackage = "ecephys_spike_sorting.modules"
	defaultCARMode       = "loccar"
	defaultCatGTCommand  = "-prb_fld -out_prb_fld -aphipass=300 -aplopass=9000 -tshift -gfix=0.4,0.10,0.02"
	defaultLFPFilter     = "-lfhipass=0.1 -lflopass=1000"
	defaultNIExtract     = "-XA=0,1,3,500 -XA=1,3,3,0 -iXA=4,2.5,1,0 -iXA=5,2.5,1,0 -iXA=6,2.5,1,0 -XD=7,1,50 -XD=7,2,1.7 -XD=7,3,5"
	defaultImecSync      = "-1,6,500"
	defaultEventExParam  = "XD=7,1,50"
	defaultToStreamSync  = "SY=0,-1,6,500"
	defaultNIStreamSync  = "XA=0,1,3,500"
	defaultRunLogName    = "pipeline_log.csv"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"

	// RegionDefault is the region key used when a run names no regions.
	RegionDefault = "default"

	// CatGTPerProbe runs CatGT once for each probe; CatGTPerRun runs it once
	// over the whole probe list of a run.
	CatGTPerProbe = "per_probe"
	CatGTPerRun   = "per_run"

	// RunLogAppend keeps an existing run log; RunLogReplace starts a new one.
	RunLogAppend  = "append"
	RunLogReplace = "replace"
)

// Default module order as run after the sorter on every probe.
var defaultModules = []string{
	"kilosort_helper",
	"kilosort_postprocessing",
	"noise_templates",
	"psth_events",
	"mean_waveforms",
	"quality_metrics",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RawDir:   defaultRawDir,
			DestDir:  defaultDestDir,
			JSONDir:  defaultJSONDir,
			StateDir: defaultStateDir,
		},
		Tools: Tools{
			Python:        defaultPython,
			PythonFlags:   []string{"-W", "ignore"},
			ModulePackage: defaultModulePackage,
		},
		CatGT: CatGT{
			Enabled:        true,
			Mode:           CatGTPerProbe,
			CARMode:        defaultCARMode,
			LoccarMinUM:    40,
			LoccarMaxUM:    160,
			Command:        defaultCatGTCommand,
			LFPFilter:      defaultLFPFilter,
			NIPresent:      true,
			NIExtract:      defaultNIExtract,
			ImecSyncParams: defaultImecSync,
		},
		Sorter: Sorter{
			RemDup:            0,
			SaveRez:           1,
			CopyFproc:         0,
			TemplateRadiusUM:  163,
			WhiteningRadiusUM: 163,
			MinFRGoodChannels: 0.1,
			FinalSplits:       1,
			LabelGood:         1,
			CSBSeed:           1,
			LTSeed:            1,
		},
		Postprocess: Postprocess{
			Modules:      append([]string(nil), defaultModules...),
			CWavesSNRUM:  160,
			EventExParam: defaultEventExParam,
		},
		Regions: Regions{
			KSTh: map[string]string{
				RegionDefault: "[10,4]",
				"cortex":      "[10,4]",
				"striatum":    "[10,4]",
				"medulla":     "[10,4]",
				"midbrain":    "[10,4]",
				"thalamus":    "[10,4]",
			},
			RefPerMS: map[string]float64{
				RegionDefault: 2.0,
				"cortex":      2.0,
				"striatum":    2.0,
				"medulla":     1.0,
				"midbrain":    1.5,
				"thalamus":    1.5,
			},
		},
		TPrime: TPrime{
			Enabled:      true,
			SyncPeriod:   1.0,
			ToStreamSync: defaultToStreamSync,
			NIStreamSync: defaultNIStreamSync,
		},
		RunLog: RunLog{
			Name: defaultRunLogName,
			Mode: RunLogAppend,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
