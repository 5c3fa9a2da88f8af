// Package plan derives every path, argument string and configuration record a
// run needs before any external tool is started.
package plan

import (
	"fmt"
	"path/filepath"
	"strings"

	"sglxpipe/internal/config"
	"sglxpipe/internal/params"
	"sglxpipe/internal/runspec"
	"sglxpipe/internal/services"
	"sglxpipe/internal/sglx"
)

// Module names of the helper stages invoked once per probe and once per run.
const (
	CatGTModule  = "catGT_helper"
	TPrimeModule = "tPrime_helper"
)

// Modules that rewrite the sorter output; running either keeps a copy of the original.
var copyingModules = []string{"kilosort_postprocessing", "noise_templates"}

// TriggerFinder reports the lowest and highest trigger index present in a raw probe folder.
type TriggerFinder func(dir, name, gate, probe string) (first, last int, err error)

// ModuleStage is one post-processing module invocation.
type ModuleStage struct {
	Name   string
	Output string
}

// ProbePlan is everything derived for one probe of a run. CatGTInput is empty
// when CatGT is disabled or runs once for the whole run.
type ProbePlan struct {
	Index        int
	Probe        string
	Region       string
	Session      string
	RawDir       string
	DataDir      string
	CatGTInput   string
	CatGTOutput  string
	CatGT        params.CatGTRecord
	ModuleInput  string
	RecordCopy   string
	Module       params.ModuleRecord
	Modules      []ModuleStage
	StreamString string
	Extraction   string
}

// CatGTPlan is a single CatGT invocation covering every probe of a run.
type CatGTPlan struct {
	Session string
	Input   string
	Output  string
	Record  params.CatGTRecord
}

// TPrimePlan is the cross-stream alignment invocation of a run.
type TPrimePlan struct {
	Session string
	Input   string
	Output  string
	Record  params.TPrimeRecord
}

// RunPlan is the full derivation for one run descriptor.
type RunPlan struct {
	Run      runspec.Run
	RunName  string
	Triggers runspec.TriggerRange
	Probes   []ProbePlan
	CatGT    *CatGTPlan
	TPrime   *TPrimePlan
}

// Build derives the plan of run. finder is consulted only when the trigger
// range uses start or end; it scans the first probe's raw folder.
func Build(cfg *config.Config, run runspec.Run, finder TriggerFinder) (RunPlan, error) {
	if cfg == nil {
		return RunPlan{}, services.Wrap(services.ErrConfiguration, "plan", "build", "config is required", nil)
	}
	if err := run.Validate(cfg); err != nil {
		return RunPlan{}, err
	}

	name := strings.TrimSpace(run.Name)
	gate := strings.TrimSpace(run.Gate)
	probes, err := run.ProbeList()
	if err != nil {
		return RunPlan{}, services.Wrap(services.ErrValidation, "plan", "probes", name, err)
	}
	regions, err := run.ProbeRegions(probes)
	if err != nil {
		return RunPlan{}, services.Wrap(services.ErrValidation, "plan", "regions", name, err)
	}

	triggers, err := resolveTriggers(cfg, run, name, gate, probes[0], finder)
	if err != nil {
		return RunPlan{}, err
	}

	out := RunPlan{
		Run:      run,
		RunName:  sglx.RunName(name, gate),
		Triggers: triggers,
		Probes:   make([]ProbePlan, 0, len(probes)),
	}
	for i, probe := range probes {
		out.Probes = append(out.Probes, buildProbe(cfg, run, name, gate, triggers, i, probe, regions[i]))
	}
	if cfg.CatGT.Enabled && cfg.CatGT.Mode == config.CatGTPerRun {
		catgt := buildRunCatGT(cfg, run, name, gate, triggers, probes)
		out.CatGT = &catgt
	}
	if cfg.TPrime.Enabled {
		tp := buildTPrime(cfg, name, gate, probes, out.Probes[len(out.Probes)-1])
		out.TPrime = &tp
	}
	return out, nil
}

func resolveTriggers(cfg *config.Config, run runspec.Run, name, gate, probe string, finder TriggerFinder) (runspec.TriggerRange, error) {
	parsed, err := runspec.ParseTriggers(run.Triggers)
	if err != nil {
		return runspec.TriggerRange{}, services.Wrap(services.ErrValidation, "plan", "triggers", name, err)
	}
	if !parsed.Symbolic() {
		return parsed, nil
	}
	if finder == nil {
		finder = sglx.TriggerBounds
	}
	dir := sglx.RawProbeDir(cfg.Paths.RawDir, name, gate, probe)
	resolved, err := parsed.Resolve(func() (int, int, error) {
		return finder(dir, name, gate, probe)
	})
	if err != nil {
		return runspec.TriggerRange{}, services.Wrap(services.ErrNotFound, "plan", "triggers",
			fmt.Sprintf("resolve %s for %s", parsed, sglx.RunName(name, gate)), err)
	}
	return resolved, nil
}

func buildProbe(cfg *config.Config, run runspec.Run, name, gate string, triggers runspec.TriggerRange, index int, probe, region string) ProbePlan {
	jsonDir := cfg.Paths.JSONDir
	rawDir := sglx.RawProbeDir(cfg.Paths.RawDir, name, gate, probe)
	rawBinary := filepath.Join(rawDir, sglx.RawBinary(name, gate, probe, triggers.First))
	rawMeta := filepath.Join(rawDir, sglx.RawMeta(name, gate, probe, triggers.First))
	dataDir := sglx.CatGTProbeDir(cfg.Paths.DestDir, name, gate, probe)
	sorterDir := sglx.SorterOutputDir(dataDir, probe)
	session := sglx.SessionID(name, probe)

	extraction := sglx.SyncExtract(probe, cfg.CatGT.ImecSyncParams)
	withNI := index == 0 && cfg.CatGT.NIPresent
	if withNI && cfg.CatGT.NIExtract != "" {
		extraction += " " + cfg.CatGT.NIExtract
	}
	stream, command := catGTInvocation(cfg, withNI, extraction)

	moduleInput := filepath.Join(jsonDir, session+"-input.json")
	pp := ProbePlan{
		Index:        index,
		Probe:        probe,
		Region:       region,
		Session:      session,
		RawDir:       rawDir,
		DataDir:      dataDir,
		ModuleInput:  moduleInput,
		RecordCopy:   filepath.Join(dataDir, filepath.Base(moduleInput)),
		StreamString: stream,
		Extraction:   extraction,
	}

	if cfg.CatGT.Enabled && cfg.CatGT.Mode != config.CatGTPerRun {
		pp.CatGTInput = filepath.Join(jsonDir, name+probe+"_CatGT-input.json")
		pp.CatGTOutput = filepath.Join(jsonDir, name+probe+"_CatGT-output.json")
		pp.CatGT = catGTRecord(cfg, name, gate, triggers, probe, rawBinary, rawMeta, stream, command)
	}

	pp.Module = params.ModuleRecord{
		Directories: params.Directories{
			NPXDirectory:            cfg.Paths.RawDir,
			ExtractedDataDirectory:  cfg.Paths.DestDir,
			KilosortOutputDirectory: sorterDir,
		},
		CommonFiles: params.CommonFiles{
			ContinuousFile: filepath.Join(dataDir, sglx.ConcatBinary(name, gate, probe)),
			InputMetaPath:  rawMeta,
		},
		SpikeGLX:    true,
		RunName:     session,
		GateString:  gate,
		ProbeString: strings.TrimSpace(run.Probes),
		Region:      region,
		Modules:     append([]string(nil), cfg.Postprocess.Modules...),
		Sorter: params.SorterParams{
			MakeCopy:          makeCopy(cfg),
			RemDup:            cfg.Sorter.RemDup,
			FinalSplits:       cfg.Sorter.FinalSplits,
			LabelGood:         cfg.Sorter.LabelGood,
			SaveRez:           cfg.Sorter.SaveRez,
			CopyFproc:         cfg.Sorter.CopyFproc,
			MinFRGoodChannels: cfg.Sorter.MinFRGoodChannels,
			WhiteningRadiusUM: cfg.Sorter.WhiteningRadiusUM,
			TemplateRadiusUM:  cfg.Sorter.TemplateRadiusUM,
			Th:                cfg.Regions.KSTh[region],
			CSBSeed:           cfg.Sorter.CSBSeed,
			LTSeed:            cfg.Sorter.LTSeed,
		},
		Postprocess: params.PostprocessParams{
			NoiseTemplateUseRF: cfg.Sorter.NoiseTemplateUseRF,
			EventExParam:       cfg.Postprocess.EventExParam,
			CWavesSNRUM:        cfg.Postprocess.CWavesSNRUM,
			QMISIThresh:        cfg.Regions.RefPerMS[region] / 1000,
		},
	}

	for _, module := range cfg.Postprocess.Modules {
		pp.Modules = append(pp.Modules, ModuleStage{
			Name:   module,
			Output: filepath.Join(jsonDir, session+"-"+module+"-output.json"),
		})
	}
	return pp
}

// buildRunCatGT derives the one CatGT call that processes every probe of a
// run: all imec sync extractions plus the NI stream when present.
func buildRunCatGT(cfg *config.Config, run runspec.Run, name, gate string, triggers runspec.TriggerRange, probes []string) CatGTPlan {
	extract := make([]string, 0, len(probes)+1)
	for _, probe := range probes {
		extract = append(extract, sglx.SyncExtract(probe, cfg.CatGT.ImecSyncParams))
	}
	if cfg.CatGT.NIPresent && cfg.CatGT.NIExtract != "" {
		extract = append(extract, cfg.CatGT.NIExtract)
	}
	stream, command := catGTInvocation(cfg, cfg.CatGT.NIPresent, strings.Join(extract, " "))

	first := probes[0]
	rawDir := sglx.RawProbeDir(cfg.Paths.RawDir, name, gate, first)
	rawBinary := filepath.Join(rawDir, sglx.RawBinary(name, gate, first, triggers.First))
	rawMeta := filepath.Join(rawDir, sglx.RawMeta(name, gate, first, triggers.First))

	session := name + "_CatGT"
	return CatGTPlan{
		Session: session,
		Input:   filepath.Join(cfg.Paths.JSONDir, session+"-input.json"),
		Output:  filepath.Join(cfg.Paths.JSONDir, session+"-output.json"),
		Record: catGTRecord(cfg, name, gate, triggers, strings.TrimSpace(run.Probes),
			rawBinary, rawMeta, stream, command),
	}
}

// catGTInvocation returns the stream selection and command line for a CatGT
// call with the given extraction arguments.
func catGTInvocation(cfg *config.Config, withNI bool, extraction string) (stream, command string) {
	stream = "-ap"
	if withNI {
		stream = "-ap -ni"
	}
	command = cfg.CatGT.Command
	if cfg.CatGT.LFP {
		stream += " -lf"
		if cfg.CatGT.LFPFilter != "" {
			command += " " + cfg.CatGT.LFPFilter
		}
	}
	return stream, strings.TrimSpace(command + " " + extraction)
}

func catGTRecord(cfg *config.Config, name, gate string, triggers runspec.TriggerRange, probes, rawBinary, rawMeta, stream, command string) params.CatGTRecord {
	return params.CatGTRecord{
		Directories: params.Directories{
			NPXDirectory:            cfg.Paths.RawDir,
			ExtractedDataDirectory:  cfg.Paths.DestDir,
			KilosortOutputDirectory: cfg.Paths.DestDir,
		},
		CommonFiles: params.CommonFiles{ContinuousFile: rawBinary, InputMetaPath: rawMeta},
		SpikeGLX:    true,
		CatGT: params.CatGTHelperParams{
			RunName:       name,
			GateString:    gate,
			TriggerString: triggers.String(),
			ProbeString:   probes,
			StreamString:  stream,
			CARMode:       cfg.CatGT.CARMode,
			LoccarInnerUM: cfg.CatGT.LoccarMinUM,
			LoccarOuterUM: cfg.CatGT.LoccarMaxUM,
			CmdString:     command,
		},
	}
}

func buildTPrime(cfg *config.Config, name, gate string, probes []string, last ProbePlan) TPrimePlan {
	session := name + "_TPrime"
	var imEx strings.Builder
	for _, probe := range probes {
		imEx.WriteString(" ")
		imEx.WriteString(sglx.SyncExtract(probe, cfg.CatGT.ImecSyncParams))
	}
	niEx := ""
	if cfg.CatGT.NIPresent {
		niEx = cfg.CatGT.NIExtract
	}
	return TPrimePlan{
		Session: session,
		Input:   filepath.Join(cfg.Paths.JSONDir, session+"-input.json"),
		Output:  filepath.Join(cfg.Paths.JSONDir, session+"-output.json"),
		Record: params.TPrimeRecord{
			Directories: params.Directories{
				NPXDirectory:            cfg.Paths.RawDir,
				ExtractedDataDirectory:  cfg.Paths.DestDir,
				KilosortOutputDirectory: last.Module.Directories.KilosortOutputDirectory,
			},
			CommonFiles:  last.Module.CommonFiles,
			SpikeGLX:     true,
			RunName:      name,
			GateString:   gate,
			EventExParam: cfg.Postprocess.EventExParam,
			TPrime: params.TPrimeHelperParams{
				ImExList:           imEx.String(),
				NIExList:           niEx,
				SyncPeriod:         cfg.TPrime.SyncPeriod,
				ToStreamSyncParams: cfg.TPrime.ToStreamSync,
				NIStreamSyncParams: cfg.TPrime.NIStreamSync,
				ToStreamPath3A:     " ",
				FromStreamList3A:   []string{},
			},
		},
	}
}

func makeCopy(cfg *config.Config) bool {
	for _, module := range copyingModules {
		if cfg.HasModule(module) {
			return true
		}
	}
	return false
}
