// Package params defines the JSON configuration records handed to the
// external processing modules.
package params

import (
	"encoding/json"
	"fmt"
	"os"

	"sglxpipe/internal/fileutil"
)

// Directories lists the folders a module reads from and writes into.
type Directories struct {
	NPXDirectory            string `json:"npx_directory"`
	ExtractedDataDirectory  string `json:"extracted_data_directory"`
	KilosortOutputDirectory string `json:"kilosort_output_directory"`
}

// CommonFiles names the binary and metadata files a module operates on.
type CommonFiles struct {
	ContinuousFile string `json:"continuous_file"`
	InputMetaPath  string `json:"input_meta_path"`
}

// CatGTHelperParams is the argument set of the acquisition-correction stage.
type CatGTHelperParams struct {
	RunName       string `json:"run_name"`
	GateString    string `json:"gate_string"`
	TriggerString string `json:"trigger_string"`
	ProbeString   string `json:"probe_string"`
	StreamString  string `json:"stream_string"`
	CARMode       string `json:"car_mode"`
	LoccarInnerUM int    `json:"loccar_inner"`
	LoccarOuterUM int    `json:"loccar_outer"`
	CmdString     string `json:"cmdStr"`
}

// CatGTRecord configures one catGT_helper invocation for one probe.
type CatGTRecord struct {
	Directories Directories       `json:"directories"`
	CommonFiles CommonFiles       `json:"common_files"`
	SpikeGLX    bool              `json:"spikeGLX_data"`
	CatGT       CatGTHelperParams `json:"catGT_helper_params"`
}

// SorterParams carries the spike sorter constants and the region threshold.
type SorterParams struct {
	MakeCopy          bool    `json:"ks_make_copy"`
	RemDup            int     `json:"ks_remDup"`
	FinalSplits       int     `json:"ks_finalSplits"`
	LabelGood         int     `json:"ks_labelGood"`
	SaveRez           int     `json:"ks_saveRez"`
	CopyFproc         int     `json:"ks_copy_fproc"`
	MinFRGoodChannels float64 `json:"ks_minfr_goodchannels"`
	WhiteningRadiusUM int     `json:"ks_whiteningRadius_um"`
	TemplateRadiusUM  int     `json:"ks_templateRadius_um"`
	Th                string  `json:"ks_Th"`
	CSBSeed           int     `json:"ks_CSBseed"`
	LTSeed            int     `json:"ks_LTseed"`
}

// PostprocessParams carries the parameters of the post-processing modules.
type PostprocessParams struct {
	NoiseTemplateUseRF bool    `json:"noise_template_use_rf"`
	EventExParam       string  `json:"event_ex_param_str"`
	CWavesSNRUM        int     `json:"c_Waves_snr_um"`
	QMISIThresh        float64 `json:"qm_isi_thresh"`
}

// ModuleRecord configures the sorter and post-processing modules of one probe session.
type ModuleRecord struct {
	Directories    Directories       `json:"directories"`
	CommonFiles    CommonFiles       `json:"common_files"`
	SpikeGLX       bool              `json:"spikeGLX_data"`
	RunName        string            `json:"catGT_run_name"`
	GateString     string            `json:"gate_string"`
	ProbeString    string            `json:"probe_string"`
	Region         string            `json:"region"`
	CatGTGfixEdits float64           `json:"catGT_gfix_edits"`
	Modules        []string          `json:"modules"`
	Sorter         SorterParams      `json:"ks_params"`
	Postprocess    PostprocessParams `json:"postprocess_params"`
}

// TPrimeHelperParams is the argument set of the cross-stream alignment stage.
type TPrimeHelperParams struct {
	ImExList           string   `json:"tPrime_im_ex_list"`
	NIExList           string   `json:"tPrime_ni_ex_list"`
	SyncPeriod         float64  `json:"sync_period"`
	ToStreamSyncParams string   `json:"toStream_sync_params"`
	NIStreamSyncParams string   `json:"niStream_sync_params"`
	TPrime3A           bool     `json:"tPrime_3A"`
	ToStreamPath3A     string   `json:"toStream_path_3A"`
	FromStreamList3A   []string `json:"fromStream_list_3A"`
}

// TPrimeRecord configures one tPrime_helper invocation for a run.
type TPrimeRecord struct {
	Directories  Directories        `json:"directories"`
	CommonFiles  CommonFiles        `json:"common_files"`
	SpikeGLX     bool               `json:"spikeGLX_data"`
	RunName      string             `json:"catGT_run_name"`
	GateString   string             `json:"gate_string"`
	EventExParam string             `json:"event_ex_param_str"`
	TPrime       TPrimeHelperParams `json:"tPrime_helper_params"`
}

// Write serializes record as indented JSON at path and returns the SHA-256
// digest of the bytes written.
func Write(path string, record any) (string, error) {
	data, err := Encode(record)
	if err != nil {
		return "", err
	}
	digest, err := fileutil.WriteAtomic(path, data, 0o644)
	if err != nil {
		return "", fmt.Errorf("write record %s: %w", path, err)
	}
	return digest, nil
}

// Encode renders record exactly as Write would store it.
func Encode(record any) ([]byte, error) {
	data, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return append(data, '\n'), nil
}

// Output is the subset of a module output record the run log reads.
type Output struct {
	ExecutionTime *float64 `json:"execution_time"`
}

// ReadOutput decodes a module output record.
func ReadOutput(path string) (Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Output{}, err
	}
	var out Output
	if err := json.Unmarshal(data, &out); err != nil {
		return Output{}, fmt.Errorf("decode output record %s: %w", path, err)
	}
	return out, nil
}

// ReadModuleRecord decodes a previously written module record.
func ReadModuleRecord(path string) (ModuleRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModuleRecord{}, err
	}
	var record ModuleRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return ModuleRecord{}, fmt.Errorf("decode module record %s: %w", path, err)
	}
	return record, nil
}
