package params

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReturnsDigestOfStoredBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json", "SC_imec0-input.json")
	record := ModuleRecord{
		RunName:        "SC_imec0",
		GateString:     "0",
		CatGTGfixEdits: 0.25,
		Sorter:         SorterParams{Th: "[10,4]", MakeCopy: true},
		Postprocess:    PostprocessParams{QMISIThresh: 0.002},
	}
	digest, err := Write(path, record)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(data)
	if digest != hex.EncodeToString(sum[:]) {
		t.Fatal("digest does not match stored bytes")
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["catGT_gfix_edits"] != 0.25 {
		t.Fatalf("catGT_gfix_edits = %v", decoded["catGT_gfix_edits"])
	}
	ks, ok := decoded["ks_params"].(map[string]any)
	if !ok || ks["ks_Th"] != "[10,4]" || ks["ks_make_copy"] != true {
		t.Fatalf("ks_params = %v", decoded["ks_params"])
	}
	pp, ok := decoded["postprocess_params"].(map[string]any)
	if !ok || pp["qm_isi_thresh"] != 0.002 {
		t.Fatalf("postprocess_params = %v", decoded["postprocess_params"])
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	record := TPrimeRecord{
		RunName: "SC",
		TPrime:  TPrimeHelperParams{ImExList: " -SY=0,-1,6,500 -SY=1,-1,6,500", SyncPeriod: 1},
	}
	a, err := Write(filepath.Join(dir, "a.json"), record)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Write(filepath.Join(dir, "b.json"), record)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("identical records should produce identical digests")
	}
	record.TPrime.SyncPeriod = 2
	c, err := Write(filepath.Join(dir, "c.json"), record)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Fatal("changed record should change digest")
	}
}

func TestReadOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	if err := os.WriteFile(path, []byte(`{"execution_time": 12.5, "other": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := ReadOutput(path)
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if out.ExecutionTime == nil || *out.ExecutionTime != 12.5 {
		t.Fatalf("execution_time = %v", out.ExecutionTime)
	}

	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = ReadOutput(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.ExecutionTime != nil {
		t.Fatal("expected nil execution time when absent")
	}

	if _, err := ReadOutput(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing output")
	}
}

func TestReadModuleRecordRoundTripsGfix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SC_imec0-input.json")
	if _, err := Write(path, ModuleRecord{RunName: "SC_imec0", CatGTGfixEdits: 1.75}); err != nil {
		t.Fatal(err)
	}
	got, err := ReadModuleRecord(path)
	if err != nil {
		t.Fatalf("ReadModuleRecord: %v", err)
	}
	if got.CatGTGfixEdits != 1.75 || got.RunName != "SC_imec0" {
		t.Fatalf("unexpected record: %+v", got)
	}
}
