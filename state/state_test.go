package state_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pithecene-io/vademecum/state"
	"github.com/pithecene-io/vademecum/types"
)

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	st, err := state.Load(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("expected nil error for absent file, got %v", err)
	}
	if st != nil {
		t.Errorf("expected nil state, got %+v", st)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, err := state.Load(path)
	if err == nil {
		t.Fatal("expected error for corrupt file, got nil")
	}
	if st != nil {
		t.Errorf("expected nil state, got %+v", st)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	st := types.RunState{
		LastSuccessVersion:  "2026-08-28",
		LastFullVersion:     "2026-08-01",
		LastIncrementalDate: "28/08/2026",
		TotalFullRecords:    1234,
		StatsLastRun:        types.BuildStats{ProcessedProducts: 10, EmittedRecords: 25, Errors: 1},
		FailedRegistrations: []string{"1001", "1002"},
	}
	if err := state.Save(path, st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := state.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected state, got nil")
	}
	if got.LastSuccessVersion != st.LastSuccessVersion ||
		got.LastFullVersion != st.LastFullVersion ||
		got.LastIncrementalDate != st.LastIncrementalDate ||
		got.TotalFullRecords != st.TotalFullRecords ||
		got.StatsLastRun != st.StatsLastRun {
		t.Errorf("expected %+v, got %+v", st, *got)
	}
	if len(got.FailedRegistrations) != 2 || got.FailedRegistrations[0] != "1001" {
		t.Errorf("unexpected failed registrations: %v", got.FailedRegistrations)
	}
}

func TestSave_ReplacesEntirely(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	first := types.RunState{
		LastSuccessVersion:  "2026-08-01",
		FailedRegistrations: []string{"1001"},
	}
	if err := state.Save(path, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := types.RunState{LastSuccessVersion: "2026-08-28"}
	if err := state.Save(path, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := state.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.LastSuccessVersion != "2026-08-28" {
		t.Errorf("expected replaced version, got %q", got.LastSuccessVersion)
	}
	if len(got.FailedRegistrations) != 0 {
		t.Errorf("expected stale failures dropped, got %v", got.FailedRegistrations)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := state.Save(path, types.RunState{LastSuccessVersion: "2026-08-28"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".state-") {
			t.Errorf("expected temp file renamed away, found %s", e.Name())
		}
	}
}
