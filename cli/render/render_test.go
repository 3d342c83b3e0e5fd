package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pithecene-io/vademecum/build"
	"github.com/pithecene-io/vademecum/cli/render"
	"github.com/pithecene-io/vademecum/types"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		input string
		want  render.Format
		ok    bool
	}{
		{"json", render.FormatJSON, true},
		{"JSON", render.FormatJSON, true},
		{"text", render.FormatText, true},
		{"", "", true},
		{"yaml", "", false},
	}
	for _, tc := range cases {
		got, err := render.ParseFormat(tc.input)
		if tc.ok && err != nil {
			t.Errorf("%q: unexpected error: %v", tc.input, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%q: expected error, got nil", tc.input)
		}
		if got != tc.want {
			t.Errorf("%q: expected %q, got %q", tc.input, tc.want, got)
		}
	}
}

func sampleManifest() types.Manifest {
	return types.Manifest{
		Version:     "2026-08-28",
		Mode:        types.ModeIncremental,
		File:        "vademecum_delta_2026-08-28.jsonl.gz",
		DeletedFile: "deleted_2026-08-28.txt.gz",
		SHA256:      "abc123",
		Size:        1024,
		GeneratedAt: "2026-08-28T12:00:00Z",
		BaseVersion: "2026-08-01",
		SourceVersions: map[string]string{
			"nomenclator": "none",
			"cima_base":   "https://cima.aemps.es/cima/rest",
		},
		Stats: types.BuildStats{ProcessedProducts: 3, EmittedRecords: 7, RemovedRecords: 2, Errors: 1},
	}
}

func TestResult_JSONIsTheManifest(t *testing.T) {
	var buf bytes.Buffer
	r := render.NewRendererWithWriter(render.FormatJSON, &buf)

	res := &build.Result{
		Mode:       types.ModeIncremental,
		Manifest:   sampleManifest(),
		OutputPath: "/out/vademecum_delta_2026-08-28.jsonl.gz",
	}
	if err := r.Result(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got types.Manifest
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if got.Version != "2026-08-28" || got.Stats.EmittedRecords != 7 {
		t.Errorf("unexpected manifest output: %+v", got)
	}
}

func TestResult_TextView(t *testing.T) {
	var buf bytes.Buffer
	r := render.NewRendererWithWriter(render.FormatText, &buf)

	res := &build.Result{
		Mode:         types.ModeIncremental,
		Manifest:     sampleManifest(),
		OutputPath:   "/out/delta.jsonl.gz",
		RemovalsPath: "/out/deleted.txt.gz",
	}
	if err := r.Result(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"/out/delta.jsonl.gz", "/out/deleted.txt.gz", "abc123", "2026-08-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestManifest_TextListsSortedSources(t *testing.T) {
	var buf bytes.Buffer
	r := render.NewRendererWithWriter(render.FormatText, &buf)

	if err := r.Manifest(sampleManifest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	base := strings.Index(out, "source cima_base")
	nom := strings.Index(out, "source nomenclator")
	if base == -1 || nom == -1 {
		t.Fatalf("expected both sources rendered, got:\n%s", out)
	}
	if base > nom {
		t.Error("expected sources in sorted order")
	}
}

func TestState_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := render.NewRendererWithWriter(render.FormatJSON, &buf)

	st := types.RunState{
		LastSuccessVersion:  "2026-08-28",
		LastIncrementalDate: "28/08/2026",
		FailedRegistrations: []string{"1001"},
	}
	if err := r.State(st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if got["last_success_version"] != "2026-08-28" {
		t.Errorf("unexpected state output: %v", got)
	}
	if got["last_incremental_date"] != "28/08/2026" {
		t.Errorf("unexpected cutoff: %v", got)
	}
}
