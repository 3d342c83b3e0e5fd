package build_test

import (
	"testing"

	"github.com/pithecene-io/vademecum/build"
	"github.com/pithecene-io/vademecum/cima"
	"github.com/pithecene-io/vademecum/nomenclator"
	"github.com/pithecene-io/vademecum/types"
)

func TestResolveCN(t *testing.T) {
	cases := []struct {
		name         string
		presentation cima.Payload
		want         string
		ok           bool
	}{
		{"cn string", cima.Payload{"cn": "12345"}, "012345", true},
		{"cn number", cima.Payload{"cn": float64(12345)}, "012345", true},
		{"legacy key", cima.Payload{"codigoNacional": "678901"}, "678901", true},
		{"no code", cima.Payload{"nombre": "X"}, "", false},
		{"blank code", cima.Payload{"cn": "  "}, "", false},
		{"empty cn falls through", cima.Payload{"cn": "", "codigoNacional": "12345"}, "012345", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := build.ResolveCN(tc.presentation)
			if ok != tc.ok || got != tc.want {
				t.Errorf("expected (%q, %v), got (%q, %v)", tc.want, tc.ok, got, ok)
			}
		})
	}
}

func TestMapRecord_DropsWithoutCN(t *testing.T) {
	detail := cima.Payload{"nombre": "Ibuprofeno"}
	if _, ok := build.MapRecord("1001", detail, cima.Payload{}, "2026-08-28", nil); ok {
		t.Error("expected presentation without code dropped")
	}
}

func TestMapRecord_FullyPopulated(t *testing.T) {
	detail := cima.Payload{
		"nombre":            "Ibuprofeno 600mg",
		"labtitular":        "Lab A",
		"formaFarmaceutica": "Comprimido",
		"fichaTecnica":      "https://cima.aemps.es/ft/1001",
		"prospecto":         "https://cima.aemps.es/p/1001",
		"atc":               []any{map[string]any{"codigo": "M01AE01"}},
	}
	presentation := cima.Payload{
		"cn":                "12345",
		"viaAdministracion": "Oral",
	}

	rec, ok := build.MapRecord("1001", detail, presentation, "2026-08-28", nil)
	if !ok {
		t.Fatal("expected record, got drop")
	}
	if rec.CN != "012345" || rec.Registration != "1001" {
		t.Errorf("unexpected identifiers: %+v", rec)
	}
	if rec.Name != "Ibuprofeno 600mg" || rec.Manufacturer != "Lab A" {
		t.Errorf("unexpected product fields: %+v", rec)
	}
	if rec.Form != "Comprimido" || rec.Route != "Oral" {
		t.Errorf("unexpected form/route: %+v", rec)
	}
	if rec.Docs.FT == "" || rec.Docs.Pros == "" {
		t.Errorf("expected document URLs, got %+v", rec.Docs)
	}
	if len(rec.ATC) != 1 || rec.ATC[0] != "M01AE01" {
		t.Errorf("unexpected atc: %v", rec.ATC)
	}
	if rec.UpdatedAt != "2026-08-28" || rec.Source != types.SourceTag {
		t.Errorf("unexpected stamp fields: %+v", rec)
	}
	if rec.Financed != nil || rec.Price != nil {
		t.Errorf("expected no financing without reference entry, got %+v", rec)
	}
}

func TestMapRecord_PresentationRouteWins(t *testing.T) {
	detail := cima.Payload{"viaAdministracion": "Parenteral"}
	presentation := cima.Payload{"cn": "12345", "viaAdministracion": "Oral"}

	rec, ok := build.MapRecord("1001", detail, presentation, "2026-08-28", nil)
	if !ok {
		t.Fatal("expected record, got drop")
	}
	if rec.Route != "Oral" {
		t.Errorf("expected presentation route to win, got %q", rec.Route)
	}
}

func TestMapRecord_EnrichmentFillsGapsOnly(t *testing.T) {
	financed := true
	price := 3.5
	entry := &nomenclator.Entry{
		Financed:     &financed,
		Price:        &price,
		Route:        "Oral",
		Manufacturer: "Lab B",
	}
	detail := cima.Payload{"labtitular": "Lab A"}
	presentation := cima.Payload{"cn": "12345"}

	rec, ok := build.MapRecord("1001", detail, presentation, "2026-08-28", entry)
	if !ok {
		t.Fatal("expected record, got drop")
	}
	if rec.Financed == nil || !*rec.Financed {
		t.Errorf("expected financed=true, got %v", rec.Financed)
	}
	if rec.Price == nil || *rec.Price != 3.5 {
		t.Errorf("expected price 3.5, got %v", rec.Price)
	}
	// Feed route empty: reference value fills the gap.
	if rec.Route != "Oral" {
		t.Errorf("expected route from reference entry, got %q", rec.Route)
	}
	// Feed lab present: reference value must not override it.
	if rec.Manufacturer != "Lab A" {
		t.Errorf("expected feed manufacturer kept, got %q", rec.Manufacturer)
	}
}

func TestMapRecord_ATCDeduplicatedAndSorted(t *testing.T) {
	detail := cima.Payload{
		"atc": []any{
			map[string]any{"codigo": "N02BE01"},
			"M01AE01",
			map[string]any{"codigo": "M01AE01"},
			"  ",
		},
	}
	presentation := cima.Payload{"cn": "12345"}

	rec, ok := build.MapRecord("1001", detail, presentation, "2026-08-28", nil)
	if !ok {
		t.Fatal("expected record, got drop")
	}
	if len(rec.ATC) != 2 || rec.ATC[0] != "M01AE01" || rec.ATC[1] != "N02BE01" {
		t.Errorf("expected deduplicated sorted codes, got %v", rec.ATC)
	}
}

func TestMapRecord_ATCEmptyListFallsThrough(t *testing.T) {
	detail := cima.Payload{
		"atc":               []any{},
		"principiosActivos": []any{map[string]any{"codigo": "M01AE01"}},
	}
	presentation := cima.Payload{"cn": "12345"}

	rec, ok := build.MapRecord("1001", detail, presentation, "2026-08-28", nil)
	if !ok {
		t.Fatal("expected record, got drop")
	}
	if len(rec.ATC) != 1 || rec.ATC[0] != "M01AE01" {
		t.Errorf("expected codes from legacy key, got %v", rec.ATC)
	}
}

func TestMapRecord_ATCSingleString(t *testing.T) {
	detail := cima.Payload{"atc": "M01AE01"}
	presentation := cima.Payload{"cn": "12345"}

	rec, ok := build.MapRecord("1001", detail, presentation, "2026-08-28", nil)
	if !ok {
		t.Fatal("expected record, got drop")
	}
	if len(rec.ATC) != 1 || rec.ATC[0] != "M01AE01" {
		t.Errorf("unexpected atc: %v", rec.ATC)
	}
}
