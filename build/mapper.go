// Package build implements the build orchestration core: the record mapper,
// the full and incremental build state machines, and run finalization
// (manifest plus run state).
package build

import (
	"sort"
	"strings"

	"github.com/pithecene-io/vademecum/cima"
	"github.com/pithecene-io/vademecum/ident"
	"github.com/pithecene-io/vademecum/nomenclator"
	"github.com/pithecene-io/vademecum/types"
)

// Ordered alias key lists for product-level fields. Field resolution is
// first non-empty wins, in the declared order; declaring each list once
// keeps the priority order testable in isolation.
var (
	nameKeys         = []string{"nombre"}
	labProductKeys   = []string{"labtitular", "laboratorio"}
	labPresKeys      = []string{"laboratorio"}
	formKeys         = []string{"formaFarmaceutica", "forma"}
	routePresKeys    = []string{"viaAdministracion"}
	routeProductKeys = []string{"viaAdministracion", "viasAdministracion"}
	ftKeys           = []string{"fichaTecnica", "urlFichaTecnica"}
	prosKeys         = []string{"prospecto", "urlProspecto"}
	atcKeys          = []string{"atc", "principiosActivos"}
	atcCodeKeys      = []string{"codigo", "atc", "codATC"}
)

// ResolveCN derives the normalized national code of a presentation,
// checking the legacy key-name variants in fixed order. The same resolution
// is used for mapping, nomenclator joins, and removal reconciliation.
func ResolveCN(presentation cima.Payload) (string, bool) {
	return ident.Normalize(cima.RawField(presentation, cima.CNKeys))
}

// MapRecord transforms one (product detail, presentation) pair into the
// canonical record shape. The second return is false when no national code
// resolves; such presentations are dropped silently, never an error.
//
// Only the national code is mandatory. Every other field degrades to
// empty/absent, coalescing presentation-level, product-level, and
// nomenclator values in that order where the field allows it. Financing and
// price come exclusively from the nomenclator entry.
func MapRecord(registration string, detail, presentation cima.Payload, version string, entry *nomenclator.Entry) (types.Record, bool) {
	cn, ok := ResolveCN(presentation)
	if !ok {
		return types.Record{}, false
	}

	name := cima.StringField(detail, nameKeys)
	if name == "" {
		name = cima.StringField(presentation, nameKeys)
	}
	lab := cima.StringField(detail, labProductKeys)
	if lab == "" {
		lab = cima.StringField(presentation, labPresKeys)
	}
	route := cima.StringField(presentation, routePresKeys)
	if route == "" {
		route = cima.StringField(detail, routeProductKeys)
	}

	rec := types.Record{
		CN:           cn,
		Registration: registration,
		Name:         name,
		Manufacturer: lab,
		ATC:          extractATC(detail),
		Form:         cima.StringField(detail, formKeys),
		Route:        route,
		Docs: types.Docs{
			FT:   cima.StringField(detail, ftKeys),
			Pros: cima.StringField(detail, prosKeys),
		},
		UpdatedAt: version,
		Source:    types.SourceTag,
	}

	if entry != nil {
		rec.Financed = entry.Financed
		rec.Price = entry.Price
		if rec.Route == "" {
			rec.Route = entry.Route
		}
		if rec.Manufacturer == "" {
			rec.Manufacturer = entry.Manufacturer
		}
	}

	return rec, true
}

// extractATC collects classification codes from the product payload. The
// field is a list of objects, a list of strings, or a single string
// depending on feed generation. Codes are deduplicated and sorted so the
// same product always maps to the same output ordering.
func extractATC(detail cima.Payload) []string {
	seen := make(map[string]bool)

	switch raw := cima.RawField(detail, atcKeys).(type) {
	case []any:
		for _, item := range raw {
			switch v := item.(type) {
			case map[string]any:
				if code := cima.StringField(cima.Payload(v), atcCodeKeys); code != "" {
					seen[code] = true
				}
			case string:
				if trimmed := strings.TrimSpace(v); trimmed != "" {
					seen[trimmed] = true
				}
			}
		}
	case string:
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			seen[trimmed] = true
		}
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
