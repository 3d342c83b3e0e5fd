// Package nomenclator loads the pricing/financing reference table and
// exposes it as a read-only lookup keyed by normalized national code.
//
// The table is an optional enrichment source: every failure mode (download,
// unsupported format, parse error) degrades to "table unavailable" and the
// build proceeds without enrichment. Availability is decided once per run,
// never per record.
package nomenclator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pithecene-io/vademecum/ident"
)

// Entry holds the enrichment fields for one national code.
type Entry struct {
	// Financed is tri-state: nil when the source row carried no
	// recognizable financing value.
	Financed *bool
	// Price in euros, nil when absent or unparseable. Negative values are
	// passed through as-is: source exports occasionally carry credit
	// adjustments and the loader does not second-guess them.
	Price *float64
	// Route is the administration route, empty when absent.
	Route string
	// Manufacturer is the marketing laboratory, empty when absent.
	Manufacturer string
}

// Table is the read-only lookup produced by Load.
type Table struct {
	byCN map[string]Entry
	// sourceRef is the provenance string recorded in the manifest
	// (origin plus content digest).
	sourceRef string
}

// Lookup returns the entry for a normalized national code.
func (t *Table) Lookup(cn string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.byCN[cn]
	return e, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byCN)
}

// SourceRef returns the provenance string for the manifest, or "none" for
// an unavailable table.
func (t *Table) SourceRef() string {
	if t == nil {
		return "none"
	}
	return t.sourceRef
}

// Ordered header alias lists. Nomenclator exports have gone through several
// column-name generations; the priority order is declared once here.
var (
	cnAliases       = []string{"cn", "codigo_nacional", "c_n", "cod_nacional", "codigo nacional"}
	financedAliases = []string{"financiado", "financiacion", "financia", "financiado_sns"}
	priceAliases    = []string{"precio", "pvp", "precio_iva", "importe"}
	routeAliases    = []string{"via", "via_administracion", "v_a", "administracion"}
	labAliases      = []string{"laboratorio", "lab", "titular", "nombre_laboratorio"}
)

// parseRows maps raw rows (header name or col_N keyed) into the lookup.
// Rows without a resolvable national code are skipped.
func parseRows(rows []map[string]string) map[string]Entry {
	mapped := make(map[string]Entry)
	for _, row := range rows {
		lowered := make(map[string]string, len(row))
		for k, v := range row {
			lowered[strings.ToLower(strings.TrimSpace(k))] = v
		}

		cnRaw := coalesce(lowered, cnAliases)
		cn, ok := ident.Normalize(cnRaw)
		if !ok {
			cn, ok = findCNInValues(lowered)
			if !ok {
				continue
			}
		}

		mapped[cn] = Entry{
			Financed:     parseBool(coalesce(lowered, financedAliases)),
			Price:        parsePrice(coalesce(lowered, priceAliases)),
			Route:        strings.TrimSpace(coalesce(lowered, routeAliases)),
			Manufacturer: strings.TrimSpace(coalesce(lowered, labAliases)),
		}
	}
	return mapped
}

// coalesce returns the first non-empty value among the alias keys.
func coalesce(row map[string]string, keys []string) string {
	for _, key := range keys {
		if v, ok := row[key]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// findCNInValues scans the values of a headerless row for a normalizable
// national code. Keys are visited in stable shortest-first order so col_2
// sorts before col_10 and the leftmost candidate wins.
func findCNInValues(row map[string]string) (string, bool) {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if cn, ok := ident.Normalize(row[k]); ok {
			return cn, true
		}
	}
	return "", false
}

func parseBool(v string) *bool {
	text := strings.ToLower(strings.TrimSpace(v))
	switch text {
	case "1", "true", "t", "si", "sí", "s", "y", "yes":
		b := true
		return &b
	case "0", "false", "f", "no", "n":
		b := false
		return &b
	}
	return nil
}

// parsePrice parses a price value tolerating euro signs, spaces, and the
// Spanish decimal comma.
func parsePrice(v string) *float64 {
	text := strings.TrimSpace(v)
	text = strings.ReplaceAll(text, "€", "")
	text = strings.ReplaceAll(text, " ", "")
	text = strings.ReplaceAll(text, ",", ".")
	if text == "" {
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	return &f
}
