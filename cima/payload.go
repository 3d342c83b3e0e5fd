package cima

import (
	"strconv"
	"strings"

	"github.com/pithecene-io/vademecum/types"
)

// Ordered alias key lists per logical field. The feed has accumulated
// several key-name generations; declaring the priority order once keeps
// every extraction site consistent and testable in isolation.
var (
	// listKeys locate the item list inside a paged response envelope.
	listKeys = []string{"resultados", "result", "medicamentos", "items", "contenido", "data"}

	// presentationKeys locate the presentation list inside a product
	// detail payload.
	presentationKeys = []string{"presentaciones", "items", "resultados"}

	// registrationKeys locate the registration id on summaries and
	// change rows.
	registrationKeys = []string{"nregistro", "nRegistro"}

	// changeKindKeys locate the change kind on change rows.
	changeKindKeys = []string{"tipoCambio", "tipo"}

	// CNKeys locate the national code on presentations. Exported because
	// the mapper and the removal reconciliation both resolve codes with
	// the same priority order.
	CNKeys = []string{"cn", "codigoNacional", "codigo_nacional", "codigo"}

	// changeCNKeys locate the fallback national code on change rows. The
	// bare "codigo" variant is excluded here: on change rows that key
	// carries the change's own identifier, not a national code.
	changeCNKeys = []string{"cn", "codigoNacional", "codigo_nacional"}
)

// extractList finds the item list in a paged response. The API sometimes
// returns a bare array and sometimes an envelope object.
func extractList(payload any) []any {
	if items, ok := payload.([]any); ok {
		return items
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range listKeys {
		if items, ok := obj[key].([]any); ok {
			return items
		}
	}
	return nil
}

// Presentations returns the presentation sub-records of a product detail
// payload, skipping non-object entries.
func Presentations(detail Payload) []Payload {
	for _, key := range presentationKeys {
		items, ok := detail[key].([]any)
		if !ok {
			continue
		}
		out := make([]Payload, 0, len(items))
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, Payload(obj))
			}
		}
		return out
	}
	return nil
}

// Registration returns the trimmed registration id of a summary payload,
// or "" when absent.
func Registration(p Payload) string {
	return StringField(p, registrationKeys)
}

// StringField returns the first non-empty value among the alias keys,
// trimmed, or "" when every candidate is absent or blank.
func StringField(p Payload, keys []string) string {
	for _, key := range keys {
		v, ok := p[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
			continue
		}
		if trimmed := strings.TrimSpace(stringify(v)); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// RawField returns the first non-empty value among the alias keys. Unlike
// StringField it does not coerce; callers that need the raw value (e.g.
// numeric national codes, classification lists) use this.
//
// Empty strings and empty lists fall through to the next alias: legacy feed
// rows carry the current key name with an empty value alongside a populated
// legacy key, and the populated one must win.
func RawField(p Payload, keys []string) any {
	for _, key := range keys {
		v, ok := p[key]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		if l, isList := v.([]any); isList && len(l) == 0 {
			continue
		}
		return v
	}
	return nil
}

// parseChanges converts raw change rows into ChangeEvents, dropping rows
// without a registration id or a change kind.
func parseChanges(rows []any) []types.ChangeEvent {
	changes := make([]types.ChangeEvent, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		p := Payload(obj)
		registration := StringField(p, registrationKeys)
		kind := StringField(p, changeKindKeys)
		if registration == "" || kind == "" {
			continue
		}
		changes = append(changes, types.ChangeEvent{
			Registration: registration,
			Kind:         kind,
			FallbackCN:   StringField(p, changeCNKeys),
		})
	}
	return changes
}

// stringify renders a non-string scalar the way the feed means it.
// JSON numbers decode as float64; codes are integral, so "12345.0" noise
// must not leak into extracted values.
func stringify(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
