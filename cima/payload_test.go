package cima

import "testing"

func TestExtractList(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		want    int
	}{
		{"bare array", []any{map[string]any{}, map[string]any{}}, 2},
		{"resultados envelope", map[string]any{"resultados": []any{map[string]any{}}}, 1},
		{"result envelope", map[string]any{"result": []any{map[string]any{}}}, 1},
		{"medicamentos envelope", map[string]any{"medicamentos": []any{map[string]any{}}}, 1},
		{"empty envelope", map[string]any{"totalFilas": float64(0)}, 0},
		{"scalar", "nope", 0},
		{"nil", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(extractList(tc.payload)); got != tc.want {
				t.Errorf("expected %d items, got %d", tc.want, got)
			}
		})
	}
}

func TestPresentations(t *testing.T) {
	detail := Payload{
		"presentaciones": []any{
			map[string]any{"cn": "12345"},
			"not-an-object",
			map[string]any{"cn": "678901"},
		},
	}
	got := Presentations(detail)
	if len(got) != 2 {
		t.Fatalf("expected 2 presentations, got %d", len(got))
	}
	if got[0]["cn"] != "12345" || got[1]["cn"] != "678901" {
		t.Errorf("unexpected presentations: %v", got)
	}

	if got := Presentations(Payload{"nombre": "X"}); got != nil {
		t.Errorf("expected nil for detail without presentations, got %v", got)
	}
}

func TestStringField_AliasPriority(t *testing.T) {
	p := Payload{
		"nregistro": "  1001  ",
		"nRegistro": "9999",
	}
	if got := Registration(p); got != "1001" {
		t.Errorf("expected first alias to win, got %q", got)
	}

	// Blank first alias falls through to the next.
	p = Payload{"nregistro": "   ", "nRegistro": "1002"}
	if got := Registration(p); got != "1002" {
		t.Errorf("expected fallback alias, got %q", got)
	}
}

func TestStringField_CoercesNumbers(t *testing.T) {
	p := Payload{"cn": float64(12345)}
	if got := StringField(p, CNKeys); got != "12345" {
		t.Errorf("expected %q, got %q", "12345", got)
	}
}

func TestRawField(t *testing.T) {
	p := Payload{"codigoNacional": float64(678901)}
	v := RawField(p, CNKeys)
	if f, ok := v.(float64); !ok || f != 678901 {
		t.Errorf("expected raw float64 678901, got %v", v)
	}

	if v := RawField(Payload{"cn": nil}, CNKeys); v != nil {
		t.Errorf("expected nil for nil-valued key, got %v", v)
	}
}

func TestRawField_EmptyValuesFallThrough(t *testing.T) {
	// Legacy rows carry the current key with an empty value next to a
	// populated legacy key; the populated one must win.
	p := Payload{"cn": "", "codigoNacional": "12345"}
	if v := RawField(p, CNKeys); v != "12345" {
		t.Errorf("expected fall-through past empty string, got %v", v)
	}

	p = Payload{"atc": []any{}, "principiosActivos": []any{"M01AE01"}}
	v := RawField(p, []string{"atc", "principiosActivos"})
	list, ok := v.([]any)
	if !ok || len(list) != 1 || list[0] != "M01AE01" {
		t.Errorf("expected fall-through past empty list, got %v", v)
	}

	if v := RawField(Payload{"cn": "", "codigoNacional": []any{}}, CNKeys); v != nil {
		t.Errorf("expected nil when every alias is empty, got %v", v)
	}
}

func TestParseChanges(t *testing.T) {
	rows := []any{
		map[string]any{"nregistro": "1001", "tipoCambio": "baja", "cn": "12345"},
		map[string]any{"nregistro": "1002", "tipo": "modificacion"},
		// The rest are dropped: no kind, no registration, not an object,
		// blank registration.
		map[string]any{"nregistro": "1003"},
		map[string]any{"tipoCambio": "alta"},
		"garbage",
		map[string]any{"nregistro": "", "tipo": "x"},
	}
	changes := parseChanges(rows)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if !changes[0].IsRemoval() {
		t.Error("expected first change to be a removal")
	}
	if changes[0].FallbackCN != "12345" {
		t.Errorf("expected fallback cn %q, got %q", "12345", changes[0].FallbackCN)
	}
	if changes[1].Registration != "1002" || changes[1].IsRemoval() {
		t.Errorf("unexpected second change: %+v", changes[1])
	}
}

func TestParseChanges_FallbackIgnoresBareCodigo(t *testing.T) {
	// On change rows "codigo" is the change's own identifier, never a
	// national code.
	rows := []any{
		map[string]any{"nregistro": "1001", "tipoCambio": "baja", "codigo": "998877"},
		map[string]any{"nregistro": "1002", "tipoCambio": "baja", "codigoNacional": "12345"},
	}
	changes := parseChanges(rows)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].FallbackCN != "" {
		t.Errorf("expected no fallback from bare codigo, got %q", changes[0].FallbackCN)
	}
	if changes[1].FallbackCN != "12345" {
		t.Errorf("expected fallback %q, got %q", "12345", changes[1].FallbackCN)
	}
}
