// Package types defines core domain types for the vademecum builder.
//
//nolint:revive // types is a common Go package naming convention
package types

// SourceTag identifies the upstream system in every emitted record.
const SourceTag = "CIMA"

// Docs holds the two optional document references of a record.
type Docs struct {
	// FT is the technical sheet (ficha técnica) URL, empty when absent.
	FT string `json:"ft"`
	// Pros is the patient leaflet (prospecto) URL, empty when absent.
	Pros string `json:"pros"`
}

// Record is one canonical output unit per (product, presentation).
//
// The wire keys are a fixed consumer contract and must not change. CN is the
// normalized national code: the join key against the nomenclator and the
// uniqueness key within one output file. A record with no resolvable CN is
// never constructed; the mapper drops the presentation instead.
//
// ATC codes are deduplicated and sorted so the same input always serializes
// identically. Financed is tri-state (nil unknown, true, false) and Price is
// nil when unknown; both come exclusively from the nomenclator, never
// inferred from the primary feed. UpdatedAt is the build's version label,
// immutable once written.
type Record struct {
	CN           string   `json:"cn"`
	Registration string   `json:"nregistro"`
	Name         string   `json:"nombre"`
	Manufacturer string   `json:"lab"`
	ATC          []string `json:"atc"`
	Form         string   `json:"forma"`
	Route        string   `json:"via"`
	Docs         Docs     `json:"docs"`
	Financed     *bool    `json:"financiado"`
	Price        *float64 `json:"precio"`
	UpdatedAt    string   `json:"updated_at"`
	Source       string   `json:"source"`
}
