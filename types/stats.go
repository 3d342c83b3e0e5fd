package types

// BuildStats is an immutable run counter snapshot.
//
// Counters are never mutated in place: each With* method returns a new
// snapshot, so an orchestrator holds exactly one current value at any point
// and intermediate snapshots can be compared in tests. Within a run the
// counters only ever increase.
//
// The wire keys are the manifest's stats contract.
type BuildStats struct {
	ProcessedProducts int `json:"medicamentos_procesados"`
	EmittedRecords    int `json:"presentaciones_emitidas"`
	RemovedRecords    int `json:"presentaciones_eliminadas"`
	Errors            int `json:"errores"`
}

// WithProcessed returns a snapshot with one more processed product.
func (s BuildStats) WithProcessed() BuildStats {
	s.ProcessedProducts++
	return s
}

// WithEmitted returns a snapshot with one more emitted record.
func (s BuildStats) WithEmitted() BuildStats {
	s.EmittedRecords++
	return s
}

// WithRemoved returns a snapshot with n more removed records.
func (s BuildStats) WithRemoved(n int) BuildStats {
	s.RemovedRecords += n
	return s
}

// WithError returns a snapshot with one more error.
func (s BuildStats) WithError() BuildStats {
	s.Errors++
	return s
}
