package types

// RunState is the cross-run memory needed to compute the next incremental
// delta. It is a snapshot, not a log: every successful run (full or
// incremental) replaces the previous state file entirely, so a half-written
// prior state can never resurrect stale fields.
//
// LastIncrementalDate uses the upstream change feed's DD/MM/YYYY form, not
// the version label's YYYY-MM-DD form; the conversion happens exactly once,
// when state is written. An absent state file or an empty
// LastIncrementalDate makes the next incremental run fall back to a full
// build.
type RunState struct {
	LastSuccessVersion  string     `json:"last_success_version"`
	LastFullVersion     string     `json:"last_full_version"`
	LastIncrementalDate string     `json:"last_incremental_date"`
	TotalFullRecords    int        `json:"total_presentaciones_full"`
	StatsLastRun        BuildStats `json:"stats_last_run"`
	// FailedRegistrations lists registration ids whose detail fetch
	// failed, capped by config so the file cannot grow without bound.
	FailedRegistrations []string `json:"failed_nregistro_last_run"`
}
