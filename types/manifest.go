package types

// BuildMode selects which orchestrator drives a run.
type BuildMode string

const (
	// ModeFull rebuilds the complete snapshot from the whole catalog.
	ModeFull BuildMode = "full"
	// ModeIncremental builds a delta against the prior run's state.
	ModeIncremental BuildMode = "incremental"
)

// Valid reports whether the mode is one of the two known build modes.
func (m BuildMode) Valid() bool {
	return m == ModeFull || m == ModeIncremental
}

// Manifest describes one finished output artifact. Written once per run,
// never mutated after.
//
// BaseVersion of an incremental manifest is the last *full* version, not the
// prior successful version: deltas always chain to the last full snapshot,
// never to a prior delta. Consumers that expect sequential delta chaining
// must apply every delta since BaseVersion onto that snapshot.
type Manifest struct {
	// Version is this run's version label (YYYY-MM-DD).
	Version string `json:"version"`
	// Mode is "full" or "incremental".
	Mode BuildMode `json:"mode"`
	// File is the output artifact filename (not a path).
	File string `json:"file"`
	// DeletedFile is the removals artifact filename; only incremental
	// runs produce one.
	DeletedFile string `json:"deleted_file,omitempty"`
	// SHA256 is the hex content digest of File.
	SHA256 string `json:"sha256"`
	// Size is File's size in bytes.
	Size int64 `json:"size"`
	// GeneratedAt is the UTC generation timestamp (YYYY-MM-DDTHH:MM:SSZ).
	GeneratedAt string `json:"generated_at"`
	// BaseVersion is the snapshot this artifact applies to.
	BaseVersion string `json:"base_version"`
	// SourceVersions maps source name to a provenance string.
	SourceVersions map[string]string `json:"source_versions"`
	// Stats is the run's final counter snapshot.
	Stats BuildStats `json:"stats"`
}
