package build

import (
	"context"
	"fmt"
	"time"

	"github.com/pithecene-io/vademecum/artifact"
	"github.com/pithecene-io/vademecum/cima"
	"github.com/pithecene-io/vademecum/log"
	"github.com/pithecene-io/vademecum/nomenclator"
	"github.com/pithecene-io/vademecum/types"
)

// Artifact filenames. The full snapshot and manifest names are stable; the
// delta and removals names embed the run's version label.
const (
	FullSnapshotName = "vademecum_full.jsonl.gz"
	ManifestName     = "manifest.json"
)

// DeltaName returns the delta artifact filename for a version label.
func DeltaName(version string) string {
	return fmt.Sprintf("vademecum_delta_%s.jsonl.gz", version)
}

// RemovalsName returns the removals artifact filename for a version label.
func RemovalsName(version string) string {
	return fmt.Sprintf("deleted_%s.txt.gz", version)
}

// TableLoader acquires the nomenclator lookup. A nil loader or a returned
// error both degrade to building without enrichment.
type TableLoader func(ctx context.Context) (*nomenclator.Table, error)

// Publisher uploads finished artifacts. Satisfied by *artifact.Publisher.
type Publisher interface {
	PublishFiles(ctx context.Context, paths ...string) error
}

// Config configures a single build run. The orchestrator receives a fully
// resolved configuration: it never reads environment variables or global
// state itself.
type Config struct {
	// Mode is the requested build mode. An incremental run may still
	// execute as full when no usable prior state exists.
	Mode types.BuildMode
	// Version is this run's version label (YYYY-MM-DD), already
	// validated by the CLI layer.
	Version string
	// OutDir receives the output artifacts.
	OutDir string
	// StatePath is the run state file location.
	StatePath string
	// MaxFailedIDs caps the persisted failed-registration list.
	MaxFailedIDs int
	// Client is the fetch collaborator.
	Client cima.Client
	// LoadTable acquires the nomenclator lookup (best-effort; nil skips
	// enrichment entirely).
	LoadTable TableLoader
	// Publisher optionally uploads finished artifacts; nil disables
	// publication.
	Publisher Publisher
	// SourceBase is the upstream base URL recorded as provenance.
	SourceBase string
	// Logger receives run progress; required.
	Logger *log.Logger
}

// Result describes one completed run for CLI reporting.
type Result struct {
	// Mode is the mode actually executed (an incremental request that
	// fell back reports full).
	Mode types.BuildMode
	// Manifest is the written manifest.
	Manifest types.Manifest
	// OutputPath is the snapshot or delta artifact path.
	OutputPath string
	// RemovalsPath is the removals artifact path, empty for full runs.
	RemovalsPath string
	// ManifestPath is the manifest location.
	ManifestPath string
	// Duration is the total run duration.
	Duration time.Duration
}

// Orchestrator drives one build run. Runs are single-threaded: one linear
// pass over the upstream feed with no shared mutable state.
type Orchestrator struct {
	cfg Config
}

// NewOrchestrator validates the config and creates an orchestrator.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("invalid build mode %q", cfg.Mode)
	}
	if err := types.ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}
	if cfg.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if cfg.StatePath == "" {
		return nil, fmt.Errorf("state path is required")
	}
	if cfg.MaxFailedIDs <= 0 {
		return nil, fmt.Errorf("max failed ids must be > 0, got %d", cfg.MaxFailedIDs)
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("fetch client is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Run executes the configured build mode.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	switch o.cfg.Mode {
	case types.ModeIncremental:
		return o.runIncremental(ctx)
	default:
		return o.runFull(ctx)
	}
}

// loadTable acquires the nomenclator lookup once per run. Every failure
// degrades to a nil table: enrichment fields stay absent, the run proceeds.
func (o *Orchestrator) loadTable(ctx context.Context) *nomenclator.Table {
	if o.cfg.LoadTable == nil {
		return nil
	}
	table, err := o.cfg.LoadTable(ctx)
	if err != nil {
		o.cfg.Logger.Warn("nomenclator unavailable, continuing without enrichment", map[string]any{
			"error": err.Error(),
		})
		return nil
	}
	o.cfg.Logger.Info("nomenclator loaded", map[string]any{
		"entries": table.Len(),
		"source":  table.SourceRef(),
	})
	return table
}

// mapPresentation resolves the nomenclator entry for a presentation and
// maps it to a record.
func (o *Orchestrator) mapPresentation(registration string, detail, presentation cima.Payload, table *nomenclator.Table) (types.Record, bool) {
	var entry *nomenclator.Entry
	if cn, ok := ResolveCN(presentation); ok {
		if e, found := table.Lookup(cn); found {
			entry = &e
		}
	}
	return MapRecord(registration, detail, presentation, o.cfg.Version, entry)
}

// sourceVersions builds the manifest provenance map.
func (o *Orchestrator) sourceVersions(table *nomenclator.Table) map[string]string {
	return map[string]string{
		"cima_base":   o.cfg.SourceBase,
		"nomenclator": table.SourceRef(),
	}
}

// publish uploads finished artifacts when a publisher is configured.
// Publish failure is fatal for the run, like any other output failure.
func (o *Orchestrator) publish(ctx context.Context, paths ...string) error {
	if o.cfg.Publisher == nil {
		return nil
	}
	if err := o.cfg.Publisher.PublishFiles(ctx, paths...); err != nil {
		return fmt.Errorf("publish artifacts: %w", err)
	}
	return nil
}

// appendFailed records a failed registration id up to the configured cap.
func (o *Orchestrator) appendFailed(failed []string, registration string) []string {
	if len(failed) < o.cfg.MaxFailedIDs {
		return append(failed, registration)
	}
	return failed
}

// Verify artifact.Publisher satisfies Publisher.
var _ Publisher = (*artifact.Publisher)(nil)
