package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pithecene-io/vademecum/artifact"
	"github.com/pithecene-io/vademecum/cima"
	"github.com/pithecene-io/vademecum/state"
	"github.com/pithecene-io/vademecum/types"
)

// runFull rebuilds the complete snapshot: one pass over the entire catalog,
// every presentation mapped and emitted in encounter order.
//
// Per-product detail fetch failures are recovered (counted, id recorded,
// product skipped). A catalog iteration failure or any output-write failure
// is fatal: no manifest or state is written, so the next run perceives no
// progress.
func (o *Orchestrator) runFull(ctx context.Context) (*Result, error) {
	started := time.Now()
	outPath := filepath.Join(o.cfg.OutDir, FullSnapshotName)
	manifestPath := filepath.Join(o.cfg.OutDir, ManifestName)

	table := o.loadTable(ctx)

	writer, err := artifact.NewRecordWriter(outPath)
	if err != nil {
		return nil, err
	}

	stats := types.BuildStats{}
	var failed []string

	err = o.cfg.Client.EachProduct(ctx, func(summary cima.Payload) error {
		registration := cima.Registration(summary)
		if registration == "" {
			return nil
		}

		detail, err := o.cfg.Client.ProductDetail(ctx, registration)
		if err != nil {
			o.cfg.Logger.Error("product detail fetch failed", map[string]any{
				"nregistro": registration,
				"error":     err.Error(),
			})
			stats = stats.WithError()
			failed = o.appendFailed(failed, registration)
			return nil
		}

		stats = stats.WithProcessed()
		for _, presentation := range cima.Presentations(detail) {
			rec, ok := o.mapPresentation(registration, detail, presentation, table)
			if !ok {
				continue
			}
			if err := writer.Append(rec); err != nil {
				return err
			}
			stats = stats.WithEmitted()
		}
		return nil
	})
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("full build: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	digest, err := artifact.SHA256File(outPath)
	if err != nil {
		return nil, err
	}
	size, err := artifact.FileSize(outPath)
	if err != nil {
		return nil, err
	}

	manifest := types.Manifest{
		Version:        o.cfg.Version,
		Mode:           types.ModeFull,
		File:           FullSnapshotName,
		SHA256:         digest,
		Size:           size,
		GeneratedAt:    types.UTCTimestamp(time.Now()),
		BaseVersion:    o.cfg.Version,
		SourceVersions: o.sourceVersions(table),
		Stats:          stats,
	}
	if err := artifact.WriteManifest(manifestPath, manifest); err != nil {
		return nil, err
	}
	if err := o.publish(ctx, outPath, manifestPath); err != nil {
		return nil, err
	}

	cutoff, err := types.VersionToFeedDate(o.cfg.Version)
	if err != nil {
		return nil, err
	}
	newState := types.RunState{
		LastSuccessVersion:  o.cfg.Version,
		LastFullVersion:     o.cfg.Version,
		LastIncrementalDate: cutoff,
		TotalFullRecords:    stats.EmittedRecords,
		StatsLastRun:        stats,
		FailedRegistrations: failed,
	}
	if err := state.Save(o.cfg.StatePath, newState); err != nil {
		return nil, err
	}

	o.cfg.Logger.Info("full build complete", map[string]any{
		"medicamentos":   stats.ProcessedProducts,
		"presentaciones": stats.EmittedRecords,
		"errores":        stats.Errors,
	})

	return &Result{
		Mode:         types.ModeFull,
		Manifest:     manifest,
		OutputPath:   outPath,
		ManifestPath: manifestPath,
		Duration:     time.Since(started),
	}, nil
}
