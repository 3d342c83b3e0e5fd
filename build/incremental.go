package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pithecene-io/vademecum/artifact"
	"github.com/pithecene-io/vademecum/cima"
	"github.com/pithecene-io/vademecum/ident"
	"github.com/pithecene-io/vademecum/nomenclator"
	"github.com/pithecene-io/vademecum/state"
	"github.com/pithecene-io/vademecum/types"
)

// runIncremental builds a delta against the prior run's state: only the
// registrations the change feed reports since the last cutoff date are
// fetched. Removal changes are reconciled into the removals file, everything
// else is fetched and mapped exactly like a full-build product.
//
// Without usable prior state (no file, corrupt file, or no cutoff date) the
// run falls back to a full build; that is a degrade-gracefully policy, not
// an error.
func (o *Orchestrator) runIncremental(ctx context.Context) (*Result, error) {
	prior, err := state.Load(o.cfg.StatePath)
	if err != nil {
		o.cfg.Logger.Warn("prior state unreadable", map[string]any{"error": err.Error()})
		prior = nil
	}
	if prior == nil || prior.LastIncrementalDate == "" {
		o.cfg.Logger.Warn("no usable prior state, falling back to full build", nil)
		return o.runFull(ctx)
	}

	started := time.Now()
	deltaName := DeltaName(o.cfg.Version)
	removalsName := RemovalsName(o.cfg.Version)
	deltaPath := filepath.Join(o.cfg.OutDir, deltaName)
	removalsPath := filepath.Join(o.cfg.OutDir, removalsName)
	manifestPath := filepath.Join(o.cfg.OutDir, ManifestName)

	table := o.loadTable(ctx)

	changes, err := o.cfg.Client.ChangesSince(ctx, prior.LastIncrementalDate)
	if err != nil {
		return nil, fmt.Errorf("incremental build: %w", err)
	}
	o.cfg.Logger.Info("change feed fetched", map[string]any{
		"since": prior.LastIncrementalDate,
		"rows":  len(changes),
	})

	deltaWriter, err := artifact.NewRecordWriter(deltaPath)
	if err != nil {
		return nil, err
	}
	removalsWriter, err := artifact.NewLineWriter(removalsPath)
	if err != nil {
		_ = deltaWriter.Close()
		return nil, err
	}

	stats := types.BuildStats{}
	var failed []string

	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			_ = deltaWriter.Close()
			_ = removalsWriter.Close()
			return nil, fmt.Errorf("incremental build: %w", err)
		}

		var stepErr error
		if change.IsRemoval() {
			stats, failed, stepErr = o.applyRemoval(ctx, change, removalsWriter, stats, failed)
		} else {
			stats, failed, stepErr = o.applyUpdate(ctx, change, deltaWriter, table, stats, failed)
		}
		if stepErr != nil {
			_ = deltaWriter.Close()
			_ = removalsWriter.Close()
			return nil, stepErr
		}
	}

	if err := deltaWriter.Close(); err != nil {
		_ = removalsWriter.Close()
		return nil, err
	}
	if err := removalsWriter.Close(); err != nil {
		return nil, err
	}

	digest, err := artifact.SHA256File(deltaPath)
	if err != nil {
		return nil, err
	}
	size, err := artifact.FileSize(deltaPath)
	if err != nil {
		return nil, err
	}

	manifest := types.Manifest{
		Version:     o.cfg.Version,
		Mode:        types.ModeIncremental,
		File:        deltaName,
		DeletedFile: removalsName,
		SHA256:      digest,
		Size:        size,
		GeneratedAt: types.UTCTimestamp(time.Now()),
		// Deltas are always expressed relative to the last full
		// snapshot, never to a prior delta.
		BaseVersion:    prior.LastFullVersion,
		SourceVersions: o.sourceVersions(table),
		Stats:          stats,
	}
	if err := artifact.WriteManifest(manifestPath, manifest); err != nil {
		return nil, err
	}
	if err := o.publish(ctx, deltaPath, removalsPath, manifestPath); err != nil {
		return nil, err
	}

	cutoff, err := types.VersionToFeedDate(o.cfg.Version)
	if err != nil {
		return nil, err
	}
	newState := types.RunState{
		LastSuccessVersion:  o.cfg.Version,
		LastFullVersion:     prior.LastFullVersion,
		LastIncrementalDate: cutoff,
		TotalFullRecords:    prior.TotalFullRecords,
		StatsLastRun:        stats,
		FailedRegistrations: failed,
	}
	if err := state.Save(o.cfg.StatePath, newState); err != nil {
		return nil, err
	}

	o.cfg.Logger.Info("incremental build complete", map[string]any{
		"medicamentos":   stats.ProcessedProducts,
		"presentaciones": stats.EmittedRecords,
		"eliminadas":     stats.RemovedRecords,
		"errores":        stats.Errors,
	})

	return &Result{
		Mode:         types.ModeIncremental,
		Manifest:     manifest,
		OutputPath:   deltaPath,
		RemovalsPath: removalsPath,
		ManifestPath: manifestPath,
		Duration:     time.Since(started),
	}, nil
}

// applyRemoval records every presentation code of a de-registered product
// in the removals file.
//
// A single registration can back multiple marketed codes; all of them are
// removed. When the detail fetch fails but the change row carried a
// fallback code, the fallback is used and the event still counts as a
// successful removal (degraded fidelity, not an error). Only a fetch
// failure with no fallback counts as an error. A removal that yields zero
// codes and has no fallback writes nothing; removals are never padded with
// placeholders.
func (o *Orchestrator) applyRemoval(ctx context.Context, change types.ChangeEvent, removals *artifact.LineWriter, stats types.BuildStats, failed []string) (types.BuildStats, []string, error) {
	detail, err := o.cfg.Client.ProductDetail(ctx, change.Registration)
	if err != nil {
		if cn, ok := ident.Normalize(change.FallbackCN); ok {
			o.cfg.Logger.Warn("removal detail fetch failed, using fallback code from change feed", map[string]any{
				"nregistro": change.Registration,
				"cn":        cn,
			})
			if err := removals.Append(cn); err != nil {
				return stats, failed, err
			}
			stats = stats.WithRemoved(1)
		} else {
			o.cfg.Logger.Error("removal detail fetch failed with no fallback code", map[string]any{
				"nregistro": change.Registration,
				"error":     err.Error(),
			})
			stats = stats.WithError()
		}
		return stats, o.appendFailed(failed, change.Registration), nil
	}

	removed := 0
	for _, presentation := range cima.Presentations(detail) {
		cn, ok := ResolveCN(presentation)
		if !ok {
			continue
		}
		if err := removals.Append(cn); err != nil {
			return stats, failed, err
		}
		removed++
	}
	// Last resort: the detail payload carried no resolvable codes but the
	// change row did.
	if removed == 0 {
		if cn, ok := ident.Normalize(change.FallbackCN); ok {
			if err := removals.Append(cn); err != nil {
				return stats, failed, err
			}
			removed = 1
		}
	}
	return stats.WithRemoved(removed), failed, nil
}

// applyUpdate handles a non-removal change: fetch, map, and emit into the
// delta, exactly like a full-build product.
func (o *Orchestrator) applyUpdate(ctx context.Context, change types.ChangeEvent, delta *artifact.RecordWriter, table *nomenclator.Table, stats types.BuildStats, failed []string) (types.BuildStats, []string, error) {
	detail, err := o.cfg.Client.ProductDetail(ctx, change.Registration)
	if err != nil {
		o.cfg.Logger.Error("product detail fetch failed", map[string]any{
			"nregistro": change.Registration,
			"error":     err.Error(),
		})
		return stats.WithError(), o.appendFailed(failed, change.Registration), nil
	}

	stats = stats.WithProcessed()
	for _, presentation := range cima.Presentations(detail) {
		rec, ok := o.mapPresentation(change.Registration, detail, presentation, table)
		if !ok {
			continue
		}
		if err := delta.Append(rec); err != nil {
			return stats, failed, err
		}
		stats = stats.WithEmitted()
	}
	return stats, failed, nil
}
