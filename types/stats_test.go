package types_test

import (
	"testing"

	"github.com/pithecene-io/vademecum/types"
)

func TestBuildStats_UpdatesReturnNewSnapshots(t *testing.T) {
	var zero types.BuildStats

	one := zero.WithProcessed()
	if zero.ProcessedProducts != 0 {
		t.Errorf("expected original snapshot untouched, got %d processed", zero.ProcessedProducts)
	}
	if one.ProcessedProducts != 1 {
		t.Errorf("expected 1 processed, got %d", one.ProcessedProducts)
	}
}

func TestBuildStats_Accumulation(t *testing.T) {
	stats := types.BuildStats{}
	stats = stats.WithProcessed()
	stats = stats.WithEmitted()
	stats = stats.WithEmitted()
	stats = stats.WithRemoved(3)
	stats = stats.WithError()

	want := types.BuildStats{
		ProcessedProducts: 1,
		EmittedRecords:    2,
		RemovedRecords:    3,
		Errors:            1,
	}
	if stats != want {
		t.Errorf("expected %+v, got %+v", want, stats)
	}
}

func TestBuildStats_WithRemovedZeroIsNoop(t *testing.T) {
	stats := types.BuildStats{RemovedRecords: 2}
	if got := stats.WithRemoved(0); got != stats {
		t.Errorf("expected unchanged snapshot, got %+v", got)
	}
}
