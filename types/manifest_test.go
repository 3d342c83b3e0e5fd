package types_test

import (
	"testing"

	"github.com/pithecene-io/vademecum/types"
)

func TestBuildMode_Valid(t *testing.T) {
	if !types.ModeFull.Valid() || !types.ModeIncremental.Valid() {
		t.Error("expected known modes to validate")
	}
	for _, bad := range []types.BuildMode{"", "weekly", "FULL", "delta"} {
		if bad.Valid() {
			t.Errorf("expected %q to be invalid", bad)
		}
	}
}
