package types_test

import (
	"testing"
	"time"

	"github.com/pithecene-io/vademecum/types"
)

func TestValidateVersion(t *testing.T) {
	if err := types.ValidateVersion("2026-08-28"); err != nil {
		t.Errorf("expected valid label, got %v", err)
	}
	for _, bad := range []string{"", "28/08/2026", "2026-13-01", "today", "2026-08-28T00:00:00Z"} {
		if err := types.ValidateVersion(bad); err == nil {
			t.Errorf("expected error for %q, got nil", bad)
		}
	}
}

func TestVersionToFeedDate(t *testing.T) {
	got, err := types.VersionToFeedDate("2026-08-28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "28/08/2026" {
		t.Errorf("expected %q, got %q", "28/08/2026", got)
	}

	if _, err := types.VersionToFeedDate("28/08/2026"); err == nil {
		t.Error("expected error for feed-form input, got nil")
	}
}

func TestUTCTimestamp(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	in := time.Date(2026, 8, 28, 14, 30, 5, 0, loc)
	got := types.UTCTimestamp(in)
	if got != "2026-08-28T12:30:05Z" {
		t.Errorf("expected %q, got %q", "2026-08-28T12:30:05Z", got)
	}
}

func TestTodayVersion_IsValidLabel(t *testing.T) {
	if err := types.ValidateVersion(types.TodayVersion()); err != nil {
		t.Errorf("expected today's label to validate, got %v", err)
	}
}
