package types

import (
	"fmt"
	"time"
)

// Date layouts at the two format boundaries of the system. Version labels
// are ISO dates; the upstream change feed expects the Spanish local form.
const (
	versionLayout  = "2006-01-02"
	feedDateLayout = "02/01/2006"
)

// ValidateVersion checks that a version label is a YYYY-MM-DD date.
func ValidateVersion(version string) error {
	if _, err := time.Parse(versionLayout, version); err != nil {
		return fmt.Errorf("invalid version label %q (want YYYY-MM-DD): %w", version, err)
	}
	return nil
}

// VersionToFeedDate converts a version label to the change feed's
// DD/MM/YYYY form.
func VersionToFeedDate(version string) (string, error) {
	t, err := time.Parse(versionLayout, version)
	if err != nil {
		return "", fmt.Errorf("invalid version label %q: %w", version, err)
	}
	return t.Format(feedDateLayout), nil
}

// TodayVersion returns the current UTC date as a version label.
func TodayVersion() string {
	return time.Now().UTC().Format(versionLayout)
}

// UTCTimestamp formats t as the manifest's generation timestamp
// (YYYY-MM-DDTHH:MM:SSZ, always UTC).
func UTCTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
