package types

import "strings"

// removalKeyword classifies a change as a removal.
//
// The upstream change feed reports free-text change kinds; "baja" is the
// vocabulary it uses today for de-registrations. Substring matching mirrors
// upstream behavior exactly; a stricter enumeration would need upstream
// contract knowledge we do not have.
const removalKeyword = "baja"

// ChangeEvent is one row from the upstream "what changed since" feed.
type ChangeEvent struct {
	// Registration is the upstream registration id of the changed product.
	Registration string
	// Kind is the free-text change kind as reported by the feed.
	Kind string
	// FallbackCN is the raw national code carried by the change row,
	// if any. Used only when the per-presentation detail lookup fails.
	FallbackCN string
}

// IsRemoval reports whether the change kind describes a de-registration.
func (c ChangeEvent) IsRemoval() bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(c.Kind)), removalKeyword)
}
