// Package stream drives the phase state machine over a chunked generation
// reply and reconstructs its sections incrementally.
package stream

import "github.com/MikeSquared-Agency/sitesmith/internal/sections"

// Advance returns the phase after a requested transition from -> to.
// Only forward moves are applied; repeated or backward requests leave the
// phase unchanged and report false. Returning to PhaseInput is a reset,
// not a transition, and is never produced here.
func Advance(from, to sections.Phase) (sections.Phase, bool) {
	if to <= from {
		return from, false
	}
	return to, true
}
