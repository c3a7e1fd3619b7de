package domain

import "time"

// BuildReport summarises one index build.
type BuildReport struct {
	// Output is where the artifact was written.
	Output string

	// Pages is the number of input files rendered.
	Pages int

	// Included is the number of pages merged into another page.
	Included int

	// Documents is the number of documents in the artifact.
	Documents int

	// Anchors is the total number of anchors kept.
	Anchors int

	// DroppedAnchors is the number of headings above the maximum level.
	DroppedAnchors int

	// Duration is the wall time of the build.
	Duration time.Duration
}
