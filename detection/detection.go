// Package detection runs the whale detector network and links detections
// across frames into stable track ids.
package detection

import "image"

// Unassigned is the track id of a detection that could not be linked to any
// track. Such detections carry no temporal identity and are skipped by the
// tracking session.
const Unassigned = -1

// Detection is one detected object in one frame.
type Detection struct {
	ClassID    int
	TrackID    int // Unassigned when the tracker could not link it
	Box        image.Rectangle
	Confidence float64
}

// Assigned reports whether the detection carries a track id.
func (d Detection) Assigned() bool {
	return d.TrackID != Unassigned
}

// Result is the raw per-frame output of a detector network, before track
// association.
type Result struct {
	Rects       []image.Rectangle
	ClassIDs    []int
	Confidences []float64
}
