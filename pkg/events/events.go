// Package events carries face tracking notifications from the pipeline to observers.
package events

import (
	"time"

	"github.com/teslashibe/go-facetrack/pkg/geometry"
)

// Kind tags an Event.
type Kind string

const (
	FaceFound        Kind = "face_found"
	FaceLost         Kind = "face_lost"
	FaceFoundDelayed Kind = "face_found_delayed"
	FaceLostDelayed  Kind = "face_lost_delayed"
	FaceXChanged     Kind = "face_x_changed"
	FaceYChanged     Kind = "face_y_changed"
	FacesSaved       Kind = "faces_saved"
	NearFace         Kind = "near_face"
	FarAway          Kind = "far_away"
)

// Kinds lists every event kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		FaceFound, FaceLost,
		FaceFoundDelayed, FaceLostDelayed,
		FaceXChanged, FaceYChanged,
		FacesSaved,
		NearFace, FarAway,
	}
}

// Event is a single notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind      `json:"kind"`
	Time time.Time `json:"time"`
	Seq  uint64    `json:"seq"`

	// Box is the tracked face for position and near/far events.
	Box *geometry.Box `json:"box,omitempty"`

	// Far is true on FarAway when the face moved out of the near zone.
	Far bool `json:"far,omitempty"`

	// FaceIDs identifies the accepted crops on FacesSaved.
	FaceIDs []string `json:"face_ids,omitempty"`
}

// New creates an event of the given kind.
func New(kind Kind) Event {
	return Event{Kind: kind}
}

// WithBox attaches a copy of the box.
func (e Event) WithBox(b geometry.Box) Event {
	e.Box = &b
	return e
}
