package services

import "errors"

var (
	// ErrNotFound is returned when a referenced project, track or version
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLastTrack is returned when a write would leave a project with no
	// tracks. A project always keeps at least one track.
	ErrLastTrack = errors.New("a project must keep at least one track")
)
