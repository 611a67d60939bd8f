package comm

import "errors"

var (
	// ErrAborted is returned by a blocked collective once another rank failed.
	ErrAborted = errors.New("comm: world aborted")
	// ErrCollectiveMismatch is returned when ranks enter different collectives.
	ErrCollectiveMismatch = errors.New("comm: collective mismatch")
	// ErrFreed is returned by operations on a released group.
	ErrFreed = errors.New("comm: group freed")
)
