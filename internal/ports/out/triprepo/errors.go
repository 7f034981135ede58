package triprepo

import "errors"

var (
	ErrNotFound      = errors.New("trip not found")
	ErrAlreadyExists = errors.New("trip already exists")

	// ErrAlreadyParticipant is returned by AddParticipant when the user is already in the set.
	ErrAlreadyParticipant = errors.New("user is already a participant")
	// ErrNotParticipant is returned by RemoveParticipant when the user is not in the set.
	ErrNotParticipant = errors.New("user is not a participant")
)
