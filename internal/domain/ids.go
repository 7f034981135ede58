package domain

// UserID is the internal identifier of a user record. It is also the `sub`
// claim of issued bearer tokens.
type UserID string

// TripID is an internal identifier for a trip record.
type TripID string

// PollID is an internal identifier for a poll attached to a trip.
type PollID string
