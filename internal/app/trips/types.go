package trips

import "time"

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// CreateTripInput carries the fields of a new trip. Zero dates mean "missing".
type CreateTripInput struct {
	Name        string
	Destination string
	StartDate   time.Time
	EndDate     time.Time

	Description *string
	Interests   []string

	// Travelers is a group name accepted by domain.ParseTravelGroup; empty
	// means no travel party. Pets and Children require Travelers.
	Travelers string
	Pets      bool
	Children  bool
}

type UpdateTripInput struct {
	// Name, Destination and the dates are optional and cannot be null.
	Name        Optional[string]
	Destination Optional[string]
	StartDate   Optional[time.Time]
	EndDate     Optional[time.Time]

	// Description may be null, which clears it.
	Description Optional[string]
	// Interests may be null, which clears them.
	Interests Optional[[]string]

	// Travelers may be null, which clears the whole travel party. Pets and
	// Children null mean false.
	Travelers Optional[string]
	Pets      Optional[bool]
	Children  Optional[bool]
}
