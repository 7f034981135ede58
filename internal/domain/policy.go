package domain

// Action names a mutating or member-only operation on a trip or its children.
type Action string

const (
	ActionUpdateTrip         Action = "trip.update"
	ActionDeleteTrip         Action = "trip.delete"
	ActionManageParticipants Action = "trip.participants"

	// Member actions.
	ActionJoinItinerary Action = "trip.itinerary"
	ActionUsePolls      Action = "trip.polls"

	// ActionModeratePolls allows deleting any poll of the trip, not just one's own.
	ActionModeratePolls Action = "trip.polls.moderate"
)

// Authorize reports whether caller may perform action on t.
// Owner actions require caller to be the trip creator; member actions accept
// the creator or any participant. Unknown actions are denied.
func Authorize(action Action, t Trip, caller Identity) bool {
	if caller.UserID == "" {
		return false
	}
	switch action {
	case ActionUpdateTrip, ActionDeleteTrip, ActionManageParticipants, ActionModeratePolls:
		return t.CreatedBy == caller.UserID
	case ActionJoinItinerary, ActionUsePolls:
		return t.IsMember(caller.UserID)
	default:
		return false
	}
}
