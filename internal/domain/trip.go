package domain

import (
	"strings"
	"time"
)

// Trip is the domain read model of a trip.
type Trip struct {
	ID          TripID
	Name        string
	Destination string
	StartDate   time.Time // date-only semantics at the edges
	EndDate     time.Time // date-only semantics at the edges

	Description *string
	Interests   []string
	// Party is nil when the creator did not say who is travelling.
	Party *TravelParty

	CreatedBy    UserID
	Participants []UserID

	// Creator is populated on reads that expand the creator identity.
	Creator *UserSummary

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsMember reports whether id is the creator or a participant of the trip.
func (t Trip) IsMember(id UserID) bool {
	if t.CreatedBy == id {
		return true
	}
	return ContainsUserID(t.Participants, id)
}

// ContainsUserID reports whether ids contains target.
func ContainsUserID(ids []UserID, target UserID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

// TravelGroup names who a trip is planned for.
type TravelGroup string

const (
	TravelSolo    TravelGroup = "solo"
	TravelPartner TravelGroup = "partner"
	TravelFriends TravelGroup = "friends"
	TravelFamily  TravelGroup = "family"
)

// ParseTravelGroup accepts the group names case-insensitively, plus the
// "with partner" spelling.
func ParseTravelGroup(s string) (TravelGroup, bool) {
	switch g := TravelGroup(strings.ToLower(NormalizeHumanName(s))); g {
	case TravelSolo, TravelPartner, TravelFriends, TravelFamily:
		return g, true
	case "with partner":
		return TravelPartner, true
	default:
		return "", false
	}
}

// AllowsChildren reports whether children can be part of a trip for g.
func (g TravelGroup) AllowsChildren() bool {
	return g == TravelFriends || g == TravelFamily
}

// TravelParty describes who is coming on a trip.
type TravelParty struct {
	Group    TravelGroup
	Pets     bool
	Children bool
}
