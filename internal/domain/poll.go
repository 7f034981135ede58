package domain

import "time"

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

type Budget struct {
	Amount   float64
	Currency string
}

type Media struct {
	Type      MediaType
	URL       string
	Thumbnail *string
}

type VoteTally struct {
	Up   int
	Down int
}

// Poll is a destination/activity proposal attached to a trip that members vote on.
type Poll struct {
	ID          PollID
	TripID      TripID
	Title       string
	Description string
	Budget      Budget
	Media       []Media
	CreatedBy   UserID
	CreatedAt   time.Time

	Votes VoteTally
	// MyVote is the caller's current vote; nil means no vote.
	MyVote *VoteDirection
}
