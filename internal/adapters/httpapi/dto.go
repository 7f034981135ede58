package httpapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime/types"

	"github.com/voyagefriend/trip-planner-api/internal/app/recommendations"
	"github.com/voyagefriend/trip-planner-api/internal/app/trips"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/weather"
)

// Users.

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email types.Email `json:"email"`
	Role  string      `json:"role"`
}

type UserSummary struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email types.Email `json:"email"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

func toUser(u domain.User) User {
	return User{ID: string(u.ID), Name: u.Name, Email: types.Email(u.Email), Role: string(u.Role)}
}

// Trips.

// TripDate is a calendar day accepted as YYYY-MM-DD or as an RFC 3339
// timestamp, in which case the UTC day of that instant is kept.
type TripDate struct {
	time.Time
}

func (d TripDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(types.DateFormat))
}

func (d *TripDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if t, err := time.Parse(types.DateFormat, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("date %q: want YYYY-MM-DD or RFC 3339", raw)
	}
	t = t.UTC()
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

type CreateTripRequest struct {
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	StartDate   *TripDate `json:"startDate"`
	EndDate     *TripDate `json:"endDate"`
	Description *string   `json:"description,omitempty"`
	Interests   []string  `json:"interests,omitempty"`
	Travelers   string    `json:"travelers,omitempty"`
	Pets        bool      `json:"pets,omitempty"`
	Children    bool      `json:"children,omitempty"`
}

type UpdateTripRequest struct {
	Name        nullable.Nullable[string]   `json:"name,omitempty"`
	Destination nullable.Nullable[string]   `json:"destination,omitempty"`
	StartDate   nullable.Nullable[TripDate] `json:"startDate,omitempty"`
	EndDate     nullable.Nullable[TripDate] `json:"endDate,omitempty"`
	Description nullable.Nullable[string]   `json:"description,omitempty"`
	Interests   nullable.Nullable[[]string] `json:"interests,omitempty"`
	Travelers   nullable.Nullable[string]   `json:"travelers,omitempty"`
	Pets        nullable.Nullable[bool]     `json:"pets,omitempty"`
	Children    nullable.Nullable[bool]     `json:"children,omitempty"`
}

type ParticipantRequest struct {
	UserID string `json:"userId"`
}

type Trip struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Destination  string       `json:"destination"`
	StartDate    types.Date   `json:"startDate"`
	EndDate      types.Date   `json:"endDate"`
	Description  *string      `json:"description"`
	Interests    []string     `json:"interests"`
	Travelers    *string      `json:"travelers"`
	Pets         bool         `json:"pets"`
	Children     bool         `json:"children"`
	CreatedBy    string       `json:"createdBy"`
	Creator      *UserSummary `json:"creator,omitempty"`
	Participants []string     `json:"participants"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func toTrip(t domain.Trip) Trip {
	out := Trip{
		ID:           string(t.ID),
		Name:         t.Name,
		Destination:  t.Destination,
		StartDate:    types.Date{Time: t.StartDate},
		EndDate:      types.Date{Time: t.EndDate},
		Description:  t.Description,
		Interests:    t.Interests,
		CreatedBy:    string(t.CreatedBy),
		Participants: make([]string, 0, len(t.Participants)),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if out.Interests == nil {
		out.Interests = []string{}
	}
	if t.Party != nil {
		g := string(t.Party.Group)
		out.Travelers = &g
		out.Pets = t.Party.Pets
		out.Children = t.Party.Children
	}
	for _, p := range t.Participants {
		out.Participants = append(out.Participants, string(p))
	}
	if t.Creator != nil {
		out.Creator = &UserSummary{ID: string(t.Creator.ID), Name: t.Creator.Name, Email: types.Email(t.Creator.Email)}
	}
	return out
}

func (req CreateTripRequest) toInput() trips.CreateTripInput {
	in := trips.CreateTripInput{
		Name:        req.Name,
		Destination: req.Destination,
		Description: req.Description,
		Interests:   req.Interests,
		Travelers:   req.Travelers,
		Pets:        req.Pets,
		Children:    req.Children,
	}
	if req.StartDate != nil {
		in.StartDate = req.StartDate.Time
	}
	if req.EndDate != nil {
		in.EndDate = req.EndDate.Time
	}
	return in
}

func (req UpdateTripRequest) toInput() trips.UpdateTripInput {
	return trips.UpdateTripInput{
		Name:        optional(req.Name, identity[string]),
		Destination: optional(req.Destination, identity[string]),
		StartDate:   optional(req.StartDate, dateTime),
		EndDate:     optional(req.EndDate, dateTime),
		Description: optional(req.Description, identity[string]),
		Interests:   optional(req.Interests, identity[[]string]),
		Travelers:   optional(req.Travelers, identity[string]),
		Pets:        optional(req.Pets, identity[bool]),
		Children:    optional(req.Children, identity[bool]),
	}
}

func optional[T, U any](n nullable.Nullable[T], conv func(T) U) trips.Optional[U] {
	if !n.IsSpecified() {
		return trips.Unspecified[U]()
	}
	if n.IsNull() {
		return trips.Null[U]()
	}
	v, err := n.Get()
	if err != nil {
		return trips.Null[U]()
	}
	return trips.Some(conv(v))
}

func identity[T any](v T) T { return v }

func dateTime(d TripDate) time.Time { return d.Time }

// Polls.

type Budget struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type Media struct {
	Type      string  `json:"type"`
	URL       string  `json:"url"`
	Thumbnail *string `json:"thumbnail,omitempty"`
}

type CreatePollRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Budget      *Budget `json:"budget,omitempty"`
	Media       []Media `json:"media,omitempty"`
}

type VoteRequest struct {
	Direction string `json:"direction"`
}

type VoteTally struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

type Poll struct {
	ID          string    `json:"id"`
	TripID      string    `json:"tripId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Budget      Budget    `json:"budget"`
	Media       []Media   `json:"media"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	Votes       VoteTally `json:"votes"`
	MyVote      *string   `json:"myVote"`
}

func toPoll(p domain.Poll) Poll {
	out := Poll{
		ID:          string(p.ID),
		TripID:      string(p.TripID),
		Title:       p.Title,
		Description: p.Description,
		Budget:      Budget{Amount: p.Budget.Amount, Currency: p.Budget.Currency},
		Media:       make([]Media, 0, len(p.Media)),
		CreatedBy:   string(p.CreatedBy),
		CreatedAt:   p.CreatedAt,
		Votes:       VoteTally{Up: p.Votes.Up, Down: p.Votes.Down},
	}
	for _, m := range p.Media {
		out.Media = append(out.Media, Media{Type: string(m.Type), URL: m.URL, Thumbnail: m.Thumbnail})
	}
	if p.MyVote != nil {
		v := string(*p.MyVote)
		out.MyVote = &v
	}
	return out
}

// Recommendations.

type PlaceLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Place struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Image            string        `json:"image,omitempty"`
	Rating           float64       `json:"rating"`
	PriceLevel       int           `json:"priceLevel"`
	Address          string        `json:"address,omitempty"`
	Types            []string      `json:"types"`
	UserRatingsTotal int           `json:"userRatingsTotal"`
	Location         PlaceLocation `json:"location"`
}

type RecommendationFilters struct {
	Query       string   `json:"query,omitempty"`
	PriceLevel  int      `json:"priceLevel,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	MaxBudget   Budget   `json:"maxBudget"`
	Preferences []string `json:"preferences,omitempty"`
}

type RecommendationRequest struct {
	Places  []Place               `json:"places"`
	Filters RecommendationFilters `json:"filters"`
}

type ScoredPlace struct {
	Place
	Score float64 `json:"score"`
}

type RecommendationResponse struct {
	Places []ScoredPlace `json:"places"`
}

func (req RecommendationRequest) toDomain() ([]recommendations.Place, recommendations.Filters) {
	places := make([]recommendations.Place, 0, len(req.Places))
	for _, p := range req.Places {
		places = append(places, recommendations.Place{
			ID:               p.ID,
			Name:             p.Name,
			Image:            p.Image,
			Rating:           p.Rating,
			PriceLevel:       p.PriceLevel,
			Address:          p.Address,
			Types:            p.Types,
			UserRatingsTotal: p.UserRatingsTotal,
			Location:         recommendations.Location{Lat: p.Location.Lat, Lng: p.Location.Lng},
		})
	}
	f := recommendations.Filters{
		Query:       req.Filters.Query,
		PriceLevel:  req.Filters.PriceLevel,
		Rating:      req.Filters.Rating,
		MaxBudget:   recommendations.Budget{Amount: req.Filters.MaxBudget.Amount, Currency: req.Filters.MaxBudget.Currency},
		Preferences: req.Filters.Preferences,
	}
	return places, f
}

func toScoredPlace(s recommendations.Scored) ScoredPlace {
	placeTypes := s.Types
	if placeTypes == nil {
		placeTypes = []string{}
	}
	return ScoredPlace{
		Place: Place{
			ID:               s.ID,
			Name:             s.Name,
			Image:            s.Image,
			Rating:           s.Rating,
			PriceLevel:       s.PriceLevel,
			Address:          s.Address,
			Types:            placeTypes,
			UserRatingsTotal: s.UserRatingsTotal,
			Location:         PlaceLocation{Lat: s.Location.Lat, Lng: s.Location.Lng},
		},
		Score: s.Score,
	}
}

// Weather.

type Weather struct {
	Location     string  `json:"location"`
	Country      string  `json:"country,omitempty"`
	TemperatureC float64 `json:"temperatureC"`
	FeelsLikeC   float64 `json:"feelsLikeC"`
	Condition    string  `json:"condition"`
	Humidity     int     `json:"humidity"`
	WindSpeed    float64 `json:"windSpeed"`
}

func toWeather(r weather.Report) Weather {
	return Weather{
		Location:     r.Location,
		Country:      r.Country,
		TemperatureC: r.TemperatureC,
		FeelsLikeC:   r.FeelsLikeC,
		Condition:    r.Condition,
		Humidity:     r.Humidity,
		WindSpeed:    r.WindSpeedMS,
	}
}
