package triprepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/triprepo"
)

// Repo is a MongoDB implementation of triprepo.Repository over the trips collection.
//
// Participant mutations are single FindOneAndUpdate calls whose filter carries the
// precondition ($ne for add, equality for remove), so the check and the write happen
// atomically on the server.
type Repo struct {
	c *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{c: db.Collection(mongodb.TripsCollection)}
}

type tripDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Destination  string    `bson:"destination"`
	StartDate    time.Time `bson:"startDate"`
	EndDate      time.Time `bson:"endDate"`
	Description  *string   `bson:"description"`
	Interests    []string  `bson:"interests"`
	Party        *partyDoc `bson:"party"`
	CreatedBy    string    `bson:"createdBy"`
	Participants []string  `bson:"participants"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

type partyDoc struct {
	Travelers string `bson:"travelers"`
	Pets      bool   `bson:"pets"`
	Children  bool   `bson:"children"`
}

func toPartyDoc(p *domain.TravelParty) *partyDoc {
	if p == nil {
		return nil
	}
	return &partyDoc{Travelers: string(p.Group), Pets: p.Pets, Children: p.Children}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	participants := make([]string, 0, len(t.Participants))
	for _, p := range t.Participants {
		participants = append(participants, string(p))
	}
	interests := t.Interests
	if interests == nil {
		interests = []string{}
	}
	_, err := r.c.InsertOne(ctx, tripDoc{
		ID:           string(t.ID),
		Name:         t.Name,
		Destination:  t.Destination,
		StartDate:    t.StartDate.UTC(),
		EndDate:      t.EndDate.UTC(),
		Description:  t.Description,
		Interests:    interests,
		Party:        toPartyDoc(t.Party),
		CreatedBy:    string(t.CreatedBy),
		Participants: participants,
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	})
	if err != nil {
		if mongodb.IsDup(err) {
			return triprepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	interests := t.Interests
	if interests == nil {
		interests = []string{}
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": string(t.ID)}, bson.M{"$set": bson.M{
		"name":        t.Name,
		"destination": t.Destination,
		"startDate":   t.StartDate.UTC(),
		"endDate":     t.EndDate.UTC(),
		"description": t.Description,
		"interests":   interests,
		"party":       toPartyDoc(t.Party),
		"updatedAt":   t.UpdatedAt.UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	var d tripDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return triprepo.Trip{}, triprepo.ErrNotFound
		}
		return triprepo.Trip{}, err
	}
	return fromDoc(d), nil
}

func (r *Repo) List(ctx context.Context) ([]triprepo.Trip, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "startDate", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := r.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]triprepo.Trip, 0)
	for cur.Next(ctx) {
		var d tripDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, fromDoc(d))
	}
	return out, cur.Err()
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) AddParticipant(ctx context.Context, id domain.TripID, user domain.UserID, at time.Time) (triprepo.Trip, error) {
	filter := bson.M{"_id": string(id), "participants": bson.M{"$ne": string(user)}}
	update := bson.M{
		"$addToSet": bson.M{"participants": string(user)},
		"$set":      bson.M{"updatedAt": at.UTC()},
	}
	return r.mutateParticipants(ctx, id, filter, update, triprepo.ErrAlreadyParticipant)
}

func (r *Repo) RemoveParticipant(ctx context.Context, id domain.TripID, user domain.UserID, at time.Time) (triprepo.Trip, error) {
	filter := bson.M{"_id": string(id), "participants": string(user)}
	update := bson.M{
		"$pull": bson.M{"participants": string(user)},
		"$set":  bson.M{"updatedAt": at.UTC()},
	}
	return r.mutateParticipants(ctx, id, filter, update, triprepo.ErrNotParticipant)
}

// mutateParticipants applies update when filter matches. On no match it tells a
// missing trip apart from a failed precondition, returning preconditionErr for the latter.
func (r *Repo) mutateParticipants(ctx context.Context, id domain.TripID, filter, update bson.M, preconditionErr error) (triprepo.Trip, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d tripDoc
	err := r.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
	if err == nil {
		return fromDoc(d), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return triprepo.Trip{}, err
	}
	n, err := r.c.CountDocuments(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return triprepo.Trip{}, err
	}
	if n == 0 {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	return triprepo.Trip{}, preconditionErr
}

func fromDoc(d tripDoc) triprepo.Trip {
	var participants []domain.UserID
	if len(d.Participants) > 0 {
		participants = make([]domain.UserID, 0, len(d.Participants))
		for _, p := range d.Participants {
			participants = append(participants, domain.UserID(p))
		}
	}
	var interests []string
	if len(d.Interests) > 0 {
		interests = d.Interests
	}
	var party *domain.TravelParty
	if d.Party != nil {
		party = &domain.TravelParty{Group: domain.TravelGroup(d.Party.Travelers), Pets: d.Party.Pets, Children: d.Party.Children}
	}
	return triprepo.Trip{
		ID:           domain.TripID(d.ID),
		Name:         d.Name,
		Destination:  d.Destination,
		StartDate:    d.StartDate.UTC(),
		EndDate:      d.EndDate.UTC(),
		Description:  d.Description,
		Interests:    interests,
		Party:        party,
		CreatedBy:    domain.UserID(d.CreatedBy),
		Participants: participants,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}
