package pollrepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/pollrepo"
)

// Repo is a MongoDB implementation of pollrepo.Repository.
// Votes live in their own collection keyed by (pollId, userId) and carry the
// tripId so a trip's tallies can be read with one query.
type Repo struct {
	polls *mongo.Collection
	votes *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{
		polls: db.Collection(mongodb.PollsCollection),
		votes: db.Collection(mongodb.PollVotesCollection),
	}
}

type mediaDoc struct {
	Type      string  `bson:"type"`
	URL       string  `bson:"url"`
	Thumbnail *string `bson:"thumbnail,omitempty"`
}

type budgetDoc struct {
	Amount   float64 `bson:"amount"`
	Currency string  `bson:"currency"`
}

type pollDoc struct {
	ID          string     `bson:"_id"`
	TripID      string     `bson:"tripId"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Budget      budgetDoc  `bson:"budget"`
	Media       []mediaDoc `bson:"media"`
	CreatedBy   string     `bson:"createdBy"`
	CreatedAt   time.Time  `bson:"createdAt"`
}

type voteDoc struct {
	PollID    string    `bson:"pollId"`
	UserID    string    `bson:"userId"`
	TripID    string    `bson:"tripId"`
	Direction string    `bson:"direction"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (r *Repo) Create(ctx context.Context, p pollrepo.Poll) error {
	media := make([]mediaDoc, 0, len(p.Media))
	for _, m := range p.Media {
		media = append(media, mediaDoc{Type: string(m.Type), URL: m.URL, Thumbnail: m.Thumbnail})
	}
	_, err := r.polls.InsertOne(ctx, pollDoc{
		ID:          string(p.ID),
		TripID:      string(p.TripID),
		Title:       p.Title,
		Description: p.Description,
		Budget:      budgetDoc{Amount: p.Budget.Amount, Currency: p.Budget.Currency},
		Media:       media,
		CreatedBy:   string(p.CreatedBy),
		CreatedAt:   p.CreatedAt.UTC(),
	})
	if err != nil {
		if mongodb.IsDup(err) {
			return pollrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PollID) (pollrepo.Poll, error) {
	var d pollDoc
	if err := r.polls.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return pollrepo.Poll{}, pollrepo.ErrNotFound
		}
		return pollrepo.Poll{}, err
	}
	return fromDoc(d), nil
}

func (r *Repo) ListByTrip(ctx context.Context, tripID domain.TripID) ([]pollrepo.Poll, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.polls.Find(ctx, bson.M{"tripId": string(tripID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]pollrepo.Poll, 0)
	for cur.Next(ctx) {
		var d pollDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, fromDoc(d))
	}
	return out, cur.Err()
}

func (r *Repo) Delete(ctx context.Context, id domain.PollID) error {
	res, err := r.polls.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return pollrepo.ErrNotFound
	}
	_, err = r.votes.DeleteMany(ctx, bson.M{"pollId": string(id)})
	return err
}

func (r *Repo) DeleteByTrip(ctx context.Context, tripID domain.TripID) error {
	if _, err := r.polls.DeleteMany(ctx, bson.M{"tripId": string(tripID)}); err != nil {
		return err
	}
	_, err := r.votes.DeleteMany(ctx, bson.M{"tripId": string(tripID)})
	return err
}

func (r *Repo) UpsertVote(ctx context.Context, v pollrepo.Vote) error {
	var p pollDoc
	if err := r.polls.FindOne(ctx, bson.M{"_id": string(v.PollID)}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return pollrepo.ErrNotFound
		}
		return err
	}

	filter := bson.M{"pollId": string(v.PollID), "userId": string(v.UserID)}
	update := bson.M{
		"$set": bson.M{
			"direction": string(v.Direction),
			"updatedAt": v.UpdatedAt.UTC(),
		},
		"$setOnInsert": bson.M{"tripId": p.TripID},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.votes.UpdateOne(ctx, filter, update, opts)
	if mongodb.IsDup(err) {
		// Two first votes raced on the upsert; the unique index kept one, so retry as an update.
		_, err = r.votes.UpdateOne(ctx, filter, update, opts)
	}
	return err
}

func (r *Repo) DeleteVote(ctx context.Context, pollID domain.PollID, userID domain.UserID) error {
	_, err := r.votes.DeleteOne(ctx, bson.M{"pollId": string(pollID), "userId": string(userID)})
	return err
}

func (r *Repo) ListVotesByTrip(ctx context.Context, tripID domain.TripID) ([]pollrepo.Vote, error) {
	cur, err := r.votes.Find(ctx, bson.M{"tripId": string(tripID)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]pollrepo.Vote, 0)
	for cur.Next(ctx) {
		var d voteDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, pollrepo.Vote{
			PollID:    domain.PollID(d.PollID),
			UserID:    domain.UserID(d.UserID),
			Direction: domain.VoteDirection(d.Direction),
			UpdatedAt: d.UpdatedAt.UTC(),
		})
	}
	return out, cur.Err()
}

func fromDoc(d pollDoc) pollrepo.Poll {
	var media []domain.Media
	if len(d.Media) > 0 {
		media = make([]domain.Media, 0, len(d.Media))
		for _, m := range d.Media {
			media = append(media, domain.Media{Type: domain.MediaType(m.Type), URL: m.URL, Thumbnail: m.Thumbnail})
		}
	}
	return pollrepo.Poll{
		ID:          domain.PollID(d.ID),
		TripID:      domain.TripID(d.TripID),
		Title:       d.Title,
		Description: d.Description,
		Budget:      domain.Budget{Amount: d.Budget.Amount, Currency: d.Budget.Currency},
		Media:       media,
		CreatedBy:   domain.UserID(d.CreatedBy),
		CreatedAt:   d.CreatedAt.UTC(),
	}
}
