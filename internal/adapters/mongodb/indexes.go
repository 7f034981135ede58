package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/voyagefriend/trip-planner-api/internal/ports/out/idempotency"
)

/*
EnsureIndexes is called at startup. CreateMany is idempotent for identical
definitions, so running it on every boot is safe. Errors are aggregated per
collection so one failure does not hide another.
*/
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{UsersCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_users_email").SetUnique(true)},
		}},
		{TripsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "startDate", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}, Options: options.Index().SetName("idx_trips_listing")},
		}},
		{PollsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tripId", Value: 1}, {Key: "createdAt", Value: 1}}, Options: options.Index().SetName("idx_polls_trip")},
		}},
		{PollVotesCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "pollId", Value: 1}, {Key: "userId", Value: 1}}, Options: options.Index().SetName("uniq_poll_votes_poll_user").SetUnique(true)},
			{Keys: bson.D{{Key: "tripId", Value: 1}}, Options: options.Index().SetName("idx_poll_votes_trip")},
		}},
		{IdempotencyCollection, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "key", Value: 1},
					{Key: "subject", Value: 1},
					{Key: "method", Value: 1},
					{Key: "route", Value: 1},
				},
				Options: options.Index().SetName("uniq_idempotency_scope").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "createdAt", Value: 1}},
				Options: options.Index().SetName("ttl_idempotency_created").SetExpireAfterSeconds(int32(idempotency.Retention / time.Second)),
			},
		}},
	}

	for _, s := range sets {
		start := time.Now()
		names, err := db.Collection(s.collection).Indexes().CreateMany(ctx, s.models)
		if err != nil {
			zap.L().Warn("ensure indexes failed",
				zap.String("collection", s.collection),
				zap.Error(err))
			problems = append(problems, s.collection+": "+err.Error())
			continue
		}
		zap.L().Info("indexes ensured",
			zap.String("collection", s.collection),
			zap.Strings("names", names),
			zap.Duration("took", time.Since(start)))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
