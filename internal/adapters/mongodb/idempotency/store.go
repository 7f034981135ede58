package idempotency

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/idempotency"
)

// Store is a MongoDB implementation of idempotency.Store over idempotency_records.
type Store struct {
	c *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{c: db.Collection(mongodb.IdempotencyCollection)}
}

type recordDoc struct {
	Key         string    `bson:"key"`
	Subject     string    `bson:"subject"`
	Method      string    `bson:"method"`
	Route       string    `bson:"route"`
	BodyHash    string    `bson:"bodyHash"`
	StatusCode  int       `bson:"statusCode"`
	ContentType string    `bson:"contentType"`
	Body        []byte    `bson:"body"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func scope(fp idempotency.Fingerprint) bson.M {
	return bson.M{
		"key":     string(fp.Key),
		"subject": string(fp.Subject),
		"method":  fp.Method,
		"route":   fp.Route,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	var d recordDoc
	if err := s.c.FindOne(ctx, scope(fp)).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	return idempotency.Record{
		BodyHash:    d.BodyHash,
		StatusCode:  d.StatusCode,
		ContentType: d.ContentType,
		Body:        d.Body,
		CreatedAt:   d.CreatedAt.UTC(),
	}, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	update := bson.M{"$setOnInsert": bson.M{
		"bodyHash":    rec.BodyHash,
		"statusCode":  rec.StatusCode,
		"contentType": rec.ContentType,
		"body":        rec.Body,
		"createdAt":   createdAt.UTC(),
	}}
	_, err := s.c.UpdateOne(ctx, scope(fp), update, options.Update().SetUpsert(true))
	if mongodb.IsDup(err) {
		// A concurrent Put inserted first; first writer wins.
		return nil
	}
	return err
}
