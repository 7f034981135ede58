package userrepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/userrepo"
)

// Repo is a MongoDB implementation of userrepo.Repository over the users collection.
// Email uniqueness relies on the uniq_users_email index.
type Repo struct {
	c *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{c: db.Collection(mongodb.UsersCollection)}
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_, err := r.c.InsertOne(ctx, userDoc{
		ID:           string(u.ID),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	})
	if err != nil {
		if mongodb.IsDup(err) {
			// Only _id and email are unique.
			if n, cerr := r.c.CountDocuments(ctx, bson.M{"_id": string(u.ID)}); cerr == nil && n > 0 {
				return userrepo.ErrAlreadyExists
			}
			return userrepo.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (userrepo.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *Repo) ListByIDs(ctx context.Context, ids []domain.UserID) ([]userrepo.User, error) {
	if len(ids) == 0 {
		return []userrepo.User{}, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}
	cur, err := r.c.Find(ctx, bson.M{"_id": bson.M{"$in": raw}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]userrepo.User, 0, len(ids))
	for cur.Next(ctx) {
		var d userDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, fromDoc(d))
	}
	return out, cur.Err()
}

func (r *Repo) findOne(ctx context.Context, filter bson.M) (userrepo.User, error) {
	var d userDoc
	if err := r.c.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return userrepo.User{}, userrepo.ErrNotFound
		}
		return userrepo.User{}, err
	}
	return fromDoc(d), nil
}

func fromDoc(d userDoc) userrepo.User {
	return userrepo.User{
		ID:           domain.UserID(d.ID),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}
