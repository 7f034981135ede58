package triprepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/triprepo"
)

// Repo is a Postgres implementation of triprepo.Repository.
//
// Participants live in trip_participants keyed by (trip_id, user_id), so set
// semantics are enforced by the primary key rather than by application code.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectTrip = `
	SELECT id, name, destination, start_date, end_date, description, interests,
		travelers, with_pets, with_children, created_by, created_at, updated_at
	FROM trips
`

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}
	creatorUUID, err := uuid.Parse(string(t.CreatedBy))
	if err != nil {
		return fmt.Errorf("invalid creator id: %w", err)
	}

	travelers, pets, children := partyColumns(t.Party)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO trips (
				id,
				name,
				destination,
				start_date,
				end_date,
				description,
				interests,
				travelers,
				with_pets,
				with_children,
				created_by,
				created_at,
				updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			tripUUID,
			t.Name,
			t.Destination,
			toDate(t.StartDate),
			toDate(t.EndDate),
			t.Description,
			nonNilStrings(t.Interests),
			travelers,
			pets,
			children,
			creatorUUID,
			t.CreatedAt.UTC(),
			t.UpdatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
				return triprepo.ErrAlreadyExists
			}
			return err
		}

		for _, p := range t.Participants {
			pUUID, err := uuid.Parse(string(p))
			if err != nil {
				return fmt.Errorf("invalid participant id: %w", err)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO trip_participants (trip_id, user_id, added_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (trip_id, user_id) DO NOTHING
			`, tripUUID, pUUID, t.CreatedAt.UTC()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	travelers, pets, children := partyColumns(t.Party)
	tag, err := r.pool.Exec(ctx, `
		UPDATE trips SET
			name = $2,
			destination = $3,
			start_date = $4,
			end_date = $5,
			description = $6,
			interests = $7,
			travelers = $8,
			with_pets = $9,
			with_children = $10,
			updated_at = $11
		WHERE id = $1
	`,
		tripUUID,
		t.Name,
		t.Destination,
		toDate(t.StartDate),
		toDate(t.EndDate),
		t.Description,
		nonNilStrings(t.Interests),
		travelers,
		pets,
		children,
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	if r.pool == nil {
		return triprepo.Trip{}, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	return getTrip(ctx, r.pool, tripUUID)
}

func (r *Repo) List(ctx context.Context) ([]triprepo.Trip, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, selectTrip+` ORDER BY start_date ASC, created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	out := make([]triprepo.Trip, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, t)
		ids = append(ids, uuid.MustParse(string(t.ID)))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	byTrip, err := loadParticipants(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Participants = byTrip[out[i].ID]
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, tripUUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) AddParticipant(ctx context.Context, id domain.TripID, user domain.UserID, at time.Time) (triprepo.Trip, error) {
	if r.pool == nil {
		return triprepo.Trip{}, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	userUUID, err := uuid.Parse(string(user))
	if err != nil {
		return triprepo.Trip{}, fmt.Errorf("invalid user id: %w", err)
	}

	var out triprepo.Trip
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO trip_participants (trip_id, user_id, added_at)
			SELECT id, $2, $3 FROM trips WHERE id = $1
			ON CONFLICT (trip_id, user_id) DO NOTHING
		`, tripUUID, userUUID, at.UTC())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			exists, err := tripExists(ctx, tx, tripUUID)
			if err != nil {
				return err
			}
			if !exists {
				return triprepo.ErrNotFound
			}
			return triprepo.ErrAlreadyParticipant
		}
		if _, err := tx.Exec(ctx, `UPDATE trips SET updated_at = $2 WHERE id = $1`, tripUUID, at.UTC()); err != nil {
			return err
		}
		out, err = getTrip(ctx, tx, tripUUID)
		return err
	})
	if err != nil {
		return triprepo.Trip{}, err
	}
	return out, nil
}

func (r *Repo) RemoveParticipant(ctx context.Context, id domain.TripID, user domain.UserID, at time.Time) (triprepo.Trip, error) {
	if r.pool == nil {
		return triprepo.Trip{}, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	userUUID, err := uuid.Parse(string(user))
	if err != nil {
		return triprepo.Trip{}, triprepo.ErrNotParticipant
	}

	var out triprepo.Trip
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM trip_participants WHERE trip_id = $1 AND user_id = $2
		`, tripUUID, userUUID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			exists, err := tripExists(ctx, tx, tripUUID)
			if err != nil {
				return err
			}
			if !exists {
				return triprepo.ErrNotFound
			}
			return triprepo.ErrNotParticipant
		}
		if _, err := tx.Exec(ctx, `UPDATE trips SET updated_at = $2 WHERE id = $1`, tripUUID, at.UTC()); err != nil {
			return err
		}
		out, err = getTrip(ctx, tx, tripUUID)
		return err
	})
	if err != nil {
		return triprepo.Trip{}, err
	}
	return out, nil
}

func getTrip(ctx context.Context, q querier, tripUUID uuid.UUID) (triprepo.Trip, error) {
	t, err := scanTrip(q.QueryRow(ctx, selectTrip+` WHERE id = $1`, tripUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return triprepo.Trip{}, triprepo.ErrNotFound
		}
		return triprepo.Trip{}, err
	}
	byTrip, err := loadParticipants(ctx, q, []uuid.UUID{tripUUID})
	if err != nil {
		return triprepo.Trip{}, err
	}
	t.Participants = byTrip[t.ID]
	return t, nil
}

func tripExists(ctx context.Context, q querier, tripUUID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, tripUUID).Scan(&exists)
	return exists, err
}

// loadParticipants returns participant ids per trip in insertion order.
func loadParticipants(ctx context.Context, q querier, tripUUIDs []uuid.UUID) (map[domain.TripID][]domain.UserID, error) {
	rows, err := q.Query(ctx, `
		SELECT trip_id, user_id
		FROM trip_participants
		WHERE trip_id = ANY($1)
		ORDER BY seq ASC
	`, tripUUIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.TripID][]domain.UserID, len(tripUUIDs))
	for rows.Next() {
		var tid, uid uuid.UUID
		if err := rows.Scan(&tid, &uid); err != nil {
			return nil, err
		}
		key := domain.TripID(tid.String())
		out[key] = append(out[key], domain.UserID(uid.String()))
	}
	return out, rows.Err()
}

func scanTrip(row pgx.Row) (triprepo.Trip, error) {
	var (
		id        uuid.UUID
		creator   uuid.UUID
		startDate pgtype.Date
		endDate   pgtype.Date
		travelers *string
		pets      bool
		children  bool
		t         triprepo.Trip
	)
	if err := row.Scan(
		&id,
		&t.Name,
		&t.Destination,
		&startDate,
		&endDate,
		&t.Description,
		&t.Interests,
		&travelers,
		&pets,
		&children,
		&creator,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return triprepo.Trip{}, err
	}
	t.ID = domain.TripID(id.String())
	t.CreatedBy = domain.UserID(creator.String())
	t.StartDate = fromDate(startDate)
	t.EndDate = fromDate(endDate)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if len(t.Interests) == 0 {
		t.Interests = nil
	}
	if travelers != nil {
		t.Party = &domain.TravelParty{Group: domain.TravelGroup(*travelers), Pets: pets, Children: children}
	}
	return t, nil
}

// partyColumns maps a travel party to its columns; no party stores NULL travelers.
func partyColumns(p *domain.TravelParty) (*string, bool, bool) {
	if p == nil {
		return nil, false, false
	}
	g := string(p.Group)
	return &g, p.Pets, p.Children
}

func toDate(t time.Time) pgtype.Date {
	tt := t.UTC()
	return pgtype.Date{
		Time:  time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC),
		Valid: true,
	}
}

func fromDate(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
