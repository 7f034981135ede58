package pollrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/pollrepo"
)

// Repo is a Postgres implementation of pollrepo.Repository.
// Votes cascade with their poll (poll_votes.poll_id ON DELETE CASCADE).
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// mediaRow is the JSONB element shape of polls.media.
type mediaRow struct {
	Type      string  `json:"type"`
	URL       string  `json:"url"`
	Thumbnail *string `json:"thumbnail,omitempty"`
}

const selectPoll = `
	SELECT id, trip_id, title, description, budget_amount, budget_currency, media, created_by, created_at
	FROM polls
`

func (r *Repo) Create(ctx context.Context, p pollrepo.Poll) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	pollUUID, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid poll id: %w", err)
	}
	tripUUID, err := uuid.Parse(string(p.TripID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}
	creatorUUID, err := uuid.Parse(string(p.CreatedBy))
	if err != nil {
		return fmt.Errorf("invalid creator id: %w", err)
	}
	media, err := encodeMedia(p.Media)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO polls (
			id,
			trip_id,
			title,
			description,
			budget_amount,
			budget_currency,
			media,
			created_by,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		pollUUID,
		tripUUID,
		p.Title,
		p.Description,
		p.Budget.Amount,
		p.Budget.Currency,
		media,
		creatorUUID,
		p.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok {
			switch pe.Code {
			case postgres.UniqueViolationCode:
				return pollrepo.ErrAlreadyExists
			case postgres.ForeignKeyViolationCode:
				return fmt.Errorf("poll references missing row (%s): %w", pe.ConstraintName, err)
			}
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PollID) (pollrepo.Poll, error) {
	if r.pool == nil {
		return pollrepo.Poll{}, errors.New("nil postgres pool")
	}
	pollUUID, err := uuid.Parse(string(id))
	if err != nil {
		return pollrepo.Poll{}, pollrepo.ErrNotFound
	}
	p, err := scanPoll(r.pool.QueryRow(ctx, selectPoll+` WHERE id = $1`, pollUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pollrepo.Poll{}, pollrepo.ErrNotFound
		}
		return pollrepo.Poll{}, err
	}
	return p, nil
}

func (r *Repo) ListByTrip(ctx context.Context, tripID domain.TripID) ([]pollrepo.Poll, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(tripID))
	if err != nil {
		return []pollrepo.Poll{}, nil
	}
	rows, err := r.pool.Query(ctx, selectPoll+` WHERE trip_id = $1 ORDER BY created_at ASC, id ASC`, tripUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]pollrepo.Poll, 0)
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id domain.PollID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	pollUUID, err := uuid.Parse(string(id))
	if err != nil {
		return pollrepo.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM polls WHERE id = $1`, pollUUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pollrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteByTrip(ctx context.Context, tripID domain.TripID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(tripID))
	if err != nil {
		return nil
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM polls WHERE trip_id = $1`, tripUUID)
	return err
}

func (r *Repo) UpsertVote(ctx context.Context, v pollrepo.Vote) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	pollUUID, err := uuid.Parse(string(v.PollID))
	if err != nil {
		return pollrepo.ErrNotFound
	}
	userUUID, err := uuid.Parse(string(v.UserID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO poll_votes (poll_id, user_id, direction, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (poll_id, user_id)
		DO UPDATE SET
			direction = EXCLUDED.direction,
			updated_at = EXCLUDED.updated_at
	`, pollUUID, userUUID, string(v.Direction), v.UpdatedAt.UTC())
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode && pe.ConstraintName == "poll_votes_poll_id_fkey" {
			return pollrepo.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *Repo) DeleteVote(ctx context.Context, pollID domain.PollID, userID domain.UserID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	pollUUID, err := uuid.Parse(string(pollID))
	if err != nil {
		return nil
	}
	userUUID, err := uuid.Parse(string(userID))
	if err != nil {
		return nil
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM poll_votes WHERE poll_id = $1 AND user_id = $2`, pollUUID, userUUID)
	return err
}

func (r *Repo) ListVotesByTrip(ctx context.Context, tripID domain.TripID) ([]pollrepo.Vote, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(tripID))
	if err != nil {
		return []pollrepo.Vote{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT v.poll_id, v.user_id, v.direction, v.updated_at
		FROM poll_votes v
		JOIN polls p ON p.id = v.poll_id
		WHERE p.trip_id = $1
	`, tripUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]pollrepo.Vote, 0)
	for rows.Next() {
		var (
			pid, uid  uuid.UUID
			direction string
			v         pollrepo.Vote
		)
		if err := rows.Scan(&pid, &uid, &direction, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.PollID = domain.PollID(pid.String())
		v.UserID = domain.UserID(uid.String())
		v.Direction = domain.VoteDirection(direction)
		v.UpdatedAt = v.UpdatedAt.UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanPoll(row pgx.Row) (pollrepo.Poll, error) {
	var (
		id, tripID, creator uuid.UUID
		media               []byte
		p                   pollrepo.Poll
	)
	if err := row.Scan(
		&id,
		&tripID,
		&p.Title,
		&p.Description,
		&p.Budget.Amount,
		&p.Budget.Currency,
		&media,
		&creator,
		&p.CreatedAt,
	); err != nil {
		return pollrepo.Poll{}, err
	}
	p.ID = domain.PollID(id.String())
	p.TripID = domain.TripID(tripID.String())
	p.CreatedBy = domain.UserID(creator.String())
	p.CreatedAt = p.CreatedAt.UTC()

	ms, err := decodeMedia(media)
	if err != nil {
		return pollrepo.Poll{}, err
	}
	p.Media = ms
	return p, nil
}

func encodeMedia(ms []domain.Media) ([]byte, error) {
	rows := make([]mediaRow, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, mediaRow{Type: string(m.Type), URL: m.URL, Thumbnail: m.Thumbnail})
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode poll media: %w", err)
	}
	return b, nil
}

func decodeMedia(b []byte) ([]domain.Media, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var rows []mediaRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("decode poll media: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]domain.Media, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Media{Type: domain.MediaType(r.Type), URL: r.URL, Thumbnail: r.Thumbnail})
	}
	return out, nil
}
