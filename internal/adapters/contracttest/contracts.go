package contracttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
	idempotencyport "github.com/voyagefriend/trip-planner-api/internal/ports/out/idempotency"
	pollrepoport "github.com/voyagefriend/trip-planner-api/internal/ports/out/pollrepo"
	triprepoport "github.com/voyagefriend/trip-planner-api/internal/ports/out/triprepo"
	userrepoport "github.com/voyagefriend/trip-planner-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type TripRepoFactory func(t *testing.T) (triprepoport.Repository, CleanupFunc)
type PollRepoFactory func(t *testing.T) (pollrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// Repos is a set of repositories sharing one backing store, so suites can seed
// rows that other tables reference.
type Repos struct {
	Users userrepoport.Repository
	Trips triprepoport.Repository
	Polls pollrepoport.Repository
}

type ReposFactory func(t *testing.T) (Repos, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:     idempotencyport.Key("k-" + uuid.NewString()),
		Subject: domain.UserID("user-1"),
		Method:  "POST",
		Route:   "/api/trips",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		BodyHash:    "hash-abc",
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"t1"}`),
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if got.BodyHash != "hash-abc" || got.StatusCode != 201 || got.ContentType != "application/json" || string(got.Body) != `{"id":"t1"}` {
		t.Fatalf("unexpected record: %+v", got)
	}

	// First writer wins.
	rec2 := rec
	rec2.BodyHash = "hash-def"
	rec2.Body = []byte(`{"id":"t2"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put second: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || got.BodyHash != "hash-abc" || string(got.Body) != `{"id":"t1"}` {
		t.Fatalf("expected original record, got ok=%v err=%v rec=%+v", ok, err, got)
	}

	// Route is part of the scope.
	other := fp
	other.Route = "/api/trips/x/polls"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other route: ok=%v err=%v", ok, err)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	aID := domain.UserID(uuid.NewString())
	email := "alice-" + uuid.NewString()[:8] + "@example.com"
	if err := repo.Create(ctx, userrepoport.User{
		ID:           aID,
		Name:         "Alice Johnson",
		Email:        email,
		PasswordHash: "$2a$12$hash",
		Role:         domain.RoleOwner,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}

	got, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Alice Johnson" || got.Email != email || got.Role != domain.RoleOwner || got.PasswordHash != "$2a$12$hash" {
		t.Fatalf("unexpected user: %#v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt=%v, want %v", got.CreatedAt, now)
	}
	if got, err := repo.GetByEmail(ctx, email); err != nil || got.ID != aID {
		t.Fatalf("GetByEmail: id=%q err=%v", got.ID, err)
	}

	// Email uniqueness.
	err = repo.Create(ctx, userrepoport.User{
		ID:           domain.UserID(uuid.NewString()),
		Name:         "Alice 2",
		Email:        email,
		PasswordHash: "x",
		Role:         domain.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if !errors.Is(err, userrepoport.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if _, err := repo.GetByID(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody-"+uuid.NewString()+"@example.com"); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByEmail missing: expected ErrNotFound, got %v", err)
	}

	bID := domain.UserID(uuid.NewString())
	if err := repo.Create(ctx, userrepoport.User{
		ID:           bID,
		Name:         "Bob",
		Email:        "bob-" + uuid.NewString()[:8] + "@example.com",
		PasswordHash: "x",
		Role:         domain.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	us, err := repo.ListByIDs(ctx, []domain.UserID{aID, bID, domain.UserID(uuid.NewString())})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(us) != 2 {
		t.Fatalf("ListByIDs len=%d, want 2: %#v", len(us), us)
	}
	if us, err := repo.ListByIDs(ctx, nil); err != nil || len(us) != 0 {
		t.Fatalf("ListByIDs(nil): len=%d err=%v", len(us), err)
	}
}

func seedUser(t *testing.T, ctx context.Context, users userrepoport.Repository, name string) domain.UserID {
	t.Helper()
	id := domain.UserID(uuid.NewString())
	now := time.Unix(500, 0).UTC()
	if err := users.Create(ctx, userrepoport.User{
		ID:           id,
		Name:         name,
		Email:        name + "-" + string(id)[:8] + "@example.com",
		PasswordHash: "x",
		Role:         domain.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return id
}

// RunTripRepo exercises trip CRUD and the participant set operations, including concurrent adds.
func RunTripRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()

	repos, cleanup := newRepos(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	trips := repos.Trips

	creator := seedUser(t, ctx, repos.Users, "creator")
	guest := seedUser(t, ctx, repos.Users, "guest")

	now := time.Unix(2000, 0).UTC()
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 7, 0, 0, 0, 0, time.UTC)
	desc := "spring break"
	tripID := domain.TripID(uuid.NewString())
	if err := trips.Create(ctx, triprepoport.Trip{
		ID:           tripID,
		Name:         "Paris Trip",
		Destination:  "Paris",
		StartDate:    start,
		EndDate:      end,
		Description:  &desc,
		Interests:    []string{"museums", "food"},
		Party:        &domain.TravelParty{Group: domain.TravelFamily, Pets: true, Children: true},
		CreatedBy:    creator,
		Participants: []domain.UserID{creator},
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("Create trip: %v", err)
	}
	if err := trips.Create(ctx, triprepoport.Trip{ID: tripID, Name: "dup", CreatedBy: creator, StartDate: start, EndDate: end, CreatedAt: now, UpdatedAt: now}); !errors.Is(err, triprepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate id: expected ErrAlreadyExists, got %v", err)
	}

	got, err := trips.GetByID(ctx, tripID)
	if err != nil {
		t.Fatalf("GetByID trip: %v", err)
	}
	if got.Name != "Paris Trip" || got.Destination != "Paris" || got.CreatedBy != creator {
		t.Fatalf("unexpected trip: %#v", got)
	}
	if !got.StartDate.Equal(start) || !got.EndDate.Equal(end) {
		t.Fatalf("dates: start=%v end=%v", got.StartDate, got.EndDate)
	}
	if got.Description == nil || *got.Description != desc || len(got.Interests) != 2 {
		t.Fatalf("description/interests: %#v", got)
	}
	if got.Party == nil || *got.Party != (domain.TravelParty{Group: domain.TravelFamily, Pets: true, Children: true}) {
		t.Fatalf("party=%#v", got.Party)
	}
	if len(got.Participants) != 1 || got.Participants[0] != creator {
		t.Fatalf("participants=%v, want [creator]", got.Participants)
	}

	// Save updates mutable fields only.
	got.Name = "Paris & Lyon"
	got.Description = nil
	got.Interests = []string{"wine"}
	got.Party = nil
	got.UpdatedAt = now.Add(time.Minute)
	if err := trips.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = trips.GetByID(ctx, tripID)
	if err != nil {
		t.Fatalf("GetByID after save: %v", err)
	}
	if got.Name != "Paris & Lyon" || got.Description != nil || len(got.Interests) != 1 || got.Interests[0] != "wine" {
		t.Fatalf("after save: %#v", got)
	}
	if got.Party != nil {
		t.Fatalf("party after save=%#v, want nil", got.Party)
	}
	if err := trips.Save(ctx, triprepoport.Trip{ID: domain.TripID(uuid.NewString()), Name: "x"}); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("Save missing: expected ErrNotFound, got %v", err)
	}

	// Participant set semantics.
	updated, err := trips.AddParticipant(ctx, tripID, guest, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	if len(updated.Participants) != 2 || !domain.ContainsUserID(updated.Participants, guest) {
		t.Fatalf("participants after add=%v", updated.Participants)
	}
	if _, err := trips.AddParticipant(ctx, tripID, guest, now); !errors.Is(err, triprepoport.ErrAlreadyParticipant) {
		t.Fatalf("AddParticipant twice: expected ErrAlreadyParticipant, got %v", err)
	}
	updated, err = trips.RemoveParticipant(ctx, tripID, guest, now.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("RemoveParticipant: %v", err)
	}
	if domain.ContainsUserID(updated.Participants, guest) {
		t.Fatalf("participants after remove=%v", updated.Participants)
	}
	if _, err := trips.RemoveParticipant(ctx, tripID, guest, now); !errors.Is(err, triprepoport.ErrNotParticipant) {
		t.Fatalf("RemoveParticipant absent: expected ErrNotParticipant, got %v", err)
	}
	missing := domain.TripID(uuid.NewString())
	if _, err := trips.AddParticipant(ctx, missing, guest, now); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("AddParticipant missing trip: expected ErrNotFound, got %v", err)
	}
	if _, err := trips.RemoveParticipant(ctx, missing, guest, now); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("RemoveParticipant missing trip: expected ErrNotFound, got %v", err)
	}

	// Concurrent adds of the same user persist at most once.
	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := trips.AddParticipant(ctx, tripID, guest, now.Add(4*time.Minute))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, triprepoport.ErrAlreadyParticipant):
				dupes++
			default:
				t.Errorf("concurrent AddParticipant: %v", err)
			}
		}()
	}
	wg.Wait()
	if successes != 1 || dupes != workers-1 {
		t.Fatalf("concurrent adds: successes=%d dupes=%d", successes, dupes)
	}
	got, err = trips.GetByID(ctx, tripID)
	if err != nil {
		t.Fatalf("GetByID after concurrent adds: %v", err)
	}
	count := 0
	for _, p := range got.Participants {
		if p == guest {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("guest listed %d times in %v", count, got.Participants)
	}

	// Listing order: startDate, then createdAt.
	earlierID := domain.TripID(uuid.NewString())
	if err := trips.Create(ctx, triprepoport.Trip{
		ID:           earlierID,
		Name:         "Rome",
		Destination:  "Rome",
		StartDate:    start.AddDate(0, -1, 0),
		EndDate:      start.AddDate(0, -1, 3),
		CreatedBy:    creator,
		Participants: []domain.UserID{creator},
		CreatedAt:    now.Add(time.Hour),
		UpdatedAt:    now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Create second trip: %v", err)
	}
	all, err := trips.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	idx := map[domain.TripID]int{}
	for i, tr := range all {
		idx[tr.ID] = i
	}
	if _, ok := idx[tripID]; !ok {
		t.Fatalf("List missing trip %s", tripID)
	}
	if idx[earlierID] > idx[tripID] {
		t.Fatalf("List order: earlier trip after later one: %v", all)
	}

	if err := trips.Delete(ctx, tripID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := trips.GetByID(ctx, tripID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("GetByID after delete: expected ErrNotFound, got %v", err)
	}
	if err := trips.Delete(ctx, tripID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("Delete twice: expected ErrNotFound, got %v", err)
	}
}

// RunPollRepo exercises polls and votes attached to a seeded trip.
func RunPollRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()

	repos, cleanup := newRepos(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	polls := repos.Polls

	creator := seedUser(t, ctx, repos.Users, "pollster")
	voter := seedUser(t, ctx, repos.Users, "voter")

	now := time.Unix(3000, 0).UTC()
	tripID := domain.TripID(uuid.NewString())
	if err := repos.Trips.Create(ctx, triprepoport.Trip{
		ID:           tripID,
		Name:         "Goa",
		Destination:  "Goa",
		StartDate:    time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 12, 27, 0, 0, 0, 0, time.UTC),
		CreatedBy:    creator,
		Participants: []domain.UserID{creator, voter},
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("seed trip: %v", err)
	}

	thumb := "https://img.example/beach-thumb.jpg"
	first := pollrepoport.Poll{
		ID:          domain.PollID(uuid.NewString()),
		TripID:      tripID,
		Title:       "Beach day",
		Description: "Baga beach",
		Budget:      domain.Budget{Amount: 1500, Currency: "INR"},
		Media: []domain.Media{
			{Type: domain.MediaTypeImage, URL: "https://img.example/beach.jpg", Thumbnail: &thumb},
			{Type: domain.MediaTypeVideo, URL: "https://vid.example/beach.mp4"},
		},
		CreatedBy: creator,
		CreatedAt: now,
	}
	second := pollrepoport.Poll{
		ID:        domain.PollID(uuid.NewString()),
		TripID:    tripID,
		Title:     "Fort visit",
		Budget:    domain.Budget{Amount: 0, Currency: "INR"},
		CreatedBy: voter,
		CreatedAt: now.Add(time.Minute),
	}
	if err := polls.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if err := polls.Create(ctx, first); err != nil {
		t.Fatalf("Create first: %v", err)
	}

	got, err := polls.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Beach day" || got.Budget.Amount != 1500 || got.Budget.Currency != "INR" {
		t.Fatalf("unexpected poll: %#v", got)
	}
	if len(got.Media) != 2 || got.Media[0].Thumbnail == nil || *got.Media[0].Thumbnail != thumb || got.Media[1].Thumbnail != nil {
		t.Fatalf("unexpected media: %#v", got.Media)
	}

	list, err := polls.ListByTrip(ctx, tripID)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("ListByTrip order: %#v", list)
	}

	// Votes are last-write-wins per (poll, user).
	if err := polls.UpsertVote(ctx, pollrepoport.Vote{PollID: first.ID, UserID: voter, Direction: domain.VoteUp, UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertVote up: %v", err)
	}
	if err := polls.UpsertVote(ctx, pollrepoport.Vote{PollID: first.ID, UserID: voter, Direction: domain.VoteDown, UpdatedAt: now.Add(time.Second)}); err != nil {
		t.Fatalf("UpsertVote down: %v", err)
	}
	if err := polls.UpsertVote(ctx, pollrepoport.Vote{PollID: first.ID, UserID: creator, Direction: domain.VoteUp, UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertVote creator: %v", err)
	}
	votes, err := polls.ListVotesByTrip(ctx, tripID)
	if err != nil {
		t.Fatalf("ListVotesByTrip: %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("votes=%#v, want 2", votes)
	}
	for _, v := range votes {
		if v.UserID == voter && v.Direction != domain.VoteDown {
			t.Fatalf("voter direction=%q, want down", v.Direction)
		}
	}

	if err := polls.DeleteVote(ctx, first.ID, voter); err != nil {
		t.Fatalf("DeleteVote: %v", err)
	}
	if err := polls.DeleteVote(ctx, first.ID, voter); err != nil {
		t.Fatalf("DeleteVote absent: %v", err)
	}
	votes, err = polls.ListVotesByTrip(ctx, tripID)
	if err != nil {
		t.Fatalf("ListVotesByTrip: %v", err)
	}
	if len(votes) != 1 || votes[0].UserID != creator {
		t.Fatalf("votes after delete=%#v", votes)
	}

	if err := polls.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := polls.GetByID(ctx, first.ID); !errors.Is(err, pollrepoport.ErrNotFound) {
		t.Fatalf("GetByID after delete: expected ErrNotFound, got %v", err)
	}
	if err := polls.Delete(ctx, first.ID); !errors.Is(err, pollrepoport.ErrNotFound) {
		t.Fatalf("Delete twice: expected ErrNotFound, got %v", err)
	}
	votes, err = polls.ListVotesByTrip(ctx, tripID)
	if err != nil {
		t.Fatalf("ListVotesByTrip: %v", err)
	}
	if len(votes) != 0 {
		t.Fatalf("votes of deleted poll survived: %#v", votes)
	}

	if err := polls.DeleteByTrip(ctx, tripID); err != nil {
		t.Fatalf("DeleteByTrip: %v", err)
	}
	if list, _ := polls.ListByTrip(ctx, tripID); len(list) != 0 {
		t.Fatalf("polls after DeleteByTrip: %#v", list)
	}
}
