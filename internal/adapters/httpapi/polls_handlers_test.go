package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pollFixture struct {
	hs       *harness
	owner    string
	member   string
	outsider string
	trip     Trip
}

func newPollFixture(t *testing.T) pollFixture {
	t.Helper()
	hs := newHarness(t)
	_, owner := hs.signup(t, "Asha", "a@x.com")
	memberID, member := hs.signup(t, "Bo", "b@x.com")
	_, outsider := hs.signup(t, "Cy", "c@x.com")
	trip := hs.createTrip(t, owner, "Paris Trip")

	rec := hs.do(t, http.MethodPut, "/api/trips/"+trip.ID+"/add-participant", owner, map[string]any{"userId": memberID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return pollFixture{hs: hs, owner: owner, member: member, outsider: outsider, trip: trip}
}

func (f pollFixture) createPoll(t *testing.T, token, title string) Poll {
	t.Helper()
	rec := f.hs.do(t, http.MethodPost, "/api/trips/"+f.trip.ID+"/polls", token, map[string]any{
		"title":  title,
		"budget": map[string]any{"amount": 1200, "currency": "eur"},
		"media":  []map[string]any{{"type": "Image", "url": "https://img.example.com/louvre.jpg"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[Poll](t, rec)
}

func TestCreateAndListPolls(t *testing.T) {
	t.Parallel()
	f := newPollFixture(t)

	p := f.createPoll(t, f.member, "Louvre day")
	assert.Equal(t, "Louvre day", p.Title)
	assert.Equal(t, "EUR", p.Budget.Currency)
	require.Len(t, p.Media, 1)
	assert.Equal(t, "image", p.Media[0].Type)
	assert.Equal(t, VoteTally{}, p.Votes)
	assert.Nil(t, p.MyVote)

	rec := f.hs.do(t, http.MethodGet, "/api/trips/"+f.trip.ID+"/polls", f.owner, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[[]Poll](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestPollsRequireMembership(t *testing.T) {
	t.Parallel()
	f := newPollFixture(t)
	base := "/api/trips/" + f.trip.ID + "/polls"

	rec := f.hs.do(t, http.MethodGet, base, f.outsider, nil)
	requireErrorCode(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = f.hs.do(t, http.MethodPost, base, f.outsider, map[string]any{"title": "Sneaky"})
	requireErrorCode(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = f.hs.do(t, http.MethodGet, base, "", nil)
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestCreatePollValidation(t *testing.T) {
	t.Parallel()
	f := newPollFixture(t)
	base := "/api/trips/" + f.trip.ID + "/polls"

	cases := []struct {
		name string
		body map[string]any
	}{
		{name: "missing title", body: map[string]any{"title": "  "}},
		{name: "negative budget", body: map[string]any{"title": "x", "budget": map[string]any{"amount": -1}}},
		{name: "bad media type", body: map[string]any{"title": "x", "media": []map[string]any{{"type": "gif", "url": "https://x.io/a"}}}},
		{name: "relative media url", body: map[string]any{"title": "x", "media": []map[string]any{{"type": "video", "url": "/a.mp4"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.hs.do(t, http.MethodPost, base, f.member, tc.body)
			requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")
		})
	}
}

func TestVoteLifecycle(t *testing.T) {
	t.Parallel()
	f := newPollFixture(t)
	p := f.createPoll(t, f.owner, "Louvre day")
	voteURL := "/api/trips/" + f.trip.ID + "/polls/" + p.ID + "/vote"

	rec := f.hs.do(t, http.MethodPut, voteURL, f.member, map[string]any{"direction": "up"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[Poll](t, rec)
	assert.Equal(t, VoteTally{Up: 1}, got.Votes)
	require.NotNil(t, got.MyVote)
	assert.Equal(t, "up", *got.MyVote)

	// Voting again replaces the caller's vote.
	rec = f.hs.do(t, http.MethodPut, voteURL, f.member, map[string]any{"direction": "down"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, VoteTally{Down: 1}, decode[Poll](t, rec).Votes)

	rec = f.hs.do(t, http.MethodPut, voteURL, f.owner, map[string]any{"direction": "up"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, VoteTally{Up: 1, Down: 1}, decode[Poll](t, rec).Votes)

	rec = f.hs.do(t, http.MethodPut, voteURL, f.member, map[string]any{"direction": "sideways"})
	requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")

	rec = f.hs.do(t, http.MethodPut, voteURL, f.outsider, map[string]any{"direction": "up"})
	requireErrorCode(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = f.hs.do(t, http.MethodDelete, voteURL, f.member, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cleared := decode[Poll](t, rec)
	assert.Equal(t, VoteTally{Up: 1}, cleared.Votes)
	assert.Nil(t, cleared.MyVote)
}

func TestVoteUnknownPoll(t *testing.T) {
	t.Parallel()
	f := newPollFixture(t)

	rec := f.hs.do(t, http.MethodPut, "/api/trips/"+f.trip.ID+"/polls/2c4e6a8b-1d3f-4a5b-9c7d-0e1f2a3b4c5d/vote", f.member, map[string]any{"direction": "up"})
	requireErrorCode(t, rec, http.StatusNotFound, "POLL_NOT_FOUND")

	rec = f.hs.do(t, http.MethodPut, "/api/trips/"+f.trip.ID+"/polls/nope/vote", f.member, map[string]any{"direction": "up"})
	requireErrorCode(t, rec, http.StatusBadRequest, "INVALID_ID")
}

func TestDeletePoll(t *testing.T) {
	t.Parallel()
	f := newPollFixture(t)
	byMember := f.createPoll(t, f.member, "Crepes")
	byOwner := f.createPoll(t, f.owner, "Seine cruise")
	base := "/api/trips/" + f.trip.ID + "/polls/"

	// Members cannot delete someone else's poll.
	rec := f.hs.do(t, http.MethodDelete, base+byOwner.ID, f.member, nil)
	requireErrorCode(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = f.hs.do(t, http.MethodDelete, base+byMember.ID, f.member, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// The owner moderates any poll.
	rec = f.hs.do(t, http.MethodDelete, base+byOwner.ID, f.owner, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.hs.do(t, http.MethodDelete, base+byOwner.ID, f.owner, nil)
	requireErrorCode(t, rec, http.StatusNotFound, "POLL_NOT_FOUND")
}

func TestDeleteTripRemovesPolls(t *testing.T) {
	t.Parallel()
	f := newPollFixture(t)
	f.createPoll(t, f.member, "Crepes")

	rec := f.hs.do(t, http.MethodDelete, "/api/trips/"+f.trip.ID, f.owner, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.hs.do(t, http.MethodGet, "/api/trips/"+f.trip.ID+"/polls", f.owner, nil)
	requireErrorCode(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")
}

func TestCreatePollIdempotency(t *testing.T) {
	t.Parallel()
	f := newPollFixture(t)
	base := "/api/trips/" + f.trip.ID + "/polls"
	body := map[string]any{"title": "Louvre day"}

	first := f.hs.do(t, http.MethodPost, base, f.member, body, "Idempotency-Key", "poll-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	replay := f.hs.do(t, http.MethodPost, base, f.member, body, "Idempotency-Key", "poll-1")
	require.Equal(t, http.StatusCreated, replay.Code, replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, decode[Poll](t, first).ID, decode[Poll](t, replay).ID)

	rec := f.hs.do(t, http.MethodGet, base, f.member, nil)
	assert.Len(t, decode[[]Poll](t, rec), 1)
}
