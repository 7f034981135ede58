package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTripRecordsCreatorAsFirstParticipant(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	userID, token := hs.signup(t, "Asha", "a@x.com")

	trip := hs.createTrip(t, token, "Paris Trip")
	assert.Equal(t, "Paris Trip", trip.Name)
	assert.Equal(t, userID, trip.CreatedBy)
	assert.Equal(t, []string{userID}, trip.Participants)
	require.NotNil(t, trip.Creator)
	assert.Equal(t, "Asha", trip.Creator.Name)
	assert.Equal(t, "2026-04-01", trip.StartDate.Format("2006-01-02"))

	rec := hs.do(t, http.MethodGet, "/api/trips/"+trip.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, trip.ID, decode[Trip](t, rec).ID)

	rec = hs.do(t, http.MethodGet, "/api/trips", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[[]Trip](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, trip.ID, list[0].ID)
}

func TestCreateTripRequiresAuth(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)

	rec := hs.do(t, http.MethodPost, "/api/trips", "", map[string]any{"name": "x"})
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestCreateTripValidation(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	_, token := hs.signup(t, "Asha", "a@x.com")

	rec := hs.do(t, http.MethodPost, "/api/trips", token, map[string]any{"name": "Paris Trip"})
	requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")

	rec = hs.do(t, http.MethodPost, "/api/trips", token, map[string]any{
		"name": "Backwards", "destination": "Rome", "startDate": "2026-05-10", "endDate": "2026-05-01",
	})
	requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")

	rec = hs.do(t, http.MethodPost, "/api/trips", token, map[string]any{"name": "x"}, "Content-Type", "text/plain")
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code, rec.Body.String())
}

func TestGetTripErrors(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)

	rec := hs.do(t, http.MethodGet, "/api/trips/not-a-uuid", "", nil)
	requireErrorCode(t, rec, http.StatusBadRequest, "INVALID_ID")

	rec = hs.do(t, http.MethodGet, "/api/trips/6b1f7a2e-0d5c-4f8e-9a61-3c2d4b5e6f70", "", nil)
	requireErrorCode(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")
}

func TestUpdateTripOwnerOnly(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	_, owner := hs.signup(t, "Asha", "a@x.com")
	otherID, other := hs.signup(t, "Bo", "b@x.com")
	trip := hs.createTrip(t, owner, "Paris Trip")

	rec := hs.do(t, http.MethodPut, "/api/trips/"+trip.ID, other, map[string]any{"name": "Hijacked"})
	requireErrorCode(t, rec, http.StatusForbidden, "FORBIDDEN")

	// Participants still cannot edit.
	rec = hs.do(t, http.MethodPut, "/api/trips/"+trip.ID+"/add-participant", owner, map[string]any{"userId": otherID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = hs.do(t, http.MethodPut, "/api/trips/"+trip.ID, other, map[string]any{"name": "Hijacked"})
	requireErrorCode(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = hs.do(t, http.MethodPut, "/api/trips/"+trip.ID, owner, map[string]any{
		"name":        "Paris & Lyon",
		"description": "two cities",
		"interests":   []string{"food", "Food", "museums"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[Trip](t, rec)
	assert.Equal(t, "Paris & Lyon", updated.Name)
	assert.Equal(t, "Paris", updated.Destination)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "two cities", *updated.Description)
	assert.Equal(t, []string{"food", "museums"}, updated.Interests)

	rec = hs.do(t, http.MethodPut, "/api/trips/"+trip.ID, owner, map[string]any{"description": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decode[Trip](t, rec).Description)
}

func TestDeleteTrip(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	_, owner := hs.signup(t, "Asha", "a@x.com")
	_, other := hs.signup(t, "Bo", "b@x.com")
	trip := hs.createTrip(t, owner, "Paris Trip")

	rec := hs.do(t, http.MethodDelete, "/api/trips/"+trip.ID, other, nil)
	requireErrorCode(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = hs.do(t, http.MethodDelete, "/api/trips/"+trip.ID, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "trip deleted", decode[map[string]string](t, rec)["message"])

	rec = hs.do(t, http.MethodGet, "/api/trips/"+trip.ID, "", nil)
	requireErrorCode(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")

	rec = hs.do(t, http.MethodDelete, "/api/trips/"+trip.ID, owner, nil)
	requireErrorCode(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")
}

func TestParticipants(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	ownerID, owner := hs.signup(t, "Asha", "a@x.com")
	memberID, member := hs.signup(t, "Bo", "b@x.com")
	trip := hs.createTrip(t, owner, "Paris Trip")
	base := "/api/trips/" + trip.ID

	rec := hs.do(t, http.MethodPut, base+"/add-participant", member, map[string]any{"userId": memberID})
	requireErrorCode(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = hs.do(t, http.MethodPut, base+"/add-participant", owner, map[string]any{"userId": memberID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{ownerID, memberID}, decode[Trip](t, rec).Participants)

	rec = hs.do(t, http.MethodPut, base+"/add-participant", owner, map[string]any{"userId": memberID})
	requireErrorCode(t, rec, http.StatusBadRequest, "ALREADY_PARTICIPANT")

	rec = hs.do(t, http.MethodPut, base+"/add-participant", owner, map[string]any{"userId": "0b9a4c1e-2f3d-4e5f-8a7b-6c5d4e3f2a10"})
	requireErrorCode(t, rec, http.StatusNotFound, "USER_NOT_FOUND")

	rec = hs.do(t, http.MethodPut, base+"/add-participant", owner, map[string]any{})
	requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")

	rec = hs.do(t, http.MethodPut, base+"/remove-participant", owner, map[string]any{"userId": ownerID})
	requireErrorCode(t, rec, http.StatusBadRequest, "CANNOT_REMOVE_OWNER")

	rec = hs.do(t, http.MethodPut, base+"/remove-participant", owner, map[string]any{"userId": memberID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{ownerID}, decode[Trip](t, rec).Participants)

	rec = hs.do(t, http.MethodPut, base+"/remove-participant", owner, map[string]any{"userId": memberID})
	requireErrorCode(t, rec, http.StatusBadRequest, "NOT_PARTICIPANT")
}

func TestConcurrentAddParticipantAddsOnce(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	_, owner := hs.signup(t, "Asha", "a@x.com")
	memberID, _ := hs.signup(t, "Bo", "b@x.com")
	trip := hs.createTrip(t, owner, "Paris Trip")

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := hs.do(t, http.MethodPut, "/api/trips/"+trip.ID+"/add-participant", owner, map[string]any{"userId": memberID})
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		if c == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusBadRequest, c)
		}
	}
	assert.Equal(t, 1, ok)

	rec := hs.do(t, http.MethodGet, "/api/trips/"+trip.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[Trip](t, rec).Participants, 2)
}

func TestCreateTripIdempotency(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	_, token := hs.signup(t, "Asha", "a@x.com")
	_, other := hs.signup(t, "Bo", "b@x.com")

	body := map[string]any{"name": "Paris Trip", "destination": "Paris", "startDate": "2026-04-01", "endDate": "2026-04-07"}

	first := hs.do(t, http.MethodPost, "/api/trips", token, body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))

	replay := hs.do(t, http.MethodPost, "/api/trips", token, body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, replay.Code, replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, decode[Trip](t, first).ID, decode[Trip](t, replay).ID)

	changed := map[string]any{"name": "Rome Trip", "destination": "Rome", "startDate": "2026-04-01", "endDate": "2026-04-07"}
	rec := hs.do(t, http.MethodPost, "/api/trips", token, changed, "Idempotency-Key", "k-1")
	requireErrorCode(t, rec, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	// Keys are scoped per caller.
	rec = hs.do(t, http.MethodPost, "/api/trips", other, body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Idempotent-Replayed"))

	rec = hs.do(t, http.MethodGet, "/api/trips", "", nil)
	assert.Len(t, decode[[]Trip](t, rec), 2)

	rec = hs.do(t, http.MethodPost, "/api/trips", token, body, "Idempotency-Key", strings.Repeat("k", 201))
	requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestRequestBodyLimit(t *testing.T) {
	t.Parallel()
	hs := newHarness(t, func(o *harnessOptions) { o.maxBodyBytes = 256 })
	_, token := hs.signup(t, "Asha", "a@x.com")

	rec := hs.do(t, http.MethodPost, "/api/trips", token, map[string]any{
		"name": "Paris Trip", "destination": "Paris", "startDate": "2026-04-01", "endDate": "2026-04-07",
		"description": strings.Repeat("x", 512),
	})
	requireErrorCode(t, rec, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)

	rec := hs.do(t, http.MethodGet, "/api/nope", "", nil)
	requireErrorCode(t, rec, http.StatusNotFound, "NOT_FOUND")

	rec = hs.do(t, http.MethodPatch, "/api/trips", "", nil)
	requireErrorCode(t, rec, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")

	rec = hs.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestResponsesCarryRequestID(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)

	rec := hs.do(t, http.MethodGet, "/api/trips/not-a-uuid", "", nil)
	requireErrorCode(t, rec, http.StatusBadRequest, "INVALID_ID")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestTripDatesAcceptTimestamps(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	_, token := hs.signup(t, "Asha", "a@x.com")

	rec := hs.do(t, http.MethodPost, "/api/trips", token, map[string]any{
		"name": "Paris Trip", "destination": "Paris",
		"startDate": "2026-04-01T00:00:00.000Z", "endDate": "2026-04-07T22:30:00+02:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	trip := decode[Trip](t, rec)
	assert.Equal(t, "2026-04-01", trip.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2026-04-07", trip.EndDate.Format("2006-01-02"))

	rec = hs.do(t, http.MethodPut, "/api/trips/"+trip.ID, token, map[string]any{
		"startDate": "2026-04-02T09:15:00Z", "endDate": "2026-04-09",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[Trip](t, rec)
	assert.Equal(t, "2026-04-02", updated.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2026-04-09", updated.EndDate.Format("2006-01-02"))

	rec = hs.do(t, http.MethodPut, "/api/trips/"+trip.ID, token, map[string]any{"startDate": "April 2nd"})
	requireErrorCode(t, rec, http.StatusBadRequest, "INVALID_JSON")
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	t.Parallel()
	f := newPollFixture(t)
	p := f.createPoll(t, f.owner, "Louvre")
	memberID, _ := f.hs.signup(t, "Di", "d@x.com")
	strangerID, _ := f.hs.signup(t, "Ed", "e@x.com")
	rec := f.hs.do(t, http.MethodPut, "/api/trips/"+f.trip.ID+"/add-participant", f.owner, map[string]any{"userId": memberID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	trip := "/api/trips/" + f.trip.ID
	poll := trip + "/polls/" + p.ID
	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/auth/me", nil},
		{http.MethodGet, "/api/weather?q=Paris", nil},
		{http.MethodPost, "/api/trips", map[string]any{"name": "x", "destination": "y", "startDate": "2026-04-01", "endDate": "2026-04-02"}},
		{http.MethodPut, trip, map[string]any{"name": "Hijacked"}},
		{http.MethodDelete, trip, nil},
		{http.MethodPut, trip + "/add-participant", map[string]any{"userId": strangerID}},
		{http.MethodPut, trip + "/remove-participant", map[string]any{"userId": memberID}},
		{http.MethodGet, trip + "/itinerary/ws", nil},
		{http.MethodGet, trip + "/polls", nil},
		{http.MethodPost, trip + "/polls", map[string]any{"title": "Sneaky"}},
		{http.MethodDelete, poll, nil},
		{http.MethodPut, poll + "/vote", map[string]any{"direction": "up"}},
		{http.MethodDelete, poll + "/vote", nil},
	}

	before := f.hs.do(t, http.MethodGet, trip, "", nil)
	require.Equal(t, http.StatusOK, before.Code, before.Body.String())
	polls := f.hs.do(t, http.MethodGet, trip+"/polls", f.owner, nil)
	require.Equal(t, http.StatusOK, polls.Code, polls.Body.String())

	for _, tc := range cases {
		rec := f.hs.do(t, tc.method, tc.path, "", tc.body)
		requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	}

	after := f.hs.do(t, http.MethodGet, trip, "", nil)
	require.Equal(t, http.StatusOK, after.Code, after.Body.String())
	assert.Equal(t, decode[Trip](t, before), decode[Trip](t, after))
	pollsAfter := f.hs.do(t, http.MethodGet, trip+"/polls", f.owner, nil)
	require.Equal(t, http.StatusOK, pollsAfter.Code, pollsAfter.Body.String())
	assert.Equal(t, decode[[]Poll](t, polls), decode[[]Poll](t, pollsAfter))

	rec = f.hs.do(t, http.MethodGet, "/api/trips", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]Trip](t, rec), 1)
}

func TestTripTravelParty(t *testing.T) {
	t.Parallel()
	hs := newHarness(t)
	_, token := hs.signup(t, "Asha", "a@x.com")

	rec := hs.do(t, http.MethodPost, "/api/trips", token, map[string]any{
		"name": "Paris Trip", "destination": "Paris", "startDate": "2026-04-01", "endDate": "2026-04-07",
		"travelers": "Family", "pets": true, "children": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	trip := decode[Trip](t, rec)
	require.NotNil(t, trip.Travelers)
	assert.Equal(t, "family", *trip.Travelers)
	assert.True(t, trip.Pets)
	assert.True(t, trip.Children)

	rec = hs.do(t, http.MethodPut, "/api/trips/"+trip.ID, token, map[string]any{"travelers": "With Partner"})
	requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")
	assert.Contains(t, rec.Body.String(), `"children"`)

	rec = hs.do(t, http.MethodPut, "/api/trips/"+trip.ID, token, map[string]any{"travelers": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cleared := decode[Trip](t, rec)
	assert.Nil(t, cleared.Travelers)
	assert.False(t, cleared.Pets)
	assert.False(t, cleared.Children)
}
