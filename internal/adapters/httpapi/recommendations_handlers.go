package httpapi

import (
	"net/http"

	"github.com/voyagefriend/trip-planner-api/internal/app/recommendations"
)

func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	places, filters := req.toDomain()
	if err := recommendations.Validate(places, filters); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	ranked := recommendations.Rank(places, filters)
	out := RecommendationResponse{Places: make([]ScoredPlace, 0, len(ranked))}
	for _, p := range ranked {
		out.Places = append(out.Places, toScoredPlace(p))
	}
	writeJSON(w, http.StatusOK, out)
}
