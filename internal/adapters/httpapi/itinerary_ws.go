package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voyagefriend/trip-planner-api/internal/app/itinerary"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/platform/timeouts"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 64 << 10
)

// ItineraryWS upgrades a trip member to the trip's itinerary relay room.
func (s *Server) ItineraryWS(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	tripID := tripIDParam(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), s.Log, "itinerary.authorize")
	_, err := s.Trips.Authorize(ctx, domain.ActionJoinItinerary, tripID, caller)
	cancel()
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	peer, err := s.Hub.Join(tripID, caller.UserID)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(wsWriteWait))
		_ = conn.Close()
		return
	}

	log := s.Log.With(zap.String("trip_id", string(tripID)), zap.String("user_id", string(caller.UserID)))
	go writePump(conn, peer, log)
	readPump(conn, s.Hub, peer, log)
}

// readPump relays inbound frames until the connection fails, then leaves the room.
func readPump(conn *websocket.Conn, hub *itinerary.Hub, peer *itinerary.Peer, log *zap.Logger) {
	defer hub.Leave(peer)

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("itinerary connection closed", zap.Error(err))
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		if _, err := hub.Relay(peer, msg); err != nil {
			log.Debug("ignoring malformed itinerary frame", zap.Error(err))
		}
	}
}

// writePump drains the peer queue to the connection. The queue closes when the peer
// leaves, is dropped for being slow, or the hub shuts down.
func writePump(conn *websocket.Conn, peer *itinerary.Peer, log *zap.Logger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-peer.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("itinerary write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// checkOrigin accepts requests without an Origin header (non-browser clients) and
// browser requests from an allowed origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if len(s.AllowedOrigins) == 0 {
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range s.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}
