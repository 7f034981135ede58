// Package itinerary relays live itinerary edits between the members of a trip.
//
// Peers join the room of one trip. A frame published to a room is queued to every
// peer of that room, sender included, in the order the hub received it. Nothing is
// persisted.
package itinerary

import (
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
)

const (
	// DefaultQueueSize is the number of frames buffered per peer before it is dropped.
	DefaultQueueSize = 64

	EventUpdateItinerary  = "updateItinerary"
	EventItineraryUpdated = "itineraryUpdated"
)

var ErrHubClosed = errors.New("itinerary hub closed")

// Frame is the JSON envelope exchanged with clients.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Peer is one connection in a trip room. Outbound frames are read from Send;
// the channel is closed when the peer leaves, is dropped, or the hub closes.
type Peer struct {
	TripID domain.TripID
	UserID domain.UserID

	send chan []byte
}

func (p *Peer) Send() <-chan []byte { return p.send }

type Options struct {
	QueueSize int
	Logger    *zap.Logger
}

type Hub struct {
	mu     sync.Mutex
	rooms  map[domain.TripID]map[*Peer]struct{}
	closed bool

	queueSize int
	log       *zap.Logger
}

func NewHub(opts Options) *Hub {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Hub{
		rooms:     make(map[domain.TripID]map[*Peer]struct{}),
		queueSize: opts.QueueSize,
		log:       opts.Logger,
	}
}

// Join adds a peer to the trip's room.
func (h *Hub) Join(tripID domain.TripID, userID domain.UserID) (*Peer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	p := &Peer{TripID: tripID, UserID: userID, send: make(chan []byte, h.queueSize)}
	room, ok := h.rooms[tripID]
	if !ok {
		room = make(map[*Peer]struct{})
		h.rooms[tripID] = room
	}
	room[p] = struct{}{}
	return p, nil
}

// Leave removes the peer. Leaving twice, or after being dropped, is a no-op.
func (h *Hub) Leave(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(p)
}

// Broadcast queues msg to every peer in the trip's room and returns how many
// peers received it. Peers whose queue is full are dropped.
func (h *Hub) Broadcast(tripID domain.TripID, msg []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	delivered := 0
	for p := range h.rooms[tripID] {
		select {
		case p.send <- msg:
			delivered++
		default:
			h.log.Warn("itinerary peer too slow; dropping",
				zap.String("trip_id", string(tripID)),
				zap.String("user_id", string(p.UserID)),
			)
			h.removeLocked(p)
		}
	}
	return delivered
}

// Relay handles one inbound client frame. updateItinerary frames are rebroadcast
// to the peer's room as itineraryUpdated; other events are ignored.
func (h *Hub) Relay(p *Peer, raw []byte) (bool, error) {
	var in Frame
	if err := json.Unmarshal(raw, &in); err != nil {
		return false, err
	}
	if in.Event != EventUpdateItinerary {
		return false, nil
	}
	data := in.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	out, err := json.Marshal(Frame{Event: EventItineraryUpdated, Data: data})
	if err != nil {
		return false, err
	}
	h.Broadcast(p.TripID, out)
	return true, nil
}

// Kick disconnects every peer of userID in the trip's room and returns how many
// were removed.
func (h *Hub) Kick(tripID domain.TripID, userID domain.UserID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for p := range h.rooms[tripID] {
		if p.UserID == userID {
			h.removeLocked(p)
			n++
		}
	}
	return n
}

// CloseRoom disconnects every peer in the trip's room.
func (h *Hub) CloseRoom(tripID domain.TripID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for p := range h.rooms[tripID] {
		h.removeLocked(p)
		n++
	}
	return n
}

func (h *Hub) RoomSize(tripID domain.TripID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[tripID])
}

// Close disconnects every peer and rejects further joins.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, room := range h.rooms {
		for p := range room {
			close(p.send)
		}
	}
	h.rooms = make(map[domain.TripID]map[*Peer]struct{})
}

func (h *Hub) removeLocked(p *Peer) {
	room, ok := h.rooms[p.TripID]
	if !ok {
		return
	}
	if _, ok := room[p]; !ok {
		return
	}
	delete(room, p)
	close(p.send)
	if len(room) == 0 {
		delete(h.rooms, p.TripID)
	}
}
