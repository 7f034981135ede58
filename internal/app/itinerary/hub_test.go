package itinerary

import (
	"encoding/json"
	"fmt"
	"testing"
)

func drain(p *Peer) []string {
	var out []string
	for {
		select {
		case msg, ok := <-p.Send():
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func isClosed(p *Peer) bool {
	for {
		select {
		case _, ok := <-p.Send():
			if !ok {
				return true
			}
		default:
			return false
		}
	}
}

func TestHub_BroadcastReachesRoomOnly(t *testing.T) {
	t.Parallel()

	h := NewHub(Options{})
	a, _ := h.Join("t1", "u1")
	b, _ := h.Join("t1", "u2")
	c, _ := h.Join("t2", "u3")

	if n := h.Broadcast("t1", []byte("hello")); n != 2 {
		t.Fatalf("delivered=%d", n)
	}
	if got := drain(a); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("a=%v", got)
	}
	if got := drain(b); len(got) != 1 {
		t.Fatalf("b=%v", got)
	}
	if got := drain(c); len(got) != 0 {
		t.Fatalf("c=%v", got)
	}
}

func TestHub_Relay_RewritesEventAndIncludesSender(t *testing.T) {
	t.Parallel()

	h := NewHub(Options{})
	sender, _ := h.Join("t1", "u1")
	other, _ := h.Join("t1", "u2")

	ok, err := h.Relay(sender, []byte(`{"event":"updateItinerary","data":{"day":1,"items":["Louvre"]}}`))
	if err != nil || !ok {
		t.Fatalf("Relay ok=%v err=%v", ok, err)
	}
	for _, p := range []*Peer{sender, other} {
		got := drain(p)
		if len(got) != 1 {
			t.Fatalf("frames=%v", got)
		}
		var f Frame
		if err := json.Unmarshal([]byte(got[0]), &f); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if f.Event != EventItineraryUpdated || string(f.Data) != `{"day":1,"items":["Louvre"]}` {
			t.Fatalf("frame=%s data=%s", f.Event, f.Data)
		}
	}

	ok, err = h.Relay(sender, []byte(`{"event":"chat","data":"hi"}`))
	if err != nil || ok {
		t.Fatalf("ignored event ok=%v err=%v", ok, err)
	}
	if _, err := h.Relay(sender, []byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestHub_PreservesOrderPerPeer(t *testing.T) {
	t.Parallel()

	h := NewHub(Options{})
	p, _ := h.Join("t1", "u1")
	for i := 0; i < 10; i++ {
		h.Broadcast("t1", []byte(fmt.Sprint(i)))
	}
	got := drain(p)
	for i, msg := range got {
		if msg != fmt.Sprint(i) {
			t.Fatalf("order=%v", got)
		}
	}
}

func TestHub_DropsSlowPeer(t *testing.T) {
	t.Parallel()

	h := NewHub(Options{QueueSize: 2})
	slow, _ := h.Join("t1", "slow")
	fast, _ := h.Join("t1", "fast")

	for i := 0; i < 3; i++ {
		h.Broadcast("t1", []byte("x"))
		drain(fast)
	}
	if h.RoomSize("t1") != 1 {
		t.Fatalf("room size=%d", h.RoomSize("t1"))
	}
	if !isClosed(slow) {
		t.Fatalf("slow peer should be closed")
	}
}

func TestHub_LeaveDropsEmptyRoomAndClose(t *testing.T) {
	t.Parallel()

	h := NewHub(Options{})
	a, _ := h.Join("t1", "u1")
	h.Leave(a)
	h.Leave(a)
	if h.RoomSize("t1") != 0 {
		t.Fatalf("room size=%d", h.RoomSize("t1"))
	}

	b, _ := h.Join("t2", "u2")
	h.Close()
	if !isClosed(b) {
		t.Fatalf("peer should be closed after hub close")
	}
	if _, err := h.Join("t2", "u3"); err != ErrHubClosed {
		t.Fatalf("Join after close err=%v", err)
	}
	h.Leave(b)
}

func TestHub_KickAndCloseRoom(t *testing.T) {
	t.Parallel()

	h := NewHub(Options{})
	a1, _ := h.Join("t1", "u1")
	a2, _ := h.Join("t1", "u1")
	b, _ := h.Join("t1", "u2")
	c, _ := h.Join("t2", "u1")

	if n := h.Kick("t1", "u1"); n != 2 {
		t.Fatalf("kicked=%d", n)
	}
	if !isClosed(a1) || !isClosed(a2) {
		t.Fatalf("kicked peers still open")
	}
	if isClosed(b) || isClosed(c) {
		t.Fatalf("unrelated peers closed")
	}
	if n := h.Broadcast("t1", []byte("x")); n != 1 {
		t.Fatalf("delivered=%d after kick", n)
	}
	if n := h.Kick("t1", "u1"); n != 0 {
		t.Fatalf("second kick=%d", n)
	}

	if n := h.CloseRoom("t1"); n != 1 {
		t.Fatalf("closed=%d", n)
	}
	if !isClosed(b) || h.RoomSize("t1") != 0 {
		t.Fatalf("room t1 not closed: size=%d", h.RoomSize("t1"))
	}
	if isClosed(c) || h.RoomSize("t2") != 1 {
		t.Fatalf("room t2 affected: size=%d", h.RoomSize("t2"))
	}
}
