package app

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func newTestCoordinator() *Coordinator {
	return &Coordinator{
		Registry: NewRegistry(),
		Rooms:    NewRoomManager(),
		Policy:   KickSlowPolicy{},
		Chat:     NewChatLimiter(100, time.Minute),
	}
}

func bindPeer(c *Coordinator, id domain.PeerID) *fakeConn {
	conn := &fakeConn{}
	c.Registry.Bind(id, core.NewPeerSession(id, conn), nil)
	return conn
}

func TestCoordinatorJoinLeave(t *testing.T) {
	c := newTestCoordinator()
	bindPeer(c, "a")

	if err := c.Join("a", "r1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got, ok := c.Registry.RoomOf("a"); !ok || got != "r1" {
		t.Fatalf("RoomOf = (%v, %v)", got, ok)
	}

	if err := c.Leave("a", "r1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, ok := c.Registry.RoomOf("a"); ok {
		t.Fatal("registry still maps a room after leave")
	}
	if _, ok := c.Rooms.Get("r1"); ok {
		t.Fatal("empty room survived the last leave")
	}
}

func TestCoordinatorAtMostOneRoom(t *testing.T) {
	c := newTestCoordinator()
	bindPeer(c, "a")

	if err := c.Join("a", "r1"); err != nil {
		t.Fatalf("join r1: %v", err)
	}
	if err := c.Join("a", "r2"); err != nil {
		t.Fatalf("join r2: %v", err)
	}
	if got, _ := c.Registry.RoomOf("a"); got != "r2" {
		t.Fatalf("RoomOf = %v, want r2", got)
	}
	// Old room emptied out and was deleted.
	if _, ok := c.Rooms.Get("r1"); ok {
		t.Fatal("previous room still exists")
	}
}

func TestCoordinatorStaleRoom(t *testing.T) {
	c := newTestCoordinator()
	bindPeer(c, "a")

	if err := c.MarkReady("a", "nope"); !errors.Is(err, domain.ErrStaleRoom) {
		t.Fatalf("ready err = %v, want ErrStaleRoom", err)
	}
	if err := c.RelayOffer("a", "nope", testOffer()); !errors.Is(err, domain.ErrStaleRoom) {
		t.Fatalf("offer err = %v, want ErrStaleRoom", err)
	}
	if err := c.Leave("a", "nope"); !errors.Is(err, domain.ErrStaleRoom) {
		t.Fatalf("leave err = %v, want ErrStaleRoom", err)
	}
}

func TestCoordinatorDuplicateOfferSwallowed(t *testing.T) {
	c := newTestCoordinator()
	bindPeer(c, "a")
	bindPeer(c, "b")
	if err := c.Join("a", "r1"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := c.Join("b", "r1"); err != nil {
		t.Fatalf("join b: %v", err)
	}
	if err := c.MarkReady("a", "r1"); err != nil {
		t.Fatalf("ready a: %v", err)
	}
	if err := c.MarkReady("b", "r1"); err != nil {
		t.Fatalf("ready b: %v", err)
	}
	if err := c.RelayOffer("b", "r1", testOffer()); err != nil {
		t.Fatalf("initiator offer: %v", err)
	}
	// Glare from the other side is absorbed, not surfaced.
	if err := c.RelayOffer("a", "r1", testOffer()); err != nil {
		t.Fatalf("competing offer err = %v, want nil", err)
	}
}

func TestCoordinatorDisconnectCleansUp(t *testing.T) {
	c := newTestCoordinator()
	connA := bindPeer(c, "a")
	bindPeer(c, "b")
	if err := c.Join("a", "r1"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := c.Join("b", "r1"); err != nil {
		t.Fatalf("join b: %v", err)
	}
	if err := c.MarkReady("a", "r1"); err != nil {
		t.Fatalf("ready a: %v", err)
	}
	if err := c.MarkReady("b", "r1"); err != nil {
		t.Fatalf("ready b: %v", err)
	}
	connA.reset()

	// Transport drop of the initiator behaves exactly like leave-room.
	c.Disconnect("b")

	if _, ok := c.Registry.Get("b"); ok {
		t.Fatal("b still bound after disconnect")
	}
	room, ok := c.Rooms.Get("r1")
	if !ok {
		t.Fatal("room vanished with a member remaining")
	}
	if got := room.State(); got != core.RoundIdle {
		t.Fatalf("round state after disconnect = %v", got)
	}
	if got := connA.eventsNamed(t, "user-left"); len(got) != 1 || got[0]["peer"] != "b" {
		t.Fatalf("A user-left = %v", got)
	}
}

func TestCoordinatorKicksSlowConsumer(t *testing.T) {
	c := newTestCoordinator()

	slow := &fakeConn{fail: true}
	cancelled := false
	c.Registry.Bind("slow", core.NewPeerSession("slow", slow), func() { cancelled = true })
	bindPeer(c, "b")

	if err := c.Join("slow", "r1"); err != nil {
		t.Fatalf("join slow: %v", err)
	}
	if err := c.Join("b", "r1"); err != nil {
		t.Fatalf("join b: %v", err)
	}
	if err := c.RelayChat("b", "r1", "hi"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !cancelled {
		t.Fatal("slow consumer was not cancelled")
	}
}

func TestCoordinatorChatRateLimit(t *testing.T) {
	c := newTestCoordinator()
	c.Chat = NewChatLimiter(2, time.Minute)
	bindPeer(c, "a")
	bindPeer(c, "b")
	if err := c.Join("a", "r1"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := c.Join("b", "r1"); err != nil {
		t.Fatalf("join b: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := c.RelayChat("a", "r1", "hi"); err != nil {
			t.Fatalf("chat %d: %v", i, err)
		}
	}
	if err := c.RelayChat("a", "r1", "hi"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("over-limit chat err = %v, want ErrRateLimited", err)
	}
}

func TestCoordinatorJoinValidatesRoomID(t *testing.T) {
	c := newTestCoordinator()
	bindPeer(c, "a")

	if err := c.Join("a", ""); !errors.Is(err, domain.ErrRoomIDEmpty) {
		t.Fatalf("empty room err = %v", err)
	}
	long := make([]byte, domain.MaxRoomIDLen+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := c.Join("a", domain.RoomID(long)); !errors.Is(err, domain.ErrRoomIDTooLong) {
		t.Fatalf("long room err = %v", err)
	}
}
