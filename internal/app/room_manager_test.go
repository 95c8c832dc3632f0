package app

import (
	"testing"

	"github.com/dkeye/Meet/internal/core"
)

func TestRoomManagerGetOrCreate(t *testing.T) {
	m := NewRoomManager()
	r1 := m.GetOrCreate("r1")
	if r1 == nil {
		t.Fatal("nil room")
	}
	if again := m.GetOrCreate("r1"); again != r1 {
		t.Fatal("GetOrCreate returned a different instance for the same id")
	}
	if _, ok := m.Get("r2"); ok {
		t.Fatal("Get invented a room")
	}
}

func TestRoomManagerRemoveIfEmpty(t *testing.T) {
	m := NewRoomManager()
	r := m.GetOrCreate("r1")

	conn := &fakeConn{}
	if _, _, ok := r.Join(core.NewPeerSession("a", conn)); !ok {
		t.Fatal("join")
	}
	if m.RemoveIfEmpty("r1") {
		t.Fatal("removed a room with a member")
	}

	if _, _, ok := r.Leave("a"); !ok {
		t.Fatal("leave")
	}
	if !m.RemoveIfEmpty("r1") {
		t.Fatal("empty room not removed")
	}
	if _, ok := m.Get("r1"); ok {
		t.Fatal("room still mapped after removal")
	}

	// The dead instance refuses joins so a racing member cannot land in it.
	if _, _, ok := r.Join(core.NewPeerSession("b", &fakeConn{})); ok {
		t.Fatal("join landed in a removed room")
	}
}

func TestRoomManagerList(t *testing.T) {
	m := NewRoomManager()
	m.GetOrCreate("r1")
	r2 := m.GetOrCreate("r2")
	if _, _, ok := r2.Join(core.NewPeerSession("a", &fakeConn{})); !ok {
		t.Fatal("join")
	}

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("list len = %d, want 2", len(list))
	}
	counts := map[string]int{}
	for _, info := range list {
		counts[string(info.ID)] = info.MemberCount
	}
	if counts["r1"] != 0 || counts["r2"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
