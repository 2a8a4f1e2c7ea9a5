package registry

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/civicgrid/commonwealth/go/internal/econ"
	"github.com/civicgrid/commonwealth/go/internal/gamerr"
	"github.com/civicgrid/commonwealth/go/internal/room"
)

type nullTransport struct{}

func (nullTransport) Send(v any) {}
func (nullTransport) Close()     {}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", desc)
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestRegistry() (*Registry, *clockwork.FakeClock) {
	fc := clockwork.NewFakeClock()
	cfg := DefaultConfig()
	cfg.DisconnectGrace = time.Minute
	cfg.EmptyRoomGrace = 30 * time.Second
	reg := New(cfg, fc, func() econ.Engine { return econ.NewBaseline() })
	return reg, fc
}

func join(t *testing.T, reg *Registry, roomID, playerID string) {
	t.Helper()
	if _, err := reg.JoinRoom(roomID, playerID, room.PlayerData{Name: playerID}, nullTransport{}); err != nil {
		t.Fatalf("JoinRoom(%s, %s): %v", roomID, playerID, err)
	}
}

func TestJoinRoomIndexesPlayer(t *testing.T) {
	reg, _ := newTestRegistry()
	rm := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})

	join(t, reg, rm.ID, "p1")
	got, ok := reg.RoomOf("p1")
	if !ok || got.ID != rm.ID {
		t.Fatalf("index should point at the joined room, got %v %v", got, ok)
	}
	if !rm.HasPlayer("p1") {
		t.Fatal("room should hold the player")
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	reg, _ := newTestRegistry()
	_, err := reg.JoinRoom("r-none", "p1", room.PlayerData{Name: "Ada"}, nullTransport{})
	if gamerr.CodeOf(err) != gamerr.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestJoinSecondRoomLeavesFirst(t *testing.T) {
	reg, _ := newTestRegistry()
	first := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})
	second := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})

	join(t, reg, first.ID, "p1")
	join(t, reg, second.ID, "p1")

	if first.HasPlayer("p1") {
		t.Fatal("player should be removed from the first room")
	}
	if !second.HasPlayer("p1") {
		t.Fatal("player should be in the second room")
	}
	if got, _ := reg.RoomOf("p1"); got.ID != second.ID {
		t.Fatalf("index should follow the move, got %s", got.ID)
	}
}

func TestRejoinSameRoomIsReconnect(t *testing.T) {
	reg, _ := newTestRegistry()
	rm := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})

	join(t, reg, rm.ID, "p1")
	join(t, reg, rm.ID, "p1") // same player, fresh transport

	if got := rm.Info().PlayerCount; got != 1 {
		t.Fatalf("rejoin must not duplicate membership, count %d", got)
	}
}

func TestQuickJoinSoloGetsPrivateRoom(t *testing.T) {
	reg, _ := newTestRegistry()
	rm, err := reg.FindTableWithPreferences("p1", room.PlayerData{Name: "Ada"}, nullTransport{}, Preferences{MinPlayers: 1, MaxPlayers: 1})
	if err != nil {
		t.Fatalf("FindTableWithPreferences: %v", err)
	}
	info := rm.Info()
	if info.IsPublic {
		t.Fatal("solo rooms must be private")
	}
	if info.MinPlayers != 1 || info.MaxPlayers != 1 {
		t.Fatalf("solo room should be sized for one, got %d..%d", info.MinPlayers, info.MaxPlayers)
	}
}

func TestQuickJoinMatchesExistingRoom(t *testing.T) {
	reg, _ := newTestRegistry()
	first, err := reg.FindTableWithPreferences("p1", room.PlayerData{Name: "Ada"}, nullTransport{}, Preferences{MinPlayers: 2, MaxPlayers: 4})
	if err != nil {
		t.Fatalf("FindTableWithPreferences: %v", err)
	}
	second, err := reg.FindTableWithPreferences("p2", room.PlayerData{Name: "Bea"}, nullTransport{}, Preferences{MinPlayers: 2, MaxPlayers: 6})
	if err != nil {
		t.Fatalf("FindTableWithPreferences: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("second player should be seated in the waiting room, got %s vs %s", first.ID, second.ID)
	}
	if got := first.Info().PlayerCount; got != 2 {
		t.Fatalf("expected 2 seated, got %d", got)
	}
}

func TestQuickJoinRespectsMinimumPreference(t *testing.T) {
	reg, _ := newTestRegistry()
	casual, err := reg.FindTableWithPreferences("p1", room.PlayerData{Name: "Ada"}, nullTransport{}, Preferences{MinPlayers: 2, MaxPlayers: 4})
	if err != nil {
		t.Fatalf("FindTableWithPreferences: %v", err)
	}
	// A player who wants a bigger game must not land in a room that can
	// start with fewer.
	serious, err := reg.FindTableWithPreferences("p2", room.PlayerData{Name: "Bea"}, nullTransport{}, Preferences{MinPlayers: 4, MaxPlayers: 6})
	if err != nil {
		t.Fatalf("FindTableWithPreferences: %v", err)
	}
	if casual.ID == serious.ID {
		t.Fatal("low-minimum room should be skipped")
	}
	if got := serious.Info().MinPlayers; got != 4 {
		t.Fatalf("new room should carry the requested minimum, got %d", got)
	}
}

func TestDisconnectGraceThenAutoRemove(t *testing.T) {
	reg, fc := newTestRegistry()
	rm := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})
	join(t, reg, rm.ID, "p1")
	join(t, reg, rm.ID, "p2")

	reg.HandleDisconnect("p1")
	if !rm.HasPlayer("p1") {
		t.Fatal("disconnect must not remove the player immediately")
	}

	fc.Advance(time.Minute)
	waitFor(t, "auto-removal", func() bool { return !rm.HasPlayer("p1") })
	if _, ok := reg.RoomOf("p1"); ok {
		t.Fatal("index entry should be gone after auto-removal")
	}
	if !rm.HasPlayer("p2") {
		t.Fatal("other players are unaffected")
	}
}

func TestReconnectWithinGraceCancelsRemoval(t *testing.T) {
	reg, fc := newTestRegistry()
	rm := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})
	join(t, reg, rm.ID, "p1")
	join(t, reg, rm.ID, "p2")

	reg.HandleDisconnect("p1")
	if err := reg.HandleReconnect("p1", nullTransport{}); err != nil {
		t.Fatalf("HandleReconnect: %v", err)
	}

	fc.Advance(2 * time.Minute)
	time.Sleep(10 * time.Millisecond)
	if !rm.HasPlayer("p1") {
		t.Fatal("reconnect should cancel the grace timer")
	}
}

func TestQuitIsImmediate(t *testing.T) {
	reg, _ := newTestRegistry()
	rm := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})
	join(t, reg, rm.ID, "p1")
	join(t, reg, rm.ID, "p2")

	if err := reg.QuitGame("p1"); err != nil {
		t.Fatalf("QuitGame: %v", err)
	}
	if rm.HasPlayer("p1") {
		t.Fatal("quit removes the player at once")
	}
	if err := reg.QuitGame("p1"); gamerr.CodeOf(err) != gamerr.CodeNotFound {
		t.Fatalf("second quit should be NOT_FOUND, got %v", err)
	}
}

func TestEmptyRoomReapedAfterGrace(t *testing.T) {
	reg, fc := newTestRegistry()
	rm := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})
	join(t, reg, rm.ID, "p1")

	if err := reg.LeaveCurrentRoom("p1"); err != nil {
		t.Fatalf("LeaveCurrentRoom: %v", err)
	}
	if _, ok := reg.GetRoom(rm.ID); !ok {
		t.Fatal("empty room should survive until the grace elapses")
	}

	fc.Advance(30 * time.Second)
	waitFor(t, "room reaped", func() bool {
		_, ok := reg.GetRoom(rm.ID)
		return !ok
	})
}

func TestRejoinBeforeGraceKeepsRoom(t *testing.T) {
	reg, fc := newTestRegistry()
	rm := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})
	join(t, reg, rm.ID, "p1")

	if err := reg.LeaveCurrentRoom("p1"); err != nil {
		t.Fatalf("LeaveCurrentRoom: %v", err)
	}
	join(t, reg, rm.ID, "p2")

	fc.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	if _, ok := reg.GetRoom(rm.ID); !ok {
		t.Fatal("re-occupied room must not be reaped")
	}
}

func TestPublicRoomsListsOnlyJoinable(t *testing.T) {
	reg, _ := newTestRegistry()
	pub := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})
	reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: false})

	listed := reg.PublicRooms()
	if len(listed) != 1 || listed[0].ID != pub.ID {
		t.Fatalf("expected only the public room, got %+v", listed)
	}
}

func TestShutdownDeletesEverything(t *testing.T) {
	reg, _ := newTestRegistry()
	rm := reg.CreateRoom(RoomOptions{MinPlayers: 2, MaxPlayers: 4, IsPublic: true})
	join(t, reg, rm.ID, "p1")

	reg.Shutdown()
	if _, ok := reg.GetRoom(rm.ID); ok {
		t.Fatal("rooms should be deleted on shutdown")
	}
	if _, ok := reg.RoomOf("p1"); ok {
		t.Fatal("player index should be purged on shutdown")
	}
}
