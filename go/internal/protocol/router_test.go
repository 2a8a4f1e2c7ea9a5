package protocol

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/civicgrid/commonwealth/go/internal/econ"
	"github.com/civicgrid/commonwealth/go/internal/events"
	"github.com/civicgrid/commonwealth/go/internal/gamerr"
	"github.com/civicgrid/commonwealth/go/internal/registry"
)

// replyRecorder captures unicast responses.
type replyRecorder struct {
	mu        sync.Mutex
	responses []events.Response
}

func (rec *replyRecorder) Send(v any) {
	if resp, ok := v.(events.Response); ok {
		rec.mu.Lock()
		rec.responses = append(rec.responses, resp)
		rec.mu.Unlock()
	}
}

func (rec *replyRecorder) Close() {}

func (rec *replyRecorder) lastResponse(t *testing.T) events.Response {
	t.Helper()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.responses) == 0 {
		t.Fatal("no response received")
	}
	return rec.responses[len(rec.responses)-1]
}

func newTestRouter() (*Router, *registry.Registry) {
	cfg := registry.DefaultConfig()
	reg := registry.New(cfg, clockwork.NewFakeClock(), func() econ.Engine { return econ.NewBaseline() })
	return NewRouter(reg), reg
}

func send(t *testing.T, rt *Router, playerID string, rec *replyRecorder, msg any) events.Response {
	t.Helper()
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rt.HandleMessage(playerID, rec, raw)
	return rec.lastResponse(t)
}

func TestMalformedFrameRejected(t *testing.T) {
	rt, _ := newTestRouter()
	rec := &replyRecorder{}

	rt.HandleMessage("p1", rec, []byte("{not json"))
	resp := rec.lastResponse(t)
	if resp.Success {
		t.Fatal("malformed frame must fail")
	}
	if resp.Code != string(gamerr.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %s", resp.Code)
	}
}

func TestUnknownTagRejected(t *testing.T) {
	rt, _ := newTestRouter()
	rec := &replyRecorder{}

	resp := send(t, rt, "p1", rec, map[string]any{"type": "DO_SOMETHING"})
	if resp.Success || resp.Code != string(gamerr.CodeInvalidArgument) {
		t.Fatalf("unknown tag should be rejected, got %+v", resp)
	}
	if resp.Type != "DO_SOMETHING" {
		t.Fatalf("failure should echo the request type, got %s", resp.Type)
	}
}

func TestCreateRoomSeatsCreator(t *testing.T) {
	rt, reg := newTestRouter()
	rec := &replyRecorder{}

	resp := send(t, rt, "p1", rec, map[string]any{
		"type": TypeCreateRoom, "name": "Ada", "minPlayers": 2, "maxPlayers": 4, "isPublic": true,
	})
	if !resp.Success {
		t.Fatalf("create failed: %+v", resp)
	}
	rm, ok := reg.RoomOf("p1")
	if !ok {
		t.Fatal("creator should be seated in the new room")
	}
	if !rm.HasPlayer("p1") {
		t.Fatal("room should hold the creator")
	}
}

func TestJoinAndQuitFlow(t *testing.T) {
	rt, reg := newTestRouter()
	host, guest := &replyRecorder{}, &replyRecorder{}

	send(t, rt, "p1", host, map[string]any{
		"type": TypeCreateRoom, "name": "Ada", "minPlayers": 2, "maxPlayers": 4, "isPublic": true,
	})
	rm, _ := reg.RoomOf("p1")

	resp := send(t, rt, "p2", guest, map[string]any{
		"type": TypeJoinRoom, "roomId": rm.ID, "name": "Bea",
	})
	if !resp.Success {
		t.Fatalf("join failed: %+v", resp)
	}

	resp = send(t, rt, "p2", guest, map[string]any{"type": TypeQuitGame})
	if !resp.Success {
		t.Fatalf("quit failed: %+v", resp)
	}
	if rm.HasPlayer("p2") {
		t.Fatal("quit should leave the room")
	}
	resp = send(t, rt, "p2", guest, map[string]any{"type": TypeQuitGame})
	if resp.Success || resp.Code != string(gamerr.CodeNotFound) {
		t.Fatalf("quit without a room should be NOT_FOUND, got %+v", resp)
	}
}

func TestQuickJoinRoute(t *testing.T) {
	rt, reg := newTestRouter()
	rec := &replyRecorder{}

	resp := send(t, rt, "p1", rec, map[string]any{
		"type": TypeQuickJoin, "name": "Ada", "minPlayers": 2, "maxPlayers": 4,
	})
	if !resp.Success {
		t.Fatalf("quick join failed: %+v", resp)
	}
	if _, ok := reg.RoomOf("p1"); !ok {
		t.Fatal("quick join should seat the player")
	}
}

func TestSetReadyRequiresRoom(t *testing.T) {
	rt, _ := newTestRouter()
	rec := &replyRecorder{}

	resp := send(t, rt, "stranger", rec, map[string]any{"type": TypeSetReady, "ready": true})
	if resp.Success || resp.Code != string(gamerr.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %+v", resp)
	}
}

func TestMarketRouteRejectedBeforeStart(t *testing.T) {
	rt, _ := newTestRouter()
	rec := &replyRecorder{}
	send(t, rt, "p1", rec, map[string]any{
		"type": TypeCreateRoom, "name": "Ada", "minPlayers": 2, "maxPlayers": 4, "isPublic": true,
	})

	resp := send(t, rt, "p1", rec, map[string]any{
		"type": TypeCreateListing, "quantity": 1, "reservePrice": 100.0,
	})
	if resp.Success || resp.Code != string(gamerr.CodeConflict) {
		t.Fatalf("market op before start should conflict, got %+v", resp)
	}
}

func TestGovernanceRouting(t *testing.T) {
	rt, reg := newTestRouter()
	rec := &replyRecorder{}
	send(t, rt, "p1", rec, map[string]any{
		"type": TypeCreateRoom, "name": "Ada", "minPlayers": 2, "maxPlayers": 4, "isPublic": true,
	})

	resp := send(t, rt, "p1", rec, map[string]any{
		"type": TypeGovernance, "category": PseudoCategoryLVTIncrease,
	})
	if !resp.Success {
		t.Fatalf("lvt increase failed: %+v", resp)
	}
	rm, _ := reg.RoomOf("p1")
	if got := rm.Snapshot().Treasury.TaxRate; got != 0.51 {
		t.Fatalf("expected 0.51, got %v", got)
	}

	resp = send(t, rt, "p1", rec, map[string]any{
		"type": TypeGovernance, "category": "education", "action": VoteActionAdd,
	})
	if !resp.Success {
		t.Fatalf("category vote failed: %+v", resp)
	}
	resp = send(t, rt, "p1", rec, map[string]any{
		"type": TypeGovernance, "category": "education", "action": VoteActionRemove,
	})
	if !resp.Success {
		t.Fatalf("vote retraction failed: %+v", resp)
	}

	resp = send(t, rt, "p1", rec, map[string]any{
		"type": TypeGovernance, "category": "education", "action": "toggle",
	})
	if resp.Success || resp.Code != string(gamerr.CodeInvalidArgument) {
		t.Fatalf("unknown vote action should be rejected, got %+v", resp)
	}
}

func TestHandleDisconnectArmsGrace(t *testing.T) {
	fc := clockwork.NewFakeClock()
	cfg := registry.DefaultConfig()
	cfg.DisconnectGrace = time.Minute
	reg := registry.New(cfg, fc, func() econ.Engine { return econ.NewBaseline() })
	rt := NewRouter(reg)
	rec := &replyRecorder{}

	send(t, rt, "p1", rec, map[string]any{
		"type": TypeCreateRoom, "name": "Ada", "minPlayers": 2, "maxPlayers": 4, "isPublic": true,
	})
	rm, _ := reg.RoomOf("p1")

	rt.HandleDisconnect("p1")
	if !rm.HasPlayer("p1") {
		t.Fatal("disconnect keeps membership through the grace window")
	}

	// Coming back on a fresh transport is a reconnect, not a new join.
	rt.HandleConnect("p1", rec)
	fc.Advance(2 * time.Minute)
	time.Sleep(10 * time.Millisecond)
	if !rm.HasPlayer("p1") {
		t.Fatal("reconnect should cancel auto-removal")
	}
}
