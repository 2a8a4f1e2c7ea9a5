// Package protocol decodes the client transaction envelope and routes
// each message to the registry or the player's current room. Dispatch
// is an exhaustive match on the type tag; unknown tags are rejected
// with InvalidArgument rather than silently ignored. Every outcome,
// success or failure, becomes a unicast {success, error} response to
// the sender — a bad request never crashes or desyncs the room.
package protocol

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/civicgrid/commonwealth/go/internal/events"
	"github.com/civicgrid/commonwealth/go/internal/gamerr"
	"github.com/civicgrid/commonwealth/go/internal/models"
	"github.com/civicgrid/commonwealth/go/internal/registry"
	"github.com/civicgrid/commonwealth/go/internal/room"
)

// Router dispatches decoded transactions.
type Router struct {
	reg *registry.Registry
}

// NewRouter creates a router over the registry.
func NewRouter(reg *registry.Registry) *Router {
	return &Router{reg: reg}
}

// HandleMessage processes one raw client frame and replies on t.
func (rt *Router) HandleMessage(playerID string, t room.Transport, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Send(fail("", gamerr.InvalidArgument("malformed message: %v", err)))
		return
	}

	result, err := rt.dispatch(playerID, t, env.Type, raw)
	if err != nil {
		log.Debug().Str("player_id", playerID).Str("type", env.Type).Err(err).Msg("transaction rejected")
		t.Send(fail(env.Type, err))
		return
	}
	t.Send(events.Response{Type: env.Type, Success: true, Result: result})
}

func fail(reqType string, err error) events.Response {
	return events.Response{
		Type:    reqType,
		Success: false,
		Error:   err.Error(),
		Code:    string(gamerr.CodeOf(err)),
	}
}

// dispatch is the exhaustive match over transaction tags.
func (rt *Router) dispatch(playerID string, t room.Transport, tag string, raw []byte) (any, error) {
	switch tag {
	case TypeCreateRoom:
		req, err := decode[CreateRoomRequest](raw)
		if err != nil {
			return nil, gamerr.InvalidArgument("bad %s payload: %v", tag, err)
		}
		rm := rt.reg.CreateRoom(registry.RoomOptions{
			MinPlayers: req.MinPlayers,
			MaxPlayers: req.MaxPlayers,
			IsPublic:   req.IsPublic,
		})
		if _, err := rt.reg.JoinRoom(rm.ID, playerID, room.PlayerData{Name: req.Name}, t); err != nil {
			return nil, err
		}
		return rm.Snapshot(), nil

	case TypeJoinRoom:
		req, err := decode[JoinRoomRequest](raw)
		if err != nil {
			return nil, gamerr.InvalidArgument("bad %s payload: %v", tag, err)
		}
		rm, err := rt.reg.JoinRoom(req.RoomID, playerID, room.PlayerData{Name: req.Name}, t)
		if err != nil {
			return nil, err
		}
		return rm.Snapshot(), nil

	case TypeQuickJoin:
		req, err := decode[QuickJoinRequest](raw)
		if err != nil {
			return nil, gamerr.InvalidArgument("bad %s payload: %v", tag, err)
		}
		rm, err := rt.reg.FindTableWithPreferences(playerID, room.PlayerData{Name: req.Name}, t, registry.Preferences{
			MinPlayers: req.MinPlayers,
			MaxPlayers: req.MaxPlayers,
		})
		if err != nil {
			return nil, err
		}
		return rm.Snapshot(), nil

	case TypeLeaveRoom:
		return nil, rt.reg.LeaveCurrentRoom(playerID)

	case TypeQuitGame:
		return nil, rt.reg.QuitGame(playerID)

	case TypeSetReady:
		req, err := decode[SetReadyRequest](raw)
		if err != nil {
			return nil, gamerr.InvalidArgument("bad %s payload: %v", tag, err)
		}
		rm, err := rt.roomOf(playerID)
		if err != nil {
			return nil, err
		}
		return nil, rm.SetReady(playerID, req.Ready)

	case TypeCreateListing:
		req, err := decode[CreateListingRequest](raw)
		if err != nil {
			return nil, gamerr.InvalidArgument("bad %s payload: %v", tag, err)
		}
		rm, err := rt.roomOf(playerID)
		if err != nil {
			return nil, err
		}
		return rm.CreateListing(playerID, req.Quantity, req.ReservePrice, req.BuyNowPrice)

	case TypeBid:
		req, err := decode[BidRequest](raw)
		if err != nil {
			return nil, gamerr.InvalidArgument("bad %s payload: %v", tag, err)
		}
		rm, err := rt.roomOf(playerID)
		if err != nil {
			return nil, err
		}
		return rm.Bid(req.ListingID, playerID, req.Amount)

	case TypeBuyNow:
		req, err := decode[ListingRequest](raw)
		if err != nil {
			return nil, gamerr.InvalidArgument("bad %s payload: %v", tag, err)
		}
		rm, err := rt.roomOf(playerID)
		if err != nil {
			return nil, err
		}
		return rm.BuyNow(req.ListingID, playerID)

	case TypeCancelListing:
		req, err := decode[ListingRequest](raw)
		if err != nil {
			return nil, gamerr.InvalidArgument("bad %s payload: %v", tag, err)
		}
		rm, err := rt.roomOf(playerID)
		if err != nil {
			return nil, err
		}
		return rm.CancelListing(req.ListingID, playerID)

	case TypeEndEarly:
		req, err := decode[ListingRequest](raw)
		if err != nil {
			return nil, gamerr.InvalidArgument("bad %s payload: %v", tag, err)
		}
		rm, err := rt.roomOf(playerID)
		if err != nil {
			return nil, err
		}
		return rm.EndEarly(req.ListingID, playerID)

	case TypeGovernance:
		req, err := decode[GovernanceVoteRequest](raw)
		if err != nil {
			return nil, gamerr.InvalidArgument("bad %s payload: %v", tag, err)
		}
		rm, err := rt.roomOf(playerID)
		if err != nil {
			return nil, err
		}
		return rt.governance(rm, playerID, req)

	default:
		return nil, gamerr.InvalidArgument("unknown transaction type %q", tag)
	}
}

func (rt *Router) governance(rm *room.Room, playerID string, req *GovernanceVoteRequest) (any, error) {
	switch req.Category {
	case PseudoCategoryLVTIncrease:
		return rm.IncreaseLVTRate(playerID)
	case PseudoCategoryLVTDecrease:
		return rm.DecreaseLVTRate(playerID)
	}

	category := models.BudgetCategory(req.Category)
	switch req.Action {
	case VoteActionAdd:
		return rm.AddCategoryVote(playerID, category)
	case VoteActionRemove:
		return rm.RemoveCategoryVote(playerID, category)
	default:
		return nil, gamerr.InvalidArgument("unknown vote action %q", req.Action)
	}
}

func (rt *Router) roomOf(playerID string) (*room.Room, error) {
	rm, ok := rt.reg.RoomOf(playerID)
	if !ok {
		return nil, gamerr.NotFound("player %s is not in a room", playerID)
	}
	return rm, nil
}

// HandleConnect runs when a transport comes up. A player the registry
// still holds a room for is a reconnect: the grace timer is cancelled
// and they get a full snapshot. A fresh player just gets a lobby.
func (rt *Router) HandleConnect(playerID string, t room.Transport) {
	if _, ok := rt.reg.RoomOf(playerID); !ok {
		return
	}
	if err := rt.reg.HandleReconnect(playerID, t); err != nil {
		log.Debug().Str("player_id", playerID).Err(err).Msg("reconnect on connect failed")
	}
}

// HandleDisconnect forwards transport loss to the registry's grace
// handling.
func (rt *Router) HandleDisconnect(playerID string) {
	rt.reg.HandleDisconnect(playerID)
}
