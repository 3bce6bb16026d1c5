package gateway

import (
	"context"
	"encoding/json"

	"github.com/yolosopher/rps-live/internal/api/apierr"
	"github.com/yolosopher/rps-live/internal/model"
)

// actionFunc runs one dispatched action. The returned data ends up in the
// ack frame when the request carried an id.
type actionFunc func(ctx context.Context, c *conn, identity *model.Identity, data json.RawMessage) (any, error)

type action struct {
	handle       actionFunc
	authRequired bool
}

func (g *Gateway) buildActions() map[string]action {
	return map[string]action{
		ActionPing:          {g.onPing, false},
		ActionCreate:        {g.onCreate, true},
		ActionJoin:          {g.onJoin, true},
		ActionLeave:         {g.onLeave, true},
		ActionKick:          {g.onKick, true},
		ActionBan:           {g.onBan, true},
		ActionUnban:         {g.onUnban, true},
		ActionStart:         {g.onStart, true},
		ActionRestart:       {g.onRestart, true},
		ActionStop:          {g.onStop, true},
		ActionEnd:           {g.onEnd, true},
		ActionMove:          {g.onMove, true},
		ActionAskInfo:       {g.onAskInfo, false},
		ActionOnlinePlayers: {g.onOnlinePlayers, true},
	}
}

// onPing answers with a pong push carrying the server time. Authenticated
// pings also refresh the caller's picture of where they are: current match
// pointer plus their view of it.
func (g *Gateway) onPing(ctx context.Context, c *conn, identity *model.Identity, _ json.RawMessage) (any, error) {
	c.push(pushFrame{Event: model.EventPong, Data: g.clock.Now().UnixMilli()})

	if identity == nil {
		return nil, nil
	}

	view, err := g.matches.OwnInfo(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		c.push(pushFrame{Event: model.EventCurrentGame, Data: nil})
		return nil, nil
	}
	c.push(pushFrame{Event: model.EventCurrentGame, Data: view.ID})
	c.push(pushFrame{Event: model.EventGameInfo, Data: view})
	return nil, nil
}

func (g *Gateway) onCreate(ctx context.Context, _ *conn, identity *model.Identity, _ json.RawMessage) (any, error) {
	return g.matches.Create(ctx, playerRef(identity))
}

func (g *Gateway) onJoin(ctx context.Context, _ *conn, identity *model.Identity, data json.RawMessage) (any, error) {
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.MatchID == "" {
		return nil, apierr.NewInvalidRequestError("matchId is required")
	}
	return g.matches.Join(ctx, playerRef(identity), payload.MatchID)
}

func (g *Gateway) onLeave(ctx context.Context, _ *conn, identity *model.Identity, _ json.RawMessage) (any, error) {
	return nil, g.matches.Leave(ctx, identity.UserID)
}

func (g *Gateway) onKick(ctx context.Context, _ *conn, identity *model.Identity, data json.RawMessage) (any, error) {
	target, err := targetFrom(data)
	if err != nil {
		return nil, err
	}
	return nil, g.matches.Kick(ctx, identity.UserID, target)
}

func (g *Gateway) onBan(ctx context.Context, _ *conn, identity *model.Identity, data json.RawMessage) (any, error) {
	target, err := targetFrom(data)
	if err != nil {
		return nil, err
	}
	return nil, g.matches.Ban(ctx, identity.UserID, target)
}

func (g *Gateway) onUnban(ctx context.Context, _ *conn, identity *model.Identity, data json.RawMessage) (any, error) {
	target, err := targetFrom(data)
	if err != nil {
		return nil, err
	}
	return nil, g.matches.Unban(ctx, identity.UserID, target)
}

func (g *Gateway) onStart(ctx context.Context, _ *conn, identity *model.Identity, _ json.RawMessage) (any, error) {
	return nil, g.matches.Start(ctx, identity.UserID)
}

func (g *Gateway) onRestart(ctx context.Context, _ *conn, identity *model.Identity, _ json.RawMessage) (any, error) {
	return nil, g.matches.Restart(ctx, identity.UserID)
}

func (g *Gateway) onStop(ctx context.Context, _ *conn, identity *model.Identity, _ json.RawMessage) (any, error) {
	return nil, g.matches.Stop(ctx, identity.UserID)
}

func (g *Gateway) onEnd(ctx context.Context, _ *conn, identity *model.Identity, _ json.RawMessage) (any, error) {
	return nil, g.matches.End(ctx, identity.UserID)
}

func (g *Gateway) onMove(ctx context.Context, _ *conn, identity *model.Identity, data json.RawMessage) (any, error) {
	var payload movePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Move == "" {
		return nil, model.ErrInvalidMove
	}
	return nil, g.matches.Move(ctx, identity.UserID, payload.Move)
}

// onAskInfo serves both pulls: with a matchId anyone may spectate (moves
// masked per viewer), without one the caller gets their own current match
// and must be authenticated.
func (g *Gateway) onAskInfo(ctx context.Context, _ *conn, identity *model.Identity, data json.RawMessage) (any, error) {
	var payload askInfoPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, apierr.NewInvalidRequestError("malformed payload")
		}
	}

	if payload.MatchID != "" {
		var viewer model.UserID
		if identity != nil {
			viewer = identity.UserID
		}
		return g.matches.InfoByID(ctx, viewer, payload.MatchID)
	}

	if identity == nil {
		return nil, apierr.NewUnauthorizedError()
	}
	return g.matches.OwnInfo(ctx, identity.UserID)
}

func (g *Gateway) onOnlinePlayers(ctx context.Context, _ *conn, identity *model.Identity, _ json.RawMessage) (any, error) {
	return g.matches.OnlinePlayers(ctx, identity.UserID)
}

func playerRef(identity *model.Identity) model.PlayerRef {
	return model.PlayerRef{ID: identity.UserID, Username: identity.Username}
}

func targetFrom(data json.RawMessage) (model.UserID, error) {
	var payload targetPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		return "", apierr.NewInvalidRequestError("userId is required")
	}
	return payload.UserID, nil
}
