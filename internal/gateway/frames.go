package gateway

import (
	"encoding/json"

	"github.com/yolosopher/rps-live/internal/model"
)

// Inbound event names accepted by the gateway
const (
	ActionPing          = "ping"
	ActionCreate        = "game-create"
	ActionJoin          = "game-join"
	ActionLeave         = "game-leave"
	ActionKick          = "game-kick"
	ActionBan           = "game-ban"
	ActionUnban         = "game-unban"
	ActionStart         = "game-start"
	ActionRestart       = "game-restart"
	ActionStop          = "game-stop"
	ActionEnd           = "game-end"
	ActionMove          = "game-move"
	ActionAskInfo       = "game-ask-info"
	ActionOnlinePlayers = "game-online-players"
)

// requestFrame is a client-to-server message. Every frame carries its own
// access token; the id is optional and requests an acknowledgment.
type requestFrame struct {
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event"`
	Token string          `json:"token,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ackFrame answers a request frame that carried an id
type ackFrame struct {
	ID                   string `json:"id"`
	Success              bool   `json:"success"`
	Code                 string `json:"code,omitempty"`
	Message              string `json:"message,omitempty"`
	TokenRefreshRequired bool   `json:"tokenRefreshRequired,omitempty"`
	Data                 any    `json:"data,omitempty"`
}

// pushFrame is a server-initiated event
type pushFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type joinPayload struct {
	MatchID model.MatchID `json:"matchId"`
}

type targetPayload struct {
	UserID model.UserID `json:"userId"`
}

type movePayload struct {
	Move model.Move `json:"move"`
}

type askInfoPayload struct {
	MatchID model.MatchID `json:"matchId,omitempty"`
}
