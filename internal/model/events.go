package model

// Wire event names pushed to connected sessions
const (
	// EventGameInfo carries a per-viewer match snapshot (or null when the
	// viewer has no current match).
	EventGameInfo = "game-info"

	// EventGameInfoNotSelf carries a spectator snapshot requested by match id
	EventGameInfoNotSelf = "game-info-not-self"

	// EventCurrentGame carries the viewer's current match id (or null)
	EventCurrentGame = "current-game"

	// EventOnlinePlayers carries the set of players online in a match
	EventOnlinePlayers = "game-online-players"

	// EventKicked tells a player's sessions they were removed by the creator
	EventKicked = "game-kicked"

	// EventBanned is the distinguished ban signal, so clients can show
	// specific UI rather than a generic authorization failure.
	EventBanned = "game-banned"

	// EventPong answers a keepalive ping with a server timestamp
	EventPong = "pong"

	// EventError carries action failures when the caller supplied no ack id
	EventError = "error"
)
