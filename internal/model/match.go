package model

import "time"

// MatchID is the public identifier of a match, a short random token handed
// to players for joining. It is distinct from any storage-internal id.
type MatchID string

// MatchState represents the lifecycle phase of a match
type MatchState string

const (
	MatchStateLobby      MatchState = "lobby"       // Waiting for players, not yet started
	MatchStateInProgress MatchState = "in_progress" // A round is open for moves
	MatchStateFinished   MatchState = "finished"    // Ended by the creator; terminal
	MatchStateStopped    MatchState = "stopped"     // Interrupted mid-round; restartable
)

// Move is a rock-paper-scissors move
type Move string

const (
	MoveNone     Move = "none"
	MoveRock     Move = "rock"
	MovePaper    Move = "paper"
	MoveScissors Move = "scissors"

	// MoveHidden is a render-only sentinel standing in for another player's
	// move while the round is unrevealed. It is never stored.
	MoveHidden Move = "hidden"
)

// IsLegal reports whether m is a playable move (none and hidden are not)
func (m Move) IsLegal() bool {
	return m == MoveRock || m == MovePaper || m == MoveScissors
}

// Beats reports whether m wins against other under the standard dominance
// rule: rock beats scissors, scissors beats paper, paper beats rock.
func (m Move) Beats(other Move) bool {
	switch m {
	case MoveRock:
		return other == MoveScissors
	case MoveScissors:
		return other == MovePaper
	case MovePaper:
		return other == MoveRock
	default:
		return false
	}
}

// PlayerRef is the denormalized read shape for a user referenced by a match
type PlayerRef struct {
	ID       UserID `json:"id" bson:"id"`
	Username string `json:"username" bson:"username"`
}

// RosterEntry is a player's persistent membership in a match.
// Roster order is join order and is never reordered.
type RosterEntry struct {
	Player PlayerRef `json:"player" bson:"player"`
	Score  int       `json:"score" bson:"score"`
}

// RoundEntry is one player's slot in the currently open round
type RoundEntry struct {
	Player PlayerRef `json:"player" bson:"player"`
	Move   Move      `json:"move" bson:"move"`
}

// PlayerMove is a resolved (player, move) pair recorded in history
type PlayerMove struct {
	Player PlayerRef `json:"player" bson:"player"`
	Move   Move      `json:"move" bson:"move"`
}

// HistoryRound is one resolved round. Winners is empty on a tie.
type HistoryRound struct {
	Winners     []PlayerRef  `json:"winners" bson:"winners"`
	PlayerMoves []PlayerMove `json:"playerMoves" bson:"playerMoves"`
}

// Match is the aggregate root for one rock-paper-scissors session
type Match struct {
	ID      MatchID   `json:"matchId"`
	Creator PlayerRef `json:"creator"`
	State   MatchState `json:"state"`

	// Players is the roster: unique by player id, insertion order = join
	// order. The creator is always a member.
	Players []RosterEntry `json:"players"`

	// CurrentRound holds one entry per player eligible when the round was
	// opened; empty unless State is in_progress.
	CurrentRound []RoundEntry `json:"currentRound"`

	// HistoryRounds is the append-only record of resolved rounds
	HistoryRounds []HistoryRound `json:"historyRounds"`

	// Blacklist holds banned player ids; banning is independent of roster
	// membership and never erases score history.
	Blacklist []UserID `json:"blacklist"`

	// InMatchPlayers is the set of roster members whose current-match
	// pointer is this match.
	InMatchPlayers []UserID `json:"inMatchPlayers"`

	// Revealed caches whether every current-round entry has a move; it is
	// recomputed after every round mutation and gates move visibility.
	Revealed bool `json:"revealed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RosterEntry returns the roster entry for the given player, or nil
func (m *Match) RosterEntry(id UserID) *RosterEntry {
	for i := range m.Players {
		if m.Players[i].Player.ID == id {
			return &m.Players[i]
		}
	}
	return nil
}

// RoundEntry returns the open-round entry for the given player, or nil
func (m *Match) RoundEntry(id UserID) *RoundEntry {
	for i := range m.CurrentRound {
		if m.CurrentRound[i].Player.ID == id {
			return &m.CurrentRound[i]
		}
	}
	return nil
}

// IsBanned reports whether the given player is on the blacklist
func (m *Match) IsBanned(id UserID) bool {
	for _, b := range m.Blacklist {
		if b == id {
			return true
		}
	}
	return false
}

// IsOnline reports whether the given player is in the in-match set
func (m *Match) IsOnline(id UserID) bool {
	for _, p := range m.InMatchPlayers {
		if p == id {
			return true
		}
	}
	return false
}

// AllMoved reports whether every open-round entry carries a legal move.
// This is the source of truth for Revealed: the invariant is recomputed by
// the coordinator after every round mutation, never by the storage layer.
func (m *Match) AllMoved() bool {
	if len(m.CurrentRound) == 0 {
		return false
	}
	for _, e := range m.CurrentRound {
		if e.Move == MoveNone {
			return false
		}
	}
	return true
}
