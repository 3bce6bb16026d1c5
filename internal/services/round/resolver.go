package round

import (
	"github.com/yolosopher/rps-live/internal/model"
)

// Outcome is the result of resolving one round
type Outcome struct {
	// Winners holds the references of the winning players; empty on a tie
	Winners []model.PlayerRef

	// Moves is the full (player, move) record for the round, in round order
	Moves []model.PlayerMove
}

// Resolve applies the dominance rule to a completed round. Exactly two
// distinct moves among the entries produce a decisive result, with every
// player who threw the dominant move winning; any other spread is a tie.
// Works for any number of players from two up.
func Resolve(entries []model.RoundEntry) Outcome {
	outcome := Outcome{
		Winners: []model.PlayerRef{},
		Moves:   make([]model.PlayerMove, 0, len(entries)),
	}

	distinct := make(map[model.Move]struct{}, 3)
	for _, e := range entries {
		outcome.Moves = append(outcome.Moves, model.PlayerMove{Player: e.Player, Move: e.Move})
		distinct[e.Move] = struct{}{}
	}

	if len(distinct) != 2 {
		return outcome
	}

	var a, b model.Move
	for m := range distinct {
		if a == "" {
			a = m
		} else {
			b = m
		}
	}

	winning := a
	if b.Beats(a) {
		winning = b
	}

	for _, e := range entries {
		if e.Move == winning {
			outcome.Winners = append(outcome.Winners, e.Player)
		}
	}
	return outcome
}

// HistoryRound converts the outcome into its persisted history shape
func (o Outcome) HistoryRound() model.HistoryRound {
	return model.HistoryRound{
		Winners:     o.Winners,
		PlayerMoves: o.Moves,
	}
}

// WinnerIDs returns just the winning player ids
func (o Outcome) WinnerIDs() []model.UserID {
	ids := make([]model.UserID, len(o.Winners))
	for i, w := range o.Winners {
		ids[i] = w.ID
	}
	return ids
}
