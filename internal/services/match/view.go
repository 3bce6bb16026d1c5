package match

import (
	"github.com/yolosopher/rps-live/internal/model"
)

// ViewFor renders a match for one viewer. While the open round is
// unrevealed, every move except the viewer's own is masked: a recorded move
// shows as hidden, no move shows as none. Once the round is revealed all
// moves are visible to everyone, anonymous spectators included.
func ViewFor(match *model.Match, viewer model.UserID) *model.Match {
	out := *match
	out.CurrentRound = make([]model.RoundEntry, len(match.CurrentRound))
	copy(out.CurrentRound, match.CurrentRound)

	if match.Revealed {
		return &out
	}

	for i := range out.CurrentRound {
		entry := &out.CurrentRound[i]
		if entry.Player.ID == viewer {
			continue
		}
		if entry.Move != model.MoveNone {
			entry.Move = model.MoveHidden
		}
	}
	return &out
}
