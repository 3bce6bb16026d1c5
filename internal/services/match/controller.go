package match

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yolosopher/rps-live/internal/dependencies/clock"
	"github.com/yolosopher/rps-live/internal/dependencies/random"
	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/services/presence"
	"github.com/yolosopher/rps-live/internal/services/round"
	"github.com/yolosopher/rps-live/internal/storage"
)

const (
	// MatchIDLength is the length of generated match ids
	MatchIDLength = 8
	// MatchIDAlphabet is the characters used in match ids (avoid confusing chars)
	MatchIDAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

	// DefaultNextRoundDelay is how long a resolved round stays revealed
	// before the next round opens.
	DefaultNextRoundDelay = 3 * time.Second
)

// Pusher delivers events to every live session of the addressed users.
// The websocket hub implements it; tests plug in a recorder.
type Pusher interface {
	PushToUser(user model.UserID, event string, data any)
}

// Controller drives the match state machine: membership, moderation,
// lifecycle, moves and round resolution, plus the event fan-out that keeps
// every connected player's view current.
type Controller struct {
	matches  storage.MatchStore
	presence presence.RegistryInterface
	clock    clock.Clock
	random   random.Random
	pusher   Pusher
	logger   *slog.Logger

	nextRoundDelay time.Duration
}

// NewController creates a new match controller. A nextRoundDelay of zero
// resolves rounds synchronously, which is what the tests want.
func NewController(
	matches storage.MatchStore,
	presenceRegistry presence.RegistryInterface,
	clk clock.Clock,
	rnd random.Random,
	pusher Pusher,
	logger *slog.Logger,
	nextRoundDelay time.Duration,
) *Controller {
	return &Controller{
		matches:        matches,
		presence:       presenceRegistry,
		clock:          clk,
		random:         rnd,
		pusher:         pusher,
		logger:         logger,
		nextRoundDelay: nextRoundDelay,
	}
}

// Create opens a new match in the lobby state with the actor as creator
func (c *Controller) Create(ctx context.Context, actor model.PlayerRef) (*model.Match, error) {
	current, err := c.presence.CurrentMatch(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if current != "" {
		return nil, model.ErrAlreadyInMatch
	}

	// Generate unique match id
	var id model.MatchID
	for {
		id = model.MatchID(c.random.String(MatchIDLength, MatchIDAlphabet))
		_, err := c.matches.GetMatch(ctx, id)
		if errors.Is(err, model.ErrMatchNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	now := c.clock.Now()
	match := &model.Match{
		ID:             id,
		Creator:        actor,
		State:          model.MatchStateLobby,
		Players:        []model.RosterEntry{{Player: actor, Score: 0}},
		CurrentRound:   []model.RoundEntry{},
		HistoryRounds:  []model.HistoryRound{},
		Blacklist:      []model.UserID{},
		InMatchPlayers: []model.UserID{actor.ID},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := c.matches.CreateMatch(ctx, match); err != nil {
		return nil, err
	}
	if err := c.presence.SetCurrentMatch(ctx, actor.ID, id); err != nil {
		return nil, err
	}

	c.pushCurrentMatch(actor.ID, &id)
	c.broadcast(match)
	return ViewFor(match, actor.ID), nil
}

// Join adds the actor to a match, or brings a roster member back into one.
// Any match that has not finished accepts new players; a mid-round joiner
// sits out until the next round opens.
func (c *Controller) Join(ctx context.Context, actor model.PlayerRef, id model.MatchID) (*model.Match, error) {
	current, err := c.presence.CurrentMatch(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if current != "" && current != id {
		return nil, model.ErrAlreadyInMatch
	}

	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	if match.IsBanned(actor.ID) {
		return nil, model.ErrBanned
	}
	if match.State == model.MatchStateFinished {
		return nil, model.ErrMatchFinished
	}

	if err := c.matches.AddRosterEntry(ctx, id, model.RosterEntry{Player: actor}); err != nil {
		return nil, err
	}
	if err := c.matches.SetOnline(ctx, id, actor.ID, true); err != nil {
		return nil, err
	}
	if err := c.presence.SetCurrentMatch(ctx, actor.ID, id); err != nil {
		return nil, err
	}

	match, err = c.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	c.pushCurrentMatch(actor.ID, &id)
	c.broadcast(match)
	return ViewFor(match, actor.ID), nil
}

// Leave takes the actor out of their current match. Their roster entry and
// score survive, so they can rejoin later unless the match finishes first.
// Leaving mid-round stops the match, since the round can no longer complete.
func (c *Controller) Leave(ctx context.Context, actor model.UserID) error {
	id, err := c.requireCurrentMatch(ctx, actor)
	if err != nil {
		return err
	}
	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}

	if err := c.matches.SetOnline(ctx, id, actor, false); err != nil {
		return err
	}
	if err := c.presence.ClearCurrentMatch(ctx, actor); err != nil {
		return err
	}
	if err := c.stopIfMidRound(ctx, id, match, actor); err != nil {
		return err
	}

	c.pushCurrentMatch(actor, nil)
	c.pusher.PushToUser(actor, model.EventGameInfo, nil)

	match, err = c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	c.broadcast(match)
	return nil
}

// Kick forces a roster member out of the match without banning them.
// Kicking a round participant stops the match like a leave does.
func (c *Controller) Kick(ctx context.Context, actor model.UserID, target model.UserID) error {
	id, match, err := c.requireCreator(ctx, actor)
	if err != nil {
		return err
	}
	if target == actor || match.RosterEntry(target) == nil {
		return model.ErrNotInMatch
	}

	if err := c.matches.SetOnline(ctx, id, target, false); err != nil {
		return err
	}
	if err := c.clearIfCurrent(ctx, target, id); err != nil {
		return err
	}
	if err := c.stopIfMidRound(ctx, id, match, target); err != nil {
		return err
	}

	c.pusher.PushToUser(target, model.EventKicked, id)
	c.pushCurrentMatch(target, nil)
	c.pusher.PushToUser(target, model.EventGameInfo, nil)

	match, err = c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	c.broadcast(match)
	return nil
}

// Ban blacklists a player and throws them out of the match. The target's
// roster entry and score history remain.
func (c *Controller) Ban(ctx context.Context, actor model.UserID, target model.UserID) error {
	id, match, err := c.requireCreator(ctx, actor)
	if err != nil {
		return err
	}
	if target == actor {
		return model.ErrSelfBan
	}
	if match.IsBanned(target) {
		return nil
	}

	if err := c.matches.AddBan(ctx, id, target); err != nil {
		return err
	}
	if err := c.clearIfCurrent(ctx, target, id); err != nil {
		return err
	}
	if err := c.stopIfMidRound(ctx, id, match, target); err != nil {
		return err
	}

	c.pusher.PushToUser(target, model.EventBanned, id)
	c.pushCurrentMatch(target, nil)
	c.pusher.PushToUser(target, model.EventGameInfo, nil)

	match, err = c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	c.broadcast(match)
	return nil
}

// Unban removes a player from the blacklist. They still need to rejoin on
// their own.
func (c *Controller) Unban(ctx context.Context, actor model.UserID, target model.UserID) error {
	id, match, err := c.requireCreator(ctx, actor)
	if err != nil {
		return err
	}
	if !match.IsBanned(target) {
		return model.ErrNotBanned
	}

	if err := c.matches.RemoveBan(ctx, id, target); err != nil {
		return err
	}

	match, err = c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	c.broadcast(match)
	return nil
}

// Start opens the first round with every online roster member in it
func (c *Controller) Start(ctx context.Context, actor model.UserID) error {
	id, match, err := c.requireCreator(ctx, actor)
	if err != nil {
		return err
	}
	if match.State != model.MatchStateLobby {
		return model.ErrMatchNotInLobby
	}
	return c.openRound(ctx, id, match)
}

// Restart reopens play with a fresh round, keeping scores and history. It
// works from Stopped and from InProgress, where it discards the open round.
func (c *Controller) Restart(ctx context.Context, actor model.UserID) error {
	id, match, err := c.requireCreator(ctx, actor)
	if err != nil {
		return err
	}
	switch match.State {
	case model.MatchStateFinished:
		return model.ErrMatchFinished
	case model.MatchStateLobby:
		return model.ErrMatchNotStarted
	}
	return c.openRound(ctx, id, match)
}

func (c *Controller) openRound(ctx context.Context, id model.MatchID, match *model.Match) error {
	if len(match.Players) < 2 {
		return model.ErrNotEnoughPlayers
	}

	entries := onlineRoundEntries(match)
	if len(entries) < 2 {
		return model.ErrNotEnoughOnlinePlayers
	}

	if err := c.matches.SetState(ctx, id, model.MatchStateInProgress, entries, false); err != nil {
		return err
	}

	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	c.broadcast(match)
	return nil
}

// Stop interrupts play mid-round. The open round is discarded; scores and
// history stay.
func (c *Controller) Stop(ctx context.Context, actor model.UserID) error {
	id, match, err := c.requireCreator(ctx, actor)
	if err != nil {
		return err
	}
	if match.State != model.MatchStateInProgress {
		return model.ErrMatchNotInProgress
	}

	if err := c.matches.SetState(ctx, id, model.MatchStateStopped, []model.RoundEntry{}, false); err != nil {
		return err
	}

	match, err = c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	c.broadcast(match)
	return nil
}

// End finishes the match for good and releases every member from it
func (c *Controller) End(ctx context.Context, actor model.UserID) error {
	id, match, err := c.requireCreator(ctx, actor)
	if err != nil {
		return err
	}
	if match.State == model.MatchStateFinished {
		return model.ErrMatchFinished
	}

	if err := c.matches.SetState(ctx, id, model.MatchStateFinished, []model.RoundEntry{}, false); err != nil {
		return err
	}

	members := append([]model.UserID(nil), match.InMatchPlayers...)
	for _, member := range members {
		if err := c.matches.SetOnline(ctx, id, member, false); err != nil {
			return err
		}
		if err := c.clearIfCurrent(ctx, member, id); err != nil {
			return err
		}
	}

	match, err = c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	for _, member := range members {
		c.pushCurrentMatch(member, nil)
		c.pusher.PushToUser(member, model.EventGameInfo, ViewFor(match, member))
	}
	return nil
}

// Move records the actor's move for the open round. The move that completes
// the round flips it to revealed and schedules resolution.
func (c *Controller) Move(ctx context.Context, actor model.UserID, move model.Move) error {
	if !move.IsLegal() {
		return model.ErrInvalidMove
	}

	id, err := c.requireCurrentMatch(ctx, actor)
	if err != nil {
		return err
	}

	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	if match.State != model.MatchStateInProgress {
		return model.ErrMatchNotInProgress
	}

	entry := match.RoundEntry(actor)
	if entry == nil {
		return model.ErrNotInRound
	}
	if entry.Move != model.MoveNone {
		return model.ErrAlreadyMoved
	}

	if err := c.matches.SetMove(ctx, id, actor, move); err != nil {
		return err
	}

	match, err = c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}

	if match.AllMoved() && !match.Revealed {
		if err := c.matches.SetRevealed(ctx, id, true); err != nil {
			return err
		}
		match.Revealed = true
		c.broadcast(match)
		c.scheduleResolve(id)
		return nil
	}

	c.broadcast(match)
	return nil
}

// scheduleResolve commits the revealed round after the reveal window. With
// a zero delay it runs inline, keeping tests deterministic.
func (c *Controller) scheduleResolve(id model.MatchID) {
	if c.nextRoundDelay == 0 {
		c.resolveRound(context.Background(), id)
		return
	}
	time.AfterFunc(c.nextRoundDelay, func() {
		c.resolveRound(context.Background(), id)
	})
}

// resolveRound scores the revealed round and opens the next one. The commit
// is conditional on the match still being revealed, so a stop, an end or a
// concurrent resolver in between turns this into a no-op.
func (c *Controller) resolveRound(ctx context.Context, id model.MatchID) {
	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		c.logger.Error("resolve: load match", "match_id", id, "error", err)
		return
	}
	if !match.Revealed || match.State != model.MatchStateInProgress {
		return
	}

	outcome := round.Resolve(match.CurrentRound)
	next := resetRoundEntries(match.CurrentRound)

	committed, err := c.matches.CommitRound(ctx, id, outcome.HistoryRound(), outcome.WinnerIDs(), next)
	if err != nil {
		c.logger.Error("resolve: commit round", "match_id", id, "error", err)
		return
	}
	if !committed {
		return
	}

	match, err = c.matches.GetMatch(ctx, id)
	if err != nil {
		c.logger.Error("resolve: reload match", "match_id", id, "error", err)
		return
	}
	c.broadcast(match)
}

// OwnInfo returns the actor's view of their current match, or nil when they
// are not in one.
func (c *Controller) OwnInfo(ctx context.Context, actor model.UserID) (*model.Match, error) {
	id, err := c.presence.CurrentMatch(ctx, actor)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}

	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrMatchNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ViewFor(match, actor), nil
}

// InfoByID returns a viewer's view of any match. The viewer may be "" for
// an anonymous spectator, who gets every unrevealed move masked.
func (c *Controller) InfoByID(ctx context.Context, viewer model.UserID, id model.MatchID) (*model.Match, error) {
	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return ViewFor(match, viewer), nil
}

// OnlinePlayers returns the roster references of the players currently in
// the actor's match.
func (c *Controller) OnlinePlayers(ctx context.Context, actor model.UserID) ([]model.PlayerRef, error) {
	id, err := c.requireCurrentMatch(ctx, actor)
	if err != nil {
		return nil, err
	}
	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return onlineRefs(match), nil
}

// Connect marks a newly connected session. The user's first session brings
// them back online in their current match, if they have one.
func (c *Controller) Connect(ctx context.Context, actor model.UserID) (string, error) {
	session, err := c.presence.Connect(ctx, actor)
	if err != nil {
		return "", err
	}

	id, err := c.presence.CurrentMatch(ctx, actor)
	if err != nil {
		return session, err
	}
	if id == "" {
		return session, nil
	}

	if err := c.matches.SetOnline(ctx, id, actor, true); err != nil {
		return session, err
	}

	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		return session, err
	}
	c.broadcast(match)
	return session, nil
}

// Disconnect drops one session. Losing the last session marks the user
// offline in their match but deliberately keeps their current-match pointer,
// so a reconnect lands them back where they were.
func (c *Controller) Disconnect(ctx context.Context, actor model.UserID, session string) error {
	last, err := c.presence.Disconnect(ctx, actor, session)
	if err != nil {
		return err
	}
	if !last {
		return nil
	}

	id, err := c.presence.CurrentMatch(ctx, actor)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}

	if err := c.matches.SetOnline(ctx, id, actor, false); err != nil {
		return err
	}

	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	c.broadcast(match)
	return nil
}

// requireCurrentMatch resolves the actor's current match id
func (c *Controller) requireCurrentMatch(ctx context.Context, actor model.UserID) (model.MatchID, error) {
	id, err := c.presence.CurrentMatch(ctx, actor)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", model.ErrNotInMatch
	}
	return id, nil
}

// requireCreator resolves the actor's current match and checks creatorship
func (c *Controller) requireCreator(ctx context.Context, actor model.UserID) (model.MatchID, *model.Match, error) {
	id, err := c.requireCurrentMatch(ctx, actor)
	if err != nil {
		return "", nil, err
	}
	match, err := c.matches.GetMatch(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if match.Creator.ID != actor {
		return "", nil, model.ErrNotCreator
	}
	return id, match, nil
}

// stopIfMidRound interrupts play when a round participant departs. The open
// round cannot complete without them, so it is discarded and the match goes
// to Stopped.
func (c *Controller) stopIfMidRound(ctx context.Context, id model.MatchID, match *model.Match, user model.UserID) error {
	if match.State != model.MatchStateInProgress || match.RoundEntry(user) == nil {
		return nil
	}
	return c.matches.SetState(ctx, id, model.MatchStateStopped, []model.RoundEntry{}, false)
}

// clearIfCurrent clears the user's current-match pointer only if it still
// points at the given match.
func (c *Controller) clearIfCurrent(ctx context.Context, user model.UserID, id model.MatchID) error {
	current, err := c.presence.CurrentMatch(ctx, user)
	if err != nil {
		return err
	}
	if current != id {
		return nil
	}
	return c.presence.ClearCurrentMatch(ctx, user)
}

// broadcast sends every in-match player their own view of the match plus
// the shared online-players list.
func (c *Controller) broadcast(match *model.Match) {
	online := onlineRefs(match)
	for _, member := range match.InMatchPlayers {
		c.pusher.PushToUser(member, model.EventGameInfo, ViewFor(match, member))
		c.pusher.PushToUser(member, model.EventOnlinePlayers, online)
	}
}

func (c *Controller) pushCurrentMatch(user model.UserID, id *model.MatchID) {
	c.pusher.PushToUser(user, model.EventCurrentGame, id)
}

// onlineRoundEntries builds a fresh round from the online roster members,
// preserving roster order.
func onlineRoundEntries(match *model.Match) []model.RoundEntry {
	entries := make([]model.RoundEntry, 0, len(match.InMatchPlayers))
	for _, roster := range match.Players {
		if match.IsOnline(roster.Player.ID) {
			entries = append(entries, model.RoundEntry{
				Player: roster.Player,
				Move:   model.MoveNone,
			})
		}
	}
	return entries
}

// resetRoundEntries reopens a closed round with the same participants and
// every move cleared.
func resetRoundEntries(entries []model.RoundEntry) []model.RoundEntry {
	next := make([]model.RoundEntry, len(entries))
	for i, e := range entries {
		next[i] = model.RoundEntry{Player: e.Player, Move: model.MoveNone}
	}
	return next
}

// onlineRefs returns roster references for the in-match players, in roster
// order.
func onlineRefs(match *model.Match) []model.PlayerRef {
	refs := make([]model.PlayerRef, 0, len(match.InMatchPlayers))
	for _, roster := range match.Players {
		if match.IsOnline(roster.Player.ID) {
			refs = append(refs, roster.Player)
		}
	}
	return refs
}

// Interface for dependency injection
type ControllerInterface interface {
	Create(ctx context.Context, actor model.PlayerRef) (*model.Match, error)
	Join(ctx context.Context, actor model.PlayerRef, id model.MatchID) (*model.Match, error)
	Leave(ctx context.Context, actor model.UserID) error
	Kick(ctx context.Context, actor model.UserID, target model.UserID) error
	Ban(ctx context.Context, actor model.UserID, target model.UserID) error
	Unban(ctx context.Context, actor model.UserID, target model.UserID) error
	Start(ctx context.Context, actor model.UserID) error
	Restart(ctx context.Context, actor model.UserID) error
	Stop(ctx context.Context, actor model.UserID) error
	End(ctx context.Context, actor model.UserID) error
	Move(ctx context.Context, actor model.UserID, move model.Move) error
	OwnInfo(ctx context.Context, actor model.UserID) (*model.Match, error)
	InfoByID(ctx context.Context, viewer model.UserID, id model.MatchID) (*model.Match, error)
	OnlinePlayers(ctx context.Context, actor model.UserID) ([]model.PlayerRef, error)
	Connect(ctx context.Context, actor model.UserID) (string, error)
	Disconnect(ctx context.Context, actor model.UserID, session string) error
}

var _ ControllerInterface = (*Controller)(nil)
