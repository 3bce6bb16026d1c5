package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/storage"
)

const (
	matchesCollection = "matches"
	usersCollection   = "users"
)

// Storage is a MongoDB-backed implementation of the match and user stores
type Storage struct {
	client  *mongo.Client
	matches *mongo.Collection
	users   *mongo.Collection
}

// New connects to MongoDB and prepares the collections
func New(ctx context.Context, cfg Config) (*Storage, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	db := client.Database(cfg.Database)
	s := &Storage{
		client:  client,
		matches: db.Collection(matchesCollection),
		users:   db.Collection(usersCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close disconnects from MongoDB
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.matches.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "matchId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	// Usernames are unique among live accounts only, so a soft-deleted
	// account frees its name for re-registration.
	_, err = s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"deleted": false}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

// Ensure Storage implements the interfaces
var _ storage.MatchStore = (*Storage)(nil)
var _ storage.UserStore = (*Storage)(nil)

// matchDoc is the persisted shape of a match
type matchDoc struct {
	MatchID        model.MatchID        `bson:"matchId"`
	Creator        model.PlayerRef      `bson:"creator"`
	State          model.MatchState     `bson:"state"`
	Players        []model.RosterEntry  `bson:"players"`
	CurrentRound   []model.RoundEntry   `bson:"currentRound"`
	HistoryRounds  []model.HistoryRound `bson:"historyRounds"`
	Blacklist      []model.UserID       `bson:"blacklist"`
	InMatchPlayers []model.UserID       `bson:"inMatchPlayers"`
	Revealed       bool                 `bson:"revealed"`
	CreatedAt      time.Time            `bson:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt"`
}

// userDoc is the persisted shape of a user account
type userDoc struct {
	UserID       model.UserID `bson:"userId"`
	Username     string       `bson:"username"`
	PasswordHash string       `bson:"passwordHash"`
	AvatarURL    string       `bson:"avatarUrl"`
	Role         model.Role   `bson:"role"`
	Deleted      bool         `bson:"deleted"`
	CreatedAt    time.Time    `bson:"createdAt"`
}

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	doc := matchDoc{
		MatchID:        match.ID,
		Creator:        match.Creator,
		State:          match.State,
		Players:        match.Players,
		CurrentRound:   match.CurrentRound,
		HistoryRounds:  match.HistoryRounds,
		Blacklist:      match.Blacklist,
		InMatchPlayers: match.InMatchPlayers,
		Revealed:       match.Revealed,
		CreatedAt:      match.CreatedAt,
		UpdatedAt:      match.UpdatedAt,
	}
	if doc.Players == nil {
		doc.Players = []model.RosterEntry{}
	}
	if doc.CurrentRound == nil {
		doc.CurrentRound = []model.RoundEntry{}
	}
	if doc.HistoryRounds == nil {
		doc.HistoryRounds = []model.HistoryRound{}
	}
	if doc.Blacklist == nil {
		doc.Blacklist = []model.UserID{}
	}
	if doc.InMatchPlayers == nil {
		doc.InMatchPlayers = []model.UserID{}
	}

	_, err := s.matches.InsertOne(ctx, doc)
	return err
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	var doc matchDoc
	err := s.matches.FindOne(ctx, bson.M{"matchId": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	match := &model.Match{
		ID:             doc.MatchID,
		Creator:        doc.Creator,
		State:          doc.State,
		Players:        doc.Players,
		CurrentRound:   doc.CurrentRound,
		HistoryRounds:  doc.HistoryRounds,
		Blacklist:      doc.Blacklist,
		InMatchPlayers: doc.InMatchPlayers,
		Revealed:       doc.Revealed,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}

	if err := s.resolveUsernames(ctx, match); err != nil {
		return nil, err
	}
	return match, nil
}

// resolveUsernames rewrites player references with the current usernames
// from the users collection, so renames propagate into match reads.
func (s *Storage) resolveUsernames(ctx context.Context, match *model.Match) error {
	idSet := map[model.UserID]struct{}{match.Creator.ID: {}}
	for _, entry := range match.Players {
		idSet[entry.Player.ID] = struct{}{}
	}
	for _, entry := range match.CurrentRound {
		idSet[entry.Player.ID] = struct{}{}
	}

	ids := make([]model.UserID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	cursor, err := s.users.Find(ctx, bson.M{"userId": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	usernames := make(map[model.UserID]string, len(ids))
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return err
		}
		usernames[doc.UserID] = doc.Username
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	resolve := func(ref *model.PlayerRef) {
		if name, ok := usernames[ref.ID]; ok {
			ref.Username = name
		}
	}
	resolve(&match.Creator)
	for i := range match.Players {
		resolve(&match.Players[i].Player)
	}
	for i := range match.CurrentRound {
		resolve(&match.CurrentRound[i].Player)
	}
	return nil
}

func (s *Storage) updateMatch(ctx context.Context, filter, update bson.M, opts ...*options.UpdateOptions) (int64, error) {
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updatedAt"] = time.Now()

	res, err := s.matches.UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *Storage) SetState(ctx context.Context, id model.MatchID, state model.MatchState, round []model.RoundEntry, revealed bool) error {
	set := bson.M{"state": state}
	if round != nil {
		set["currentRound"] = round
		set["revealed"] = revealed
	}

	matched, err := s.updateMatch(ctx, bson.M{"matchId": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if matched == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

func (s *Storage) AddRosterEntry(ctx context.Context, id model.MatchID, entry model.RosterEntry) error {
	filter := bson.M{
		"matchId":           id,
		"players.player.id": bson.M{"$ne": entry.Player.ID},
	}
	_, err := s.updateMatch(ctx, filter, bson.M{"$push": bson.M{"players": entry}})
	return err
}

func (s *Storage) SetOnline(ctx context.Context, id model.MatchID, player model.UserID, online bool) error {
	var update bson.M
	if online {
		update = bson.M{"$addToSet": bson.M{"inMatchPlayers": player}}
	} else {
		update = bson.M{"$pull": bson.M{"inMatchPlayers": player}}
	}

	matched, err := s.updateMatch(ctx, bson.M{"matchId": id}, update)
	if err != nil {
		return err
	}
	if matched == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

func (s *Storage) SetMove(ctx context.Context, id model.MatchID, player model.UserID, move model.Move) error {
	update := bson.M{"$set": bson.M{"currentRound.$[entry].move": move}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"entry.player.id": player}},
	})

	matched, err := s.updateMatch(ctx, bson.M{"matchId": id}, update, opts)
	if err != nil {
		return err
	}
	if matched == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

func (s *Storage) SetRevealed(ctx context.Context, id model.MatchID, revealed bool) error {
	matched, err := s.updateMatch(ctx, bson.M{"matchId": id}, bson.M{"$set": bson.M{"revealed": revealed}})
	if err != nil {
		return err
	}
	if matched == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

func (s *Storage) AddBan(ctx context.Context, id model.MatchID, player model.UserID) error {
	update := bson.M{
		"$addToSet": bson.M{"blacklist": player},
		"$pull":     bson.M{"inMatchPlayers": player},
	}

	matched, err := s.updateMatch(ctx, bson.M{"matchId": id}, update)
	if err != nil {
		return err
	}
	if matched == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

func (s *Storage) RemoveBan(ctx context.Context, id model.MatchID, player model.UserID) error {
	matched, err := s.updateMatch(ctx, bson.M{"matchId": id}, bson.M{"$pull": bson.M{"blacklist": player}})
	if err != nil {
		return err
	}
	if matched == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

func (s *Storage) CommitRound(ctx context.Context, id model.MatchID, round model.HistoryRound, winners []model.UserID, nextRound []model.RoundEntry) (bool, error) {
	// The revealed filter makes the commit first-writer-wins: a concurrent
	// resolver that lost the race matches nothing and backs off.
	filter := bson.M{"matchId": id, "revealed": true}
	update := bson.M{
		"$push": bson.M{"historyRounds": round},
		"$set": bson.M{
			"currentRound": nextRound,
			"revealed":     false,
		},
	}

	var opts []*options.UpdateOptions
	if len(winners) > 0 {
		update["$inc"] = bson.M{"players.$[winner].score": 1}
		opts = append(opts, options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"winner.player.id": bson.M{"$in": winners}}},
		}))
	}

	matched, err := s.updateMatch(ctx, filter, update, opts...)
	if err != nil {
		return false, err
	}
	return matched > 0, nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	doc := userDoc{
		UserID:       user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		AvatarURL:    user.AvatarURL,
		Role:         user.Role,
		Deleted:      user.Deleted,
		CreatedAt:    user.CreatedAt,
	}

	_, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrUserExists
		}
		return err
	}
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.findUser(ctx, bson.M{"userId": id})
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	// Several soft-deleted accounts may share a username with one live one;
	// prefer the live account.
	return s.findUser(ctx, bson.M{"username": username},
		options.FindOne().SetSort(bson.D{{Key: "deleted", Value: 1}}))
}

func (s *Storage) findUser(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*model.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter, opts...).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	return &model.User{
		ID:           doc.UserID,
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		AvatarURL:    doc.AvatarURL,
		Role:         doc.Role,
		Deleted:      doc.Deleted,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (s *Storage) SetDeleted(ctx context.Context, id model.UserID, deleted bool) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"userId": id}, bson.M{"$set": bson.M{"deleted": deleted}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
