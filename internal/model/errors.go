package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUsername    = errors.New("username must be 3-32 characters of lowercase letters, digits and underscores")
	ErrInvalidPassword    = errors.New("password must be at least 6 characters")

	// Match membership errors
	ErrMatchNotFound  = errors.New("match not found")
	ErrAlreadyInMatch = errors.New("user is already in a match")
	ErrNotInMatch     = errors.New("user is not in a match")
	ErrNotCreator     = errors.New("only the creator is allowed to do this action")

	// Moderation errors
	ErrBanned    = errors.New("user is banned from this match")
	ErrNotBanned = errors.New("user is not banned from this match")
	ErrSelfBan   = errors.New("creator cannot ban themselves")

	// Lifecycle errors
	ErrMatchNotInLobby        = errors.New("match is not in lobby")
	ErrMatchNotStarted        = errors.New("match is not started yet")
	ErrMatchNotInProgress     = errors.New("match is not in progress")
	ErrMatchFinished          = errors.New("match is finished, create a new match and play there")
	ErrNotEnoughPlayers       = errors.New("match needs at least 2 players")
	ErrNotEnoughOnlinePlayers = errors.New("match needs at least 2 online players")

	// Move errors
	ErrNotInRound   = errors.New("user is not in the current round")
	ErrAlreadyMoved = errors.New("user has already moved this round")
	ErrInvalidMove  = errors.New("invalid move")

	// Token errors
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenRevoked    = errors.New("token is revoked")
	ErrRefreshRequired = errors.New("token-refresh-required")
)
