package player

import "errors"

var (
	ErrPlayerExists     = errors.New("a player is already registered for this guild")
	ErrPlayerNotFound   = errors.New("no player is registered for this guild")
	ErrConnectionExists = errors.New("a connection already exists")
	ErrConnectionClosed = errors.New("connection is closed")
	ErrJoinFailed       = errors.New("failed to join voice channel")
	ErrStateTimeout     = errors.New("timed out waiting for voice state")
)
