package myerrors

import "errors"

var (
	ErrPositionUnavailable = errors.New("current position is not known yet")
	ErrConnectionFailed    = errors.New("realtime connection failed")
	ErrPublishDropped      = errors.New("location dropped: realtime channel not connected")
	ErrMalformedMessage    = errors.New("malformed realtime message")
	ErrSnapshotUnavailable = errors.New("base map unavailable")
	ErrPersistenceFailed   = errors.New("failed to persist walk")

	ErrAlreadyWalking   = errors.New("a walk is already in progress")
	ErrEndInProgress    = errors.New("walk is being ended")
	ErrStartAborted     = errors.New("walk was cancelled while starting")
	ErrNotWalking       = errors.New("no walk in progress")
	ErrAreaActive       = errors.New("another area subscription is active")
	ErrSnapshotNotReady = errors.New("snapshot was not ready in time")
	ErrTokenInvalid     = errors.New("access token is invalid")
)
