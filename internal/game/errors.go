package game

import "errors"

// Rejections reported to the originating client. None of these are fatal to
// a session: handlers validate before mutating, so a rejected action leaves
// the snapshot untouched.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrForbidden          = errors.New("forbidden")
	ErrOutOfTurn          = errors.New("not your turn")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrGameNotJoinable    = errors.New("game already started")
	ErrNotFound           = errors.New("not found")
)
