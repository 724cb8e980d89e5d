package board

import "errors"

// Domain errors
var (
	ErrBoardNotFound       = errors.New("board not found")
	ErrParticipantNotFound = errors.New("participant not found on board")
	ErrActivityNotFound    = errors.New("activity not found on board")
	ErrSubGameNotFound     = errors.New("sub-game not found in activity")
	ErrPinRejected         = errors.New("incorrect pin")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInternalError       = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrBoardNotFound) ||
		errors.Is(err, ErrParticipantNotFound) ||
		errors.Is(err, ErrActivityNotFound) ||
		errors.Is(err, ErrSubGameNotFound)
}
