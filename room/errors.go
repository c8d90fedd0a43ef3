package room

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrCodeAllocationFailed = errors.New("room code allocation failed")
	ErrNotOwner             = errors.New("only the room owner can do this")
	ErrInvalidState         = errors.New("invalid room state")
	ErrInvalidIdentity      = errors.New("user id is required")
	ErrInvalidProblem       = errors.New("problem id is required")

	// Store errors
	ErrCodeTaken       = errors.New("room code already taken")
	ErrVersionConflict = errors.New("room version conflict")
)

func newInvalidStateError(code string, status Status) error {
	return fmt.Errorf("%w: room %s is %s", ErrInvalidState, code, status)
}

func newNotOwnerError(code, userID string) error {
	return fmt.Errorf("%w: %s does not own room %s", ErrNotOwner, userID, code)
}

func newCodeAllocationError(err error) error {
	return fmt.Errorf("%w: %w", ErrCodeAllocationFailed, err)
}

func NewCodeTakenError(code string) error {
	return fmt.Errorf("%w: %s", ErrCodeTaken, code)
}

func NewNotFoundError(code string) error {
	return fmt.Errorf("%w: %s", ErrRoomNotFound, code)
}

func NewVersionConflictError(code string, expected uint64) error {
	return fmt.Errorf("%w: room %s is no longer at version %d", ErrVersionConflict, code, expected)
}
