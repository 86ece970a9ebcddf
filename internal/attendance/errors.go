package attendance

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyActive    = errors.New("attendance check already in progress")
	ErrNotActive        = errors.New("no attendance check in progress")
	ErrMaxRoundsReached = errors.New("maximum number of rounds reached")
	ErrRoundMismatch    = errors.New("a different round is in progress")
	ErrRoundNotStarted  = errors.New("round has not been started yet")
	ErrInvalidCode      = errors.New("invalid code")
	ErrUserNotFound     = errors.New("no attendance record for user")
	ErrAlreadyCheckedIn = errors.New("already checked in")
	ErrStoreUnavailable = errors.New("attendance store unavailable")
	ErrSessionNotFound  = errors.New("session not found")
	ErrEmptyRoster      = errors.New("session has no attendance records")
	ErrShutdown         = errors.New("coordinator is shut down")
)

// storeErr passes domain errors reported by the store through and wraps
// everything else as ErrStoreUnavailable.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrMaxRoundsReached) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
