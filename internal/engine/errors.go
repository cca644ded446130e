package engine

import "errors"

var (
	// ErrEmptyDeck is a configuration fault: there is nothing to deal.
	ErrEmptyDeck      = errors.New("card deck is empty")
	ErrUnknownCard    = errors.New("unknown card")
	ErrInputFrozen    = errors.New("input is frozen: run is over")
	ErrDismissPending = errors.New("a dismissal is already in progress")
	ErrStaleHandle    = errors.New("dismiss handle does not match the pending dismissal")
	ErrNoRun          = errors.New("run has not been started")
	ErrNotGameOver    = errors.New("run is still active")
)
