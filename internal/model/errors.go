package model

import (
	"errors"
)

// Invariant violations. These indicate a logic error rather than a
// transient failure and are surfaced distinctly, never swallowed.
var (
	// ErrPositionExists is returned when opening a position for a
	// (user, symbol) that already has one open.
	ErrPositionExists = errors.New("open position already exists for symbol")

	// ErrNoOpenPosition is returned when closing a position for a
	// (user, symbol) that has none open.
	ErrNoOpenPosition = errors.New("no open position for symbol")
)
