package model

import (
	"time"
)

// Trading session status values.
const (
	SessionStatusActive  = "active"
	SessionStatusStopped = "stopped"
)

// SessionSettings holds the per-session trading parameters.
type SessionSettings struct {
	InvestmentAmount float64 `json:"investment_amount" binding:"required,gt=0"`
	MaxPositions     int     `json:"max_positions" binding:"required,min=1"`
	IntervalSeconds  int     `json:"interval_seconds" binding:"required,min=1"`
}

// Interval returns the polling interval as a duration.
func (s SessionSettings) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// TradingSession is the lifecycle record for one user's automated
// trading run. Exactly one active session may exist per user; the
// persisted row is the source of truth for status across restarts,
// though a restart never silently resumes polling.
type TradingSession struct {
	SessionID string          `json:"session_id"`
	UserID    int64           `json:"user_id"`
	Strategy  string          `json:"strategy"`
	Symbols   []string        `json:"symbols"`
	Settings  SessionSettings `json:"settings"`
	Status    string          `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	StoppedAt *time.Time      `json:"stopped_at,omitempty"`
}

// SessionStatus is the caller-visible view of a user's session state.
type SessionStatus struct {
	IsTrading bool      `json:"is_trading"`
	SessionID string    `json:"session_id,omitempty"`
	Strategy  string    `json:"strategy,omitempty"`
	Symbols   []string  `json:"symbols,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}
