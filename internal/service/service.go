package service

import (
	"context"
	"errors"
	"time"

	"github.com/yourorg/trading-engine/internal/model"
)

// Sentinel errors for synchronously rejected operations.
var (
	// ErrSessionActive is returned when a user tries to start a
	// second trading session.
	ErrSessionActive = errors.New("trading session already active")

	// ErrInsufficientBalance is returned when the available balance
	// is below the requested investment amount at session start.
	ErrInsufficientBalance = errors.New("insufficient balance for investment amount")

	// ErrInsufficientData is returned when a backtest window holds
	// too few candles to warm up the indicators.
	ErrInsufficientData = errors.New("not enough candle data for backtest")

	// ErrInvalidRequest is returned when backtest parameters fail
	// validation.
	ErrInvalidRequest = errors.New("invalid backtest request")
)

// Candle granularities understood by market data providers.
const (
	GranularityMinutes = "minutes"
	GranularityDays    = "days"
)

// MarketDataProvider supplies ticker snapshots and candle history for
// a symbol. Implementations return candle series ordered oldest to
// newest.
type MarketDataProvider interface {
	GetSnapshot(ctx context.Context, symbol string) (*model.MarketSnapshot, error)
	GetCandles(ctx context.Context, symbol, granularity string, count int) ([]model.Candle, error)
}

// OrderExecutor submits orders to the trading venue. A returned error
// means no order was placed and internal state must stay untouched.
type OrderExecutor interface {
	SubmitBuy(ctx context.Context, symbol string, price, quantity float64) (orderRef string, err error)
	SubmitSell(ctx context.Context, symbol string, price, quantity float64) (orderRef string, err error)
	AvailableBalance(ctx context.Context) (float64, error)
}

// PositionStore persists positions and their paired trades. Opening
// and closing a position writes the position and its trade as one
// logical unit.
type PositionStore interface {
	// GetOpen returns the open position for (user, symbol), or nil
	// when there is none.
	GetOpen(ctx context.Context, userID int64, symbol string) (*model.Position, error)
	ListOpen(ctx context.Context, userID int64) ([]model.Position, error)

	// OpenWithTrade creates an open position and appends the buy
	// trade atomically. Returns model.ErrPositionExists when an open
	// position for (user, symbol) already exists.
	OpenWithTrade(ctx context.Context, pos *model.Position, trade *model.Trade) error

	// CloseWithTrade closes the open position for (user, symbol),
	// records the realized profit rate and appends the sell trade
	// atomically. Returns model.ErrNoOpenPosition when there is no
	// open position.
	CloseWithTrade(ctx context.Context, userID int64, symbol string, profitRate float64, closedAt time.Time, trade *model.Trade) error
}

// TradeStore reads the append-only trade history.
type TradeStore interface {
	ListByUser(ctx context.Context, userID int64, page, limit int) ([]model.Trade, int, error)
}

// SessionStore persists trading session lifecycle records. The
// persisted row is the source of truth for status across restarts.
type SessionStore interface {
	Create(ctx context.Context, session *model.TradingSession) error
	SetStopped(ctx context.Context, sessionID string, stoppedAt time.Time) error
	GetActive(ctx context.Context, userID int64) (*model.TradingSession, error)
}
