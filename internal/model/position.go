package model

import (
	"time"
)

// Position side and status values. Spot trading is long only.
const (
	PositionSideLong = "long"

	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

// Trade side values.
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Position represents a holding in one symbol. At most one open
// position may exist per (user, symbol) at any time.
type Position struct {
	ID       int64      `json:"id" db:"id"`
	UserID   int64      `json:"user_id" db:"user_id"`
	Symbol   string     `json:"symbol" db:"symbol"`
	Side     string     `json:"side" db:"side"`
	Quantity float64    `json:"quantity" db:"quantity"`
	AvgPrice float64    `json:"avg_price" db:"avg_price"`
	OrderRef string     `json:"order_ref" db:"order_ref"`
	Status   string     `json:"status" db:"status"`
	Profit   *float64   `json:"profit,omitempty" db:"profit"`
	OpenedAt time.Time  `json:"opened_at" db:"created_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty" db:"closed_at"`
}

// ProfitRate returns the unrealized profit rate in percent at price.
func (p *Position) ProfitRate(price float64) float64 {
	return (price - p.AvgPrice) / p.AvgPrice * 100
}

// Trade is an append-only record of a fill. Never mutated after
// creation; Profit is set on sells only.
type Trade struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Symbol    string    `json:"symbol" db:"symbol"`
	Side      string    `json:"side" db:"side"`
	Price     float64   `json:"price" db:"price"`
	Quantity  float64   `json:"quantity" db:"quantity"`
	Profit    *float64  `json:"profit,omitempty" db:"profit"`
	OrderRef  string    `json:"order_ref" db:"order_ref"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TradePage is one page of a user's trade history.
type TradePage struct {
	Trades     []Trade `json:"trades"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}
