package model

import (
	"time"
)

// Candle represents one OHLCV price bar, immutable once produced.
// Series are ordered oldest to newest.
type Candle struct {
	Symbol string    `json:"symbol" db:"symbol"`
	Time   time.Time `json:"time" db:"candle_time"`
	Open   float64   `json:"open" db:"open"`
	High   float64   `json:"high" db:"high"`
	Low    float64   `json:"low" db:"low"`
	Close  float64   `json:"close" db:"close"`
	Volume float64   `json:"volume" db:"volume"`
}

// MarketSnapshot is the current ticker state for a symbol.
type MarketSnapshot struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	ChangeRate float64 `json:"change_rate"`
	Volume24h  float64 `json:"volume_24h"`
}

// SnapshotFromCandle builds a snapshot from a single candle so the
// backtester feeds the same evaluation path as live trading.
func SnapshotFromCandle(c Candle) *MarketSnapshot {
	return &MarketSnapshot{
		Symbol:    c.Symbol,
		Price:     c.Close,
		Volume24h: c.Volume,
	}
}
