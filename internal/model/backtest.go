package model

import (
	"time"
)

// BacktestRequest represents the input parameters for a backtest run.
type BacktestRequest struct {
	Strategy      string    `json:"strategy" binding:"required" validate:"required"`
	Symbol        string    `json:"symbol" binding:"required" validate:"required"`
	StartDate     time.Time `json:"start_date" binding:"required" validate:"required"`
	EndDate       time.Time `json:"end_date" binding:"required" validate:"required"`
	InitialAmount float64   `json:"initial_amount" binding:"required,gt=0" validate:"required,gt=0"`
}

// BacktestTrade is one entry in the simulated trade ledger.
type BacktestTrade struct {
	Side     string    `json:"side"`
	Time     time.Time `json:"time"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Profit   float64   `json:"profit,omitempty"`
	Balance  float64   `json:"balance"`
}

// BacktestResult summarizes a completed backtest run. Trades is
// bounded to the most recent 100 ledger entries.
type BacktestResult struct {
	Strategy      string          `json:"strategy"`
	Symbol        string          `json:"symbol"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	InitialAmount float64         `json:"initial_amount"`
	FinalAmount   float64         `json:"final_amount"`
	TotalReturn   float64         `json:"total_return"`
	TotalProfit   float64         `json:"total_profit"`
	TotalTrades   int             `json:"total_trades"`
	WinCount      int             `json:"win_count"`
	LossCount     int             `json:"loss_count"`
	WinRate       float64         `json:"win_rate"`
	Trades        []BacktestTrade `json:"trades"`
}
