package strategy

import (
	"github.com/yourorg/trading-engine/internal/indicator"
	"github.com/yourorg/trading-engine/internal/model"
)

// Momentum trades trend continuation: RSI in the neutral band, MACD
// above its signal line and price above rising moving averages.
type Momentum struct{}

func (*Momentum) Name() string { return "momentum" }

// ShouldEnter requires at least 3 of 4 conditions.
func (*Momentum) ShouldEnter(symbol string, snap *model.MarketSnapshot, ind *indicator.Set) (bool, []string) {
	conditions := []condition{
		{"rsi_neutral", ind.RSI > 30 && ind.RSI < 70},
		{"macd_above_signal", ind.MACD > ind.MACDSignal},
		{"price_above_ema20", snap.Price > ind.EMA20},
		{"ema20_above_ema50", ind.EMA20 > ind.EMA50},
	}

	passed, reasons := vote(conditions)
	return passed >= 3, reasons
}

// ShouldExit triggers on any single condition: overbought RSI, MACD
// crossing down, a 10% take-profit or a -5% stop-loss.
func (*Momentum) ShouldExit(symbol string, pos *model.Position, snap *model.MarketSnapshot, ind *indicator.Set) (bool, []string) {
	profitRate := pos.ProfitRate(snap.Price)

	conditions := []condition{
		{"rsi_overbought", ind.RSI > 70},
		{"macd_below_signal", ind.MACD < ind.MACDSignal},
		{"take_profit", profitRate >= 10},
		{"stop_loss", profitRate <= -5},
	}

	passed, reasons := vote(conditions)
	return passed >= 1, reasons
}
