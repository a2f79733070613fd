package strategy

import (
	"github.com/yourorg/trading-engine/internal/indicator"
	"github.com/yourorg/trading-engine/internal/model"
)

// VolatilityBreakout enters expanding-volatility breakouts above the
// upper Bollinger band on elevated volume and exits when the move
// fails or volatility contracts.
type VolatilityBreakout struct{}

func (*VolatilityBreakout) Name() string { return "volatilityBreakout" }

// ShouldEnter requires at least 3 of 5 conditions. The previous-high
// condition only counts when a previous candle exists.
func (*VolatilityBreakout) ShouldEnter(symbol string, snap *model.MarketSnapshot, ind *indicator.Set) (bool, []string) {
	conditions := []condition{
		{"volatility_expansion", ind.BollingerWidth > ind.BollingerWidthMA*1.2},
		{"upper_band_breakout", snap.Price > ind.BollingerUpper},
		{"volume_surge", snap.Volume24h > ind.VolumeMA*1.5},
		{"rsi_momentum", ind.RSI > 50},
		{"new_high", ind.PrevHigh > 0 && snap.Price > ind.PrevHigh},
	}

	passed, reasons := vote(conditions)
	return passed >= 3, reasons
}

// ShouldExit triggers on any single condition: a drop through the
// lower band, volatility contraction, oversold RSI, a 15% take-profit
// or a -7% stop-loss.
func (*VolatilityBreakout) ShouldExit(symbol string, pos *model.Position, snap *model.MarketSnapshot, ind *indicator.Set) (bool, []string) {
	profitRate := pos.ProfitRate(snap.Price)

	conditions := []condition{
		{"lower_band_break", snap.Price < ind.BollingerLower},
		{"volatility_contraction", ind.BollingerWidth < ind.BollingerWidthMA*0.8},
		{"rsi_oversold", ind.RSI <= 30},
		{"take_profit", profitRate >= 15},
		{"stop_loss", profitRate <= -7},
	}

	passed, reasons := vote(conditions)
	return passed >= 1, reasons
}
