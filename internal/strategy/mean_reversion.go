package strategy

import (
	"github.com/yourorg/trading-engine/internal/indicator"
	"github.com/yourorg/trading-engine/internal/model"
)

// MeanReversion buys oversold dips near the lower Bollinger band and
// sells the snap back toward or beyond the middle line.
type MeanReversion struct{}

func (*MeanReversion) Name() string { return "meanReversion" }

// ShouldEnter requires at least 2 of 3 conditions.
func (*MeanReversion) ShouldEnter(symbol string, snap *model.MarketSnapshot, ind *indicator.Set) (bool, []string) {
	distanceFromLower := bandDistance(snap.Price, ind.BollingerLower)

	conditions := []condition{
		{"rsi_oversold", ind.RSI <= 30},
		{"near_lower_band", distanceFromLower <= 2},
		{"below_middle_band", snap.Price < ind.BollingerMiddle},
	}

	passed, reasons := vote(conditions)
	return passed >= 2, reasons
}

// ShouldExit triggers on any single condition: overbought RSI, price
// near or above the upper half of the bands, an 8% take-profit or a
// -4% stop-loss.
func (*MeanReversion) ShouldExit(symbol string, pos *model.Position, snap *model.MarketSnapshot, ind *indicator.Set) (bool, []string) {
	profitRate := pos.ProfitRate(snap.Price)
	distanceFromUpper := bandDistance(snap.Price, ind.BollingerUpper)

	conditions := []condition{
		{"rsi_overbought", ind.RSI >= 70},
		{"near_upper_band", distanceFromUpper <= 2},
		{"above_middle_band", snap.Price > ind.BollingerMiddle},
		{"take_profit", profitRate >= 8},
		{"stop_loss", profitRate <= -4},
	}

	passed, reasons := vote(conditions)
	return passed >= 1, reasons
}

// bandDistance is the absolute distance between price and a band as a
// percentage of the band level.
func bandDistance(price, band float64) float64 {
	if band == 0 {
		return 100
	}
	d := (price - band) / band * 100
	if d < 0 {
		return -d
	}
	return d
}
