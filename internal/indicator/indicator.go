// Package indicator computes technical indicators from ordered candle
// series. All functions are pure: a series is never mutated, and a
// series shorter than the required period yields a neutral default
// instead of an error so evaluation degrades gracefully.
package indicator

import (
	"math"

	"github.com/yourorg/trading-engine/internal/model"
)

// Standard periods used by the strategy evaluators.
const (
	RSIPeriod        = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
	BollingerPeriod  = 20
	BollingerMult    = 2
	EMAShortPeriod   = 20
	EMALongPeriod    = 50
	VolumePeriod     = 20

	// MinCandles is the warm-up length required before indicator
	// values are considered meaningful.
	MinCandles = 50
)

// Set holds every indicator the strategies consume, computed from a
// single candle series at one point in time. PrevHigh is 0 when the
// series has fewer than two candles.
type Set struct {
	RSI              float64 `json:"rsi"`
	MACD             float64 `json:"macd"`
	MACDSignal       float64 `json:"macd_signal"`
	MACDHistogram    float64 `json:"macd_histogram"`
	BollingerUpper   float64 `json:"bollinger_upper"`
	BollingerMiddle  float64 `json:"bollinger_middle"`
	BollingerLower   float64 `json:"bollinger_lower"`
	BollingerWidth   float64 `json:"bollinger_width"`
	BollingerWidthMA float64 `json:"bollinger_width_ma"`
	EMA20            float64 `json:"ema20"`
	EMA50            float64 `json:"ema50"`
	VolumeMA         float64 `json:"volume_ma"`
	PrevHigh         float64 `json:"prev_high"`
}

// Compute derives the full indicator set from a candle series using
// the standard periods.
func Compute(candles []model.Candle) *Set {
	macd, signal, histogram := MACD(candles, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	upper, middle, lower, width, widthMA := Bollinger(candles, BollingerPeriod, BollingerMult)

	var prevHigh float64
	if len(candles) > 1 {
		prevHigh = candles[len(candles)-2].High
	}

	return &Set{
		RSI:              RSI(candles, RSIPeriod),
		MACD:             macd,
		MACDSignal:       signal,
		MACDHistogram:    histogram,
		BollingerUpper:   upper,
		BollingerMiddle:  middle,
		BollingerLower:   lower,
		BollingerWidth:   width,
		BollingerWidthMA: widthMA,
		EMA20:            EMA(candles, EMAShortPeriod),
		EMA50:            EMA(candles, EMALongPeriod),
		VolumeMA:         VolumeMA(candles, VolumePeriod),
		PrevHigh:         prevHigh,
	}
}

// Neutral returns the defined neutral defaults used when no usable
// candle data is available.
func Neutral() *Set {
	return &Set{RSI: 50}
}

// RSI computes the Relative Strength Index over the trailing period
// changes. Returns 50 when the series is too short and 100 when there
// are no losses in the window.
func RSI(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// EMA computes an exponential moving average over the whole series:
// seeded with the first close, then smoothed with 2/(period+1). The
// value is deterministic for a given series prefix.
func EMA(candles []model.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}

	multiplier := 2 / float64(period+1)
	ema := candles[0].Close
	for i := 1; i < len(candles); i++ {
		ema = candles[i].Close*multiplier + ema*(1-multiplier)
	}
	return ema
}

// emaAt computes the EMA of the period-length window ending at index.
func emaAt(candles []model.Candle, period, index int) float64 {
	if index >= len(candles) {
		return 0
	}

	multiplier := 2 / float64(period+1)
	start := index - period + 1
	if start < 0 {
		start = 0
	}
	ema := candles[start].Close
	for i := start + 1; i <= index; i++ {
		ema = candles[i].Close*multiplier + ema*(1-multiplier)
	}
	return ema
}

// emaOf computes an EMA over a plain value series.
func emaOf(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}

	multiplier := 2 / float64(period+1)
	ema := values[0]
	for i := 1; i < len(values); i++ {
		ema = values[i]*multiplier + ema*(1-multiplier)
	}
	return ema
}

// MACD computes the MACD line (fast EMA minus slow EMA), its signal
// line (EMA of the historical MACD-line values, not of price), and
// the histogram (MACD minus signal).
func MACD(candles []model.Candle, fast, slow, signal int) (line, signalLine, histogram float64) {
	emaFast := EMA(candles, fast)
	emaSlow := EMA(candles, slow)
	line = emaFast - emaSlow

	warmup := fast
	if slow > warmup {
		warmup = slow
	}

	var macdValues []float64
	for i := warmup; i < len(candles); i++ {
		macdValues = append(macdValues, emaAt(candles, fast, i)-emaAt(candles, slow, i))
	}

	signalLine = emaOf(macdValues, signal)
	histogram = line - signalLine
	return line, signalLine, histogram
}

// Bollinger computes the Bollinger Bands for the trailing window:
// middle is the SMA of closes, upper and lower sit at multiplier
// population standard deviations, width is upper minus lower, and
// widthMA is the mean of widths from sliding the window across the
// full series. All values are 0 when the series is too short.
func Bollinger(candles []model.Candle, period int, multiplier float64) (upper, middle, lower, width, widthMA float64) {
	if len(candles) < period {
		return 0, 0, 0, 0, 0
	}

	middle = smaClose(candles[len(candles)-period:])
	stdDev := stdDevClose(candles[len(candles)-period:], middle)

	upper = middle + stdDev*multiplier
	lower = middle - stdDev*multiplier
	width = upper - lower

	var widthSum float64
	var widthCount int
	for i := period; i <= len(candles); i++ {
		window := candles[i-period : i]
		sma := smaClose(window)
		sd := stdDevClose(window, sma)
		widthSum += (sma + sd*multiplier) - (sma - sd*multiplier)
		widthCount++
	}
	widthMA = widthSum / float64(widthCount)

	return upper, middle, lower, width, widthMA
}

// VolumeMA computes the simple moving average of trade volume over
// the trailing period candles, or 0 when the series is too short.
func VolumeMA(candles []model.Candle, period int) float64 {
	if len(candles) < period {
		return 0
	}

	var sum float64
	for _, c := range candles[len(candles)-period:] {
		sum += c.Volume
	}
	return sum / float64(period)
}

func smaClose(window []model.Candle) float64 {
	var sum float64
	for _, c := range window {
		sum += c.Close
	}
	return sum / float64(len(window))
}

func stdDevClose(window []model.Candle, mean float64) float64 {
	var variance float64
	for _, c := range window {
		variance += (c.Close - mean) * (c.Close - mean)
	}
	return math.Sqrt(variance / float64(len(window)))
}
