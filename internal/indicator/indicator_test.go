package indicator

import (
	"testing"
	"time"

	"github.com/yourorg/trading-engine/internal/model"
)

func candlesFromCloses(closes ...float64) []model.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Symbol: "KRW-BTC",
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 10,
		}
	}
	return candles
}

func flatCandles(value float64, n int) []model.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = value
	}
	return candlesFromCloses(closes...)
}

func TestRSI_ShortSeriesNeutral(t *testing.T) {
	candles := candlesFromCloses(100, 101, 102)
	if got := RSI(candles, 14); got != 50 {
		t.Errorf("expected neutral RSI 50 for short series, got %.2f", got)
	}
}

func TestRSI_AllGainsIsMaximal(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	if got := RSI(candlesFromCloses(closes...), 14); got != 100 {
		t.Errorf("expected RSI 100 with no losses, got %.2f", got)
	}
}

func TestRSI_Bounds(t *testing.T) {
	// Alternating moves of different sizes keep both gains and
	// losses in the window.
	closes := []float64{100, 103, 101, 105, 102, 107, 104, 110, 106, 112, 108, 115, 110, 118, 113, 120, 114}
	got := RSI(candlesFromCloses(closes...), 14)
	if got < 0 || got > 100 {
		t.Errorf("RSI out of [0,100]: %.2f", got)
	}
	if got == 50 || got == 100 {
		t.Errorf("expected interior RSI for mixed series, got %.2f", got)
	}
}

func TestEMA_FlatSeriesIsIdentity(t *testing.T) {
	candles := flatCandles(42.5, 60)
	if got := EMA(candles, 20); got != 42.5 {
		t.Errorf("EMA of constant series should equal the constant, got %.4f", got)
	}
}

func TestEMA_EmptySeries(t *testing.T) {
	if got := EMA(nil, 20); got != 0 {
		t.Errorf("expected 0 for empty series, got %.4f", got)
	}
}

func TestMACD_FlatSeriesIsZero(t *testing.T) {
	line, signal, histogram := MACD(flatCandles(100, 80), 12, 26, 9)
	if line != 0 || signal != 0 || histogram != 0 {
		t.Errorf("expected zero MACD on flat series, got line=%.6f signal=%.6f hist=%.6f", line, signal, histogram)
	}
}

func TestMACD_UptrendPositive(t *testing.T) {
	closes := make([]float64, 80)
	price := 100.0
	for i := range closes {
		price *= 1.01
		closes[i] = price
	}
	line, signal, _ := MACD(candlesFromCloses(closes...), 12, 26, 9)
	if line <= 0 {
		t.Errorf("expected positive MACD line in uptrend, got %.4f", line)
	}
	if line <= signal {
		t.Errorf("expected MACD above signal in accelerating uptrend, got line=%.4f signal=%.4f", line, signal)
	}
}

func TestBollinger_ShortSeriesZeroes(t *testing.T) {
	upper, middle, lower, width, widthMA := Bollinger(flatCandles(100, 10), 20, 2)
	if upper != 0 || middle != 0 || lower != 0 || width != 0 || widthMA != 0 {
		t.Error("expected all-zero bands for short series")
	}
}

func TestBollinger_Ordering(t *testing.T) {
	closes := []float64{100, 102, 98, 104, 97, 103, 99, 105, 96, 106, 101, 107, 95, 108, 100, 109, 94, 110, 102, 111, 99, 112}
	upper, middle, lower, width, widthMA := Bollinger(candlesFromCloses(closes...), 20, 2)
	if !(upper >= middle && middle >= lower) {
		t.Errorf("band ordering violated: upper=%.2f middle=%.2f lower=%.2f", upper, middle, lower)
	}
	if width != upper-lower {
		t.Errorf("width should be upper-lower, got %.4f vs %.4f", width, upper-lower)
	}
	if widthMA <= 0 {
		t.Errorf("expected positive width MA for non-degenerate series, got %.4f", widthMA)
	}
}

func TestBollinger_FlatSeriesCollapses(t *testing.T) {
	upper, middle, lower, width, _ := Bollinger(flatCandles(100, 30), 20, 2)
	if upper != 100 || middle != 100 || lower != 100 {
		t.Errorf("flat series bands should all equal the price, got %.2f/%.2f/%.2f", upper, middle, lower)
	}
	if width != 0 {
		t.Errorf("flat series band width should be 0, got %.4f", width)
	}
}

func TestVolumeMA(t *testing.T) {
	candles := flatCandles(100, 25)
	if got := VolumeMA(candles, 20); got != 10 {
		t.Errorf("expected volume MA 10, got %.2f", got)
	}
	if got := VolumeMA(candles[:5], 20); got != 0 {
		t.Errorf("expected 0 for short series, got %.2f", got)
	}
}

func TestCompute_FullSet(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%5)
	}
	candles := candlesFromCloses(closes...)
	candles[58].High = 123

	set := Compute(candles)
	if set.RSI < 0 || set.RSI > 100 {
		t.Errorf("RSI out of bounds: %.2f", set.RSI)
	}
	if set.PrevHigh != 123 {
		t.Errorf("expected previous-period high 123, got %.2f", set.PrevHigh)
	}
	if set.BollingerUpper < set.BollingerMiddle || set.BollingerMiddle < set.BollingerLower {
		t.Error("band ordering violated in computed set")
	}
}

func TestCompute_PrevHighSingleCandle(t *testing.T) {
	set := Compute(candlesFromCloses(100))
	if set.PrevHigh != 0 {
		t.Errorf("expected 0 previous high for single candle, got %.2f", set.PrevHigh)
	}
}

func TestNeutral(t *testing.T) {
	set := Neutral()
	if set.RSI != 50 {
		t.Errorf("expected neutral RSI 50, got %.2f", set.RSI)
	}
	if set.BollingerUpper != 0 || set.MACD != 0 {
		t.Error("expected zero defaults outside RSI")
	}
}

func TestIndicators_DoNotMutateInput(t *testing.T) {
	candles := candlesFromCloses(100, 101, 99, 102, 98, 103)
	original := make([]model.Candle, len(candles))
	copy(original, candles)

	Compute(candles)
	RSI(candles, 3)
	EMA(candles, 3)
	Bollinger(candles, 3, 2)
	VolumeMA(candles, 3)

	for i := range candles {
		if candles[i] != original[i] {
			t.Fatalf("candle %d mutated by indicator computation", i)
		}
	}
}
