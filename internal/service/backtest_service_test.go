package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/yourorg/trading-engine/internal/model"
	"github.com/yourorg/trading-engine/internal/strategy"

	"go.uber.org/zap"
)

var backtestEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dailyCandles(closes ...float64) []model.Candle {
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Symbol: "KRW-BTC",
			Time:   backtestEpoch.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 10,
		}
	}
	return candles
}

func backtestRequest(strategyName string, days int) *model.BacktestRequest {
	return &model.BacktestRequest{
		Strategy:      strategyName,
		Symbol:        "KRW-BTC",
		StartDate:     backtestEpoch,
		EndDate:       backtestEpoch.AddDate(0, 0, days),
		InitialAmount: 100000,
	}
}

func newBacktestEnv(candles []model.Candle) *BacktestService {
	market := newFakeMarket()
	market.candles["KRW-BTC"] = candles
	return NewBacktestService(market, zap.NewNop())
}

func TestBacktest_FlatSeriesNeverTrades(t *testing.T) {
	svc := newBacktestEnv(dailyCandles(flatCloses(100, 60)...))

	result, err := svc.Run(context.Background(), backtestRequest("momentum", 60))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.TotalTrades != 0 || len(result.Trades) != 0 {
		t.Errorf("flat series must not trade, got %d trades", result.TotalTrades)
	}
	if result.FinalAmount != result.InitialAmount {
		t.Errorf("untouched balance expected, got %.2f", result.FinalAmount)
	}
	if result.TotalReturn != 0 || result.WinRate != 0 {
		t.Errorf("expected zero return and win rate, got %.2f/%.2f", result.TotalReturn, result.WinRate)
	}
}

func TestBacktest_Deterministic(t *testing.T) {
	candles := dailyCandles(risingCloses(100, 80)...)

	first, err := newBacktestEnv(candles).Run(context.Background(), backtestRequest("momentum", 80))
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := newBacktestEnv(candles).Run(context.Background(), backtestRequest("momentum", 80))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs must produce identical results")
	}
}

func TestBacktest_ClosesOutOpenPosition(t *testing.T) {
	candles := dailyCandles(risingCloses(100, 80)...)
	svc := newBacktestEnv(candles)

	result, err := svc.Run(context.Background(), backtestRequest("momentum", 80))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.TotalTrades == 0 {
		t.Fatal("expected the rising series to trade")
	}

	var buys, sells int
	for _, trade := range result.Trades {
		switch trade.Side {
		case model.TradeSideBuy:
			buys++
		case model.TradeSideSell:
			sells++
		}
	}
	if buys != sells {
		t.Errorf("every buy must be matched by a sell, got %d buys / %d sells", buys, sells)
	}

	last := result.Trades[len(result.Trades)-1]
	if last.Side != model.TradeSideSell {
		t.Errorf("ledger must end with a sell, got %s", last.Side)
	}
	if result.FinalAmount != last.Balance {
		t.Errorf("final amount %.2f should match the closing ledger balance %.2f", result.FinalAmount, last.Balance)
	}
}

func TestBacktest_CountsBeforeRate(t *testing.T) {
	candles := dailyCandles(risingCloses(100, 80)...)
	svc := newBacktestEnv(candles)

	result, err := svc.Run(context.Background(), backtestRequest("momentum", 80))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.TotalTrades != result.WinCount+result.LossCount {
		t.Errorf("total trades %d must equal wins %d plus losses %d",
			result.TotalTrades, result.WinCount, result.LossCount)
	}
	if result.TotalTrades > 0 {
		want := float64(result.WinCount) / float64(result.TotalTrades) * 100
		if result.WinRate != want {
			t.Errorf("expected win rate %.4f, got %.4f", want, result.WinRate)
		}
	}
}

func TestBacktest_WindowFilter(t *testing.T) {
	// Plenty of candles overall, but only 20 inside the requested
	// window.
	candles := dailyCandles(flatCloses(100, 120)...)
	svc := newBacktestEnv(candles)

	req := &model.BacktestRequest{
		Strategy:      "momentum",
		Symbol:        "KRW-BTC",
		StartDate:     backtestEpoch.AddDate(0, 0, 40),
		EndDate:       backtestEpoch.AddDate(0, 0, 59),
		InitialAmount: 100000,
	}

	_, err := svc.Run(context.Background(), req)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for a 20-candle window, got %v", err)
	}
}

func TestBacktest_InsufficientData(t *testing.T) {
	svc := newBacktestEnv(dailyCandles(flatCloses(100, 20)...))

	_, err := svc.Run(context.Background(), backtestRequest("momentum", 30))
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestBacktest_UnknownStrategy(t *testing.T) {
	svc := newBacktestEnv(dailyCandles(flatCloses(100, 60)...))

	_, err := svc.Run(context.Background(), backtestRequest("scalping", 60))
	if !errors.Is(err, strategy.ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestBacktest_EndBeforeStart(t *testing.T) {
	svc := newBacktestEnv(dailyCandles(flatCloses(100, 60)...))

	req := backtestRequest("momentum", 60)
	req.StartDate, req.EndDate = req.EndDate, req.StartDate

	if _, err := svc.Run(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for inverted date range, got %v", err)
	}
}

func TestBacktest_RejectsInvalidRequest(t *testing.T) {
	svc := newBacktestEnv(dailyCandles(flatCloses(100, 60)...))

	req := backtestRequest("momentum", 60)
	req.InitialAmount = 0

	if _, err := svc.Run(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for zero initial amount, got %v", err)
	}
}

func TestBacktest_SkipsUnaffordableEntries(t *testing.T) {
	// Prices far above the starting balance: whole-unit sizing floors
	// to zero, so no position is ever opened.
	svc := newBacktestEnv(dailyCandles(risingCloses(1000000, 80)...))

	req := backtestRequest("momentum", 80)
	req.InitialAmount = 500000

	result, err := svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.TotalTrades != 0 {
		t.Errorf("unaffordable prices must not trade, got %d trades", result.TotalTrades)
	}
	if result.FinalAmount != req.InitialAmount {
		t.Errorf("balance must be untouched, got %.2f", result.FinalAmount)
	}
}
