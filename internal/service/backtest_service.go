package service

import (
	"context"
	"fmt"
	"math"

	"github.com/yourorg/trading-engine/internal/indicator"
	"github.com/yourorg/trading-engine/internal/model"
	"github.com/yourorg/trading-engine/internal/strategy"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	// Candles fetched for a backtest: up to one year of daily bars.
	backtestCandleCount = 365

	// Indicator warm-up offset before the replay starts evaluating.
	backtestWarmup = 50

	// Minimum usable candles in the filtered window.
	backtestMinCandles = 30

	// Ledger entries returned in a result payload.
	backtestMaxLedger = 100
)

// BacktestService replays the live indicator and strategy functions
// over a historical candle window. It maintains its own simulated
// balance and position and never touches live position records.
type BacktestService struct {
	market   MarketDataProvider
	validate *validator.Validate
	logger   *zap.Logger
}

// NewBacktestService creates a new backtest service.
func NewBacktestService(market MarketDataProvider, logger *zap.Logger) *BacktestService {
	return &BacktestService{
		market:   market,
		validate: validator.New(),
		logger:   logger,
	}
}

// Run executes a backtest and returns its summary. The replay is
// deterministic: identical inputs produce identical trade ledgers and
// final balances.
func (s *BacktestService) Run(ctx context.Context, req *model.BacktestRequest) (*model.BacktestResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrInvalidRequest)
	}

	strat, err := strategy.ForName(req.Strategy)
	if err != nil {
		return nil, err
	}

	candles, err := s.market.GetCandles(ctx, req.Symbol, GranularityDays, backtestCandleCount)
	if err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}

	// Filter to the requested window, keeping oldest-to-newest order.
	var window []model.Candle
	for _, c := range candles {
		if !c.Time.Before(req.StartDate) && !c.Time.After(req.EndDate) {
			window = append(window, c)
		}
	}

	if len(window) < backtestMinCandles {
		return nil, fmt.Errorf("%w: %d candles in window, need %d",
			ErrInsufficientData, len(window), backtestMinCandles)
	}

	s.logger.Info("Backtest started",
		zap.String("strategy", req.Strategy),
		zap.String("symbol", req.Symbol),
		zap.Int("candles", len(window)))

	balance := req.InitialAmount
	var position *model.Position
	var trades []model.BacktestTrade
	var totalProfit float64
	var winCount, lossCount int

	for i := backtestWarmup; i < len(window); i++ {
		candle := window[i]
		ind := indicator.Compute(window[:i+1])
		snap := model.SnapshotFromCandle(candle)

		decision := strategy.Evaluate(strat, req.Symbol, snap, ind, position)
		switch decision.Action {
		case strategy.ActionBuy:
			if balance <= candle.Close {
				continue
			}
			quantity := math.Floor(balance * 0.95 / candle.Close)
			if quantity == 0 {
				continue
			}
			cost := quantity * candle.Close

			position = &model.Position{
				Symbol:   req.Symbol,
				Side:     model.PositionSideLong,
				Quantity: quantity,
				AvgPrice: candle.Close,
				Status:   model.PositionStatusOpen,
				OpenedAt: candle.Time,
			}
			balance -= cost
			trades = append(trades, model.BacktestTrade{
				Side:     model.TradeSideBuy,
				Time:     candle.Time,
				Price:    candle.Close,
				Quantity: quantity,
				Balance:  balance + cost,
			})

		case strategy.ActionSell:
			profit := position.ProfitRate(candle.Close)
			balance += position.Quantity * candle.Close
			totalProfit += profit
			if profit > 0 {
				winCount++
			} else {
				lossCount++
			}

			trades = append(trades, model.BacktestTrade{
				Side:     model.TradeSideSell,
				Time:     candle.Time,
				Price:    candle.Close,
				Quantity: position.Quantity,
				Profit:   profit,
				Balance:  balance,
			})
			position = nil
		}
	}

	// Force-liquidate anything still open at the final candle.
	if position != nil {
		last := window[len(window)-1]
		profit := position.ProfitRate(last.Close)
		balance += position.Quantity * last.Close
		totalProfit += profit
		if profit > 0 {
			winCount++
		} else {
			lossCount++
		}

		trades = append(trades, model.BacktestTrade{
			Side:     model.TradeSideSell,
			Time:     last.Time,
			Price:    last.Close,
			Quantity: position.Quantity,
			Profit:   profit,
			Balance:  balance,
		})
	}

	totalTrades := winCount + lossCount
	var winRate float64
	if totalTrades > 0 {
		winRate = float64(winCount) / float64(totalTrades) * 100
	}

	if len(trades) > backtestMaxLedger {
		trades = trades[len(trades)-backtestMaxLedger:]
	}

	result := &model.BacktestResult{
		Strategy:      req.Strategy,
		Symbol:        req.Symbol,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		InitialAmount: req.InitialAmount,
		FinalAmount:   balance,
		TotalReturn:   (balance - req.InitialAmount) / req.InitialAmount * 100,
		TotalProfit:   totalProfit,
		TotalTrades:   totalTrades,
		WinCount:      winCount,
		LossCount:     lossCount,
		WinRate:       winRate,
		Trades:        trades,
	}

	s.logger.Info("Backtest completed",
		zap.String("strategy", req.Strategy),
		zap.String("symbol", req.Symbol),
		zap.Int("totalTrades", totalTrades),
		zap.Float64("totalReturn", result.TotalReturn))

	return result, nil
}
