package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourorg/trading-engine/internal/model"

	"go.uber.org/zap"
)

// ExecutionService translates strategy decisions into venue orders
// and keeps position and trade records consistent with order
// outcomes. Position and trade writes are tied to order success: a
// failed order leaves internal state untouched.
type ExecutionService struct {
	executor  OrderExecutor
	positions PositionStore
	logger    *zap.Logger
}

// NewExecutionService creates a new execution service.
func NewExecutionService(executor OrderExecutor, positions PositionStore, logger *zap.Logger) *ExecutionService {
	return &ExecutionService{
		executor:  executor,
		positions: positions,
		logger:    logger,
	}
}

// Buy sizes an order from the session settings, submits it, then
// opens the position and appends the buy trade as one unit.
func (s *ExecutionService) Buy(ctx context.Context, userID int64, symbol string, snap *model.MarketSnapshot, settings model.SessionSettings) error {
	existing, err := s.positions.GetOpen(ctx, userID, symbol)
	if err != nil {
		return fmt.Errorf("lookup open position: %w", err)
	}
	if existing != nil {
		return model.ErrPositionExists
	}

	investAmount := settings.InvestmentAmount / float64(settings.MaxPositions)
	quantity := investAmount / snap.Price

	orderRef, err := s.executor.SubmitBuy(ctx, symbol, snap.Price, quantity)
	if err != nil {
		return fmt.Errorf("submit buy order: %w", err)
	}

	now := time.Now()
	pos := &model.Position{
		UserID:   userID,
		Symbol:   symbol,
		Side:     model.PositionSideLong,
		Quantity: quantity,
		AvgPrice: snap.Price,
		OrderRef: orderRef,
		Status:   model.PositionStatusOpen,
		OpenedAt: now,
	}
	trade := &model.Trade{
		UserID:    userID,
		Symbol:    symbol,
		Side:      model.TradeSideBuy,
		Price:     snap.Price,
		Quantity:  quantity,
		OrderRef:  orderRef,
		CreatedAt: now,
	}

	if err := s.positions.OpenWithTrade(ctx, pos, trade); err != nil {
		return fmt.Errorf("record buy: %w", err)
	}

	s.logger.Info("Buy executed",
		zap.Int64("userID", userID),
		zap.String("symbol", symbol),
		zap.Float64("price", snap.Price),
		zap.Float64("quantity", quantity))

	return nil
}

// Sell liquidates the position's full quantity, closes the position
// with the realized profit rate and appends the sell trade as one
// unit. Returns the realized profit rate.
func (s *ExecutionService) Sell(ctx context.Context, userID int64, symbol string, snap *model.MarketSnapshot, pos *model.Position) (float64, error) {
	if pos == nil {
		return 0, model.ErrNoOpenPosition
	}

	orderRef, err := s.executor.SubmitSell(ctx, symbol, snap.Price, pos.Quantity)
	if err != nil {
		return 0, fmt.Errorf("submit sell order: %w", err)
	}

	now := time.Now()
	profitRate := pos.ProfitRate(snap.Price)
	trade := &model.Trade{
		UserID:    userID,
		Symbol:    symbol,
		Side:      model.TradeSideSell,
		Price:     snap.Price,
		Quantity:  pos.Quantity,
		Profit:    &profitRate,
		OrderRef:  orderRef,
		CreatedAt: now,
	}

	if err := s.positions.CloseWithTrade(ctx, userID, symbol, profitRate, now, trade); err != nil {
		return 0, fmt.Errorf("record sell: %w", err)
	}

	s.logger.Info("Sell executed",
		zap.Int64("userID", userID),
		zap.String("symbol", symbol),
		zap.Float64("price", snap.Price),
		zap.Float64("quantity", pos.Quantity),
		zap.Float64("profitRate", profitRate))

	return profitRate, nil
}
