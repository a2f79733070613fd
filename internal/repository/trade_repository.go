package repository

import (
	"context"

	"github.com/yourorg/trading-engine/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// TradeRepository reads the append-only trades table. Inserts happen
// inside position transactions via insertTrade.
type TradeRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewTradeRepository creates a new trade repository.
func NewTradeRepository(db *sqlx.DB, logger *zap.Logger) *TradeRepository {
	return &TradeRepository{
		db:     db,
		logger: logger,
	}
}

// ListByUser retrieves one page of a user's trade history, newest
// first, along with the total trade count.
func (r *TradeRepository) ListByUser(ctx context.Context, userID int64, page, limit int) ([]model.Trade, int, error) {
	offset := (page - 1) * limit

	countQuery := `SELECT COUNT(*) FROM trades WHERE user_id = $1`

	var total int
	err := r.db.GetContext(ctx, &total, countQuery, userID)
	if err != nil {
		r.logger.Error("Failed to count trades", zap.Error(err), zap.Int64("userID", userID))
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, symbol, side, price, quantity, profit,
		       order_ref, created_at
		FROM trades
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var trades []model.Trade
	err = r.db.SelectContext(ctx, &trades, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list trades",
			zap.Error(err),
			zap.Int64("userID", userID),
			zap.Int("page", page),
			zap.Int("limit", limit))
		return nil, 0, err
	}

	return trades, total, nil
}

// insertTrade appends a trade within the caller's transaction.
func insertTrade(ctx context.Context, tx *sqlx.Tx, trade *model.Trade) error {
	query := `
		INSERT INTO trades (user_id, symbol, side, price, quantity,
		                    profit, order_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	return tx.QueryRowContext(ctx, query,
		trade.UserID,
		trade.Symbol,
		trade.Side,
		trade.Price,
		trade.Quantity,
		trade.Profit,
		trade.OrderRef,
		trade.CreatedAt,
	).Scan(&trade.ID)
}
