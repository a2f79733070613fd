package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/yourorg/trading-engine/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// PositionRepository handles database operations for positions. A
// partial unique index on (user_id, symbol) where status = 'open'
// backs the at-most-one-open-position invariant at the storage level;
// the queries here enforce it independently so the invariant holds
// even without the index.
type PositionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPositionRepository creates a new position repository.
func NewPositionRepository(db *sqlx.DB, logger *zap.Logger) *PositionRepository {
	return &PositionRepository{
		db:     db,
		logger: logger,
	}
}

// GetOpen retrieves the open position for (user, symbol), or nil when
// there is none.
func (r *PositionRepository) GetOpen(ctx context.Context, userID int64, symbol string) (*model.Position, error) {
	query := `
		SELECT id, user_id, symbol, side, quantity, avg_price, order_ref,
		       status, profit, created_at, closed_at
		FROM positions
		WHERE user_id = $1 AND symbol = $2 AND status = 'open'
	`

	var pos model.Position
	err := r.db.GetContext(ctx, &pos, query, userID, symbol)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get open position",
			zap.Error(err),
			zap.Int64("userID", userID),
			zap.String("symbol", symbol))
		return nil, err
	}

	return &pos, nil
}

// ListOpen retrieves all open positions for a user, newest first.
func (r *PositionRepository) ListOpen(ctx context.Context, userID int64) ([]model.Position, error) {
	query := `
		SELECT id, user_id, symbol, side, quantity, avg_price, order_ref,
		       status, profit, created_at, closed_at
		FROM positions
		WHERE user_id = $1 AND status = 'open'
		ORDER BY created_at DESC
	`

	var positions []model.Position
	err := r.db.SelectContext(ctx, &positions, query, userID)
	if err != nil {
		r.logger.Error("Failed to list open positions",
			zap.Error(err),
			zap.Int64("userID", userID))
		return nil, err
	}

	return positions, nil
}

// OpenWithTrade creates an open position and appends the buy trade in
// one transaction. Returns model.ErrPositionExists when an open
// position for (user, symbol) is already present.
func (r *PositionRepository) OpenWithTrade(ctx context.Context, pos *model.Position, trade *model.Trade) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO positions (user_id, symbol, side, quantity, avg_price,
		                       order_ref, status, created_at)
		SELECT $1, $2, $3, $4, $5, $6, 'open', $7
		WHERE NOT EXISTS (
			SELECT 1 FROM positions
			WHERE user_id = $1 AND symbol = $2 AND status = 'open'
		)
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, query,
		pos.UserID,
		pos.Symbol,
		pos.Side,
		pos.Quantity,
		pos.AvgPrice,
		pos.OrderRef,
		pos.OpenedAt,
	).Scan(&pos.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ErrPositionExists
		}
		r.logger.Error("Failed to create position",
			zap.Error(err),
			zap.Int64("userID", pos.UserID),
			zap.String("symbol", pos.Symbol))
		return err
	}

	if err := insertTrade(ctx, tx, trade); err != nil {
		r.logger.Error("Failed to record buy trade",
			zap.Error(err),
			zap.Int64("userID", trade.UserID),
			zap.String("symbol", trade.Symbol))
		return err
	}

	return tx.Commit()
}

// CloseWithTrade closes the open position for (user, symbol) and
// appends the sell trade in one transaction. Returns
// model.ErrNoOpenPosition when no open position exists.
func (r *PositionRepository) CloseWithTrade(ctx context.Context, userID int64, symbol string, profitRate float64, closedAt time.Time, trade *model.Trade) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE positions
		SET status = 'closed', profit = $3, closed_at = $4
		WHERE user_id = $1 AND symbol = $2 AND status = 'open'
	`

	result, err := tx.ExecContext(ctx, query, userID, symbol, profitRate, closedAt)
	if err != nil {
		r.logger.Error("Failed to close position",
			zap.Error(err),
			zap.Int64("userID", userID),
			zap.String("symbol", symbol))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return model.ErrNoOpenPosition
	}

	if err := insertTrade(ctx, tx, trade); err != nil {
		r.logger.Error("Failed to record sell trade",
			zap.Error(err),
			zap.Int64("userID", userID),
			zap.String("symbol", symbol))
		return err
	}

	return tx.Commit()
}
