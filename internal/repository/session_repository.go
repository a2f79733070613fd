package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/yourorg/trading-engine/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// SessionRepository handles database operations for trading session
// lifecycle records.
type SessionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new session record with status 'active'.
func (r *SessionRepository) Create(ctx context.Context, session *model.TradingSession) error {
	query := `
		INSERT INTO trading_sessions (session_id, user_id, strategy, symbols,
		                              investment_amount, max_positions,
		                              interval_seconds, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.SessionID,
		session.UserID,
		session.Strategy,
		pq.Array(session.Symbols),
		session.Settings.InvestmentAmount,
		session.Settings.MaxPositions,
		session.Settings.IntervalSeconds,
		session.StartedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create trading session",
			zap.Error(err),
			zap.String("sessionID", session.SessionID),
			zap.Int64("userID", session.UserID))
		return err
	}

	return nil
}

// SetStopped marks a session stopped. Already-stopped sessions are
// left unchanged, keeping stop idempotent.
func (r *SessionRepository) SetStopped(ctx context.Context, sessionID string, stoppedAt time.Time) error {
	query := `
		UPDATE trading_sessions
		SET status = 'stopped', stopped_at = $2
		WHERE session_id = $1 AND status = 'active'
	`

	_, err := r.db.ExecContext(ctx, query, sessionID, stoppedAt)
	if err != nil {
		r.logger.Error("Failed to stop trading session",
			zap.Error(err),
			zap.String("sessionID", sessionID))
		return err
	}

	return nil
}

// GetActive retrieves the user's most recent active session record,
// or nil when there is none. Used to recover status after a restart;
// polling is never silently resumed from a recovered row.
func (r *SessionRepository) GetActive(ctx context.Context, userID int64) (*model.TradingSession, error) {
	query := `
		SELECT session_id, user_id, strategy, symbols, investment_amount,
		       max_positions, interval_seconds, status, created_at, stopped_at
		FROM trading_sessions
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`

	var row struct {
		SessionID        string         `db:"session_id"`
		UserID           int64          `db:"user_id"`
		Strategy         string         `db:"strategy"`
		Symbols          pq.StringArray `db:"symbols"`
		InvestmentAmount float64        `db:"investment_amount"`
		MaxPositions     int            `db:"max_positions"`
		IntervalSeconds  int            `db:"interval_seconds"`
		Status           string         `db:"status"`
		CreatedAt        time.Time      `db:"created_at"`
		StoppedAt        *time.Time     `db:"stopped_at"`
	}

	err := r.db.GetContext(ctx, &row, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get active session",
			zap.Error(err),
			zap.Int64("userID", userID))
		return nil, err
	}

	return &model.TradingSession{
		SessionID: row.SessionID,
		UserID:    row.UserID,
		Strategy:  row.Strategy,
		Symbols:   row.Symbols,
		Settings: model.SessionSettings{
			InvestmentAmount: row.InvestmentAmount,
			MaxPositions:     row.MaxPositions,
			IntervalSeconds:  row.IntervalSeconds,
		},
		Status:    row.Status,
		StartedAt: row.CreatedAt,
		StoppedAt: row.StoppedAt,
	}, nil
}
