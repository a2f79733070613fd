package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/trading-engine/internal/indicator"
	"github.com/yourorg/trading-engine/internal/model"
	"github.com/yourorg/trading-engine/internal/strategy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SchedulerOptions tunes the per-session polling loop.
type SchedulerOptions struct {
	// SymbolDelay is the pause between symbols within one tick, to
	// avoid bursting the venue's rate limits.
	SymbolDelay time.Duration
	// CallTimeout bounds each external call during a tick.
	CallTimeout time.Duration
	// CandleCount is how many recent candles are fetched per symbol.
	CandleCount int
	// MaxTickFailures is the number of consecutive fully-failed
	// ticks after which a session is stopped as faulted.
	MaxTickFailures int
}

func (o *SchedulerOptions) withDefaults() SchedulerOptions {
	opts := *o
	if opts.SymbolDelay <= 0 {
		opts.SymbolDelay = 200 * time.Millisecond
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.CandleCount <= 0 {
		opts.CandleCount = 200
	}
	if opts.MaxTickFailures <= 0 {
		opts.MaxTickFailures = 5
	}
	return opts
}

// session is the in-memory handle for one active trading session.
// mu serializes ticks with force-close so position reads and writes
// for a user never interleave.
type session struct {
	model.TradingSession
	strat  strategy.Strategy
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

// TradingService owns the per-user session registry and drives the
// periodic evaluation loop for each active session. Sessions for
// different users run concurrently; symbols within one user's tick
// are processed strictly in sequence.
type TradingService struct {
	market    MarketDataProvider
	execution *ExecutionService
	executor  OrderExecutor
	positions PositionStore
	trades    TradeStore
	sessions  SessionStore
	opts      SchedulerOptions
	logger    *zap.Logger

	mu     sync.Mutex
	active map[int64]*session
}

// NewTradingService creates a new trading service.
func NewTradingService(
	market MarketDataProvider,
	execution *ExecutionService,
	executor OrderExecutor,
	positions PositionStore,
	trades TradeStore,
	sessions SessionStore,
	opts SchedulerOptions,
	logger *zap.Logger,
) *TradingService {
	return &TradingService{
		market:    market,
		execution: execution,
		executor:  executor,
		positions: positions,
		trades:    trades,
		sessions:  sessions,
		opts:      opts.withDefaults(),
		logger:    logger,
		active:    make(map[int64]*session),
	}
}

// Start creates and activates a trading session for the user. It
// fails synchronously when the strategy is unknown, no symbols are
// given, a session is already active, or the available balance is
// below the requested investment amount. The balance is checked once
// here, not re-verified per tick.
func (s *TradingService) Start(ctx context.Context, userID int64, strategyName string, symbols []string, settings model.SessionSettings) (string, error) {
	strat, err := strategy.ForName(strategyName)
	if err != nil {
		return "", err
	}
	if len(symbols) == 0 {
		return "", errors.New("no symbols selected")
	}

	balance, err := s.executor.AvailableBalance(ctx)
	if err != nil {
		return "", fmt.Errorf("check balance: %w", err)
	}
	if balance < settings.InvestmentAmount {
		return "", ErrInsufficientBalance
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[userID]; ok {
		return "", ErrSessionActive
	}

	// An 'active' row without an in-memory session is an orphan from
	// a previous process. Close it out before creating the
	// replacement so the store never holds two active rows per user.
	stale, err := s.sessions.GetActive(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("check persisted session: %w", err)
	}
	if stale != nil {
		if err := s.sessions.SetStopped(ctx, stale.SessionID, time.Now()); err != nil {
			return "", fmt.Errorf("stop stale session: %w", err)
		}
		s.logger.Warn("Closed stale session record from a previous run",
			zap.String("sessionID", stale.SessionID),
			zap.Int64("userID", userID))
	}

	sess := &session{
		TradingSession: model.TradingSession{
			SessionID: uuid.NewString(),
			UserID:    userID,
			Strategy:  strategyName,
			Symbols:   symbols,
			Settings:  settings,
			Status:    model.SessionStatusActive,
			StartedAt: time.Now(),
		},
		strat: strat,
		done:  make(chan struct{}),
	}

	if err := s.sessions.Create(ctx, &sess.TradingSession); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	s.active[userID] = sess
	go s.run(loopCtx, sess)

	s.logger.Info("Trading session started",
		zap.String("sessionID", sess.SessionID),
		zap.Int64("userID", userID),
		zap.String("strategy", strategyName),
		zap.Int("symbols", len(symbols)))

	return sess.SessionID, nil
}

// Stop deactivates the user's session and waits for its polling loop
// to wind down, so an in-flight tick has finished by the time it
// returns. Stopping an absent or already-stopped session is a no-op.
func (s *TradingService) Stop(ctx context.Context, userID int64) error {
	s.mu.Lock()
	sess, ok := s.active[userID]
	if ok {
		delete(s.active, userID)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}

	sess.cancel()
	<-sess.done

	if err := s.sessions.SetStopped(ctx, sess.SessionID, time.Now()); err != nil {
		return fmt.Errorf("persist session stop: %w", err)
	}

	s.logger.Info("Trading session stopped",
		zap.String("sessionID", sess.SessionID),
		zap.Int64("userID", userID))

	return nil
}

// Status reports whether the user is trading and with what
// configuration.
func (s *TradingService) Status(userID int64) *model.SessionStatus {
	s.mu.Lock()
	sess, ok := s.active[userID]
	s.mu.Unlock()

	if !ok {
		return &model.SessionStatus{IsTrading: false}
	}
	return &model.SessionStatus{
		IsTrading: true,
		SessionID: sess.SessionID,
		Strategy:  sess.Strategy,
		Symbols:   sess.Symbols,
		StartedAt: sess.StartedAt,
	}
}

// ListOpenPositions returns the user's open positions.
func (s *TradingService) ListOpenPositions(ctx context.Context, userID int64) ([]model.Position, error) {
	return s.positions.ListOpen(ctx, userID)
}

// TradeHistory returns one page of the user's trade history.
func (s *TradingService) TradeHistory(ctx context.Context, userID int64, page, limit int) (*model.TradePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	trades, total, err := s.trades.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	return &model.TradePage{
		Trades:     trades,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// ForceClose liquidates the user's open position in symbol at the
// current market price, regardless of strategy signals. It holds the
// session tick lock when one is active so the close never interleaves
// with an in-flight tick for the same user.
func (s *TradingService) ForceClose(ctx context.Context, userID int64, symbol string) (float64, error) {
	s.mu.Lock()
	sess := s.active[userID]
	s.mu.Unlock()

	if sess != nil {
		sess.mu.Lock()
		defer sess.mu.Unlock()
	}

	pos, err := s.positions.GetOpen(ctx, userID, symbol)
	if err != nil {
		return 0, err
	}
	if pos == nil {
		return 0, model.ErrNoOpenPosition
	}

	snap, err := s.market.GetSnapshot(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("fetch snapshot: %w", err)
	}

	return s.execution.Sell(ctx, userID, symbol, snap, pos)
}

// run is the per-session polling loop: sleep for the interval, check
// cancellation, run one tick, repeat. Repeated fully-failed ticks
// stop the session as faulted.
func (s *TradingService) run(ctx context.Context, sess *session) {
	defer close(sess.done)

	interval := sess.Settings.Interval()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if ctx.Err() != nil {
			return
		}

		failed := s.tick(ctx, sess)
		if failed {
			consecutiveFailures++
		} else {
			consecutiveFailures = 0
		}

		if consecutiveFailures >= s.opts.MaxTickFailures {
			s.logger.Error("Stopping session after repeated tick failures",
				zap.String("sessionID", sess.SessionID),
				zap.Int64("userID", sess.UserID),
				zap.Int("failures", consecutiveFailures))
			s.fault(sess)
			return
		}

		if ctx.Err() != nil {
			return
		}
		timer.Reset(interval)
	}
}

// tick evaluates every configured symbol in sequence. A failure on
// one symbol never aborts the rest of the tick. Returns true when
// every symbol failed.
func (s *TradingService) tick(ctx context.Context, sess *session) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var failures int
	for i, symbol := range sess.Symbols {
		if ctx.Err() != nil {
			return false
		}

		if err := s.processSymbol(ctx, sess, symbol); err != nil {
			failures++
			if errors.Is(err, model.ErrPositionExists) || errors.Is(err, model.ErrNoOpenPosition) {
				s.logger.Error("Position invariant violated",
					zap.Error(err),
					zap.String("sessionID", sess.SessionID),
					zap.String("symbol", symbol))
			} else {
				s.logger.Warn("Symbol processing failed",
					zap.Error(err),
					zap.String("sessionID", sess.SessionID),
					zap.String("symbol", symbol))
			}
		}

		// Inter-symbol delay, to respect the venue's call limits.
		if i < len(sess.Symbols)-1 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(s.opts.SymbolDelay):
			}
		}
	}

	return len(sess.Symbols) > 0 && failures == len(sess.Symbols)
}

// processSymbol runs one fetch-evaluate-execute pass for a symbol.
func (s *TradingService) processSymbol(ctx context.Context, sess *session, symbol string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	snap, err := s.market.GetSnapshot(callCtx, symbol)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	candles, err := s.market.GetCandles(callCtx, symbol, GranularityMinutes, s.opts.CandleCount)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) < indicator.MinCandles {
		s.logger.Warn("Insufficient candle history, skipping symbol",
			zap.String("sessionID", sess.SessionID),
			zap.String("symbol", symbol),
			zap.Int("candles", len(candles)))
		return nil
	}

	ind := indicator.Compute(candles)

	pos, err := s.positions.GetOpen(ctx, sess.UserID, symbol)
	if err != nil {
		return fmt.Errorf("lookup open position: %w", err)
	}

	decision := strategy.Evaluate(sess.strat, symbol, snap, ind, pos)
	switch decision.Action {
	case strategy.ActionBuy:
		s.logger.Info("Entry signal",
			zap.String("sessionID", sess.SessionID),
			zap.String("symbol", symbol),
			zap.Strings("reasons", decision.Reasons))
		return s.execution.Buy(ctx, sess.UserID, symbol, snap, sess.Settings)
	case strategy.ActionSell:
		s.logger.Info("Exit signal",
			zap.String("sessionID", sess.SessionID),
			zap.String("symbol", symbol),
			zap.Strings("reasons", decision.Reasons),
			zap.Float64("profitRate", decision.ProfitRate))
		_, err := s.execution.Sell(ctx, sess.UserID, symbol, snap, pos)
		return err
	}
	return nil
}

// fault stops a session after an unrecoverable failure.
func (s *TradingService) fault(sess *session) {
	s.mu.Lock()
	if current, ok := s.active[sess.UserID]; ok && current == sess {
		delete(s.active, sess.UserID)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.sessions.SetStopped(ctx, sess.SessionID, time.Now()); err != nil {
		s.logger.Error("Failed to persist faulted session stop",
			zap.Error(err),
			zap.String("sessionID", sess.SessionID))
	}
}
