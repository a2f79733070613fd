package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/trading-engine/internal/model"
)

// fakeMarket serves canned snapshots and candle series per symbol.
type fakeMarket struct {
	mu          sync.Mutex
	snapshots   map[string]*model.MarketSnapshot
	candles     map[string][]model.Candle
	snapshotErr map[string]error
	candleErr   map[string]error
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		snapshots:   make(map[string]*model.MarketSnapshot),
		candles:     make(map[string][]model.Candle),
		snapshotErr: make(map[string]error),
		candleErr:   make(map[string]error),
	}
}

func (f *fakeMarket) GetSnapshot(ctx context.Context, symbol string) (*model.MarketSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.snapshotErr[symbol]; err != nil {
		return nil, err
	}
	snap, ok := f.snapshots[symbol]
	if !ok {
		return nil, fmt.Errorf("no snapshot for %s", symbol)
	}
	out := *snap
	return &out, nil
}

func (f *fakeMarket) GetCandles(ctx context.Context, symbol, granularity string, count int) ([]model.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.candleErr[symbol]; err != nil {
		return nil, err
	}
	candles, ok := f.candles[symbol]
	if !ok {
		return nil, fmt.Errorf("no candles for %s", symbol)
	}
	out := make([]model.Candle, len(candles))
	copy(out, candles)
	return out, nil
}

// fakeExecutor accepts every order unless told to fail, and counts
// submissions.
type fakeExecutor struct {
	mu         sync.Mutex
	balance    float64
	balanceErr error
	buyErr     error
	sellErr    error
	buys       int
	sells      int
}

func (f *fakeExecutor) SubmitBuy(ctx context.Context, symbol string, price, quantity float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.buyErr != nil {
		return "", f.buyErr
	}
	f.buys++
	return fmt.Sprintf("buy-%d", f.buys), nil
}

func (f *fakeExecutor) SubmitSell(ctx context.Context, symbol string, price, quantity float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sellErr != nil {
		return "", f.sellErr
	}
	f.sells++
	return fmt.Sprintf("sell-%d", f.sells), nil
}

func (f *fakeExecutor) AvailableBalance(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeExecutor) buyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buys
}

func (f *fakeExecutor) sellCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sells
}

// fakePositionStore keeps open positions in memory and enforces the
// one-open-position-per-(user,symbol) rule the way the database does.
type fakePositionStore struct {
	mu     sync.Mutex
	nextID int64
	open   map[string]*model.Position
	closed []model.Position
	trades []model.Trade
	getErr error
}

func newFakePositionStore() *fakePositionStore {
	return &fakePositionStore{open: make(map[string]*model.Position)}
}

func positionKey(userID int64, symbol string) string {
	return fmt.Sprintf("%d|%s", userID, symbol)
}

func (f *fakePositionStore) GetOpen(ctx context.Context, userID int64, symbol string) (*model.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	pos, ok := f.open[positionKey(userID, symbol)]
	if !ok {
		return nil, nil
	}
	out := *pos
	return &out, nil
}

func (f *fakePositionStore) ListOpen(ctx context.Context, userID int64) ([]model.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var positions []model.Position
	for _, pos := range f.open {
		if pos.UserID == userID {
			positions = append(positions, *pos)
		}
	}
	return positions, nil
}

func (f *fakePositionStore) OpenWithTrade(ctx context.Context, pos *model.Position, trade *model.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := positionKey(pos.UserID, pos.Symbol)
	if _, ok := f.open[key]; ok {
		return model.ErrPositionExists
	}

	f.nextID++
	stored := *pos
	stored.ID = f.nextID
	f.open[key] = &stored
	pos.ID = stored.ID

	f.trades = append(f.trades, *trade)
	return nil
}

func (f *fakePositionStore) CloseWithTrade(ctx context.Context, userID int64, symbol string, profitRate float64, closedAt time.Time, trade *model.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := positionKey(userID, symbol)
	pos, ok := f.open[key]
	if !ok {
		return model.ErrNoOpenPosition
	}

	pos.Status = model.PositionStatusClosed
	pos.Profit = &profitRate
	pos.ClosedAt = &closedAt
	f.closed = append(f.closed, *pos)
	delete(f.open, key)

	f.trades = append(f.trades, *trade)
	return nil
}

func (f *fakePositionStore) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open)
}

func (f *fakePositionStore) tradeLog() []model.Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Trade, len(f.trades))
	copy(out, f.trades)
	return out
}

func (f *fakePositionStore) closedPositions() []model.Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Position, len(f.closed))
	copy(out, f.closed)
	return out
}

// fakeTradeStore records the pagination parameters it was asked for.
type fakeTradeStore struct {
	mu        sync.Mutex
	trades    []model.Trade
	lastPage  int
	lastLimit int
}

func (f *fakeTradeStore) ListByUser(ctx context.Context, userID int64, page, limit int) ([]model.Trade, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastPage = page
	f.lastLimit = limit

	var byUser []model.Trade
	for _, t := range f.trades {
		if t.UserID == userID {
			byUser = append(byUser, t)
		}
	}

	start := (page - 1) * limit
	if start >= len(byUser) {
		return nil, len(byUser), nil
	}
	end := start + limit
	if end > len(byUser) {
		end = len(byUser)
	}
	return byUser[start:end], len(byUser), nil
}

// fakeSessionStore tracks created sessions and stop calls.
type fakeSessionStore struct {
	mu        sync.Mutex
	created   []model.TradingSession
	stopped   map[string]int
	createErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{stopped: make(map[string]int)}
}

func (f *fakeSessionStore) Create(ctx context.Context, session *model.TradingSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *session)
	return nil
}

func (f *fakeSessionStore) SetStopped(ctx context.Context, sessionID string, stoppedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped[sessionID]++
	return nil
}

func (f *fakeSessionStore) GetActive(ctx context.Context, userID int64) (*model.TradingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.created) - 1; i >= 0; i-- {
		s := f.created[i]
		if s.UserID == userID && f.stopped[s.SessionID] == 0 {
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionStore) activeCount(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	for _, s := range f.created {
		if s.UserID == userID && f.stopped[s.SessionID] == 0 {
			n++
		}
	}
	return n
}

func (f *fakeSessionStore) stopCount(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped[sessionID]
}
