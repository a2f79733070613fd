// Package strategy implements the rule-based trading strategies and
// the evaluator that turns market state into buy/sell/hold decisions.
// Strategies are pure: the same snapshot, indicators and position
// always produce the same decision.
package strategy

import (
	"errors"
	"fmt"

	"github.com/yourorg/trading-engine/internal/indicator"
	"github.com/yourorg/trading-engine/internal/model"
)

// Decision actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// ErrUnknownStrategy is returned when no strategy is registered under
// the requested name.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Decision is the outcome of evaluating a strategy against one
// symbol. Reasons lists the triggered condition names in rule order;
// ProfitRate is the realized rate at evaluation time, sells only.
type Decision struct {
	Action     string   `json:"action"`
	Reasons    []string `json:"reasons,omitempty"`
	ProfitRate float64  `json:"profit_rate,omitempty"`
}

// Strategy is one named rule set. ShouldEnter is consulted when no
// position is open for the symbol, ShouldExit when one is. Entries
// require a majority of conditions (confluence); exits trigger on any
// single condition (defensive).
type Strategy interface {
	Name() string
	ShouldEnter(symbol string, snap *model.MarketSnapshot, ind *indicator.Set) (bool, []string)
	ShouldExit(symbol string, pos *model.Position, snap *model.MarketSnapshot, ind *indicator.Set) (bool, []string)
}

// The three registered variants. New strategies are added here as new
// types, not by mutating a shared dispatch table.
var registry = map[string]Strategy{
	"momentum":           &Momentum{},
	"meanReversion":      &MeanReversion{},
	"volatilityBreakout": &VolatilityBreakout{},
}

// ForName looks up a registered strategy by name.
func ForName(name string) (Strategy, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return s, nil
}

// Names returns the registered strategy names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Evaluate maps (snapshot, indicators, optional open position) to a
// decision. With no position it considers entry; with one it
// considers exit. The caller guarantees pos reflects actual store
// state for the symbol.
func Evaluate(s Strategy, symbol string, snap *model.MarketSnapshot, ind *indicator.Set, pos *model.Position) *Decision {
	if pos == nil {
		if ok, reasons := s.ShouldEnter(symbol, snap, ind); ok {
			return &Decision{Action: ActionBuy, Reasons: reasons}
		}
		return &Decision{Action: ActionHold}
	}

	if ok, reasons := s.ShouldExit(symbol, pos, snap, ind); ok {
		return &Decision{
			Action:     ActionSell,
			Reasons:    reasons,
			ProfitRate: pos.ProfitRate(snap.Price),
		}
	}
	return &Decision{Action: ActionHold}
}

// condition pairs a rule name with its outcome for vote counting.
type condition struct {
	name string
	met  bool
}

// vote counts met conditions and collects their names in rule order.
func vote(conditions []condition) (int, []string) {
	var passed int
	var reasons []string
	for _, c := range conditions {
		if c.met {
			passed++
			reasons = append(reasons, c.name)
		}
	}
	return passed, reasons
}
