package backtest

import (
	"math"
	"time"

	"github.com/bhargavap21/mobius-sub001/pkg/strategy"
)

// PositionState is the lifecycle phase of one asset's position.
type PositionState string

const (
	StateFlat            PositionState = "FLAT"
	StateOpen            PositionState = "OPEN"
	StatePartiallyExited PositionState = "PARTIALLY_EXITED"
)

// Trade is one append-only ledger entry. Dates are calendar days formatted
// as 2006-01-02; PnLPct is the percent move against the entry price and is
// zero for buys.
type Trade struct {
	Asset  string  `json:"asset"`
	Type   string  `json:"type"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
	Date   string  `json:"date"`
	Reason string  `json:"reason"`
	PnLPct float64 `json:"pnl_pct"`
}

// Trade types and exit reasons.
const (
	TradeBuy         = "buy"
	TradeSell        = "sell"
	TradePartialSell = "partial_sell"

	ReasonEntry      = "entry_signal"
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
	ReasonCustomExit = "custom_exit"
)

// Positions below this share count are considered fully closed.
const minOpenShares = 1e-9

// Machine owns the position lifecycle for one asset: FLAT -> OPEN ->
// PARTIALLY_EXITED -> FLAT, evaluated one bar at a time. The exit rules are
// fixed at construction; each EvalBar call may emit at most one trade.
//
// The partial take-profit is repeatable: every bar that crosses the
// take-profit threshold while shares remain open sells the configured
// fraction of the CURRENTLY open shares, compounding toward but never
// exceeding a full exit.
type Machine struct {
	asset        string
	exit         strategy.ExitConditions
	positionSize float64

	state       PositionState
	sharesOpen  float64
	entryShares float64
	entryPrice  float64
	entryDate   time.Time
	costBasis   float64
	realizedPnL float64
}

// BarInput is everything the machine needs to evaluate one bar.
type BarInput struct {
	Date  time.Time
	Price float64

	// Intrabar extremes; zero values fall back to Price. Stops trigger off
	// the low and take-profits off the high, so a wide bar can satisfy both
	// rules at once.
	High float64
	Low  float64

	// EntrySignal is true when the strategy's entry condition fired.
	EntrySignal bool
	// CustomExit is true when the strategy's custom exit condition fired.
	CustomExit bool
	// Capital is the cash currently allocated to this asset; used only to
	// size a new position.
	Capital float64
}

// NewMachine builds a flat machine for one asset.
func NewMachine(asset string, exit strategy.ExitConditions, positionSize float64) *Machine {
	if positionSize <= 0 || positionSize > 1 {
		positionSize = 1.0
	}
	return &Machine{
		asset:        asset,
		exit:         exit,
		positionSize: positionSize,
		state:        StateFlat,
	}
}

// State returns the current lifecycle phase.
func (m *Machine) State() PositionState { return m.state }

// SharesOpen returns the currently open share count.
func (m *Machine) SharesOpen() float64 { return m.sharesOpen }

// EntryPrice returns the fill price of the open position, zero when flat.
func (m *Machine) EntryPrice() float64 { return m.entryPrice }

// RealizedPnL returns the cumulative realized profit across all exits.
func (m *Machine) RealizedPnL() float64 { return m.realizedPnL }

// MarketValue returns the open position's value at the given price.
func (m *Machine) MarketValue(price float64) float64 {
	return m.sharesOpen * price
}

// EvalBar advances the machine by one bar and returns the trade it
// produced, or nil. Exits are evaluated before entries, and the stop loss
// always wins a tie with the take profit.
func (m *Machine) EvalBar(in BarInput) (*Trade, error) {
	if m.sharesOpen < 0 {
		return nil, &InvariantError{Asset: m.asset, Detail: "negative open shares"}
	}
	if in.Price <= 0 {
		return nil, nil
	}

	if m.state == StateFlat {
		if !in.EntrySignal || in.Capital <= 0 {
			return nil, nil
		}
		return m.open(in), nil
	}

	if in.CustomExit {
		return m.close(in, in.Price, ReasonCustomExit), nil
	}
	low, high := in.Low, in.High
	if low <= 0 {
		low = in.Price
	}
	if high <= 0 {
		high = in.Price
	}
	// Stop loss wins a bar where both rules trigger.
	if sl := m.exit.StopLoss; sl != nil {
		if stopPrice := m.entryPrice * (1 - *sl); low <= stopPrice {
			// Fill at the stop level, or at the close when the bar settled
			// below it.
			return m.stopOut(in, math.Min(stopPrice, in.Price)), nil
		}
	}
	if tp := m.exit.TakeProfit; tp != nil {
		if targetPrice := m.entryPrice * (1 + *tp); high >= targetPrice {
			if m.exit.TakeProfitPctShares >= 1.0 {
				return m.close(in, targetPrice, ReasonTakeProfit), nil
			}
			return m.partialSell(in, targetPrice), nil
		}
	}
	return nil, nil
}

func (m *Machine) open(in BarInput) *Trade {
	shares := m.positionSize * in.Capital / in.Price
	if shares <= 0 {
		return nil
	}
	m.state = StateOpen
	m.sharesOpen = shares
	m.entryShares = shares
	m.entryPrice = in.Price
	m.entryDate = in.Date
	m.costBasis = shares * in.Price
	return &Trade{
		Asset:  m.asset,
		Type:   TradeBuy,
		Shares: shares,
		Price:  in.Price,
		Date:   tradeDate(in.Date),
		Reason: ReasonEntry,
	}
}

// stopOut sells stop_loss_pct_shares of the open position; the default 1.0
// is a full exit.
func (m *Machine) stopOut(in BarInput, fill float64) *Trade {
	pct := m.exit.StopLossPctShares
	if pct <= 0 || pct > 1 {
		pct = 1.0
	}
	if pct >= 1.0 {
		return m.close(in, fill, ReasonStopLoss)
	}
	return m.sellFraction(in, fill, pct, TradeSell, ReasonStopLoss)
}

func (m *Machine) partialSell(in BarInput, fill float64) *Trade {
	return m.sellFraction(in, fill, m.exit.TakeProfitPctShares, TradePartialSell, ReasonTakeProfit)
}

func (m *Machine) close(in BarInput, fill float64, reason string) *Trade {
	return m.sellFraction(in, fill, 1.0, TradeSell, reason)
}

func (m *Machine) sellFraction(in BarInput, fill, pct float64, tradeType, reason string) *Trade {
	shares := m.sharesOpen * pct
	if shares > m.sharesOpen {
		shares = m.sharesOpen
	}
	m.sharesOpen -= shares
	m.realizedPnL += (fill - m.entryPrice) * shares

	if m.sharesOpen <= minOpenShares {
		shares += m.sharesOpen
		m.sharesOpen = 0
		m.state = StateFlat
	} else {
		m.state = StatePartiallyExited
	}

	return &Trade{
		Asset:  m.asset,
		Type:   tradeType,
		Shares: shares,
		Price:  fill,
		Date:   tradeDate(in.Date),
		Reason: reason,
		PnLPct: (fill/m.entryPrice - 1) * 100,
	}
}

func tradeDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
