package domain

import (
	"errors"
	"time"

	"marketsim/internal/id"
)

const (
	// StartingBalance is granted to a fresh account.
	StartingBalance = 10000

	// TransactionCap bounds the visible transaction log. Older entries are
	// evicted; balance correctness does not depend on them because the
	// running balance is carried in BalanceAfter, never recomputed from
	// history.
	TransactionCap = 200
)

// Transaction sources.
const (
	SourceTrade   = "trade"
	SourceReward  = "reward"
	SourcePenalty = "penalty"
	SourceSystem  = "system"
)

var (
	// ErrInsufficientFunds rejects a buy whose price exceeds the balance.
	// User error, not a system fault; no state change occurs.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidPosition rejects a sell referencing a position that no
	// longer exists. Callers should re-sync their position list.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrUnknownSymbol rejects a trade on a symbol the feed does not carry.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// Position is one open lot: a buy not yet sold. Quantity is one share per
// lot; buying twice opens two positions.
type Position struct {
	Symbol     string
	EntryPrice float64
	OpenedAt   time.Time
}

// Transaction is one balance-affecting ledger entry.
type Transaction struct {
	ID           string
	Time         time.Time
	Amount       float64
	BalanceAfter float64
	Source       string
	Label        string
}

// Account is the ledger state for one session: balance, open positions and
// the bounded transaction log. Accounts are values: every mutation returns a
// new Account and callers must treat the return value as the authoritative
// state. The invariant Balance >= 0 holds under any delta sequence.
type Account struct {
	Balance      float64
	Positions    []Position
	Transactions []Transaction
}

// NewAccount returns a fresh account with the starting balance and no
// history.
func NewAccount() Account {
	return Account{Balance: StartingBalance}
}

// ApplyDelta credits (positive) or debits (negative) the balance and appends
// a ledger entry. An over-large debit clamps the balance at zero rather than
// rejecting: losses are capped, the account is never overdrawn. That
// clamping is the business rule here, not a defect.
func (a Account) ApplyDelta(amount float64, source, label string) Account {
	newBalance := Round2(a.Balance + amount)
	if newBalance < 0 {
		newBalance = 0
	}

	tx := Transaction{
		ID:           id.New(),
		Time:         time.Now(),
		Amount:       Round2(amount),
		BalanceAfter: newBalance,
		Source:       source,
		Label:        label,
	}

	txs := make([]Transaction, 0, len(a.Transactions)+1)
	txs = append(txs, a.Transactions...)
	txs = append(txs, tx)
	if len(txs) > TransactionCap {
		txs = txs[len(txs)-TransactionCap:]
	}

	return Account{
		Balance:      newBalance,
		Positions:    clonePositions(a.Positions),
		Transactions: txs,
	}
}

// Buy opens one lot of symbol at the snapshot's current price. Rejected with
// ErrInsufficientFunds when the price exceeds the balance; a rejected buy
// leaves the account untouched.
func (a Account) Buy(snap FeedSnapshot, symbol string) (Account, error) {
	price, ok := snap.Price(symbol)
	if !ok {
		return a, ErrUnknownSymbol
	}
	if price > a.Balance {
		return a, ErrInsufficientFunds
	}

	next := a.ApplyDelta(-price, SourceTrade, "Bought "+symbol)
	next.Positions = append(next.Positions, Position{
		Symbol:     symbol,
		EntryPrice: price,
		OpenedAt:   time.Now(),
	})
	return next, nil
}

// Sell closes the position at index, crediting the snapshot's current price
// (not the entry price). Realized gain or loss is implicit in the difference
// between the two trade transactions; no separate P&L ledger is kept. If the
// feed no longer carries the symbol the entry price is credited back.
func (a Account) Sell(snap FeedSnapshot, index int) (Account, error) {
	if index < 0 || index >= len(a.Positions) {
		return a, ErrInvalidPosition
	}

	pos := a.Positions[index]
	price, ok := snap.Price(pos.Symbol)
	if !ok {
		price = pos.EntryPrice
	}

	next := a.ApplyDelta(price, SourceTrade, "Sold "+pos.Symbol)
	next.Positions = append(next.Positions[:index], next.Positions[index+1:]...)
	return next, nil
}

// Equity is the balance plus the marked value of every open position at the
// snapshot's prices. Positions on symbols missing from the snapshot are
// marked at entry.
func (a Account) Equity(snap FeedSnapshot) float64 {
	eq := a.Balance
	for _, pos := range a.Positions {
		price, ok := snap.Price(pos.Symbol)
		if !ok {
			price = pos.EntryPrice
		}
		eq += price
	}
	return Round2(eq)
}

// HeldQuantity counts open lots of symbol.
func (a Account) HeldQuantity(symbol string) int {
	n := 0
	for _, pos := range a.Positions {
		if pos.Symbol == symbol {
			n++
		}
	}
	return n
}

func clonePositions(in []Position) []Position {
	if len(in) == 0 {
		return nil
	}
	out := make([]Position, len(in))
	copy(out, in)
	return out
}
