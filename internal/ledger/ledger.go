// Package ledger holds a session's credit balance. Every mutation goes through
// Credit or Debit so the balance can never drop below zero.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"studio/server/internal/model"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrNegativeOpening     = errors.New("opening balance must not be negative")
	ErrBalanceOverflow     = errors.New("credit would overflow balance")
)

type Ledger struct {
	mu      sync.Mutex
	balance int64
	entries []model.LedgerEntry
	nextID  int64
	now     func() time.Time
}

func New(opening int64) (*Ledger, error) {
	if opening < 0 {
		return nil, ErrNegativeOpening
	}
	return &Ledger{balance: opening, now: time.Now}, nil
}

func (l *Ledger) Balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Credit adds amount and returns the new balance.
func (l *Ledger) Credit(amount int64, reference string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit %d: %w", amount, ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > math.MaxInt64-l.balance {
		return l.balance, ErrBalanceOverflow
	}
	l.balance += amount
	l.record(model.TxRecharge, model.EntryCredit, amount, reference)
	return l.balance, nil
}

// Debit removes amount and returns the new balance. On ErrInsufficientCredits
// the balance is left untouched.
func (l *Ledger) Debit(amount int64, reference string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit %d: %w", amount, ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.balance {
		return l.balance, ErrInsufficientCredits
	}
	l.balance -= amount
	l.record(model.TxSpend, model.EntryDebit, amount, reference)
	return l.balance, nil
}

// Entries returns the history newest first.
func (l *Ledger) Entries() []model.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.LedgerEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

func (l *Ledger) record(tx model.TransactionType, side model.EntryType, amount int64, reference string) {
	l.nextID++
	l.entries = append(l.entries, model.LedgerEntry{
		ID:          l.nextID,
		Timestamp:   l.now().UTC(),
		Type:        tx,
		EntryType:   side,
		Amount:      amount,
		Reference:   reference,
		Description: describe(tx, amount),
		Balance:     l.balance,
	})
}

func describe(tx model.TransactionType, amount int64) string {
	if tx == model.TxSpend {
		return fmt.Sprintf("spent %d credits", amount)
	}
	return fmt.Sprintf("added %d credits", amount)
}
