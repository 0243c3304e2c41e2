// Package bank is a small mutex-exercise collaborator: accounts guarded by
// a mutex each, with a two-account transfer that can be routed through
// tracked guards so a shared graph observes the acquisitions.
package bank

import (
	"errors"
	"sync"

	"github.com/mirkobrombin/go-lockgraph/v1/graph"
	"github.com/mirkobrombin/go-lockgraph/v1/tracked"
)

// ErrInsufficientFunds is returned by withdrawals and transfers that would
// overdraw the source account.
var ErrInsufficientFunds = errors.New("bank: insufficient funds")

// Account is a balance guarded by its own mutex.
type Account struct {
	id      string
	mu      sync.Mutex
	balance int64
}

// NewAccount returns an account with an initial balance in cents.
func NewAccount(id string, initial int64) *Account {
	return &Account{id: id, balance: initial}
}

// ID returns the account identifier.
func (a *Account) ID() string {
	return a.id
}

// Mutex exposes the account's raw mutex for tracked wrapping.
func (a *Account) Mutex() *sync.Mutex {
	return &a.mu
}

// Deposit adds amount to the balance.
func (a *Account) Deposit(amount int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance += amount
}

// Withdraw removes amount from the balance.
func (a *Account) Withdraw(amount int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balance < amount {
		return ErrInsufficientFunds
	}
	a.balance -= amount
	return nil
}

// Balance returns the current balance.
func (a *Account) Balance() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Transfer moves amount from one account to another, acquiring both account
// mutexes through tracked guards so the graph sees the holds. Accounts are
// locked in ID order, which keeps concurrent transfers acyclic.
func Transfer(g *graph.Graph, from, to *Account, amount int64) error {
	first, second := from, to
	if second.id < first.id {
		first, second = second, first
	}
	m1 := tracked.New(first.Mutex(), g)
	defer m1.Release()
	m2 := tracked.New(second.Mutex(), g)
	defer m2.Release()
	m1.Lock()
	m2.Lock()

	if from.balance < amount {
		return ErrInsufficientFunds
	}
	from.balance -= amount
	to.balance += amount
	return nil
}

// TransferUnordered is Transfer without the ID ordering: it locks from then
// to, so two opposite transfers running concurrently can deadlock. It exists
// for demonstrations of the detector and should not be used otherwise.
func TransferUnordered(g *graph.Graph, from, to *Account, amount int64) error {
	m1 := tracked.New(from.Mutex(), g)
	defer m1.Release()
	m2 := tracked.New(to.Mutex(), g)
	defer m2.Release()
	m1.Lock()
	m2.Lock()

	if from.balance < amount {
		return ErrInsufficientFunds
	}
	from.balance -= amount
	to.balance += amount
	return nil
}
