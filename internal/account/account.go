// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package account holds per-user balances and placed items.
//
// Every check-then-mutate sequence on an account runs inside Account.Update,
// which holds the account lock for the whole closure and commits staged
// changes only when the closure succeeds.
package account

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoplace/internal/currency"
	"github.com/holomush/holoplace/internal/world"
)

// Account errors.
var (
	// ErrInsufficientFunds is returned when a debit would make a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyPlaced is returned when an instance id is already recorded.
	ErrAlreadyPlaced = errors.New("instance already placed")

	// ErrBalanceOverflow is returned when a credit would exceed the largest
	// representable balance.
	ErrBalanceOverflow = errors.New("balance overflow")
)

// CodeBalanceOverflow is the oops code carried by ErrBalanceOverflow errors.
const CodeBalanceOverflow = "BALANCE_OVERFLOW"

// Account is one user's balances and placed items.
type Account struct {
	mu       sync.Mutex
	userID   ulid.ULID
	balances currency.Amounts
	placed   map[ulid.ULID]*world.Handle
}

// New creates an account with the given starting balances.
func New(userID ulid.ULID, balances currency.Amounts) *Account {
	return &Account{
		userID:   userID,
		balances: balances.Clone(),
		placed:   make(map[ulid.ULID]*world.Handle),
	}
}

// UserID returns the owning user's id.
func (a *Account) UserID() ulid.ULID {
	return a.userID
}

// Balance returns the balance for one currency.
func (a *Account) Balance(kind currency.Kind) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances.Get(kind)
}

// Balances returns a copy of all balances.
func (a *Account) Balances() currency.Amounts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances.Clone()
}

// PlacedItems returns a copy of the placed item map keyed by instance id.
func (a *Account) PlacedItems() map[ulid.ULID]*world.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[ulid.ULID]*world.Handle, len(a.placed))
	for id, h := range a.placed {
		out[id] = h
	}
	return out
}

// PlacedItem returns the handle for an instance id.
func (a *Account) PlacedItem(instanceID ulid.ULID) (*world.Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.placed[instanceID]
	return h, ok
}

// PlacedInstanceIDs returns the ids of all placed items, sorted.
func (a *Account) PlacedInstanceIDs() []ulid.ULID {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]ulid.ULID, 0, len(a.placed))
	for id := range a.placed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}

// PlacedCount returns the number of placed items.
func (a *Account) PlacedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.placed)
}

// Update runs fn with exclusive access to the account. fn sees and modifies
// staged copies; they replace the account state only if fn returns nil.
// A panic inside fn releases the lock and discards the staged changes.
func (a *Account) Update(fn func(tx *Tx) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx := &Tx{
		account:  a,
		balances: a.balances.Clone(),
		staged:   make(map[ulid.ULID]*world.Handle),
		debited:  make(currency.Amounts),
		credited: make(currency.Amounts),
	}
	if err := fn(tx); err != nil {
		return err
	}

	a.balances = tx.balances
	for id, h := range tx.staged {
		a.placed[id] = h
	}
	return nil
}

// Tx is the staged view of an account inside Update. It must not be used
// after the Update closure returns.
type Tx struct {
	account  *Account
	balances currency.Amounts
	staged   map[ulid.ULID]*world.Handle
	debited  currency.Amounts
	credited currency.Amounts
}

// UserID returns the owning user's id.
func (tx *Tx) UserID() ulid.ULID {
	return tx.account.userID
}

// Balance returns the staged balance for one currency.
func (tx *Tx) Balance(kind currency.Kind) int64 {
	return tx.balances.Get(kind)
}

// Balances returns a copy of the staged balances.
func (tx *Tx) Balances() currency.Amounts {
	return tx.balances.Clone()
}

// CanAfford reports whether the staged balances cover required.
func (tx *Tx) CanAfford(required currency.Amounts) (shortfall currency.Amounts, ok bool) {
	return tx.balances.Covers(required)
}

// Debit subtracts amounts from the staged balances. It is all-or-nothing:
// when any currency would go negative nothing is subtracted and
// ErrInsufficientFunds is returned. Zero amounts are applied too, so every
// listed currency ends up with an explicit balance.
func (tx *Tx) Debit(amounts currency.Amounts) error {
	if err := amounts.Validate(); err != nil {
		return oops.With("user_id", tx.account.userID.String()).Wrap(err)
	}
	if shortfall, ok := tx.balances.Covers(amounts); !ok {
		return oops.With("user_id", tx.account.userID.String()).
			With("shortfall", shortfall).
			Wrap(ErrInsufficientFunds)
	}
	for kind, amount := range amounts {
		tx.balances[kind] -= amount
		tx.debited[kind] += amount
	}
	return nil
}

// Credit adds amounts to the staged balances. It is all-or-nothing: when
// any balance would overflow nothing is added and ErrBalanceOverflow is
// returned.
func (tx *Tx) Credit(amounts currency.Amounts) error {
	if err := amounts.Validate(); err != nil {
		return oops.With("user_id", tx.account.userID.String()).Wrap(err)
	}
	for _, kind := range amounts.Kinds() {
		if balance := tx.balances.Get(kind); amounts[kind] > math.MaxInt64-balance {
			return oops.Code(CodeBalanceOverflow).
				With("user_id", tx.account.userID.String()).
				With("currency", kind.String()).
				With("balance", balance).
				With("amount", amounts[kind]).
				Wrap(ErrBalanceOverflow)
		}
	}
	for kind, amount := range amounts {
		tx.balances[kind] += amount
		tx.credited[kind] += amount
	}
	return nil
}

// Debited returns the total debited in this transaction.
func (tx *Tx) Debited() currency.Amounts {
	return tx.debited.Clone()
}

// IsPlaced reports whether instanceID is recorded on the account or staged.
func (tx *Tx) IsPlaced(instanceID ulid.ULID) bool {
	if _, ok := tx.staged[instanceID]; ok {
		return true
	}
	_, ok := tx.account.placed[instanceID]
	return ok
}

// Place stages a placed item under its instance id.
func (tx *Tx) Place(instanceID ulid.ULID, h *world.Handle) error {
	if tx.IsPlaced(instanceID) {
		return oops.With("user_id", tx.account.userID.String()).
			With("instance_id", instanceID.String()).
			Wrap(ErrAlreadyPlaced)
	}
	tx.staged[instanceID] = h
	return nil
}
