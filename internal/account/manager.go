// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoplace/internal/currency"
	"github.com/holomush/holoplace/internal/world"
)

// BalanceStore loads and credits persisted balances.
type BalanceStore interface {
	Balances(ctx context.Context, userID ulid.ULID) (currency.Amounts, error)
	Credit(ctx context.Context, userID ulid.ULID, amounts currency.Amounts) error
}

// PlacementStore lists the instance ids a user has placed.
type PlacementStore interface {
	ListInstanceIDs(ctx context.Context, ownerID ulid.ULID) ([]ulid.ULID, error)
}

// HandleResolver turns an instance id into a live world handle.
type HandleResolver interface {
	Lookup(instanceID ulid.ULID) (ulid.ULID, bool)
	Bind(objectID ulid.ULID) (*world.Handle, bool)
}

// ManagerConfig configures a Manager. Nil stores give an in-memory manager
// whose accounts start empty.
type ManagerConfig struct {
	Balances   BalanceStore
	Placements PlacementStore
	Resolver   HandleResolver
}

// Manager keeps one live Account per user.
type Manager struct {
	cfg      ManagerConfig
	mu       sync.Mutex
	accounts map[ulid.ULID]*Account
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		accounts: make(map[ulid.ULID]*Account),
	}
}

// Get returns the live account for userID, loading it on first use.
// Concurrent first calls for the same user all receive the same Account.
func (m *Manager) Get(ctx context.Context, userID ulid.ULID) (*Account, error) {
	m.mu.Lock()
	acc, ok := m.accounts[userID]
	m.mu.Unlock()
	if ok {
		return acc, nil
	}

	loaded, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[userID]; ok {
		return acc, nil
	}
	m.accounts[userID] = loaded
	return loaded, nil
}

func (m *Manager) load(ctx context.Context, userID ulid.ULID) (*Account, error) {
	balances := make(currency.Amounts)
	if m.cfg.Balances != nil {
		b, err := m.cfg.Balances.Balances(ctx, userID)
		if err != nil {
			return nil, oops.Code("ACCOUNT_LOAD_FAILED").With("user_id", userID.String()).Wrap(err)
		}
		balances = b
	}
	acc := New(userID, balances)

	if m.cfg.Placements == nil || m.cfg.Resolver == nil {
		return acc, nil
	}
	ids, err := m.cfg.Placements.ListInstanceIDs(ctx, userID)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LOAD_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	for _, instanceID := range ids {
		objectID, ok := m.cfg.Resolver.Lookup(instanceID)
		if !ok {
			slog.Warn("placed item missing from world, skipping",
				"user_id", userID.String(),
				"instance_id", instanceID.String())
			continue
		}
		h, ok := m.cfg.Resolver.Bind(objectID)
		if !ok {
			slog.Warn("placed item has no handle, skipping",
				"user_id", userID.String(),
				"instance_id", instanceID.String(),
				"object_id", objectID.String())
			continue
		}
		acc.placed[instanceID] = h
	}

	slog.Debug("account loaded",
		"user_id", userID.String(),
		"currencies", len(balances),
		"placed_items", len(acc.placed))
	return acc, nil
}

// Grant credits amounts to a user, persistently first when a BalanceStore
// is configured.
func (m *Manager) Grant(ctx context.Context, userID ulid.ULID, amounts currency.Amounts) error {
	if err := amounts.Validate(); err != nil {
		return oops.Code("INVALID_AMOUNT").With("user_id", userID.String()).Wrap(err)
	}
	acc, err := m.Get(ctx, userID)
	if err != nil {
		return err
	}
	return acc.Update(func(tx *Tx) error {
		// Staged first so an overflow is rejected before anything is persisted.
		if err := tx.Credit(amounts); err != nil {
			return err
		}
		if m.cfg.Balances != nil {
			if err := m.cfg.Balances.Credit(ctx, userID, amounts); err != nil {
				return oops.Code("GRANT_FAILED").With("user_id", userID.String()).Wrap(err)
			}
		}
		return nil
	})
}

// Forget evicts a user's account. The next Get reloads it.
func (m *Manager) Forget(userID ulid.ULID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, userID)
}

// Len returns the number of live accounts.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}
