// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package item_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/holoplace/internal/account"
	"github.com/holomush/holoplace/internal/core"
	"github.com/holomush/holoplace/internal/currency"
	"github.com/holomush/holoplace/internal/item"
	"github.com/holomush/holoplace/internal/world"
)

var _ = Describe("Purchasing items", func() {
	var ctx context.Context
	var s *stack

	BeforeEach(func() {
		ctx = context.Background()
		s = newStack()
	})

	Describe("a user with enough gold", func() {
		It("debits the BUY price and places exactly one item", func() {
			user := fundedUser(currency.Amounts{"GOLD": 100})
			acc, err := s.Accounts.Get(ctx, user.UserID())
			Expect(err).NotTo(HaveOccurred())

			h, err := s.Engine.PurchaseItem(ctx, acc, "T1", nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(acc.Balance("GOLD")).To(Equal(int64(50)))
			Expect(acc.PlacedCount()).To(Equal(1))

			persisted, err := env.Balances.Balances(ctx, acc.UserID())
			Expect(err).NotTo(HaveOccurred())
			Expect(persisted.Get("GOLD")).To(Equal(int64(50)))

			placed, err := env.Objects.Get(ctx, h.InstanceID())
			Expect(err).NotTo(HaveOccurred())
			Expect(placed.OwnerID).To(Equal(acc.UserID()))
			Expect(placed.TemplateID).To(Equal("T1"))

			var purchases int
			Expect(env.pool.QueryRow(ctx,
				`SELECT COUNT(*) FROM purchases WHERE instance_id = $1`, h.InstanceID().String(),
			).Scan(&purchases)).To(Succeed())
			Expect(purchases).To(Equal(1))
		})
	})

	Describe("a user without enough gold", func() {
		It("is forbidden and keeps every balance", func() {
			user := fundedUser(currency.Amounts{"GOLD": 100})
			acc, err := s.Accounts.Get(ctx, user.UserID())
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Engine.PurchaseItem(ctx, acc, "T2", nil)
			Expect(item.IsForbidden(err)).To(BeTrue())
			Expect(item.Reason(err)).To(Equal(item.ReasonInsufficientFunds))

			Expect(acc.Balance("GOLD")).To(Equal(int64(100)))
			persisted, err := env.Balances.Balances(ctx, acc.UserID())
			Expect(err).NotTo(HaveOccurred())
			Expect(persisted.Get("GOLD")).To(Equal(int64(100)))
		})
	})

	Describe("templates the catalog cannot sell", func() {
		It("rejects unknown templates as not found", func() {
			acc := account.New(core.NewULID(), nil)
			_, err := s.Engine.PurchaseItem(ctx, acc, "ghost", nil)
			Expect(item.IsNotFound(err)).To(BeTrue())
			_, err = s.Engine.CreateItem(ctx, acc, "ghost")
			Expect(item.IsNotFound(err)).To(BeTrue())
		})

		It("rejects templates without a BUY price as forbidden", func() {
			acc := account.New(core.NewULID(), currency.Amounts{"GOLD": 1000})
			_, err := s.Engine.PurchaseItem(ctx, acc, "banner", nil)
			Expect(item.IsForbidden(err)).To(BeTrue())
			Expect(item.Reason(err)).To(Equal(item.ReasonNotPurchasable))
		})
	})

	Describe("two processes sharing one database", func() {
		It("never overdraws the persisted balance", func() {
			user := fundedUser(currency.Amounts{"GOLD": 100})
			first, second := newStack(), newStack()

			accA, err := first.Accounts.Get(ctx, user.UserID())
			Expect(err).NotTo(HaveOccurred())
			accB, err := second.Accounts.Get(ctx, user.UserID())
			Expect(err).NotTo(HaveOccurred())

			// Each process believes it holds 100 gold; only two chairs fit.
			var wg sync.WaitGroup
			results := make([]error, 4)
			for i := range results {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					acc, eng := accA, first.Engine
					if i%2 == 1 {
						acc, eng = accB, second.Engine
					}
					_, results[i] = eng.PurchaseItem(ctx, acc, "T1", nil)
				}()
			}
			wg.Wait()

			succeeded := 0
			for _, err := range results {
				if err == nil {
					succeeded++
				} else {
					Expect(item.IsForbidden(err)).To(BeTrue())
				}
			}
			Expect(succeeded).To(Equal(2))

			persisted, err := env.Balances.Balances(ctx, user.UserID())
			Expect(err).NotTo(HaveOccurred())
			Expect(persisted.Get("GOLD")).To(Equal(int64(0)))
		})
	})

	Describe("restarting the process", func() {
		It("restores placed items and ownership from the database", func() {
			user := fundedUser(currency.Amounts{"GOLD": 100})
			acc, err := s.Accounts.Get(ctx, user.UserID())
			Expect(err).NotTo(HaveOccurred())
			h, err := s.Engine.PurchaseItem(ctx, acc, "T1", nil)
			Expect(err).NotTo(HaveOccurred())

			restarted := newStack()
			items, err := env.Objects.ListByOwner(ctx, acc.UserID())
			Expect(err).NotTo(HaveOccurred())
			n, err := item.Rehydrate(ctx, restarted.Space, env.Registry, items)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			got, err := restarted.Engine.GetItem(ctx, h.InstanceID())
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ObjectID()).To(Equal(h.ObjectID()))
			Expect(got.Pose()).To(Equal(h.Pose()))

			reloaded, err := restarted.Accounts.Get(ctx, acc.UserID())
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Balance("GOLD")).To(Equal(int64(50)))
			Expect(reloaded.PlacedInstanceIDs()).To(ConsistOf(h.InstanceID()))
		})
	})

	Describe("looking up an item that was never created", func() {
		It("times out instead of blocking", func() {
			_, err := s.Engine.GetItem(ctx, core.NewULID())
			Expect(item.IsTimeout(err)).To(BeTrue())
			Expect(s.Space.Waiting()).To(BeZero())
		})
	})

	Describe("creating with a chosen instance id", func() {
		It("conflicts when the id is already stored", func() {
			instanceID := core.NewULID()
			acc := account.New(core.NewULID(), nil)
			_, err := s.Engine.CreateItem(ctx, acc, "banner", item.WithInstanceID(instanceID))
			Expect(err).NotTo(HaveOccurred())

			// A different process has an empty world but the same database.
			other := newStack()
			_, err = other.Engine.CreateItem(ctx, account.New(core.NewULID(), nil), "banner", item.WithInstanceID(instanceID))
			Expect(item.IsConflict(err)).To(BeTrue())
			Expect(other.Space.Len()).To(BeZero())
			Expect(s.Space.Objects()).To(HaveLen(1))
			Expect(s.Space.Objects()[0].HasTag(world.TagPlacedItem)).To(BeTrue())
		})
	})
})
