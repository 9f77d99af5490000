// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/holoplace/internal/store"
)

var _ = Describe("Schema", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("holoplace_test"),
			postgres.WithUsername("holoplace"),
			postgres.WithPassword("holoplace"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Connect(ctx, connStr, store.PoolConfig{MaxConns: 4})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	It("rejects negative balances", func() {
		_, err := pool.Exec(ctx,
			`INSERT INTO account_balances (user_id, currency, amount) VALUES ($1, $2, $3)`,
			"01HZZZZZZZZZZZZZZZZZZZZZZZ", "GOLD", -1)
		Expect(err).To(HaveOccurred())

		var pgErr *pgconn.PgError
		Expect(errors.As(err, &pgErr)).To(BeTrue())
		Expect(pgErr.Code).To(Equal(pgerrcode.CheckViolation))
	})

	It("enforces unique object ids on placed items", func() {
		insert := `INSERT INTO placed_items
			(instance_id, object_id, owner_id, template_id, parent_id, pos_x, pos_y, pos_z)
			VALUES ($1, $2, 'owner', 'oak-chair', 'parent', 0, 0, 0)`
		_, err := pool.Exec(ctx, insert, "instance-a", "object-1")
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, insert, "instance-b", "object-1")
		var pgErr *pgconn.PgError
		Expect(errors.As(err, &pgErr)).To(BeTrue())
		Expect(pgErr.Code).To(Equal(pgerrcode.UniqueViolation))
	})

	It("cascades purchases when a placed item is removed", func() {
		_, err := pool.Exec(ctx, `INSERT INTO placed_items
			(instance_id, object_id, owner_id, template_id, parent_id, pos_x, pos_y, pos_z)
			VALUES ('instance-c', 'object-3', 'owner', 'oak-chair', 'parent', 0, 0, 0)`)
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, `INSERT INTO purchases (id, user_id, template_id, instance_id, cost)
			VALUES ('p1', 'owner', 'oak-chair', 'instance-c', '{"GOLD": 50}')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `DELETE FROM placed_items WHERE instance_id = 'instance-c'`)
		Expect(err).NotTo(HaveOccurred())

		var count int
		Expect(pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases`).Scan(&count)).To(Succeed())
		Expect(count).To(Equal(0))
	})
})
