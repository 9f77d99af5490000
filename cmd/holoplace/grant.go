// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoplace/internal/account"
	accountpg "github.com/holomush/holoplace/internal/account/postgres"
	"github.com/holomush/holoplace/internal/core"
	"github.com/holomush/holoplace/internal/currency"
)

// newGrantCmd creates the grant subcommand.
func newGrantCmd(deps *Deps) *cobra.Command {
	var (
		userID  string
		amounts map[string]int64
	)

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Credit currency to a user",
		Long: `Credit one or more currencies to a user's persisted balances.

Example:
  holoplace grant --user 01HZX3K9Q2W8M4N6P7R5T0V1YB --amount GOLD=100,GEMS=2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGrant(cmd, deps, userID, amounts)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ULID")
	cmd.Flags().StringToInt64Var(&amounts, "amount", nil, "amounts to credit as KIND=N pairs")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runGrant(cmd *cobra.Command, deps *Deps, rawUserID string, raw map[string]int64) error {
	deps = deps.withDefaults()
	ctx := cmd.Context()

	userID, err := core.ParseULID(rawUserID)
	if err != nil {
		return err
	}
	amounts, err := parseAmounts(raw)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, deps.Getenv)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, cfg.PoolConfig())
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	accounts := account.NewManager(account.ManagerConfig{
		Balances: accountpg.NewBalanceRepository(db),
	})
	if err := accounts.Grant(ctx, userID, amounts); err != nil {
		return err
	}
	acc, err := accounts.Get(ctx, userID)
	if err != nil {
		return err
	}

	slog.Info("currency granted", "user_id", userID.String(), "amounts", formatAmounts(amounts))
	cmd.Printf("Granted %s to %s\n", formatAmounts(amounts), userID)
	cmd.Printf("Balances: %s\n", formatAmounts(acc.Balances()))
	return nil
}

// parseAmounts converts KIND=N flag pairs, rejecting malformed kinds and
// negative amounts.
func parseAmounts(raw map[string]int64) (currency.Amounts, error) {
	amounts := make(currency.Amounts, len(raw))
	for k, v := range raw {
		kind := currency.Kind(k)
		if err := kind.Validate(); err != nil {
			return nil, oops.Code("INVALID_AMOUNT").With("currency", k).Wrap(err)
		}
		amounts[kind] = v
	}
	if err := amounts.Validate(); err != nil {
		return nil, oops.Code("INVALID_AMOUNT").Wrap(err)
	}
	return amounts, nil
}
