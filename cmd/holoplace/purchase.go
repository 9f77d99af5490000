// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoplace/internal/core"
	"github.com/holomush/holoplace/internal/item"
	"github.com/holomush/holoplace/internal/placement"
)

// poseFlags are the optional pose flags of purchase.
var poseFlags = []string{"x", "y", "z", "yaw"}

// newPurchaseCmd creates the purchase subcommand.
func newPurchaseCmd(deps *Deps) *cobra.Command {
	var (
		userID     string
		templateID string
		pose       placement.Pose
	)

	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Buy and place one item for a user",
		Long: `Run one purchase through the engine against the database: check and debit
the BUY price, place the item and record it. Without pose flags the item is
placed on the ground at the origin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var requested *placement.Pose
			for _, name := range poseFlags {
				if cmd.Flags().Changed(name) {
					requested = &pose
					break
				}
			}
			return runPurchase(cmd, deps, userID, templateID, requested)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "buyer ULID")
	cmd.Flags().StringVar(&templateID, "template", "", "template id to buy")
	cmd.Flags().Float64Var(&pose.Position.X, "x", 0, "requested X position")
	cmd.Flags().Float64Var(&pose.Position.Y, "y", 0, "requested Y position")
	cmd.Flags().Float64Var(&pose.Position.Z, "z", 0, "requested Z position")
	cmd.Flags().Float64Var(&pose.Yaw, "yaw", 0, "requested yaw in degrees")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func runPurchase(cmd *cobra.Command, deps *Deps, rawUserID, templateID string, pose *placement.Pose) error {
	deps = deps.withDefaults()
	ctx := cmd.Context()

	userID, err := core.ParseULID(rawUserID)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, deps.Getenv)
	if err != nil {
		return err
	}
	registry, err := loadCatalog(deps, cfg)
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

	rt, err := buildRuntime(ctx, cfg, db, registry)
	if err != nil {
		return err
	}
	user, err := rt.Accounts.Get(ctx, userID)
	if err != nil {
		return err
	}

	h, err := rt.Engine.PurchaseItem(ctx, user, templateID, pose)
	if err != nil {
		if reason := item.Reason(err); reason != "" {
			cmd.PrintErrf("purchase refused: %s\n", reason)
		}
		return err
	}

	cmd.Printf("Placed %s (%s) as instance %s\n", h.TemplateID(), h.ObjectID(), h.InstanceID())
	cmd.Printf("Pose: %s\n", h.Pose())
	cmd.Printf("Balances: %s\n", formatAmounts(user.Balances()))
	cmd.Printf("Placed items: %d\n", user.PlacedCount())
	return nil
}
