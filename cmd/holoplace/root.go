package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/holoplace/internal/config"
	"github.com/holomush/holoplace/internal/logging"
	"github.com/holomush/holoplace/internal/xdg"
)

// serviceName labels every log line.
const serviceName = "holoplace"

// NewRootCmd creates the root command for the holoplace CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

// newRootCmd builds the command tree with injectable dependencies.
// If deps is nil, default implementations are used.
func newRootCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holoplace",
		Short: "holoplace - item purchase and placement service",
		Long: `holoplace owns the item catalog, per-user currency balances and the
placed items of a simulated world. It validates purchases against the
server-side catalog, debits balances atomically and places new items.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML, default $XDG_CONFIG_HOME/holoplace/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(deps))
	cmd.AddCommand(newMigrateCmd(deps))
	cmd.AddCommand(newCatalogCmd(deps))
	cmd.AddCommand(newGrantCmd(deps))
	cmd.AddCommand(newPurchaseCmd(deps))

	return cmd
}

// loadConfig resolves the effective configuration for cmd and installs the
// default logger.
func loadConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path = ""
	}
	if path == "" {
		if path, err = xdg.DefaultConfigFile(getenv); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path, cmd.Flags(), getenv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}
