// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/currency"
)

// newCatalogCmd creates the catalog command group.
func newCatalogCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate the item catalog",
	}

	validate := &cobra.Command{
		Use:   "validate [PATH]",
		Short: "Validate a catalog file or directory",
		Long: `Validate catalog files against the schema and the semantic rules applied at
startup. PATH defaults to the configured catalog path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, path, err := catalogFromArgs(cmd, deps, args)
			if err != nil {
				if msg := catalog.FormatSchemaError(err); msg != err.Error() {
					cmd.PrintErrln(msg)
				}
				return err
			}
			cmd.Printf("%s: %d templates, currencies %s\n",
				path, registry.Len(), joinKinds(registry.Currencies()))
			cmd.Printf("digest: %s\n", registry.Digest())
			return nil
		},
	}

	var match string
	list := &cobra.Command{
		Use:   "list [PATH]",
		Short: "List catalog templates and their prices",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, _, err := catalogFromArgs(cmd, deps, args)
			if err != nil {
				return err
			}

			templates := registry.Templates()
			if match != "" {
				if templates, err = registry.Match(match); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tBUY\tSELL")
			for _, t := range templates {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name,
					formatPrice(t.Prices, catalog.ExchangeBuy),
					formatPrice(t.Prices, catalog.ExchangeSell))
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&match, "match", "", "only templates whose id matches this glob")

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the catalog JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := catalog.GenerateSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.AddCommand(validate, list, schema)
	return cmd
}

// catalogFromArgs loads the catalog at args[0], or the configured path.
func catalogFromArgs(cmd *cobra.Command, deps *Deps, args []string) (*catalog.Registry, string, error) {
	deps = deps.withDefaults()
	cfg, err := loadConfig(cmd, deps.Getenv)
	if err != nil {
		return nil, "", err
	}
	if len(args) == 1 {
		cfg.Catalog.Path = args[0]
	}
	registry, err := loadCatalog(deps, cfg)
	if err != nil {
		return nil, cfg.Catalog.Path, err
	}
	return registry, cfg.Catalog.Path, nil
}

func formatPrice(prices catalog.PriceTable, ex catalog.Exchange) string {
	amounts, ok := prices.Price(ex)
	if !ok {
		return "-"
	}
	return formatAmounts(amounts)
}

// formatAmounts renders amounts as KIND=N pairs in kind order.
func formatAmounts(amounts currency.Amounts) string {
	if len(amounts) == 0 {
		return "free"
	}
	parts := make([]string, 0, len(amounts))
	for _, kind := range amounts.Kinds() {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, amounts[kind]))
	}
	return strings.Join(parts, ",")
}

func joinKinds(kinds []currency.Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = k.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
