// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and adjust engine settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := engineConfig(cmd)
		// Keys never leave the process.
		cfg.Marketplace.APIKey = ""
		cfg.AI.APIKey = ""

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configSetExcludedCmd = &cobra.Command{
	Use:   "set-excluded-company [company-id]",
	Short: "Exclude one seller's listings from every analysis",
	Long: `Set-excluded-company stores a marketplace seller ID whose listings are
dropped before any statistics run. An empty ID clears the exclusion. The
setting takes effect immediately: cached search results do not bypass it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		if err := sess.store.SetExcludedCompany(cmd.Context(), id); err != nil {
			return err
		}
		if id == "" {
			fmt.Println("Seller exclusion cleared.")
		} else {
			fmt.Printf("Excluding seller %s from analyses.\n", id)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetExcludedCmd)
	rootCmd.AddCommand(configCmd)
}
