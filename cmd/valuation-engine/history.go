// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/valuation-engine/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "Browse saved analyses",
	Long: `History lists recently saved analyses, newest first. With a query
argument it runs a full-text search over saved titles and queries instead.
Use --id to print one full saved report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()

	if id, _ := cmd.Flags().GetString("id"); id != "" {
		saved, err := sess.store.GetAnalysis(ctx, id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(saved)
	}

	limit, _ := cmd.Flags().GetInt("limit")

	var results []store.SavedAnalysis
	if len(args) == 1 {
		results, err = sess.store.SearchAnalyses(ctx, args[0], limit)
	} else {
		results, err = sess.store.RecentAnalyses(ctx, limit)
	}
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No saved analyses.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-16s  %-30s  %-18s  %s\n",
		"Run ID", "Date", "Title", "Price Range", "Confidence")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 112))

	for _, r := range results {
		title := r.Title
		if len(title) > 30 {
			title = title[:27] + "..."
		}
		priceRange := "-"
		confidence := "-"
		if r.Result != nil && r.Result.HasComparableData {
			priceRange = fmt.Sprintf("%.0f-%.0f %s",
				r.Result.PriceRange.Low, r.Result.PriceRange.High, r.Result.PriceRange.Currency)
			confidence = fmt.Sprintf("%.2f", r.Result.Confidence)
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-16s  %-30s  %-18s  %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), title, priceRange, confidence)
	}

	fmt.Fprintf(os.Stdout, "\n%d analyses\n", len(results))
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 0, "maximum number of results (default from config)")
	historyCmd.Flags().Bool("json", false, "output results as JSON")
	historyCmd.Flags().String("id", "", "print one saved analysis by run ID")

	rootCmd.AddCommand(historyCmd)
}
