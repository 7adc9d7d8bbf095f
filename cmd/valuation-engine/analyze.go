// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a comparable-sales analysis for an item description",
	Long: `Analyze searches ended auctions for comparable confirmed sales and
computes a price range, confidence, market trend, and exceptional sales.

The search query comes from the current term selection (see "terms"); when
no selection exists, terms are generated from the item description first.
With --with-live the live-market analysis runs concurrently and both
results appear in the report.`,
	RunE: runAnalyze,
}

// analysisReport is the YAML document written for one analyze run.
type analysisReport struct {
	GeneratedAt time.Time                   `yaml:"generated_at"`
	Item        types.ItemDescription       `yaml:"item"`
	Historical  *types.MarketAnalysisResult `yaml:"historical,omitempty"`
	Live        *types.LiveAnalysisResult   `yaml:"live,omitempty"`
	SavedRunID  string                      `yaml:"saved_run_id,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	item := itemFromFlags(cmd)
	if item.Empty() {
		return fmt.Errorf("item description required: provide --title, --artist, or --object")
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	withLive, _ := cmd.Flags().GetBool("with-live")

	report := analysisReport{GeneratedAt: time.Now().UTC(), Item: item}

	if withLive {
		report.Historical, report.Live, err = sess.engine.Analyze(ctx, item)
	} else {
		report.Historical, err = sess.engine.AnalyzeHistorical(ctx, item)
	}
	if err != nil {
		return err
	}

	if err := sess.persistQuery(ctx); err != nil {
		sess.log.Warn("persisting query state failed", zap.Error(err))
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		id, err := sess.store.SaveAnalysis(ctx, item, report.Historical)
		if err != nil {
			return fmt.Errorf("saving analysis: %w", err)
		}
		report.SavedRunID = id
	}

	out, _ := cmd.Flags().GetString("out")
	return writeReport(report, out)
}

// writeReport marshals the report to YAML on stdout or into a file.
func writeReport(report analysisReport, path string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	fmt.Printf("Report written to %s\n", path)
	return nil
}

func init() {
	addItemFlags(analyzeCmd)
	analyzeCmd.Flags().Bool("with-live", false, "also run the live-market analysis")
	analyzeCmd.Flags().Bool("save", false, "persist the analysis in the local store")
	analyzeCmd.Flags().String("out", "", "write the YAML report to a file instead of stdout")

	rootCmd.AddCommand(analyzeCmd)
}
