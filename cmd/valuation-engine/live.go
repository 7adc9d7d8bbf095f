// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Survey live auctions matching the current query",
	Long: `Live searches currently running auctions for the item's query and
reports the active listings with their estimate and bid ranges. Live data
is an availability snapshot, never a basis for the historical price range.`,
	RunE: runLive,
}

func runLive(cmd *cobra.Command, args []string) error {
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
	result, err := sess.engine.AnalyzeLive(ctx, item)
	if err != nil {
		return err
	}

	if err := sess.persistQuery(ctx); err != nil {
		sess.log.Warn("persisting query state failed", zap.Error(err))
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func init() {
	addItemFlags(liveCmd)
	rootCmd.AddCommand(liveCmd)
}
