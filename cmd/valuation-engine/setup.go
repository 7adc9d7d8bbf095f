// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/valuation-engine/internal/authority"
	"github.com/pdiddy/valuation-engine/internal/engine"
	"github.com/pdiddy/valuation-engine/internal/market"
	"github.com/pdiddy/valuation-engine/internal/store"
	"github.com/pdiddy/valuation-engine/internal/termgen"
	"github.com/pdiddy/valuation-engine/pkg/types"
)

// newLogger builds the CLI logger: terse warnings by default, full debug
// output with --verbose.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

// engineConfig merges defaults, the config file, environment, and secrets.
func engineConfig(cmd *cobra.Command) types.EngineConfig {
	cfg := types.DefaultEngineConfig()

	if v := viper.GetInt("marketplace.max_results"); v > 0 {
		cfg.Marketplace.MaxResults = v
	}
	if v := viper.GetDuration("marketplace.ended_cache_ttl"); v > 0 {
		cfg.Marketplace.EndedCacheTTL = v
	}
	if v := viper.GetDuration("marketplace.live_cache_ttl"); v > 0 {
		cfg.Marketplace.LiveCacheTTL = v
	}
	if v := viper.GetDuration("marketplace.timeout"); v > 0 {
		cfg.Marketplace.Timeout = v
	}
	cfg.Marketplace.APIKey = secretDefault("marketplace-api-key", viper.GetString("marketplace.api_key"))

	if v := viper.GetString("analysis.reference_currency"); v != "" {
		cfg.Analysis.ReferenceCurrency = v
	}
	if v := viper.GetInt("analysis.historical_min_results"); v > 0 {
		cfg.Analysis.HistoricalMinResults = v
	}
	if v := viper.GetInt("analysis.live_min_results"); v > 0 {
		cfg.Analysis.LiveMinResults = v
	}
	if viper.IsSet("analysis.enable_ratio_outlier_removal") {
		cfg.Analysis.EnableRatioOutlierRemoval = viper.GetBool("analysis.enable_ratio_outlier_removal")
	}

	if v := viper.GetString("ai.model"); v != "" {
		cfg.AI.Model = v
	}
	if v := viper.GetInt("ai.max_retries"); v > 0 {
		cfg.AI.MaxRetries = v
	}
	cfg.AI.APIKey = secretDefault("anthropic-api-key", viper.GetString("ai.api_key"))

	if v, _ := cmd.Root().PersistentFlags().GetString("data-dir"); v != "" {
		cfg.Store.DataDir = v
	} else if v := viper.GetString("store.data_dir"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := viper.GetInt("store.max_results"); v > 0 {
		cfg.Store.MaxResults = v
	}

	return cfg
}

// session bundles the wired components for one CLI invocation.
type session struct {
	cfg    types.EngineConfig
	store  *store.Store
	engine *engine.Engine
	log    *zap.Logger
}

// newSession wires the store, marketplace client, term generator, and
// query authority. The persisted authoritative query from a previous
// invocation is restored so `terms select` governs later `analyze` runs.
func newSession(cmd *cobra.Command) (*session, error) {
	log, err := newLogger(cmd)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	cfg := engineConfig(cmd)

	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	excluded, err := st.ExcludedCompany(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	cfg.Marketplace.ExcludedCompanyID = excluded

	client := market.NewClient(cfg.Marketplace, cfg.Analysis.ReferenceCurrency, log)

	auth := authority.New(log)
	if state, err := st.CurrentQuery(ctx); err != nil {
		log.Warn("ignoring unreadable persisted query", zap.Error(err))
	} else if state != nil {
		auth.Restore(authority.Snapshot{
			Query:      state.Query,
			Terms:      state.Terms,
			Source:     state.Source,
			Provenance: state.Provenance,
			Confidence: state.Confidence,
		})
	}

	var generator *termgen.Generator
	if cfg.AI.APIKey != "" {
		backend := &termgen.ClaudeBackend{
			APIKey: cfg.AI.APIKey,
			Model:  cfg.AI.Model,
			Client: &http.Client{Timeout: 60 * time.Second},
		}
		generator = termgen.NewGenerator(backend, cfg.AI.MaxRetries, log)
	} else {
		log.Warn("no anthropic-api-key configured, term generation uses the heuristic fallback")
		generator = termgen.NewGenerator(nil, cfg.AI.MaxRetries, log)
	}

	return &session{
		cfg:    cfg,
		store:  st,
		engine: engine.New(cfg, client, generator, auth, log),
		log:    log,
	}, nil
}

// Close releases session resources.
func (s *session) Close() {
	s.store.Close()
	_ = s.log.Sync()
}

// persistQuery mirrors the authority state into the store so the next
// invocation sees the same query.
func (s *session) persistQuery(ctx context.Context) error {
	snap, ok := s.engine.Authority().Current()
	if !ok {
		return s.store.SetCurrentQuery(ctx, nil)
	}
	return s.store.SetCurrentQuery(ctx, &store.CurrentQueryState{
		Query:      snap.Query,
		Terms:      snap.Terms,
		Source:     snap.Source,
		Provenance: snap.Provenance,
		Confidence: snap.Confidence,
	})
}

// itemFromFlags assembles the item description from analyze/live/terms flags.
func itemFromFlags(cmd *cobra.Command) types.ItemDescription {
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	artist, _ := cmd.Flags().GetString("artist")
	objectType, _ := cmd.Flags().GetString("object")
	period, _ := cmd.Flags().GetString("period")
	technique, _ := cmd.Flags().GetString("technique")
	valuation, _ := cmd.Flags().GetFloat64("valuation")

	return types.ItemDescription{
		Title:       title,
		Description: description,
		Artist:      artist,
		ObjectType:  objectType,
		Period:      period,
		Technique:   technique,
		Valuation:   valuation,
	}
}

// addItemFlags registers the shared item-description flags.
func addItemFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "item title, e.g. \"Stol, Carl Malmsten, björk\"")
	cmd.Flags().String("description", "", "longer catalog text")
	cmd.Flags().String("artist", "", "artist, designer, maker, or brand")
	cmd.Flags().String("object", "", "object type, e.g. stol, armbandsur")
	cmd.Flags().String("period", "", "period hint, e.g. 1950-tal")
	cmd.Flags().String("technique", "", "material or technique, e.g. björk")
	cmd.Flags().Float64("valuation", 0, "preliminary valuation in the reference currency")
}
