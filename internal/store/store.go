// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists analysis runs and engine settings in a local
// SQLite database. Saved analyses are indexed for full-text search over
// title and query so catalogers can pull up prior valuations of similar
// items. See docs/ARCHITECTURE § Local Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

const dbFile = "valuation.db"

// Settings keys.
const (
	settingExcludedCompany = "excluded_company_id"
	settingCurrentQuery    = "current_query"
)

// Store manages the valuation SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the database at cfg.DataDir/valuation.db and
// creates the schema when missing.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS analyses (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			title TEXT NOT NULL,
			query TEXT NOT NULL,
			query_source TEXT,
			data_quality TEXT,
			total_matches INTEGER,
			analyzed_sales INTEGER,
			price_low REAL,
			price_high REAL,
			currency TEXT,
			confidence REAL,
			trend_direction TEXT,
			result TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='analyses_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE analyses_fts USING fts5(title, query, content=analyses, content_rowid=rowid)`,
			`CREATE TRIGGER analyses_ai AFTER INSERT ON analyses BEGIN
				INSERT INTO analyses_fts(rowid, title, query) VALUES (new.rowid, new.title, new.query);
			END`,
			`CREATE TRIGGER analyses_ad AFTER DELETE ON analyses BEGIN
				INSERT INTO analyses_fts(analyses_fts, rowid, title, query) VALUES('delete', old.rowid, old.title, old.query);
			END`,
			`CREATE TRIGGER analyses_au AFTER UPDATE ON analyses BEGIN
				INSERT INTO analyses_fts(analyses_fts, rowid, title, query) VALUES('delete', old.rowid, old.title, old.query);
				INSERT INTO analyses_fts(rowid, title, query) VALUES (new.rowid, new.title, new.query);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// SavedAnalysis is one persisted analysis run.
type SavedAnalysis struct {
	ID        string                      `json:"id" yaml:"id"`
	CreatedAt time.Time                   `json:"created_at" yaml:"created_at"`
	Title     string                      `json:"title" yaml:"title"`
	Item      types.ItemDescription       `json:"item" yaml:"item"`
	Result    *types.MarketAnalysisResult `json:"result" yaml:"result"`
}

// SaveAnalysis persists one completed analysis and returns its run ID.
func (s *Store) SaveAnalysis(ctx context.Context, item types.ItemDescription, result *types.MarketAnalysisResult) (string, error) {
	if result == nil {
		return "", errors.New("saving analysis: nil result")
	}

	saved := SavedAnalysis{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Title:     item.Title,
		Item:      item,
		Result:    result,
	}

	blob, err := json.Marshal(saved)
	if err != nil {
		return "", fmt.Errorf("marshaling analysis: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, created_at, title, query, query_source, data_quality,
			total_matches, analyzed_sales, price_low, price_high, currency, confidence,
			trend_direction, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.CreatedAt.Format(time.RFC3339Nano), item.Title,
		result.ActualSearchQuery, string(result.QuerySource), string(result.DataQuality),
		result.TotalMatches, result.AnalyzedSales,
		result.PriceRange.Low, result.PriceRange.High, result.PriceRange.Currency,
		result.Confidence, string(result.Trend.Direction), string(blob),
	)
	if err != nil {
		return "", fmt.Errorf("inserting analysis: %w", err)
	}
	return saved.ID, nil
}

// RecentAnalyses returns the most recent saved analyses, newest first.
// limit <= 0 uses the configured default.
func (s *Store) RecentAnalyses(ctx context.Context, limit int) ([]SavedAnalysis, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM analyses ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

// SearchAnalyses runs a full-text search over saved titles and queries.
func (s *Store) SearchAnalyses(ctx context.Context, query string, limit int) ([]SavedAnalysis, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("searching analyses: empty query")
	}
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.result FROM analyses_fts f
		 JOIN analyses a ON a.rowid = f.rowid
		 WHERE analyses_fts MATCH ?
		 ORDER BY rank LIMIT ?`,
		ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("searching analyses: %w", err)
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

// GetAnalysis loads one saved analysis by run ID.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*SavedAnalysis, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM analyses WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading analysis: %w", err)
	}

	var saved SavedAnalysis
	if err := json.Unmarshal([]byte(blob), &saved); err != nil {
		return nil, fmt.Errorf("unmarshaling analysis %s: %w", id, err)
	}
	return &saved, nil
}

func scanAnalyses(rows *sql.Rows) ([]SavedAnalysis, error) {
	var out []SavedAnalysis
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		var saved SavedAnalysis
		if err := json.Unmarshal([]byte(blob), &saved); err != nil {
			return nil, fmt.Errorf("unmarshaling analysis: %w", err)
		}
		out = append(out, saved)
	}
	return out, rows.Err()
}

// ftsQuery turns free text into an AND-of-prefixes FTS5 match expression,
// quoting each token so user input cannot inject FTS syntax.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, ``) + `"*`
	}
	return strings.Join(fields, " ")
}

// ExcludedCompany returns the configured excluded seller ID, "" when unset.
func (s *Store) ExcludedCompany(ctx context.Context) (string, error) {
	return s.setting(ctx, settingExcludedCompany)
}

// SetExcludedCompany stores the excluded seller ID. Empty clears it.
func (s *Store) SetExcludedCompany(ctx context.Context, companyID string) error {
	return s.setSetting(ctx, settingExcludedCompany, strings.TrimSpace(companyID))
}

// CurrentQueryState is the persisted authoritative-query snapshot. The CLI
// restores it at startup so `terms select` in one invocation governs
// `analyze` in the next.
type CurrentQueryState struct {
	Query      string             `json:"query"`
	Terms      []types.SearchTerm `json:"terms"`
	Source     types.QuerySource  `json:"source"`
	Provenance types.Provenance   `json:"provenance"`
	Confidence float64            `json:"confidence"`
}

// CurrentQuery loads the persisted query state, nil when none is stored.
func (s *Store) CurrentQuery(ctx context.Context) (*CurrentQueryState, error) {
	raw, err := s.setting(ctx, settingCurrentQuery)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var state CurrentQueryState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("unmarshaling current query: %w", err)
	}
	return &state, nil
}

// SetCurrentQuery persists the query state; nil clears it.
func (s *Store) SetCurrentQuery(ctx context.Context, state *CurrentQueryState) error {
	if state == nil {
		return s.setSetting(ctx, settingCurrentQuery, "")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling current query: %w", err)
	}
	return s.setSetting(ctx, settingCurrentQuery, string(raw))
}

func (s *Store) setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	if value == "" {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
			return fmt.Errorf("clearing setting %s: %w", key, err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}
