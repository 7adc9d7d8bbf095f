// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/valuation-engine/pkg/types"
)

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Manage the search-term selection",
	Long: `Terms manages the candidate search terms behind every analysis. There
is exactly one current query: generate creates it from an item description,
select adjusts which terms are checked, show prints the current state, and
clear resets the session.

A selection made here is authoritative: analyze and live run exactly this
query and never substitute their own.`,
}

// --- generate subcommand ---

var termsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate search terms from an item description",
	RunE:  runTermsGenerate,
}

func runTermsGenerate(cmd *cobra.Command, args []string) error {
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
	sess.engine.Authority().Clear()
	snap, err := sess.engine.EnsureQuery(ctx, item)
	if err != nil {
		return err
	}
	if err := sess.persistQuery(ctx); err != nil {
		return err
	}

	printTerms(snap.Query, string(snap.Source), sess.engine.Authority().AvailableTerms())
	return nil
}

// --- show subcommand ---

var termsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current query and term selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		snap, ok := sess.engine.Authority().Current()
		if !ok {
			fmt.Println("No current query. Run \"terms generate\" first.")
			return nil
		}
		printTerms(snap.Query, string(snap.Source), snap.Terms)
		return nil
	},
}

// --- select subcommand ---

var termsSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Choose which terms participate in the query",
	Long: `Select replaces the checked term set with --terms (comma-separated).
Terms not in the candidate list are added as keywords. Detected artist and
brand terms stay selected unless --toggle names them explicitly.`,
	RunE: runTermsSelect,
}

func runTermsSelect(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("terms")
	toggled, _ := cmd.Flags().GetString("toggle")
	if strings.TrimSpace(raw) == "" && toggled == "" {
		return fmt.Errorf("nothing to select: provide --terms and/or --toggle")
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	auth := sess.engine.Authority()
	if _, ok := auth.Current(); !ok {
		return fmt.Errorf("no current query: run \"terms generate\" first")
	}

	var selected []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			selected = append(selected, t)
		}
	}

	auth.UpdateUserSelection(selected, toggled)

	ctx := cmd.Context()
	if err := sess.persistQuery(ctx); err != nil {
		return err
	}

	snap, _ := auth.Current()
	printTerms(snap.Query, string(snap.Source), snap.Terms)
	return nil
}

// --- clear subcommand ---

var termsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset the term session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		sess.engine.Authority().Clear()
		if err := sess.persistQuery(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Term session cleared.")
		return nil
	},
}

// printTerms renders the query and candidate table.
func printTerms(query, source string, terms []types.SearchTerm) {
	fmt.Printf("Query:  %s\n", query)
	fmt.Printf("Source: %s\n\n", source)

	fmt.Fprintf(os.Stdout, "%-3s  %-25s  %-12s  %-8s  %s\n",
		"Sel", "Term", "Kind", "Priority", "Provenance")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 66))
	for _, t := range terms {
		mark := " "
		if t.Selected {
			mark = "x"
		}
		text := t.Text
		if len(text) > 25 {
			text = text[:22] + "..."
		}
		fmt.Fprintf(os.Stdout, "[%s]  %-25s  %-12s  %-8d  %s\n",
			mark, text, t.Kind, t.Priority, t.Provenance)
	}
}

func init() {
	addItemFlags(termsGenerateCmd)

	termsSelectCmd.Flags().String("terms", "", "comma-separated list of terms that should be checked")
	termsSelectCmd.Flags().String("toggle", "", "the single term whose checkbox this action flips")

	termsCmd.AddCommand(termsGenerateCmd)
	termsCmd.AddCommand(termsShowCmd)
	termsCmd.AddCommand(termsSelectCmd)
	termsCmd.AddCommand(termsClearCmd)
	rootCmd.AddCommand(termsCmd)
}
