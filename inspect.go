package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ajranjith/uiaudit/internal/cache"
	"github.com/ajranjith/uiaudit/internal/history"
	"github.com/ajranjith/uiaudit/internal/rules"
)

// ruleRow is one line of the rule listing.
type ruleRow struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Origin   string `json:"origin"`
	Fixable  bool   `json:"fixable"`
	Project  bool   `json:"project,omitempty"`
	Message  string `json:"message"`
}

func newRulesCmd(opts *rootOptions) *cobra.Command {
	var category string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the registered rules with their effective severity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rows := a.ruleRows(category)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			for _, r := range rows {
				fix := ""
				if r.Fixable {
					fix = " [fix]"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-32s %-16s %-7s %-10s %s%s\n", r.ID, r.Category, r.Severity, r.Origin, r.Message, fix)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rules\n", len(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list rules of this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the listing as JSON")
	return cmd
}

// ruleRows lists file rules and project checks sorted by category then ID.
func (a *app) ruleRows(category string) []ruleRow {
	overrides := a.cfg.Overrides()
	fixers := a.reg.Fixers()
	rows := []ruleRow{}
	add := func(row ruleRow) {
		if category != "" && row.Category != category {
			return
		}
		_, row.Fixable = fixers[row.ID]
		if row.Origin == "" {
			row.Origin = rules.OriginBuiltin
		}
		rows = append(rows, row)
	}
	for _, r := range a.reg.Rules() {
		sev, _ := rules.Effective(r.ID, r.Severity, r.Options, overrides)
		add(ruleRow{ID: r.ID, Category: r.Category, Severity: string(sev), Origin: r.Origin, Message: r.Message})
	}
	for _, c := range a.reg.Checks() {
		sev, _ := rules.Effective(c.ID, c.Severity, nil, overrides)
		add(ruleRow{ID: c.ID, Category: c.Category, Severity: string(sev), Origin: c.Origin, Project: true, Message: c.Message})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

type cacheReport struct {
	Dir     string              `json:"dir"`
	Enabled bool                `json:"enabled"`
	Cleanup cache.CleanupResult `json:"cleanup"`
}

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}
	var asJSON bool
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Prune stale entries and report what is left",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rep := cacheReport{Dir: a.cache.Dir(), Enabled: a.cache.Enabled(), Cleanup: a.cache.Cleanup()}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Cache: %s (enabled: %t)\n", rep.Dir, rep.Enabled)
			fmt.Fprintf(w, "Entries: %d  Size: %d bytes\n", rep.Cleanup.Entries, rep.Cleanup.Size)
			fmt.Fprintf(w, "Pruned: %d expired, %d evicted, %d bytes freed\n", rep.Cleanup.Expired, rep.Cleanup.Evicted, rep.Cleanup.Freed)
			return nil
		},
	}
	stats.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	clean := &cobra.Command{
		Use:   "clean",
		Short: "Delete every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := a.cache.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", a.cache.Dir())
			return nil
		},
	}
	cmd.AddCommand(stats, clean)
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := store.List(limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), runs)
			}
			printHistory(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the runs as JSON")
	return cmd
}

func printHistory(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-6s %-8s %3d %s  %d issues (%d critical)  %s\n",
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), r.Command, r.Commit, r.Overall, r.Grade, r.Issues, r.Critical, r.Status)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
