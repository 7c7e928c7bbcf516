package main

import (
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/support"
)

type outputFlags struct {
	format    string
	strict    bool
	threshold int
	limit     int
}

func (o *outputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "", "output format: text, json or markdown (default from config)")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "exit with status 1 when the score is below the threshold")
	cmd.Flags().IntVar(&o.threshold, "threshold", -1, "passing score 0..100 (default from config)")
	cmd.Flags().IntVar(&o.limit, "limit", 20, "issues listed per file in text output, 0 for all")
}

// apply folds the flags into the app's configuration.
func (o *outputFlags) apply(a *app) error {
	if o.format != "" {
		if !validFormat(o.format) {
			return auditerr.Configuration("flags", "invalid --format %q (expected text, json or markdown)", o.format)
		}
		a.cfg.Output.Format = o.format
	}
	if o.threshold >= 0 {
		if o.threshold > 100 {
			return auditerr.Configuration("flags", "--threshold %d is outside 0..100", o.threshold)
		}
		a.cfg.Output.Threshold = o.threshold
	}
	return nil
}

func validFormat(f string) bool {
	return f == "text" || f == "json" || f == "markdown"
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var out outputFlags
	var parts partitionFlags
	var noCache bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the project, grade it and write the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := out.apply(a); err != nil {
				return err
			}
			if noCache {
				a.cfg.Cache.Enabled = new(bool)
				a.cache = nil
			}
			r, err := a.scanAndGrade(cmd.Context(), parts)
			if err != nil {
				return err
			}
			a.writeOutputs(r)
			a.record("scan", r)
			if err := a.render(cmd.OutOrStdout(), r, a.cfg.Output.Format, out.limit); err != nil {
				return err
			}
			if a.cache != nil && a.cache.Enabled() {
				st := a.cache.Stats()
				a.log.Debug("cache", "hits", st.Hits, "misses", st.Misses, "writes", st.Writes, "errors", st.Errors)
			}
			return a.checkThreshold(r, out.strict)
		},
	}
	out.bind(cmd)
	cmd.Flags().StringVar(&parts.eslint, "eslint", "", "merge an ESLint JSON report into the grade")
	cmd.Flags().StringVar(&parts.lighthouse, "lighthouse", "", "merge a Lighthouse JSON report into the grade")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore and do not update the result cache")
	return cmd
}

func newGradeCmd(opts *rootOptions) *cobra.Command {
	var out outputFlags
	var input string
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade the last scan result, scanning first when there is none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := out.apply(a); err != nil {
				return err
			}
			path := input
			if path == "" {
				path = a.outputPath(scanResultFile)
			}
			r, err := a.loadRun(cmd.Context(), path)
			if errors.Is(err, fs.ErrNotExist) && input == "" {
				a.log.Info("no previous scan result, scanning", "path", path)
				r, err = a.scanAndGrade(cmd.Context(), partitionFlags{})
				if err == nil {
					a.writeOutputs(r)
				}
			}
			if err != nil {
				return err
			}
			if err := support.WriteJSONAtomic(a.outputPath(gradeReportFile), r.grade); err != nil {
				warn(a.stderr, "write %s: %v", gradeReportFile, err)
			}
			a.record("grade", r)
			if err := a.render(cmd.OutOrStdout(), r, a.cfg.Output.Format, out.limit); err != nil {
				return err
			}
			return a.checkThreshold(r, out.strict)
		},
	}
	out.bind(cmd)
	cmd.Flags().StringVar(&input, "input", "", "scan result to grade (default: <outputDir>/"+scanResultFile+")")
	return cmd
}
