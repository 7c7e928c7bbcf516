package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/fixer"
	"github.com/ajranjith/uiaudit/internal/rules"
	"github.com/ajranjith/uiaudit/internal/support"
)

type fixFlags struct {
	dryRun   bool
	backup   bool
	parallel bool
	only     []string
}

func newFixCmd(opts *rootOptions) *cobra.Command {
	var ff fixFlags
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Scan the project and apply the registered fixers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := out.apply(a); err != nil {
				return err
			}
			if !cmd.Flags().Changed("backup") {
				ff.backup = a.cfg.Fix.Backup
			}
			if !cmd.Flags().Changed("parallel") {
				ff.parallel = a.cfg.Fix.Parallel
			}
			sum, after, err := a.fix(cmd.Context(), ff)
			if err != nil {
				return err
			}
			printFixSummary(cmd.OutOrStdout(), sum)
			if after == nil {
				return nil
			}
			return a.render(cmd.OutOrStdout(), after, a.cfg.Output.Format, out.limit)
		},
	}
	out.bind(cmd)
	cmd.Flags().BoolVar(&ff.dryRun, "dry-run", false, "plan the fixes without writing any file")
	cmd.Flags().BoolVar(&ff.backup, "backup", false, "keep a "+fixer.BackupSuffix+" copy of every rewritten file (default from config)")
	cmd.Flags().BoolVar(&ff.parallel, "parallel", false, "fix files concurrently (default from config)")
	cmd.Flags().StringSliceVar(&ff.only, "rule", nil, "only apply the fixers of these rule IDs")
	return cmd
}

// fix scans, applies the fixers and, unless dry-running, rescans and grades the fixed tree.
// The returned run is nil for a dry run.
func (a *app) fix(ctx context.Context, ff fixFlags) (*fixer.Summary, *run, error) {
	fixers, err := selectFixers(a.reg.Fixers(), ff.only)
	if err != nil {
		return nil, nil, err
	}
	res, err := a.newScanner().Scan(ctx, a.root)
	if err != nil {
		return nil, nil, err
	}

	fx := fixer.New(fixers, fixer.Options{DryRun: ff.dryRun, Backup: ff.backup, Parallel: ff.parallel}, a.log)
	sum, fixErr := fx.Fix(ctx, a.root, res)
	if sum == nil {
		return nil, nil, fixErr
	}
	a.writeFixOutputs(sum)

	entry := support.AuditEntry{
		Command:    "fix",
		Root:       a.root,
		Files:      sum.TotalFiles,
		FixedFiles: sum.FixedFiles,
		Fixes:      sum.TotalFixes,
		DryRun:     sum.DryRun,
		Result:     "PASS",
	}
	if fixErr != nil {
		entry.Result = "FAIL"
	} else if sum.DryRun {
		entry.Result = "DRY_RUN"
	}
	if err := support.AppendAudit(a.outputDir(), entry); err != nil {
		a.log.Warn("audit log append failed", "err", err)
	}
	if fixErr != nil || sum.DryRun {
		return sum, nil, fixErr
	}

	after, err := a.scanAndGrade(ctx, partitionFlags{})
	if err != nil {
		return sum, nil, err
	}
	a.writeOutputs(after)
	a.record("fix", after)
	return sum, after, nil
}

// selectFixers narrows the registered fixers to the requested rule IDs.
func selectFixers(all map[string]rules.FixFunc, only []string) (map[string]rules.FixFunc, error) {
	if len(only) == 0 {
		return all, nil
	}
	out := make(map[string]rules.FixFunc, len(only))
	for _, id := range only {
		fn, ok := all[id]
		if !ok {
			return nil, auditerr.Configuration("flags", "no fixer registered for rule %q", id)
		}
		out[id] = fn
	}
	return out, nil
}

func (a *app) writeFixOutputs(sum *fixer.Summary) {
	if err := support.WriteJSONAtomic(a.outputPath(fixPlanFile), sum); err != nil {
		warn(a.stderr, "write %s: %v", fixPlanFile, err)
	}
	if err := support.WriteFileAtomic(a.outputPath(fixPatchFile), []byte(fixer.Patch(sum))); err != nil {
		warn(a.stderr, "write %s: %v", fixPatchFile, err)
	}
	if err := support.WriteFileAtomic(a.outputPath(fixReportFile), []byte(fixer.Markdown(sum))); err != nil {
		warn(a.stderr, "write %s: %v", fixReportFile, err)
	}
	if sum.DryRun {
		return
	}
	if err := support.WriteJSONAtomic(a.outputPath(fixApplyFile), sum); err != nil {
		warn(a.stderr, "write %s: %v", fixApplyFile, err)
	}
}

func printFixSummary(w io.Writer, sum *fixer.Summary) {
	verb := "Fixed"
	if sum.DryRun {
		verb = "Would fix"
	}
	fmt.Fprintf(w, "%s %d of %d files (%d fixes, %d skipped)\n", verb, sum.FixedFiles, sum.TotalFiles, sum.TotalFixes, sum.SkippedFiles)
	for _, r := range sum.Results {
		if r.Error != "" {
			fmt.Fprintf(w, "  %s: %s\n", r.File, r.Error)
		}
	}
}
