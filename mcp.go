package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajranjith/uiaudit/internal/mcpio"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol integration",
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the audit tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := newMCPServer(opts, cmd.ErrOrStderr())
			return srv.Serve(cmd.Context(), os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(serve)
	return cmd
}

// newMCPServer exposes the audit operations as MCP tools. Every tool accepts an optional
// root that replaces the --root flag for that call. Nothing but protocol frames may reach
// stdout, so command output is discarded and diagnostics go to stderr.
func newMCPServer(opts *rootOptions, stderr io.Writer) *mcpio.Server {
	load := func(args map[string]interface{}) (*app, error) {
		o := *opts
		if root := mcpio.StringArg(args, "root"); root != "" {
			o.root = root
		}
		return loadApp(&o, io.Discard, stderr)
	}
	rootOnly := mcpio.ObjectSchema(map[string]string{"root": "project root (default: the server's --root)"})

	srv := mcpio.NewServer("uiaudit", Version, nil)
	srv.AddTool(mcpio.Tool{
		Name:        "audit_scan",
		Description: "Scan a project, grade it and write the result files",
		InputSchema: rootOnly,
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			a, err := load(args)
			if err != nil {
				return nil, err
			}
			r, err := a.scanAndGrade(ctx, partitionFlags{})
			if err != nil {
				return nil, err
			}
			a.writeOutputs(r)
			a.record("mcp", r)
			return r.audit(a.cfg.Output.Threshold), nil
		},
	})
	srv.AddTool(mcpio.Tool{
		Name:        "audit_grade",
		Description: "Return the grade report of a fresh scan",
		InputSchema: rootOnly,
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			a, err := load(args)
			if err != nil {
				return nil, err
			}
			r, err := a.scanAndGrade(ctx, partitionFlags{})
			if err != nil {
				return nil, err
			}
			return r.grade, nil
		},
	})
	srv.AddTool(mcpio.Tool{
		Name:        "audit_fix",
		Description: "Apply the registered fixers; dryRun plans without writing",
		InputSchema: mcpio.ObjectSchema(map[string]string{
			"root":   "project root (default: the server's --root)",
			"dryRun": "\"true\" to plan without writing",
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			a, err := load(args)
			if err != nil {
				return nil, err
			}
			sum, _, err := a.fix(ctx, fixFlags{
				dryRun:   mcpio.BoolArg(args, "dryRun"),
				backup:   a.cfg.Fix.Backup,
				parallel: a.cfg.Fix.Parallel,
			})
			if err != nil {
				return nil, err
			}
			return sum, nil
		},
	})
	srv.AddTool(mcpio.Tool{
		Name:        "audit_rules",
		Description: "List the registered rules with their effective severity",
		InputSchema: mcpio.ObjectSchema(map[string]string{
			"root":     "project root (default: the server's --root)",
			"category": "only list rules of this category",
		}),
		Handler: func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			a, err := load(args)
			if err != nil {
				return nil, err
			}
			return a.ruleRows(mcpio.StringArg(args, "category")), nil
		},
	})
	srv.AddTool(mcpio.Tool{
		Name:        "cache_stats",
		Description: "Prune stale cache entries and report what is left",
		InputSchema: rootOnly,
		Handler: func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			a, err := load(args)
			if err != nil {
				return nil, err
			}
			return cacheReport{Dir: a.cache.Dir(), Enabled: a.cache.Enabled(), Cleanup: a.cache.Cleanup()}, nil
		},
	})
	return srv
}
