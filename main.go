// uiaudit audits Next.js, shadcn/ui and Tailwind projects for accessibility, styling,
// component, framework, performance, TypeScript, security and maintainability problems,
// grades the result and can fix the mechanical ones.
//
// Commands:
//
//	scan          Scan the project and write results under the output directory
//	grade         Grade the last scan result (or scan first when there is none)
//	fix           Apply the registered fixers to the issues of a fresh scan
//	rollback      Restore the files backed up by the last fix
//	watch         Rescan on file changes
//	rules         List the registered rules
//	cache         Inspect or clear the result cache
//	history       Show recorded runs
//	doctor        Check project prerequisites
//	init          Write a starter configuration file
//	bundle        Zip the output directory for a support request
//	mcp serve     Serve the audit tools over MCP (JSON-RPC 2.0 on stdio)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ajranjith/uiaudit/internal/auditerr"
)

// Version information (set at build time)
var (
	Version   = "0.4.0"
	BuildDate = "unknown"
)

// errThreshold marks a run whose score is below the configured threshold in strict mode.
var errThreshold = errors.New("score below threshold")

type rootOptions struct {
	configPath string
	root       string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCmd(os.Stdout, os.Stderr)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "uiaudit",
		Short:         "Audit and grade Next.js / shadcn / Tailwind projects",
		Version:       fmt.Sprintf("%s (built %s, %s)", Version, BuildDate, runtime.Version()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: discovered in the project root)")
	root.PersistentFlags().StringVar(&opts.root, "root", ".", "project root")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newScanCmd(opts),
		newGradeCmd(opts),
		newFixCmd(opts),
		newRollbackCmd(opts),
		newWatchCmd(opts),
		newRulesCmd(opts),
		newCacheCmd(opts),
		newHistoryCmd(opts),
		newDoctorCmd(opts),
		newInitCmd(opts),
		newBundleCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "uiaudit %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Build date: %s\n", BuildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// exitCode prints err once and maps it to a process exit status: 1 for a failed threshold,
// 2 for configuration problems and 3 for everything else.
func exitCode(err error, w io.Writer) int {
	red := color.New(color.FgRed, color.Bold)
	if errors.Is(err, errThreshold) {
		red.Fprintf(w, "FAIL: %v\n", err)
		return 1
	}
	var ae *auditerr.Error
	if errors.As(err, &ae) {
		red.Fprintf(w, "ERROR: %s\n", describe(ae))
	} else {
		red.Fprintf(w, "ERROR: %v\n", err)
	}
	if errors.Is(err, auditerr.ErrConfiguration) {
		return 2
	}
	return 3
}

// describe renders an audit error with its context on separate lines.
func describe(e *auditerr.Error) string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %v", k, e.Context[k])
	}
	return b.String()
}

func warn(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(w, "WARNING: "+format+"\n", args...)
}
