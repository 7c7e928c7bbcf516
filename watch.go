package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ajranjith/uiaudit/internal/report"
	"github.com/ajranjith/uiaudit/internal/scanner"
)

const watchDebounce = 300 * time.Millisecond

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan and regrade whenever a project file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return a.watch(cmd.Context(), debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watchDebounce, "quiet period before a rescan")
	return cmd
}

// watch scans once, then rescans after every burst of file events until ctx is done.
func (a *app) watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	sc := a.newScanner()
	if err := addWatchRecursive(watcher, a.root, a.root, sc); err != nil {
		return err
	}

	trigger := make(chan struct{}, 1)
	var timer *time.Timer
	fire := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}
	a.watchPass(ctx)
	a.log.Info("watching", "root", a.root)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(a.root, ev.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if sc.SkipDir(rel) || underSkipped(sc, rel) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addWatchRecursive(watcher, a.root, ev.Name, sc); err != nil {
						a.log.Warn("watch add failed", "path", ev.Name, "err", err)
					}
				}
			}
			a.log.Debug("change", "path", rel, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, fire)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			warn(a.stderr, "watch error: %v", err)
		case <-trigger:
			a.watchPass(ctx)
		}
	}
}

// watchPass runs one scan, writes the outputs and prints the summary line.
func (a *app) watchPass(ctx context.Context) {
	r, err := a.scanAndGrade(ctx, partitionFlags{})
	if err != nil {
		if ctx.Err() == nil {
			warn(a.stderr, "scan failed: %v", err)
		}
		return
	}
	a.writeOutputs(r)
	a.record("watch", r)
	report.Summary(a.stdout, r.audit(a.cfg.Output.Threshold))
}

// underSkipped reports whether any parent directory of rel is pruned.
func underSkipped(sc *scanner.Scanner, rel string) bool {
	for dir := filepath.ToSlash(filepath.Dir(rel)); dir != "." && dir != "/"; dir = filepath.ToSlash(filepath.Dir(dir)) {
		if sc.SkipDir(dir) {
			return true
		}
	}
	return false
}

// addWatchRecursive watches dir and every directory below it that enumeration would visit.
// Paths are matched relative to the project root.
func addWatchRecursive(w *fsnotify.Watcher, root, dir string, sc *scanner.Scanner) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil && sc.SkipDir(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
		}
		return w.Add(path)
	})
}
