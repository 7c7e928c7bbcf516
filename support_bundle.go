package main

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajranjith/uiaudit/internal/support"
)

// bundleFiles are the output files collected into a support bundle when present.
var bundleFiles = []string{
	scanResultFile,
	gradeReportFile,
	reportMarkdown,
	sarifFile,
	junitFile,
	doctorFile,
	fixPlanFile,
	fixPatchFile,
	fixReportFile,
	fixApplyFile,
	rollbackLogFile,
	support.AuditLogName,
}

func newBundleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bundle",
		Short: "Zip the output files and the configuration for a support request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			path, n, err := a.supportBundle(time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d files)\n", path, n)
			return nil
		},
	}
}

// supportBundle writes <outputDir>/support-bundle_<ts>.zip and returns its path and the
// number of files it holds.
func (a *app) supportBundle(now time.Time) (string, int, error) {
	name := fmt.Sprintf("support-bundle_%s.zip", now.UTC().Format("20060102_150405"))
	outPath := a.outputPath(name)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", 0, err
	}

	type item struct{ path, name string }
	var items []item
	for _, rel := range bundleFiles {
		items = append(items, item{a.outputPath(rel), rel})
	}
	if a.cfgPath != "" {
		items = append(items, item{a.cfgPath, "config/" + filepath.Base(a.cfgPath)})
	}

	tmpPath := fmt.Sprintf("%s.tmp.%d", outPath, os.Getpid())
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, err
	}
	zipw := zip.NewWriter(f)
	count := 0
	for _, it := range items {
		if _, err := os.Stat(it.path); err != nil {
			continue
		}
		if err := addFileToZip(zipw, it.path, it.name); err != nil {
			_ = zipw.Close()
			_ = f.Close()
			_ = os.Remove(tmpPath)
			return "", 0, err
		}
		count++
	}
	if err := zipw.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, err
	}
	_ = os.Remove(outPath)
	if err := os.Rename(tmpPath, outPath); err != nil {
		return "", 0, err
	}
	a.log.Info("support bundle written", "path", outPath, "files", count)
	return outPath, count, nil
}

func addFileToZip(zipw *zip.Writer, path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	w, err := zipw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
