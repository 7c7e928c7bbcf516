package fixer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/support"
)

// Rollback restores every file of sum that was backed up, then removes the backups.
// It returns the restored paths. Files whose backup is missing are reported in the error
// but do not stop the others.
func Rollback(root string, sum *Summary) ([]string, error) {
	restored := []string{}
	var errs []error
	for _, r := range sum.Results {
		if r.Backup == "" {
			continue
		}
		src := filepath.Join(root, filepath.FromSlash(r.Backup))
		dst := filepath.Join(root, filepath.FromSlash(r.File))
		if err := support.CopyFileAtomic(src, dst); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.File, err))
			continue
		}
		_ = os.Remove(src)
		restored = append(restored, r.File)
	}
	if len(errs) > 0 {
		return restored, auditerr.Fix("rollback", errors.Join(errs...))
	}
	return restored, nil
}
