package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/fixer"
	"github.com/ajranjith/uiaudit/internal/support"
)

const rollbackLogFile = "rollback.log"

type rollbackEntry struct {
	TimestampUtc string   `json:"timestampUtc"`
	Restored     []string `json:"restored"`
	Result       string   `json:"result"`
	Message      string   `json:"message,omitempty"`
}

func newRollbackCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Restore the files backed up by the last fix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			restored, err := a.rollback()
			for _, f := range restored {
				fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", f)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d files\n", len(restored))
			return nil
		},
	}
}

// rollback restores the backups listed in the last applied fix summary and retires it.
func (a *app) rollback() ([]string, error) {
	applyPath := a.outputPath(fixApplyFile)
	data, err := os.ReadFile(applyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, auditerr.Fix("rollback", errors.New("no applied fix to roll back")).With("path", applyPath)
	}
	if err != nil {
		return nil, auditerr.Fix("rollback", err)
	}
	var sum fixer.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, auditerr.Fix("rollback", fmt.Errorf("parse %s: %w", fixApplyFile, err))
	}

	restored, rbErr := fixer.Rollback(a.root, &sum)
	entry := rollbackEntry{Restored: restored, Result: "PASS"}
	if rbErr != nil {
		entry.Result = "FAIL"
		entry.Message = rbErr.Error()
	} else {
		_ = os.Remove(applyPath)
	}
	if err := a.appendRollbackLog(entry); err != nil {
		a.log.Warn("rollback log append failed", "err", err)
	}
	audit := support.AuditEntry{Command: "rollback", Root: a.root, Files: len(restored), Result: entry.Result}
	if err := support.AppendAudit(a.outputDir(), audit); err != nil {
		a.log.Warn("audit log append failed", "err", err)
	}
	return restored, rbErr
}

func (a *app) appendRollbackLog(entry rollbackEntry) error {
	entry.TimestampUtc = time.Now().UTC().Format(time.RFC3339)
	if entry.Restored == nil {
		entry.Restored = []string{}
	}
	path := filepath.Join(a.outputDir(), rollbackLogFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}
