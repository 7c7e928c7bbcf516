package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ajranjith/uiaudit/internal/auditerr"
	"github.com/ajranjith/uiaudit/internal/config"
	"github.com/ajranjith/uiaudit/internal/support"
)

const initHeader = "# uiaudit configuration. Every key is optional; omitted keys keep their defaults.\n"

func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter " + config.DiscoveryNames[0] + " with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := filepath.Abs(opts.root)
			if err != nil {
				return auditerr.Configuration("root", "invalid root %q: %w", opts.root, err)
			}
			path, err := writeStarterConfig(root, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	return cmd
}

// writeStarterConfig renders the defaults as YAML into root. An existing discovered config
// is left alone unless force is set.
func writeStarterConfig(root string, force bool) (string, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return "", auditerr.Configuration("init", "root %s does not exist", root)
	}
	if existing := config.Discover(root); existing != "" && !force {
		return "", auditerr.Configuration("init", "%s already exists (use --force to overwrite)", existing)
	}
	path := filepath.Join(root, config.DiscoveryNames[0])

	cfg := config.Default()
	enabled := true
	cfg.Cache.Enabled = &enabled
	cfg.History.Enabled = &enabled
	cfg.Cache.Dir = filepath.ToSlash(cfg.Cache.Dir)

	var buf bytes.Buffer
	buf.WriteString(initHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	if err := support.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}
