package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ajranjith/uiaudit/internal/plugin"
	"github.com/ajranjith/uiaudit/internal/rules"
	"github.com/ajranjith/uiaudit/internal/support"
)

type doctorReport struct {
	GeneratedAtUtc string        `json:"generatedAtUtc"`
	RepoRoot       string        `json:"repoRoot"`
	ConfigPath     string        `json:"configPath,omitempty"`
	Checks         []doctorCheck `json:"checks"`
	Plugins        []plugin.Info `json:"plugins"`
	Status         string        `json:"status"`
	Reasons        []string      `json:"reasons,omitempty"`
}

type doctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

type packageDeps struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the project and the tool setup are ready for an audit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rep := a.doctor()
			if err := support.WriteJSONAtomic(a.outputPath(doctorFile), rep); err != nil {
				warn(a.stderr, "write %s: %v", doctorFile, err)
			}
			if asJSON {
				data, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			printDoctor(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func (a *app) doctor() doctorReport {
	var checks []doctorCheck
	add := func(name string, ok bool, detail string) {
		checks = append(checks, doctorCheck{Name: name, OK: ok, Detail: detail})
	}

	var deps packageDeps
	data, err := os.ReadFile(filepath.Join(a.root, "package.json"))
	switch {
	case err != nil:
		add("package.json", false, "not found")
	case json.Unmarshal(data, &deps) != nil:
		add("package.json", false, "not valid JSON")
	default:
		add("package.json", true, "")
		version, ok := deps.Dependencies["next"]
		if !ok {
			version, ok = deps.DevDependencies["next"]
		}
		if ok {
			add("next dependency", true, version)
		} else {
			add("next dependency", false, "next is not declared")
		}
	}

	tailwind := ""
	for _, name := range []string{"tailwind.config.ts", "tailwind.config.js", "tailwind.config.mjs", "tailwind.config.cjs"} {
		if _, err := os.Stat(filepath.Join(a.root, name)); err == nil {
			tailwind = name
			break
		}
	}
	add("tailwind config", tailwind != "", tailwind)

	issues, errs := rules.RunChecks(a.root, a.reg.Checks(), a.cfg.Overrides())
	for _, is := range issues {
		add(is.RuleID, false, is.Message)
	}
	for _, err := range errs {
		add("project checks", false, err.Error())
	}
	if len(issues) == 0 && len(errs) == 0 {
		add("project structure", true, "")
	}

	add("output directory", writableDir(a.outputDir()) == nil, a.outputDir())
	for _, ref := range a.cfg.Plugins {
		path, err := plugin.Resolve(a.root, ref.Name)
		if err != nil {
			add("plugin "+ref.Name, false, err.Error())
			continue
		}
		add("plugin "+ref.Name, true, path)
	}

	rep := doctorReport{
		GeneratedAtUtc: time.Now().UTC().Format(time.RFC3339),
		RepoRoot:       a.root,
		ConfigPath:     a.cfgPath,
		Checks:         checks,
		Plugins:        a.reg.Plugins(),
		Status:         "OK",
	}
	for _, c := range checks {
		if !c.OK {
			rep.Status = "DEGRADED"
			rep.Reasons = append(rep.Reasons, c.Name)
		}
	}
	return rep
}

// writableDir creates dir if needed and proves a file can be written in it.
func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func printDoctor(w io.Writer, rep doctorReport) {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	for _, c := range rep.Checks {
		mark := ok.Sprint("ok  ")
		if !c.OK {
			mark = bad.Sprint("FAIL")
		}
		if c.Detail != "" {
			fmt.Fprintf(w, "%s %s (%s)\n", mark, c.Name, c.Detail)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, c.Name)
		}
	}
	for _, p := range rep.Plugins {
		state := "enabled"
		if !p.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(w, "plugin %s %s: %d rules, %d fixers (%s)\n", p.Name, p.Version, p.Rules, p.Fixers, state)
	}
	fmt.Fprintf(w, "Status: %s\n", rep.Status)
}
