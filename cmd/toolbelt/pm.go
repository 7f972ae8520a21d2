package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/toolbelt-labs/toolbelt/pkg/pm"
	"github.com/toolbelt-labs/toolbelt/pkg/presenter"
)

// managerValue is a pflag.Value that only accepts the known package
// managers, so a bad name fails at flag parse time before any file is
// touched.
type managerValue struct {
	manager pm.Manager
	set     bool
}

var _ pflag.Value = (*managerValue)(nil)

func (v *managerValue) String() string {
	if !v.set {
		return ""
	}
	return string(v.manager)
}

func (v *managerValue) Set(s string) error {
	m, err := pm.Parse(s)
	if err != nil {
		return errors.Errorf("invalid package manager %q, valid choices: %s", s, managerNames())
	}
	v.manager = m
	v.set = true
	return nil
}

func (v *managerValue) Type() string {
	return "manager"
}

func managerNames() string {
	names := make([]string, len(pm.Managers))
	for i, m := range pm.Managers {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

var (
	pmProjectFlag managerValue
	pmGlobalFlag  managerValue
)

var pmCmd = &cobra.Command{
	Use:   "pm",
	Short: "Inspect or set the project's package manager",
	Long: `Shows where the package manager decision comes from, or records a
preference at project or global scope.

Resolution consults, in order: the TOOLBELT_PACKAGE_MANAGER environment
variable, the project preference, the package.json packageManager field,
lock files at the project root, the global preference and finally the PATH.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		detect, _ := cmd.Flags().GetBool("detect")
		jsonOut, _ := cmd.Flags().GetBool("json")

		cwd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "failed to determine working directory")
		}

		switch {
		case pmProjectFlag.set:
			return setPreference(pm.ScopeProject, cwd, pmProjectFlag.manager)
		case pmGlobalFlag.set:
			return setPreference(pm.ScopeGlobal, cwd, pmGlobalFlag.manager)
		case detect:
			return runDetect(cmd.OutOrStdout(), cwd, jsonOut)
		default:
			return errors.New("nothing to do, pass --project, --global or --detect")
		}
	},
}

func init() {
	pmCmd.Flags().Var(&pmProjectFlag, "project", "Record the project-scope package manager preference")
	pmCmd.Flags().Var(&pmGlobalFlag, "global", "Record the global-scope package manager preference")
	pmCmd.Flags().Bool("detect", false, "Report every resolution source and the winner")
	pmCmd.Flags().Bool("json", false, "Output the detect report in JSON format")
	pmCmd.MarkFlagsMutuallyExclusive("project", "global", "detect")
}

func setPreference(scope pm.Scope, cwd string, manager pm.Manager) error {
	path, err := pm.PreferencePath(scope, cwd)
	if err != nil {
		return errors.Wrap(err, "failed to locate preference file")
	}
	if err := pm.SetPreference(path, manager); err != nil {
		return errors.Wrapf(err, "failed to set %s preference", scope)
	}
	presenter.Success(fmt.Sprintf("Set %s package manager to %s (%s)", scope, manager, path))
	return nil
}

func runDetect(w io.Writer, cwd string, jsonOut bool) error {
	report := pm.NewResolver(cwd).Detect()

	if jsonOut {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to render report")
		}
		fmt.Fprintln(w, string(data))
		return nil
	}
	return renderDetectTable(w, report)
}

func renderDetectTable(w io.Writer, report *pm.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tMATCHED\tMANAGER\tVALUE")
	for _, src := range report.Sources {
		matched := "no"
		if src.Matched {
			matched = "yes"
		}
		value := src.Value
		if src.Detail != "" {
			value = strings.TrimSpace(fmt.Sprintf("%s (%s)", src.Value, src.Detail))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", src.Source, matched, src.Manager, value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if report.Resolved() {
		fmt.Fprintf(w, "\nwinner: %s (source: %s)\n", report.Winner, report.WinningSource)
	} else {
		fmt.Fprintln(w, "\nwinner: none, no package manager available")
	}
	return nil
}
