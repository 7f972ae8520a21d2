package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/toolbelt-labs/toolbelt/pkg/lifecycle"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Host lifecycle hook entry points",
	Long: `Subcommands the host invokes on lifecycle events. Each reads one JSON
payload from stdin and writes a JSON result to stdout. Wire them up in the
host's settings.json, for example:

  {"hooks": {"SessionStart": [{"hooks": [{"type": "command", "command": "toolbelt hook session-start"}]}]}}`,
}

var hookSessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Handle a session start event",
	Long: `Resolves the project's package manager and returns context lines for
the host to inject into the new session. The session is recorded in the
journal. A failed resolution is not an error, the session simply starts
without package manager context.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var payload lifecycle.SessionStartPayload
		if err := decodeHookPayload(cmd.InOrStdin(), &payload); err != nil {
			return err
		}
		result, err := lifecycle.NewRunner().SessionStart(cmd.Context(), payload)
		if err != nil {
			return err
		}
		return writeHookResult(cmd.OutOrStdout(), result)
	},
}

var hookSessionEndCmd = &cobra.Command{
	Use:   "session-end",
	Short: "Handle a session end event",
	Long:  `Closes the session's journal row with the reason the host reported.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var payload lifecycle.SessionEndPayload
		if err := decodeHookPayload(cmd.InOrStdin(), &payload); err != nil {
			return err
		}
		result, err := lifecycle.NewRunner().SessionEnd(cmd.Context(), payload)
		if err != nil {
			return err
		}
		return writeHookResult(cmd.OutOrStdout(), result)
	},
}

var hookPreCompactCmd = &cobra.Command{
	Use:   "pre-compact",
	Short: "Handle a pre-compaction event",
	Long: `Snapshots session state to .toolbelt/session-state.json and journals
the compaction, so a post-compaction session can re-prime itself.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var payload lifecycle.PreCompactPayload
		if err := decodeHookPayload(cmd.InOrStdin(), &payload); err != nil {
			return err
		}
		result, err := lifecycle.NewRunner().PreCompact(cmd.Context(), payload)
		if err != nil {
			return err
		}
		return writeHookResult(cmd.OutOrStdout(), result)
	},
}

func init() {
	hookCmd.AddCommand(hookSessionStartCmd)
	hookCmd.AddCommand(hookSessionEndCmd)
	hookCmd.AddCommand(hookPreCompactCmd)
}

// decodeHookPayload reads the single JSON payload the host writes to the
// hook's stdin. A malformed payload is a hard error so the host surfaces it.
func decodeHookPayload(r io.Reader, v interface{}) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode hook payload")
	}
	return nil
}

func writeHookResult(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode hook result")
	}
	return nil
}
