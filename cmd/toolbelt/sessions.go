package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/toolbelt-labs/toolbelt/pkg/sessions"
)

// SessionListConfig holds configuration for the sessions list command
type SessionListConfig struct {
	Limit      int
	JSONOutput bool
}

// NewSessionListConfig creates a new SessionListConfig with default values
func NewSessionListConfig() *SessionListConfig {
	return &SessionListConfig{
		Limit:      20,
		JSONOutput: false,
	}
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect the host session journal",
	Long:  `Commands for listing and inspecting sessions recorded by the lifecycle hooks.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		config := getSessionListConfigFromFlags(cmd)

		store, err := sessions.OpenDefault(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to open session journal")
		}
		defer store.Close()

		list, err := store.List(ctx, config.Limit)
		if err != nil {
			return errors.Wrap(err, "failed to list sessions")
		}

		if config.JSONOutput {
			return renderJSON(cmd.OutOrStdout(), list)
		}
		return renderSessionTable(cmd.OutOrStdout(), list)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [sessionID]",
	Short: "Show one session with its events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := sessions.OpenDefault(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to open session journal")
		}
		defer store.Close()

		sess, err := store.Get(ctx, args[0])
		if err != nil {
			if errors.Is(err, sessions.ErrNotFound) {
				return errors.Errorf("no session with id %q", args[0])
			}
			return errors.Wrap(err, "failed to load session")
		}
		events, err := store.Events(ctx, args[0])
		if err != nil {
			return errors.Wrap(err, "failed to load session events")
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return renderJSON(cmd.OutOrStdout(), struct {
				Session *sessions.Session `json:"session"`
				Events  []sessions.Event  `json:"events"`
			}{sess, events})
		}
		return renderSession(cmd.OutOrStdout(), sess, events)
	},
}

func init() {
	listDefaults := NewSessionListConfig()
	sessionsListCmd.Flags().Int("limit", listDefaults.Limit, "Maximum number of sessions to display (0 for all)")
	sessionsListCmd.Flags().Bool("json", listDefaults.JSONOutput, "Output in JSON format")

	sessionsShowCmd.Flags().Bool("json", false, "Output in JSON format")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}

// getSessionListConfigFromFlags extracts list configuration from command flags
func getSessionListConfigFromFlags(cmd *cobra.Command) *SessionListConfig {
	config := NewSessionListConfig()

	if limit, err := cmd.Flags().GetInt("limit"); err == nil {
		config.Limit = limit
	}
	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSONOutput = jsonOut
	}

	return config
}

func renderJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to render JSON output")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func renderSessionTable(w io.Writer, list []sessions.Session) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tENDED\tSOURCE\tPACKAGE MANAGER\tCWD")
	for _, sess := range list {
		ended := "active"
		if sess.EndedAt != nil {
			ended = sess.EndedAt.Format(time.RFC3339)
			if sess.EndReason != nil {
				ended = fmt.Sprintf("%s (%s)", ended, *sess.EndReason)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			sess.ID,
			sess.StartedAt.Format(time.RFC3339),
			ended,
			sess.Source,
			formatManager(&sess),
			sess.CWD,
		)
	}
	return tw.Flush()
}

func renderSession(w io.Writer, sess *sessions.Session, events []sessions.Event) error {
	fmt.Fprintf(w, "ID:              %s\n", sess.ID)
	fmt.Fprintf(w, "Started:         %s\n", sess.StartedAt.Format(time.RFC3339))
	if sess.EndedAt != nil {
		fmt.Fprintf(w, "Ended:           %s\n", sess.EndedAt.Format(time.RFC3339))
	} else {
		fmt.Fprintf(w, "Ended:           active\n")
	}
	if sess.EndReason != nil {
		fmt.Fprintf(w, "End reason:      %s\n", *sess.EndReason)
	}
	fmt.Fprintf(w, "Source:          %s\n", sess.Source)
	fmt.Fprintf(w, "Package manager: %s\n", formatManager(sess))
	fmt.Fprintf(w, "CWD:             %s\n", sess.CWD)

	if len(events) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tDETAIL")
	for _, event := range events {
		detail := ""
		if event.Detail != nil {
			detail = *event.Detail
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", event.CreatedAt.Format(time.RFC3339), event.Name, detail)
	}
	return tw.Flush()
}

func formatManager(sess *sessions.Session) string {
	if sess.PackageManager == nil {
		return "-"
	}
	if sess.PMSource != nil {
		return fmt.Sprintf("%s (%s)", *sess.PackageManager, *sess.PMSource)
	}
	return *sess.PackageManager
}
