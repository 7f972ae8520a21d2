package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toolbelt-labs/toolbelt/pkg/logger"
	"github.com/toolbelt-labs/toolbelt/pkg/presenter"
	"github.com/toolbelt-labs/toolbelt/pkg/version"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("TOOLBELT")
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.toolbelt")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "toolbelt",
	Short: "Project toolbelt for package manager resolution and host integration",
	Long: `Toolbelt figures out which JavaScript package manager a project uses,
serves the host's lifecycle hooks, lints the customization corpus and keeps
a journal of host sessions.`,
	Version: version.Get().String(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if level := viper.GetString("log_level"); level != "" {
			if err := logger.SetLogLevel(level); err != nil {
				presenter.Warning(fmt.Sprintf("Invalid log level %q, keeping the default", level))
			}
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		if viper.GetBool("quiet") {
			presenter.SetQuiet(true)
		}
	},
	// Default behavior is to show help if no subcommand is provided
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func main() {
	// Add global flags
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress non-essential output")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))

	// Add subcommands
	rootCmd.AddCommand(pmCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(versionCmd)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
