package main

import (
	"fmt"
	"os"

	"github.com/aretw0/transferdesk/internal/config"
	"github.com/spf13/cobra"
)

// cfg is resolved once per invocation by the root command.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "transferdesk",
	Short:         "Transferdesk is an admin console for transfer-account platforms",
	Long:          `Transferdesk logs an administrator into the platform API and manages users and transfer accounts from the terminal or over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		envFile, _ := cmd.Flags().GetString("env-file")
		loaded, err := config.Load(path, envFile)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("api-url") {
			loaded.API.BaseURL, _ = flags.GetString("api-url")
		}
		if flags.Changed("tokens") {
			loaded.Tokens.Backend, _ = flags.GetString("tokens")
		}
		if flags.Changed("log-level") {
			loaded.Log.Level, _ = flags.GetString("log-level")
		}
		if flags.Changed("log-format") {
			loaded.Log.Format, _ = flags.GetString("log-format")
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default "+config.DefaultPath+" if present)")
	pf.String("env-file", ".env", "Dotenv file loaded before reading the environment")
	pf.String("api-url", "", "Platform API base URL")
	pf.String("tokens", "", "Token storage backend: memory, file or redis")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text or json")
	pf.Bool("plain", false, "Print raw markdown instead of styled output")
}
