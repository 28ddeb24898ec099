package launchpad

import (
	"fmt"

	"github.com/railwayapp/launchpad/internal/config"
	"github.com/railwayapp/launchpad/internal/migrations"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env [source-path]",
	Short: "Print the runtime configuration the application would start with",
	Long: `Env resolves the runtime configuration the way start does (process
environment over .env files) and prints it. Secrets are redacted unless
--show-secrets is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showSecrets, _ := cmd.Flags().GetBool("show-secrets")
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.close()

		r, err := a.loadRecipe()
		if err != nil {
			return err
		}
		cfg, err := a.runtimeConfig(r)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		source := "env"
		if cfg.PortIsDefault() {
			source = "default"
		}
		fmt.Fprintf(out, "listen: %s (%s from %s)\n", cfg.Addr(), cfg.PortVariable(), source)
		if url, err := cfg.DatabaseURL(); err == nil {
			if !showSecrets {
				url = migrations.Redact(url)
			}
			fmt.Fprintf(out, "database: %s\n", url)
		}
		fmt.Fprintln(out)

		for _, name := range cfg.Names() {
			value, _ := cfg.Get(name)
			kind, _ := config.Classify(name, value)
			if kind == config.KindSystem && !all {
				continue
			}
			fmt.Fprintf(out, "%s=%s\n", name, redactValue(name, value, showSecrets))
		}
		return nil
	},
}

func redactValue(name, value string, show bool) string {
	if show {
		return value
	}
	return config.Redact(name, value)
}

func init() {
	envCmd.Flags().Bool("show-secrets", false, "print secret values instead of redacting them")
	envCmd.Flags().Bool("all", false, "include system variables such as PATH and HOME")
	rootCmd.AddCommand(envCmd)
}
