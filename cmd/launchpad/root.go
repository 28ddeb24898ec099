package launchpad

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/railwayapp/launchpad/internal/shell"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "launchpad",
	Short: "Provision a web application image and bootstrap it at run time",
	Long: `Launchpad runs the bootstrap sequence of a containerized web application:
1. Provision - install OS packages and dependencies, create output directories,
   collect static assets (build time)
2. Migrate - apply pending schema migrations (run time)
3. Serve - start the application server on 0.0.0.0:$PORT, only after migrating`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the status of the failing
// command, or 1 for any other error.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(int(shell.CodeOf(err)))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.launchpad.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("recipe", "", "recipe file (default is launchpad.{yaml,yml,toml,json} in the source path)")
	flags.StringSlice("env-file", nil, "dotenv files to load in addition to .env")
	flags.Duration("kill-timeout", shell.DefaultKillTimeout, "time between interrupt and kill when stopping a command")

	cobra.CheckErr(viper.BindPFlag("log_level", flags.Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("log_format", flags.Lookup("log-format")))
	cobra.CheckErr(viper.BindPFlag("recipe", flags.Lookup("recipe")))
	cobra.CheckErr(viper.BindPFlag("env_files", flags.Lookup("env-file")))
	cobra.CheckErr(viper.BindPFlag("kill_timeout", flags.Lookup("kill-timeout")))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Without a home directory only flags and the environment apply.
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".launchpad")
		}
	}

	viper.SetEnvPrefix("launchpad")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// Settings are the tool's own options, resolved from flags, LAUNCHPAD_*
// variables and the config file.
type Settings struct {
	LogLevel    string
	LogFormat   string
	Recipe      string
	EnvFiles    []string
	KillTimeout time.Duration
}

func currentSettings() Settings {
	return Settings{
		LogLevel:    viper.GetString("log_level"),
		LogFormat:   viper.GetString("log_format"),
		Recipe:      viper.GetString("recipe"),
		EnvFiles:    viper.GetStringSlice("env_files"),
		KillTimeout: viper.GetDuration("kill_timeout"),
	}
}
