package launchpad

import (
	"fmt"

	"github.com/railwayapp/launchpad/internal/bootstrap"
	"github.com/railwayapp/launchpad/internal/migrations"
	"github.com/railwayapp/launchpad/internal/server"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [source-path]",
	Short: "Apply migrations, then serve the application",
	Long: `Start is the container command. It reads the runtime environment once,
checks the port and the recipe's required variables, applies pending
migrations and only when they succeed starts the server on 0.0.0.0:$PORT.
A failing migration exits non-zero without ever serving.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
			return fmt.Errorf("preflight failed: %w", err)
		}

		migrator, err := migrations.New(r, cfg, a.shell, a.sourceDir, a.logger.Named("migrate"))
		if err != nil {
			return err
		}
		srv := server.NewProcessServer(a.shell, r, a.sourceDir, a.logger.Named("serve"))

		return bootstrap.New(migrator, srv, cfg, a.logger).Run(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [source-path]",
	Short: "Apply pending migrations and exit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
			return fmt.Errorf("preflight failed: %w", err)
		}

		migrator, err := migrations.New(r, cfg, a.shell, a.sourceDir, a.logger.Named("migrate"))
		if err != nil {
			return err
		}
		if err := migrator.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		a.logger.Infow("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(migrateCmd)
}
