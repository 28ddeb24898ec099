package launchpad

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/railwayapp/launchpad/internal/provision"
	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision [source-path]",
	Short: "Install dependencies and prepare the source tree at image build time",
	Long: `Provision runs the build-time steps in order:
  os-packages     install the recipe's OS packages (fatal)
  dependencies    install the dependency manifest (fatal)
  directories     create the static and media directories (fatal)
  collect-static  collect static assets (failure is logged and ignored)`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		reportPath, _ := cmd.Flags().GetString("report")
		return runProvision(cmd, args, dryRun, reportPath)
	},
}

func init() {
	provisionCmd.Flags().Bool("dry-run", false, "print the steps without running them")
	provisionCmd.Flags().String("report", "", "write the provisioning report as JSON to this file")
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string, dryRun bool, reportPath string) error {
	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.close()

	r, err := a.loadRecipe()
	if err != nil {
		return err
	}

	provisioner := provision.NewProvisioner(r, a.filesystem, a.shell, a.sourceDir, a.logger.Named("provision"))

	out := cmd.OutOrStdout()
	if dryRun {
		for i, step := range provisioner.Steps() {
			fmt.Fprintf(out, "%d. %s (%s)\n   %s\n", i+1, step.Name, step.Policy, step.Describe)
		}
		return nil
	}

	report, runErr := provisioner.Run(cmd.Context())
	if report != nil {
		printReport(out, report)
		if reportPath != "" {
			if err := writeReport(a, reportPath, report); err != nil {
				a.logger.Errorw("failed to write report", "path", reportPath, "error", err)
			}
		}
	}
	if runErr != nil {
		return fmt.Errorf("provisioning failed: %w", runErr)
	}

	if suppressed := report.Suppressed(); len(suppressed) > 0 {
		a.logger.Warnw("provisioning completed with suppressed failures", "steps", suppressed)
	} else {
		a.logger.Infow("provisioning completed")
	}
	return nil
}

func printReport(out io.Writer, report *provision.Report) {
	fmt.Fprintf(out, "Provisioning report (%d steps):\n", len(report.Steps))
	for _, step := range report.Steps {
		fmt.Fprintf(out, "  - %-15s %-10s %s", step.Name, step.Status, step.Duration.Round(1e6))
		if step.Error != "" {
			fmt.Fprintf(out, "  exit=%s  %s", step.ExitCode, step.Error)
		}
		fmt.Fprintln(out)
	}
}

func writeReport(a *app, path string, report *provision.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON export failed: %w", err)
	}
	return a.filesystem.WriteFile(path, append(data, '\n'), 0o644)
}
