package launchpad

import (
	"fmt"

	"github.com/railwayapp/launchpad/internal/discovery"
	"github.com/railwayapp/launchpad/internal/export"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [source-path]",
	Short: "Derive a recipe from the deployment files already in a source tree",
	Long: `Inspect reads Dockerfiles, compose files, Procfiles, platform configs
(railway, fly, render, app.json), env templates and the Django project layout,
and prints the recipe they describe. The most explicit source wins each field.
Use --write to save it as the source tree's recipe file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		write, _ := cmd.Flags().GetBool("write")
		maxDepth, _ := cmd.Flags().GetInt("max-depth")

		exporter, err := export.New(format)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.close()

		inspector := discovery.NewInspector(a.filesystem, a.logger.Named("inspect"))
		inspector.MaxDepth = maxDepth
		result, err := inspector.Inspect(cmd.Context(), a.sourceDir)
		if err != nil {
			return fmt.Errorf("inspection failed: %w", err)
		}

		for _, source := range result.Sources {
			a.logger.Infow("read deployment config", "type", source.Type, "path", source.Path)
		}
		if err := result.Recipe.Validate(); err != nil {
			a.logger.Warnw("inspected recipe needs editing", "error", err)
		}

		output, err := exporter.Export(result.Recipe)
		if err != nil {
			return fmt.Errorf("%s export failed: %w", exporter.Name(), err)
		}

		if !write {
			_, err = cmd.OutOrStdout().Write(output)
			return err
		}

		path := a.filesystem.Join(a.sourceDir, export.FileName(exporter))
		if err := a.filesystem.WriteFile(path, output, 0o644); err != nil {
			return fmt.Errorf("failed to write recipe: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringP("format", "f", "yaml", "output format: yaml, toml or json")
	inspectCmd.Flags().Bool("write", false, "write the recipe into the source path")
	inspectCmd.Flags().Int("max-depth", discovery.DefaultMaxDepth, "how many directories below the source path to read")
	rootCmd.AddCommand(inspectCmd)
}
