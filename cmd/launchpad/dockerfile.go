package launchpad

import (
	"fmt"

	"github.com/railwayapp/launchpad/internal/manifest"
	"github.com/spf13/cobra"
)

var dockerfileCmd = &cobra.Command{
	Use:   "dockerfile [source-path]",
	Short: "Render a Dockerfile that provisions at build time and starts with launchpad",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		binary, _ := cmd.Flags().GetString("binary")
		fromImage, _ := cmd.Flags().GetString("from-image")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer a.close()

		r, err := a.loadRecipe()
		if err != nil {
			return err
		}

		opts := manifest.Options{BinarySource: binary}
		if fromImage != "" {
			opts = manifest.Options{BinarySource: fromImage, FromImage: true}
		}
		content, err := manifest.Render(r, opts)
		if err != nil {
			return err
		}

		if output == "" || output == "-" {
			_, err = cmd.OutOrStdout().Write(content)
			return err
		}
		if err := a.filesystem.WriteFile(output, content, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		a.logger.Infow("wrote dockerfile", "path", output)
		return nil
	},
}

func init() {
	dockerfileCmd.Flags().String("binary", "launchpad", "path of the launchpad binary in the build context")
	dockerfileCmd.Flags().String("from-image", "", "copy the launchpad binary from this image instead")
	dockerfileCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	rootCmd.AddCommand(dockerfileCmd)
}
