package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

var publishTestID string

var publishCmd = &cobra.Command{
	Use:   "publish <request.json>",
	Short: "Write a step-list test out as a Playwright spec file",
	Long: `Compiles the run request in the given JSON file and renders it into
the writer's output directory. With --dry-run the rendered spec is printed
instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		var req domain.RunRequest
		if err := readJSONFile(cmd, args[0], &req); err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if cfg.DryRun {
			code, err := a.svc.Preview(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), code)
			return err
		}

		out, err := a.svc.Publish(cmd.Context(), publishTestID, req)
		if err != nil {
			return err
		}
		log.Infof("Wrote %s", out.Path)
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishTestID, "id", "", "test id used for the file name")
	rootCmd.AddCommand(publishCmd)
}
