package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fjglira/GoE2E-Runner/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the runs, tests and reports API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return server.New(a.svc, cfg.Server, log).Start(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&installBrowsers, "install-browsers", false, "install the Playwright driver and browser on first launch")
	rootCmd.AddCommand(serveCmd)
}

