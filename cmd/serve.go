package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/pixeltunes/internal/app"
)

func newServeCmd() *cobra.Command {
	var (
		addr      string
		mockMedia bool
		noBanner  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP and websocket server",
		Long: `serve starts the player core. Browser clients connect to /ws and drive the
media element; the REST API lives under /api.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			if !noBanner {
				fmt.Fprintln(cmd.OutOrStdout(), figure.NewFigure(app.AppName, "", true).String())
				fmt.Fprintln(cmd.OutOrStdout(), app.GetVersionInfo().FullString())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.NewApplication(ctx, app.Options{
				Config:    cfg,
				MockMedia: mockMedia,
				Logger:    newLogger(cfg),
			})
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}

			runErr := application.Run(ctx)
			if err := application.Shutdown(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "shutdown error: %v\n", err)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&mockMedia, "mock-media", false, "play through the in-memory media output instead of browser clients")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "do not print the startup banner")
	return cmd
}
