package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/pixeltunes/internal/app"
	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "import a folder of audio files into the local library",
		Long: `import walks dir, stores every supported audio file in the configured blob
store and adds it to the local library. Interrupting stops after the current file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			info, err := os.Stat(dir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// imports never reach the network
			cfg.Cache.Kind = "none"

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.NewApplication(ctx, app.Options{
				Config:    cfg,
				MockMedia: true,
				Logger:    newLogger(cfg),
			})
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			defer func() {
				if err := application.Shutdown(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "shutdown error: %v\n", err)
				}
			}()

			store, _, library, _ := application.GetServices()
			started := time.Now()

			n, err := library.ImportFolder(ctx, dir)
			out := cmd.OutOrStdout()
			if errors.Is(err, context.Canceled) {
				fmt.Fprintf(out, "import interrupted after %s %s\n", humanize.Comma(int64(n)), pluralize(n, "track", "tracks"))
				return nil
			}
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Fprintf(out, "imported %s %s from %s in %s\n",
				humanize.Comma(int64(n)),
				pluralize(n, "track", "tracks"),
				dir,
				time.Since(started).Round(time.Millisecond))
			fmt.Fprintf(out, "library now holds %s %s\n",
				humanize.Comma(int64(store.Len(domain.CollectionLocal))),
				pluralize(store.Len(domain.CollectionLocal), "track", "tracks"))
			return nil
		},
	}
}
