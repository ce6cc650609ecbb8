package cmd

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/pixeltunes/internal/app"
	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
)

// newProvider is swapped out in tests.
var newProvider = app.NewProvider

func newSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "search the remote catalogue",
		Long:  `search queries the configured metadata provider and prints the matching tracks.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Provider.SearchLimit
			}

			term := strings.TrimSpace(strings.Join(args, " "))
			if term == "" {
				return domain.ErrEmptySearch
			}

			provider := newProvider(cfg.Provider, newLogger(cfg))
			tracks, err := provider.Search(cmd.Context(), term, limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(tracks) == 0 {
				fmt.Fprintln(out, "no results")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tTITLE\tARTIST\tALBUM\tLENGTH")
			for i, t := range tracks {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, t.Title, t.Artist, t.Album, formatLength(t.DurationHint))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%s %s from %s\n",
				humanize.Comma(int64(len(tracks))),
				pluralize(len(tracks), "track", "tracks"),
				provider.Name())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (default from config)")
	return cmd
}

// formatLength renders seconds as m:ss, or "-" when unknown.
func formatLength(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "-"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
