package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

func (r *runner) createCmd() *cobra.Command {
	var (
		customCode string
		lifetime   int
	)

	cmd := &cobra.Command{
		Use:   "create <url>",
		Short: "Shorten a URL and print the short URL.",
		Example: `  shortlinks create https://example.com/some/long/path
  shortlinks create https://example.com --code promo --lifetime 1440`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.application(cmd)
			if err != nil {
				return err
			}

			shortURL, err := a.Registry.Create(cmd.Context(), shortener.CreateRequest{
				OriginalURL:     args[0],
				CustomCode:      customCode,
				LifetimeMinutes: lifetime,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), shortURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&customCode, "code", "c", "", "custom short code (generated when empty)")
	cmd.Flags().IntVarP(&lifetime, "lifetime", "l", 0, "lifetime in minutes (0 uses the configured default)")
	return cmd
}

func (r *runner) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List links, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.application(cmd)
			if err != nil {
				return err
			}

			links := a.Registry.List()
			if len(links) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no links yet")
				return nil
			}

			now := a.Registry.Now()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tCLICKS\tSTATUS\tEXPIRES\tURL")
			for _, l := range links {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
					l.ID, l.ShortCode, l.ClickCount(), linkStatus(l, now),
					l.ExpiryTime.Local().Format(time.DateTime), l.OriginalURL)
			}
			return tw.Flush()
		},
	}
}

func (r *runner) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a link by id. Unknown ids are ignored.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.application(cmd)
			if err != nil {
				return err
			}

			if a.Registry.Delete(cmd.Context(), args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "no link with id %s\n", args[0])
			}
			return nil
		},
	}
}

func (r *runner) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals, clicks per day and the most recent links.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.application(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s := a.Registry.Analytics()
			fmt.Fprintf(out, "Total links:      %d\n", s.TotalLinks)
			fmt.Fprintf(out, "Total clicks:     %d\n", s.TotalClicks)
			fmt.Fprintf(out, "Active links:     %d\n", s.ActiveLinks)
			fmt.Fprintf(out, "Avg clicks/link:  %d\n", s.AvgClicksPerLink)

			if days := a.Registry.ClicksByDay(time.Local); len(days) > 0 {
				fmt.Fprintln(out, "\nClicks by day:")
				for _, d := range days {
					fmt.Fprintf(out, "  %s  %d\n", d.Date, d.Clicks)
				}
			}

			if recent := a.Registry.Recent(shortener.RecentLinksLimit); len(recent) > 0 {
				fmt.Fprintln(out, "\nRecent links:")
				for _, l := range recent {
					fmt.Fprintf(out, "  %s  %d clicks  %s\n", a.Registry.ShortURL(l.ShortCode), l.ClickCount(), l.OriginalURL)
				}
			}
			return nil
		},
	}
}

func linkStatus(l shortener.Link, now time.Time) string {
	if l.Expired(now) {
		return "expired"
	}
	return "active"
}
