package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

const cliUserAgent = "shortlinks-cli"

func (r *runner) openCmd() *cobra.Command {
	var referrer string

	cmd := &cobra.Command{
		Use:   "open <code>",
		Short: "Follow a short code: record a click and print the destination after the redirect delay.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "cli.open"

			a, err := r.application(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			code := args[0]

			res := a.Resolver.Resolve(ctx, code, shortener.Visit{
				Referrer:  referrer,
				UserAgent: cliUserAgent,
			})

			switch res.Status {
			case shortener.StatusMissing:
				fmt.Fprintln(out, "Link Not Found")
				return errx.E(op, errx.NotFound, fmt.Errorf("short code %q does not exist", code))
			case shortener.StatusExpired:
				fmt.Fprintln(out, "Link Expired")
				return errx.E(op, errx.NotFound, fmt.Errorf("short code %q expired at %s", code, res.Link.ExpiryTime))
			}

			fmt.Fprintf(out, "Redirecting to %s in %s...\n", res.Link.OriginalURL, res.RedirectAfter)

			done := make(chan string, 1)
			cancel := res.ScheduleRedirect(ctx, func(url string) { done <- url })

			select {
			case url := <-done:
				fmt.Fprintln(out, url)
				return nil
			case <-ctx.Done():
				cancel()
				fmt.Fprintln(out, "redirect cancelled")
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&referrer, "referrer", "", "referrer recorded with the click (default \"direct\")")
	return cmd
}
