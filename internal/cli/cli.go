// Package cli implements the shortlinks command line tool. Every command
// works against the configured store through the registry and resolver.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/sundayezeilo/shortlinks/internal/app"
)

// Opener builds the application the commands run against. Logs go to logw.
type Opener func(ctx context.Context, logw io.Writer) (*app.App, error)

// DefaultOpener loads configuration from the environment.
func DefaultOpener(ctx context.Context, logw io.Writer) (*app.App, error) {
	return app.New(ctx, app.WithLogOutput(logw))
}

type runner struct {
	open Opener
	app  *app.App
}

// Execute runs the command line in args. The application is opened lazily by
// the first command that needs it and shut down afterwards, which flushes any
// save that failed during the command.
func Execute(ctx context.Context, open Opener, args []string, stdout, stderr io.Writer) error {
	if open == nil {
		open = DefaultOpener
	}
	r := &runner{open: open}

	root := r.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if r.app != nil {
		if shutdownErr := r.app.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			err = errors.Join(err, shutdownErr)
		}
	}
	return err
}

func (r *runner) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shortlinks",
		Short:         "Create, inspect and follow short links.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		r.createCmd(),
		r.listCmd(),
		r.deleteCmd(),
		r.statsCmd(),
		r.openCmd(),
		r.exportCmd(),
		r.importCmd(),
	)
	return root
}

// application opens the app on first use.
func (r *runner) application(cmd *cobra.Command) (*app.App, error) {
	if r.app != nil {
		return r.app, nil
	}
	a, err := r.open(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	r.app = a
	return a, nil
}
