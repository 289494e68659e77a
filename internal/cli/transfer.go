package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

func (r *runner) exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every link and its clicks as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.application(cmd)
			if err != nil {
				return err
			}

			data, err := shortener.EncodeLinks(a.Registry.List())
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, data, "", "  "); err != nil {
				return err
			}
			buf.WriteByte('\n')

			if output == "" || output == "-" {
				_, err := buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported links to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func (r *runner) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Merge links from an export. Links whose id or code already exist are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.application(cmd)
			if err != nil {
				return err
			}

			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}

			links, err := shortener.DecodeLinks(data)
			if err != nil {
				return err
			}

			added := a.Registry.Import(cmd.Context(), links)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d links (%d skipped)\n", added, len(links)-added)
			return nil
		},
	}
}
