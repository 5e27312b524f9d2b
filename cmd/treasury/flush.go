package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/treasury/internal/cli"
	"github.com/spf13/cobra"
)

func flushCmd() *cobra.Command {
	var reload bool

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Write the accounts document to disk now",
		Long: `Force a write of the in-memory accounts document. With --reload the
document is re-read from disk instead, discarding unsaved changes.

SQL backends write every change immediately, so this is a no-op for them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				out := cmd.OutOrStdout()
				if reload {
					if err := app.store.Reload(ctx); err != nil {
						return err
					}
					fmt.Fprintln(out, cli.FormatSuccess("Reloaded accounts from disk"))
					return nil
				}

				if err := app.store.Flush(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Accounts saved (%s backend)", app.backend.Name())))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reload, "reload", false, "Re-read the document from disk instead of writing it")

	return cmd
}
