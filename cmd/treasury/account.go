package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/treasury/internal/cli"
	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage player and virtual accounts",
		Long: `Create and inspect accounts and change their balances and job settings.

Player accounts are addressed by their UUID. Virtual accounts, such as a shop
or the server bank, take any identifier and need --virtual.`,
		Example: `  # Create a player account with every currency at its starting balance
  treasury account create 0b3b5d2c-6c6e-4d43-9f5b-7f3c2e7a1d11

  # Give the server bank some gems
  treasury account set-balance --virtual server_bank gem 5000

  # Show a player's balances
  treasury account show 0b3b5d2c-6c6e-4d43-9f5b-7f3c2e7a1d11`,
	}

	cmd.AddCommand(createAccountCmd())
	cmd.AddCommand(showAccountCmd())
	cmd.AddCommand(setBalanceCmd())
	cmd.AddCommand(setJobCmd())
	cmd.AddCommand(toggleNotificationsCmd())

	return cmd
}

func createAccountCmd() *cobra.Command {
	var virtual bool

	cmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create an account, or backfill missing currencies of an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				account, err := app.account(ctx, args[0], virtual)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Account ready: "+account.Ref().String()))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&virtual, "virtual", false, "Treat the id as a virtual account identifier")

	return cmd
}

func showAccountCmd() *cobra.Command {
	var virtual bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an account's balances and job settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				ref := model.VirtualRef(args[0])
				if !virtual {
					uid, err := uuid.Parse(args[0])
					if err != nil {
						return common.NewUserError(fmt.Sprintf("%q is not a player id", args[0]), err)
					}
					ref = model.UniqueRef(uid)
				}

				exists, err := app.backend.AccountExists(ctx, ref)
				if err != nil {
					return fmt.Errorf("failed to look up account: %w", err)
				}
				if !exists {
					return common.NewUserError("no such account: "+ref.String(), common.ErrAccountNotFound)
				}

				account, err := app.account(ctx, ref.ID, virtual)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatTitle(ref.String()))
				for _, c := range app.store.Currencies() {
					balance, err := account.Balance(ctx, c)
					if err != nil {
						fmt.Fprintf(out, "  %-12s %s\n", c.Name, cli.SubtleStyle.Render("no balance"))
						continue
					}
					fmt.Fprintf(out, "  %-12s %s\n", c.Name, cli.BoldStyle.Render(formatAmount(c, balance)))
				}

				if account.Kind() == model.KindUnique {
					job, err := account.Job(ctx)
					if err != nil {
						return fmt.Errorf("failed to read job: %w", err)
					}
					notify, err := account.JobNotifications(ctx)
					if err != nil {
						return fmt.Errorf("failed to read notification state: %w", err)
					}
					fmt.Fprintf(out, "  %-12s %s\n", "Job", job)
					fmt.Fprintf(out, "  %-12s %t\n", "Notify", notify)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&virtual, "virtual", false, "Treat the id as a virtual account identifier")

	return cmd
}

func setBalanceCmd() *cobra.Command {
	var virtual bool

	cmd := &cobra.Command{
		Use:   "set-balance <id> <currency> <amount>",
		Short: "Set an account's balance in one currency",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return common.NewUserError(fmt.Sprintf("%q is not an amount", args[2]), err)
			}

			return withApplication(cmd, func(ctx context.Context, app *application) error {
				c, err := app.currency(args[1])
				if err != nil {
					return err
				}
				account, err := app.account(ctx, args[0], virtual)
				if err != nil {
					return err
				}
				if err := account.SetBalance(ctx, c, amount); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s now holds %s",
					account.Ref(), formatAmount(c, amount.Round(2)))))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&virtual, "virtual", false, "Treat the id as a virtual account identifier")

	return cmd
}

func setJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-job <player-id> <job>",
		Short: "Change a player's job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				account, err := app.account(ctx, args[0], false)
				if err != nil {
					return err
				}
				if err := account.SetJob(ctx, args[1]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s is now a %s", account.Ref(), args[1])))
				return nil
			})
		},
	}
}

func toggleNotificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-notifications <player-id>",
		Short: "Turn a player's job notifications on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := uuid.Parse(args[0])
			if err != nil {
				return common.NewUserError(fmt.Sprintf("%q is not a player id", args[0]), err)
			}
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				_, err := app.store.ToggleNotifications(ctx, uid)
				if errors.Is(err, common.ErrAccountNotFound) {
					return common.NewUserError(fmt.Sprintf("no such account %s; create it first", uid), err)
				}
				return err
			})
		},
	}
}
