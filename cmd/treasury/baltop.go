package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Veraticus/treasury/internal/cli"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/ranking"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func baltopCmd() *cobra.Command {
	var virtual bool

	cmd := &cobra.Command{
		Use:   "baltop [page] [currency]",
		Short: "Show the top balances",
		Long: `Rank accounts by balance in one currency, five per page by default.

An unknown or missing currency falls back to the default currency. Use
underscores for spaces in currency names.`,
		Example: `  treasury baltop
  treasury baltop 2
  treasury baltop 1 gold_coin
  treasury baltop --virtual`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := parseBaltopArgs(args)
			if virtual {
				req.Kind = model.KindVirtual
			}

			return withApplication(cmd, func(ctx context.Context, app *application) error {
				delivered := make(chan model.BalancePage, 1)
				if err := app.engine.Submit(ctx, app.pool, req, func(page model.BalancePage) {
					delivered <- page
				}); err != nil {
					return err
				}

				select {
				case page := <-delivered:
					fmt.Fprintln(cmd.OutOrStdout(), cli.RenderLeaderboard(page, "treasury baltop"))
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		},
	}

	cmd.Flags().BoolVar(&virtual, "virtual", false, "Rank virtual accounts instead of players")

	return cmd
}

// parseBaltopArgs accepts "[page] [currency]"; a lone non-numeric argument
// is taken as the currency.
func parseBaltopArgs(args []string) ranking.Request {
	req := ranking.Request{Page: 1}
	if len(args) == 0 {
		return req
	}
	if page, err := strconv.Atoi(args[0]); err == nil {
		req.Page = page
		if len(args) > 1 {
			req.Currency = args[1]
		}
		return req
	}
	req.Currency = args[0]
	return req
}

func formatAmount(c model.Currency, amount decimal.Decimal) string {
	return ranking.FormatBalance(c.Symbol, amount)
}
