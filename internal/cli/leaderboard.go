package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// RenderLeaderboard renders a leaderboard page with previous/next hints.
// command is the invocation the hints suggest, e.g. "treasury baltop".
func RenderLeaderboard(page model.BalancePage, command string) string {
	unit := page.Currency.PluralName
	if unit == "" {
		unit = page.Currency.Name
	}
	title := fmt.Sprintf("Top %s balances, page %d", unit, page.Page)
	if page.Kind == model.KindVirtual {
		title = fmt.Sprintf("Top virtual %s balances, page %d", unit, page.Page)
	}

	var rows []string
	if len(page.Rows) == 0 {
		rows = append(rows, SubtleStyle.Render("No balances on this page."))
	}
	for _, row := range page.Rows {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			RankStyle.Render(fmt.Sprintf("#%d", row.Rank)),
			NameStyle.Render(row.DisplayName),
			AmountStyle.Render(row.Formatted),
		))
	}

	// Hints name the currency with underscores so they survive argument splitting
	currencyArg := strings.ReplaceAll(page.Currency.Name, " ", "_")
	if page.Kind == model.KindVirtual {
		command += " --virtual"
	}

	var nav []string
	if page.HasPrev {
		nav = append(nav, SubtleStyle.Render(fmt.Sprintf("« %s %d %s", command, page.Page-1, currencyArg)))
	}
	if page.HasNext {
		nav = append(nav, SubtleStyle.Render(fmt.Sprintf("%s %d %s »", command, page.Page+1, currencyArg)))
	}
	if len(nav) > 0 {
		rows = append(rows, "", strings.Join(nav, "   "))
	}

	return RenderBox(title, lipgloss.JoinVertical(lipgloss.Left, rows...))
}
