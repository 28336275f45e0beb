package report

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"payboard/internal/core"
)

// WriteText renders an aligned terminal table with a Total footer.
func WriteText(w io.Writer, rep Report) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	for _, r := range rep.Rows {
		table.Append([]string{r.Author, strconv.Itoa(r.ArticleCount), core.FormatDollars(r.PayoutTotal)})
	}
	table.SetFooter([]string{totalLabel, strconv.Itoa(rep.Totals.Articles), core.FormatDollars(rep.Totals.Payout)})
	table.Render()
	return nil
}
